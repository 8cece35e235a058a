package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/blob"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

var (
	ownerID = uuid.MustParse("1f3e1c1a-0d5b-4c55-8a57-6d2d1b1fd001")
	adminID = uuid.MustParse("1f3e1c1a-0d5b-4c55-8a57-6d2d1b1fd002")
)

// withIdentity stands in for the auth middleware.
func withIdentity(id auth.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func newRouter(t *testing.T, repo invoice.Repository, blobs blob.Store, caller auth.Identity) http.Handler {
	t.Helper()

	h := NewHandler(invoice.NewService(repo), nil, blobs)

	r := chi.NewRouter()
	r.Use(withIdentity(caller))
	r.Route("/invoices", h.Routes)

	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func pendingInvoice(id uuid.UUID) *invoice.Invoice {
	return &invoice.Invoice{
		ID:            id,
		OwnerID:       ownerID,
		InvoiceNumber: "INV-100",
		Vendor:        "Acme",
		Date:          time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("120.5"),
		Status:        invoice.StatusPending,
	}
}

func TestHandler_Create(t *testing.T) {
	existing := pendingInvoice(uuid.New())

	type testCase struct {
		name       string
		body       string
		setupMock  func(m *invoice.MockRepository)
		wantStatus int
		verify     func(t *testing.T, body map[string]any)
	}

	tests := []testCase{
		{
			name: "Created",
			body: `{"invoice_number":"INV-200","vendor":"Globex","date":"2026-04-03","amount":99.9}`,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().FindByNumber(gomock.Any(), ownerID, "INV-200").Return(nil, invoice.ErrNotFound)
				m.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
					assert.Equal(t, ownerID, inv.OwnerID)
					inv.ID = uuid.New()
					return nil
				})
			},
			wantStatus: http.StatusCreated,
			verify: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "INV-200", body["invoice_number"])
				assert.Equal(t, "pending", body["status"])
				assert.Equal(t, "2026-04-03", body["date"])
				assert.Equal(t, 99.9, body["amount"])
			},
		},
		{
			name: "Duplicate",
			body: `{"invoice_number":"INV-100","vendor":"Acme","date":"2026-04-03","amount":"10"}`,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().FindByNumber(gomock.Any(), ownerID, "INV-100").Return(existing, nil)
			},
			wantStatus: http.StatusConflict,
			verify: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "INV-100", body["attempted_invoice_number"])
				ex, ok := body["existing"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, existing.ID.String(), ex["id"])
			},
		},
		{
			name:       "Bad Date",
			body:       `{"invoice_number":"INV-1","vendor":"Acme","date":"04/03/2026","amount":1}`,
			setupMock:  func(*invoice.MockRepository) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Blank Vendor",
			body:       `{"invoice_number":"INV-1","vendor":"  ","date":"2026-04-03","amount":1}`,
			setupMock:  func(*invoice.MockRepository) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Malformed JSON",
			body:       `{`,
			setupMock:  func(*invoice.MockRepository) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			tc.setupMock(repo)

			rec := do(t, newRouter(t, repo, nil, auth.Identity{UserID: ownerID}), http.MethodPost, "/invoices/", tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code)

			if tc.verify != nil {
				var body map[string]any
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				tc.verify(t, body)
			}
		})
	}
}

func TestHandler_List_ScopesToCaller(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	repo.EXPECT().ListInvoices(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, f invoice.ListFilter) ([]*invoice.Invoice, error) {
		require.NotNil(t, f.OwnerID)
		assert.Equal(t, ownerID, *f.OwnerID)
		require.NotNil(t, f.Status)
		assert.Equal(t, invoice.StatusPending, *f.Status)
		return []*invoice.Invoice{pendingInvoice(uuid.New())}, nil
	})

	rec := do(t, newRouter(t, repo, nil, auth.Identity{UserID: ownerID}), http.MethodGet, "/invoices/?status=pending&owner_id="+adminID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body, 1)
}

func TestHandler_List_AdminSeesAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	repo.EXPECT().ListInvoices(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, f invoice.ListFilter) ([]*invoice.Invoice, error) {
		assert.Nil(t, f.OwnerID)
		assert.Equal(t, "acme", f.Search)
		return nil, nil
	})

	rec := do(t, newRouter(t, repo, nil, auth.Identity{UserID: adminID, Admin: true}), http.MethodGet, "/invoices/?search=acme", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandler_List_UnknownStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := do(t, newRouter(t, invoice.NewMockRepository(ctrl), nil, auth.Identity{UserID: ownerID}), http.MethodGet, "/invoices/?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Get_HidesOtherOwners(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	repo := invoice.NewMockRepository(ctrl)
	repo.EXPECT().GetInvoice(gomock.Any(), id).Return(pendingInvoice(id), nil)

	rec := do(t, newRouter(t, repo, nil, auth.Identity{UserID: uuid.New()}), http.MethodGet, "/invoices/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Transitions(t *testing.T) {
	id := uuid.New()

	type testCase struct {
		name       string
		caller     auth.Identity
		path       string
		body       string
		setupMock  func(m *invoice.MockRepository)
		wantStatus int
	}

	tests := []testCase{
		{
			name:   "Approve",
			caller: auth.Identity{UserID: adminID, Admin: true},
			path:   "/approve",
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), id).Return(pendingInvoice(id), nil)
				m.EXPECT().Transition(gomock.Any(), id, invoice.StatusPending, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ uuid.UUID, _ invoice.Status, c invoice.StatusChange) (*invoice.Invoice, error) {
						assert.Equal(t, invoice.StatusApproved, c.To)
						require.NotNil(t, c.ReviewerID)
						assert.Equal(t, adminID, *c.ReviewerID)
						inv := pendingInvoice(id)
						inv.Status = invoice.StatusApproved
						return inv, nil
					})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "Approve Twice",
			caller: auth.Identity{UserID: adminID, Admin: true},
			path:   "/approve",
			setupMock: func(m *invoice.MockRepository) {
				inv := pendingInvoice(id)
				inv.Status = invoice.StatusApproved
				m.EXPECT().GetInvoice(gomock.Any(), id).Return(inv, nil)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "Reject Blank Reason",
			caller:     auth.Identity{UserID: adminID, Admin: true},
			path:       "/reject",
			body:       `{"reason":"   "}`,
			setupMock:  func(*invoice.MockRepository) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Non Admin",
			caller:     auth.Identity{UserID: ownerID},
			path:       "/approve",
			setupMock:  func(*invoice.MockRepository) {},
			wantStatus: http.StatusForbidden,
		},
		{
			name:   "Pay Pending",
			caller: auth.Identity{UserID: adminID, Admin: true},
			path:   "/pay",
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), id).Return(pendingInvoice(id), nil)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:   "Missing",
			caller: auth.Identity{UserID: adminID, Admin: true},
			path:   "/approve",
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), id).Return(nil, invoice.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			tc.setupMock(repo)

			rec := do(t, newRouter(t, repo, nil, tc.caller), http.MethodPost, "/invoices/"+id.String()+tc.path, tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestHandler_Update_EditToTakenNumber(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	other := pendingInvoice(uuid.New())
	other.InvoiceNumber = "INV-TAKEN"

	repo := invoice.NewMockRepository(ctrl)
	repo.EXPECT().GetInvoice(gomock.Any(), id).Return(pendingInvoice(id), nil)
	repo.EXPECT().FindByNumber(gomock.Any(), ownerID, "INV-TAKEN").Return(other, nil)

	rec := do(t, newRouter(t, repo, nil, auth.Identity{UserID: ownerID}), http.MethodPatch, "/invoices/"+id.String(), `{"invoice_number":"INV-TAKEN"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body conflictResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INV-TAKEN", body.AttemptedInvoiceNumber)
	require.NotNil(t, body.Existing)
	assert.Equal(t, other.ID, body.Existing.ID)
}

func TestHandler_Document(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	uri, err := store.Put(context.Background(), "invoice-documents/x/1.pdf", "application/pdf", bytes.NewReader([]byte("%PDF-1.7")))
	require.NoError(t, err)

	id := uuid.New()
	inv := pendingInvoice(id)
	inv.FileURL = uri

	repo := invoice.NewMockRepository(ctrl)
	repo.EXPECT().GetInvoice(gomock.Any(), id).Return(inv, nil)

	rec := do(t, newRouter(t, repo, store, auth.Identity{UserID: ownerID}), http.MethodGet, "/invoices/"+id.String()+"/document", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
}

func TestHandler_Update_ConstraintWithoutSurvivingRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()

	repo := invoice.NewMockRepository(ctrl)
	repo.EXPECT().GetInvoice(gomock.Any(), id).Return(pendingInvoice(id), nil)
	repo.EXPECT().FindByNumber(gomock.Any(), ownerID, "INV-RACE").Return(nil, invoice.ErrNotFound)
	repo.EXPECT().UpdateInvoice(gomock.Any(), gomock.Any()).Return(invoice.ErrDuplicateNumber)
	repo.EXPECT().FindByNumber(gomock.Any(), ownerID, "INV-RACE").Return(nil, invoice.ErrNotFound)

	rec := do(t, newRouter(t, repo, nil, auth.Identity{UserID: ownerID}), http.MethodPatch, "/invoices/"+id.String(), `{"invoice_number":"INV-RACE"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INV-RACE", body["attempted_invoice_number"])
	assert.NotContains(t, body, "existing")
}

func TestToConflictResponse_NoExisting(t *testing.T) {
	resp := toConflictResponse(&invoice.Conflict{AttemptedNumber: "INV-9"})

	assert.Equal(t, "INV-9", resp.AttemptedInvoiceNumber)
	assert.Nil(t, resp.Existing)
}

func TestHandler_Update_Category(t *testing.T) {
	id := uuid.New()
	travel := uuid.New()

	categorized := func() *invoice.Invoice {
		inv := pendingInvoice(id)
		inv.CategoryID = new(uuid.New())
		inv.CategoryConfidence = new(0.42)

		return inv
	}

	type testCase struct {
		name       string
		body       string
		setupMock  func(m *invoice.MockRepository)
		wantStatus int
	}

	tests := []testCase{
		{
			name: "Set By Hand",
			body: `{"category_id":"` + travel.String() + `"}`,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), id).Return(categorized(), nil)
				m.EXPECT().UpdateInvoice(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
					require.NotNil(t, inv.CategoryID)
					assert.Equal(t, travel, *inv.CategoryID)
					assert.Nil(t, inv.CategoryConfidence)
					return nil
				})
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Cleared With Null",
			body: `{"category_id":null}`,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), id).Return(categorized(), nil)
				m.EXPECT().UpdateInvoice(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
					assert.Nil(t, inv.CategoryID)
					assert.Nil(t, inv.CategoryConfidence)
					return nil
				})
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Absent Leaves Category",
			body: `{"vendor":"Acme Ltd"}`,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), id).Return(categorized(), nil)
				m.EXPECT().UpdateInvoice(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
					assert.NotNil(t, inv.CategoryID)
					require.NotNil(t, inv.CategoryConfidence)
					assert.Equal(t, 0.42, *inv.CategoryConfidence)
					return nil
				})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Invalid Id",
			body:       `{"category_id":"travel"}`,
			setupMock:  func(*invoice.MockRepository) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			tc.setupMock(repo)

			rec := do(t, newRouter(t, repo, nil, auth.Identity{UserID: ownerID}), http.MethodPatch, "/invoices/"+id.String(), tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}
