package importcsv

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Apurv-15/ai-invoice-track/internal/auth"
	"github.com/Apurv-15/ai-invoice-track/internal/importer"
	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
	"github.com/Apurv-15/ai-invoice-track/internal/matching"
)

var owner = uuid.MustParse("6a1a7f7e-2f0e-4a4c-9d55-3c8f3e9b0a01")

const sample = `invoice_number,vendor,date,amount,description
A-1,AWS EMEA,2026-03-01,120.00,Hosting
A-2,Cab Co,2026-03-02,18.40,Taxi
`

func setup(t *testing.T) (http.Handler, *invoice.MockRepository, *invoice.MockImportTx, *matching.MockRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := invoice.NewMockRepository(ctrl)
	itx := invoice.NewMockImportTx(ctrl)
	rules := matching.NewMockRepository(ctrl)

	h := NewHandler(importer.NewService(), invoice.NewService(repo), matching.NewService(rules))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: owner})))
		})
	})
	r.Route("/import", h.Routes)

	return r, repo, itx, rules
}

func upload(t *testing.T, h http.Handler, content string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "invoices.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Import_Created(t *testing.T) {
	h, repo, itx, rules := setup(t)

	software := uuid.New()
	rules.EXPECT().FindMatch(gomock.Any(), "AWS EMEA").Return(&matching.Rule{Pattern: "AWS", CategoryID: software}, nil)
	rules.EXPECT().FindMatch(gomock.Any(), "Cab Co").Return(nil, nil)

	repo.EXPECT().BeginImport(gomock.Any(), owner).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), owner, []string{"A-1", "A-2"}).Return(nil, nil)
	itx.EXPECT().CreateInvoices(gomock.Any(), gomock.Len(2)).DoAndReturn(func(_ context.Context, invs []*invoice.Invoice) error {
		require.NotNil(t, invs[0].CategoryID)
		assert.Equal(t, software, *invs[0].CategoryID)
		assert.Nil(t, invs[1].CategoryID)
		for _, inv := range invs {
			assert.Equal(t, owner, inv.OwnerID)
			inv.ID = uuid.New()
		}
		return nil
	})
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	rec := upload(t, h, sample)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp importSuccessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Imported)
	assert.Equal(t, "2026-03-01", resp.Invoices[0].Date)
}

func TestHandler_Import_Conflicts(t *testing.T) {
	h, repo, itx, rules := setup(t)

	rules.EXPECT().FindMatch(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	existing := &invoice.Invoice{ID: uuid.New(), OwnerID: owner, InvoiceNumber: "A-2", Vendor: "Cab Co"}

	repo.EXPECT().BeginImport(gomock.Any(), owner).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), owner, gomock.Any()).Return([]*invoice.Invoice{existing}, nil)
	itx.EXPECT().Rollback().Return(nil)

	rec := upload(t, h, sample)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp importConflictResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.New, 1)
	assert.Equal(t, "A-1", resp.New[0].InvoiceNumber)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "A-2", resp.Conflicts[0].Incoming.InvoiceNumber)
	require.NotNil(t, resp.Conflicts[0].Existing)
	assert.Equal(t, existing.ID, resp.Conflicts[0].Existing.ID)
}

func TestHandler_Import_BadFile(t *testing.T) {
	h, _, _, _ := setup(t)

	rec := upload(t, h, "name,age\nbob,3\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Confirm(t *testing.T) {
	h, repo, itx, _ := setup(t)

	repo.EXPECT().BeginImport(gomock.Any(), owner).Return(itx, nil)
	itx.EXPECT().CreateInvoices(gomock.Any(), gomock.Len(1)).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	body := `{"rows":[{"invoice_number":"A-1","vendor":"AWS EMEA","date":"2026-03-01","amount":"120.00"}]}`
	req := httptest.NewRequest(http.MethodPost, "/import/confirm", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandler_Confirm_BadDate(t *testing.T) {
	h, _, _, _ := setup(t)

	body := `{"rows":[{"invoice_number":"A-1","vendor":"V","date":"01/03/2026","amount":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/import/confirm", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
