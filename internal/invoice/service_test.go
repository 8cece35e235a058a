package invoice_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Apurv-15/ai-invoice-track/internal/invoice"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(repo invoice.Repository) *invoice.Service {
	return invoice.NewService(repo, invoice.WithClock(func() time.Time { return fixedNow }))
}

func TestService_Create(t *testing.T) {
	owner := uuid.New()
	existing := &invoice.Invoice{ID: uuid.New(), OwnerID: owner, InvoiceNumber: "INV-1", Status: invoice.StatusPending}

	valid := invoice.CreateParams{
		OwnerID:       owner,
		InvoiceNumber: "INV-1",
		Vendor:        "Acme",
		Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("120.50"),
	}

	type testCase struct {
		name         string
		params       invoice.CreateParams
		setupMock    func(m *invoice.MockRepository)
		wantErr      error
		wantConflict bool
	}

	tests := []testCase{
		{
			name:   "Success",
			params: valid,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().FindByNumber(gomock.Any(), owner, "INV-1").Return(nil, invoice.ErrNotFound)
				m.EXPECT().
					CreateInvoice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
						inv.ID = uuid.New()
						inv.CreatedAt = time.Now()
						return nil
					})
			},
		},
		{
			name:   "DuplicateFoundByPrecheck",
			params: valid,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().FindByNumber(gomock.Any(), owner, "INV-1").Return(existing, nil)
			},
			wantConflict: true,
		},
		{
			name:   "DuplicateRejectedByConstraint",
			params: valid,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().FindByNumber(gomock.Any(), owner, "INV-1").Return(nil, invoice.ErrNotFound)
				m.EXPECT().
					CreateInvoice(gomock.Any(), gomock.Any()).
					Return(fmt.Errorf("creating invoice: %w", invoice.ErrDuplicateNumber))
				m.EXPECT().FindByNumber(gomock.Any(), owner, "INV-1").Return(existing, nil)
			},
			wantConflict: true,
		},
		{
			name:   "RepoError",
			params: valid,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().FindByNumber(gomock.Any(), owner, "INV-1").Return(nil, invoice.ErrNotFound)
				m.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
		{
			name: "BlankNumber",
			params: invoice.CreateParams{
				OwnerID:       owner,
				InvoiceNumber: "   ",
				Vendor:        "Acme",
			},
			wantErr: invoice.ErrValidation,
		},
		{
			name: "NegativeAmount",
			params: invoice.CreateParams{
				OwnerID:       owner,
				InvoiceNumber: "INV-2",
				Vendor:        "Acme",
				Amount:        decimal.NewFromInt(-1),
			},
			wantErr: invoice.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := newService(repo).Create(context.Background(), tt.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, got)

				if errors.Is(tt.wantErr, invoice.ErrValidation) {
					assert.ErrorIs(t, err, invoice.ErrValidation)
				}

				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)

			if tt.wantConflict {
				assert.Nil(t, got.Invoice)
				require.NotNil(t, got.Conflict)
				assert.Equal(t, "INV-1", got.Conflict.AttemptedNumber)
				assert.Equal(t, existing, got.Conflict.Existing)

				return
			}

			assert.Nil(t, got.Conflict)
			require.NotNil(t, got.Invoice)
			assert.NotEmpty(t, got.Invoice.ID)
			assert.Equal(t, invoice.StatusPending, got.Invoice.Status)
			assert.Equal(t, owner, got.Invoice.OwnerID)
			assert.Nil(t, got.Invoice.ReviewerID)
		})
	}
}

func TestService_Approve(t *testing.T) {
	reviewer := uuid.New()

	type testCase struct {
		name    string
		current invoice.Status
		wantErr error
	}

	tests := []testCase{
		{name: "FromPending", current: invoice.StatusPending},
		{name: "FromApproved", current: invoice.StatusApproved, wantErr: invoice.ErrInvalidTransition},
		{name: "FromRejected", current: invoice.StatusRejected, wantErr: invoice.ErrInvalidTransition},
		{name: "FromPaid", current: invoice.StatusPaid, wantErr: invoice.ErrInvalidTransition},
		{name: "FromUnpaid", current: invoice.StatusUnpaid, wantErr: invoice.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			inv := &invoice.Invoice{ID: uuid.New(), Status: tt.current}

			repo.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)

			if tt.wantErr == nil {
				repo.EXPECT().
					Transition(gomock.Any(), inv.ID, invoice.StatusPending, gomock.Any()).
					DoAndReturn(func(_ context.Context, id uuid.UUID, _ invoice.Status, c invoice.StatusChange) (*invoice.Invoice, error) {
						assert.Equal(t, invoice.StatusApproved, c.To)
						require.NotNil(t, c.ReviewerID)
						assert.Equal(t, reviewer, *c.ReviewerID)
						require.NotNil(t, c.ReviewedAt)
						assert.Equal(t, fixedNow, *c.ReviewedAt)
						assert.Empty(t, c.RejectionReason)

						return &invoice.Invoice{ID: id, Status: c.To, ReviewerID: c.ReviewerID, ReviewedAt: c.ReviewedAt}, nil
					})
			}

			got, err := newService(repo).Approve(context.Background(), inv.ID, reviewer)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, invoice.StatusApproved, got.Status)
			assert.Equal(t, reviewer, *got.ReviewerID)
		})
	}
}

func TestService_Approve_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	id := uuid.New()

	repo.EXPECT().GetInvoice(gomock.Any(), id).Return(nil, invoice.ErrNotFound)

	_, err := newService(repo).Approve(context.Background(), id, uuid.New())
	assert.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestService_Approve_Twice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	reviewer := uuid.New()
	inv := &invoice.Invoice{ID: uuid.New(), Status: invoice.StatusPending}

	repo.EXPECT().GetInvoice(gomock.Any(), inv.ID).DoAndReturn(func(context.Context, uuid.UUID) (*invoice.Invoice, error) {
		cp := *inv
		return &cp, nil
	}).Times(2)
	repo.EXPECT().
		Transition(gomock.Any(), inv.ID, invoice.StatusPending, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, _ invoice.Status, c invoice.StatusChange) (*invoice.Invoice, error) {
			inv.Status = c.To
			inv.ReviewerID = c.ReviewerID
			inv.ReviewedAt = c.ReviewedAt

			cp := *inv

			return &cp, nil
		})

	svc := newService(repo)

	got, err := svc.Approve(context.Background(), inv.ID, reviewer)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusApproved, got.Status)
	assert.NotNil(t, got.ReviewedAt)

	_, err = svc.Approve(context.Background(), inv.ID, reviewer)
	assert.ErrorIs(t, err, invoice.ErrInvalidTransition)
}

func TestService_Reject_MissingReason(t *testing.T) {
	for _, reason := range []string{"", " ", "   ", "\t", "\n", " \t\r\n "} {
		t.Run(fmt.Sprintf("%q", reason), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)

			got, err := newService(repo).Reject(context.Background(), uuid.New(), uuid.New(), reason)
			assert.ErrorIs(t, err, invoice.ErrMissingReason)
			assert.Nil(t, got)
		})
	}
}

func TestService_Reject(t *testing.T) {
	reviewer := uuid.New()

	type testCase struct {
		name    string
		current invoice.Status
		wantErr error
	}

	tests := []testCase{
		{name: "FromPending", current: invoice.StatusPending},
		{name: "FromApproved", current: invoice.StatusApproved, wantErr: invoice.ErrInvalidTransition},
		{name: "FromRejected", current: invoice.StatusRejected, wantErr: invoice.ErrInvalidTransition},
		{name: "FromPaid", current: invoice.StatusPaid, wantErr: invoice.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			inv := &invoice.Invoice{ID: uuid.New(), Status: tt.current}

			repo.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)

			if tt.wantErr == nil {
				repo.EXPECT().
					Transition(gomock.Any(), inv.ID, invoice.StatusPending, gomock.Any()).
					DoAndReturn(func(_ context.Context, id uuid.UUID, _ invoice.Status, c invoice.StatusChange) (*invoice.Invoice, error) {
						assert.Equal(t, invoice.StatusRejected, c.To)
						assert.Equal(t, "Wrong amount", c.RejectionReason)
						assert.Equal(t, reviewer, *c.ReviewerID)

						return &invoice.Invoice{ID: id, Status: c.To, RejectionReason: c.RejectionReason}, nil
					})
			}

			got, err := newService(repo).Reject(context.Background(), inv.ID, reviewer, "  Wrong amount ")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, invoice.StatusRejected, got.Status)
			assert.Equal(t, "Wrong amount", got.RejectionReason)
		})
	}
}

func TestService_MarkPaid(t *testing.T) {
	type testCase struct {
		name    string
		current invoice.Status
		wantErr error
	}

	tests := []testCase{
		{name: "FromApproved", current: invoice.StatusApproved},
		{name: "FromPending", current: invoice.StatusPending, wantErr: invoice.ErrInvalidTransition},
		{name: "FromRejected", current: invoice.StatusRejected, wantErr: invoice.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			inv := &invoice.Invoice{ID: uuid.New(), Status: tt.current}

			repo.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)

			if tt.wantErr == nil {
				repo.EXPECT().
					Transition(gomock.Any(), inv.ID, invoice.StatusApproved, invoice.StatusChange{To: invoice.StatusPaid}).
					Return(&invoice.Invoice{ID: inv.ID, Status: invoice.StatusPaid}, nil)
			}

			got, err := newService(repo).MarkPaid(context.Background(), inv.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, invoice.StatusPaid, got.Status)
		})
	}
}

func TestService_Transition_LostRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	inv := &invoice.Invoice{ID: uuid.New(), Status: invoice.StatusPending}

	repo.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	repo.EXPECT().
		Transition(gomock.Any(), inv.ID, invoice.StatusPending, gomock.Any()).
		Return(nil, invoice.ErrInvalidTransition)

	_, err := newService(repo).Approve(context.Background(), inv.ID, uuid.New())
	assert.ErrorIs(t, err, invoice.ErrInvalidTransition)
}

func TestService_Update(t *testing.T) {
	owner := uuid.New()
	other := &invoice.Invoice{ID: uuid.New(), OwnerID: owner, InvoiceNumber: "INV-J"}

	pending := func() *invoice.Invoice {
		return &invoice.Invoice{
			ID:            uuid.MustParse("5d3c1c2e-7b7f-4b0a-9a55-1f4a1f6f0a01"),
			OwnerID:       owner,
			InvoiceNumber: "INV-I",
			Vendor:        "Acme",
			Amount:        decimal.NewFromInt(10),
			Status:        invoice.StatusPending,
		}
	}

	type testCase struct {
		name         string
		caller       uuid.UUID
		params       invoice.UpdateParams
		setupMock    func(m *invoice.MockRepository)
		wantErr      error
		wantConflict bool
	}

	tests := []testCase{
		{
			name:   "NumberTakenByOtherInvoice",
			caller: owner,
			params: invoice.UpdateParams{InvoiceNumber: new("INV-J")},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), gomock.Any()).Return(pending(), nil)
				m.EXPECT().FindByNumber(gomock.Any(), owner, "INV-J").Return(other, nil)
			},
			wantConflict: true,
		},
		{
			name:   "NumberUnchangedSkipsCheck",
			caller: owner,
			params: invoice.UpdateParams{InvoiceNumber: new("INV-I"), Vendor: new("Acme Ltd")},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), gomock.Any()).Return(pending(), nil)
				m.EXPECT().
					UpdateInvoice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
						assert.Equal(t, "Acme Ltd", inv.Vendor)
						return nil
					})
			},
		},
		{
			name:   "NewNumberFree",
			caller: owner,
			params: invoice.UpdateParams{InvoiceNumber: new("INV-K")},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), gomock.Any()).Return(pending(), nil)
				m.EXPECT().FindByNumber(gomock.Any(), owner, "INV-K").Return(nil, invoice.ErrNotFound)
				m.EXPECT().UpdateInvoice(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:   "ConstraintRace",
			caller: owner,
			params: invoice.UpdateParams{InvoiceNumber: new("INV-J")},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), gomock.Any()).Return(pending(), nil)
				m.EXPECT().FindByNumber(gomock.Any(), owner, "INV-J").Return(nil, invoice.ErrNotFound)
				m.EXPECT().UpdateInvoice(gomock.Any(), gomock.Any()).Return(invoice.ErrDuplicateNumber)
				m.EXPECT().FindByNumber(gomock.Any(), owner, "INV-J").Return(other, nil)
			},
			wantConflict: true,
		},
		{
			name:   "CategorySetByHandDropsConfidence",
			caller: owner,
			params: invoice.UpdateParams{CategoryID: new(other.ID)},
			setupMock: func(m *invoice.MockRepository) {
				inv := pending()
				inv.CategoryConfidence = new(0.8)
				m.EXPECT().GetInvoice(gomock.Any(), gomock.Any()).Return(inv, nil)
				m.EXPECT().
					UpdateInvoice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
						require.NotNil(t, inv.CategoryID)
						assert.Equal(t, other.ID, *inv.CategoryID)
						assert.Nil(t, inv.CategoryConfidence)
						return nil
					})
			},
		},
		{
			name:   "ClearCategory",
			caller: owner,
			params: invoice.UpdateParams{CategoryID: new(other.ID), ClearCategory: true},
			setupMock: func(m *invoice.MockRepository) {
				inv := pending()
				inv.CategoryID = new(uuid.New())
				inv.CategoryConfidence = new(0.8)
				m.EXPECT().GetInvoice(gomock.Any(), gomock.Any()).Return(inv, nil)
				m.EXPECT().
					UpdateInvoice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
						assert.Nil(t, inv.CategoryID)
						assert.Nil(t, inv.CategoryConfidence)
						return nil
					})
			},
		},
		{
			name:   "NotOwner",
			caller: uuid.New(),
			params: invoice.UpdateParams{Vendor: new("Other")},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), gomock.Any()).Return(pending(), nil)
			},
			wantErr: invoice.ErrNotFound,
		},
		{
			name:   "NotPending",
			caller: owner,
			params: invoice.UpdateParams{Vendor: new("Other")},
			setupMock: func(m *invoice.MockRepository) {
				inv := pending()
				inv.Status = invoice.StatusApproved
				m.EXPECT().GetInvoice(gomock.Any(), gomock.Any()).Return(inv, nil)
			},
			wantErr: invoice.ErrNotEditable,
		},
		{
			name:   "NegativeAmount",
			caller: owner,
			params: invoice.UpdateParams{Amount: new(decimal.NewFromInt(-5))},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), gomock.Any()).Return(pending(), nil)
			},
			wantErr: invoice.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := newService(repo).Update(context.Background(), tt.caller, pending().ID, tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)

			if tt.wantConflict {
				require.NotNil(t, got.Conflict)
				assert.Nil(t, got.Invoice)
				assert.Equal(t, "INV-J", got.Conflict.AttemptedNumber)
				assert.Equal(t, other.ID, got.Conflict.Existing.ID)

				return
			}

			require.NotNil(t, got.Invoice)
			assert.Nil(t, got.Conflict)
		})
	}
}

func TestService_ListStale(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	cutoff := fixedNow.Add(-24 * time.Hour)

	repo.EXPECT().
		ListInvoices(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f invoice.ListFilter) ([]*invoice.Invoice, error) {
			require.NotNil(t, f.Status)
			assert.Equal(t, invoice.StatusPending, *f.Status)
			assert.True(t, f.Unreviewed)
			assert.Equal(t, cutoff, *f.CreatedBefore)

			return []*invoice.Invoice{{ID: uuid.New()}}, nil
		})

	got, err := newService(repo).ListStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestService_ImportBatch_NoConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	itx := invoice.NewMockImportTx(ctrl)
	owner := uuid.New()

	params := []invoice.CreateParams{
		{InvoiceNumber: "A-1", Vendor: "Acme", Amount: decimal.NewFromInt(10)},
		{InvoiceNumber: "A-2", Vendor: "Acme", Amount: decimal.NewFromInt(20)},
	}

	repo.EXPECT().BeginImport(gomock.Any(), owner).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), owner, []string{"A-1", "A-2"}).Return(nil, nil)
	itx.EXPECT().CreateInvoices(gomock.Any(), gomock.Len(2)).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := newService(repo).ImportBatch(context.Background(), owner, params)
	require.NoError(t, err)
	require.Len(t, result.Imported, 2)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
	assert.Equal(t, owner, result.Imported[0].OwnerID)
	assert.Equal(t, invoice.StatusPending, result.Imported[1].Status)
}

func TestService_ImportBatch_WithConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	itx := invoice.NewMockImportTx(ctrl)
	owner := uuid.New()

	params := []invoice.CreateParams{
		{InvoiceNumber: "A-1", Vendor: "Acme", Amount: decimal.NewFromInt(10)},
		{InvoiceNumber: "A-2", Vendor: "Acme", Amount: decimal.NewFromInt(20)},
		{InvoiceNumber: "A-2", Vendor: "Acme", Amount: decimal.NewFromInt(30)},
	}

	existing := &invoice.Invoice{ID: uuid.New(), OwnerID: owner, InvoiceNumber: "A-1"}

	repo.EXPECT().BeginImport(gomock.Any(), owner).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), owner, gomock.Any()).Return([]*invoice.Invoice{existing}, nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := newService(repo).ImportBatch(context.Background(), owner, params)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	require.Len(t, result.New, 1)
	assert.Equal(t, "A-2", result.New[0].InvoiceNumber)
	require.Len(t, result.Conflicts, 2)
	assert.Equal(t, existing, result.Conflicts[0].Existing)
	assert.Equal(t, "A-2", result.Conflicts[1].Incoming.InvoiceNumber)
	assert.Nil(t, result.Conflicts[1].Existing)
}

func TestService_ImportBatch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)

	result, err := newService(repo).ImportBatch(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_ImportBatch_InvalidRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)

	_, err := newService(repo).ImportBatch(context.Background(), uuid.New(), []invoice.CreateParams{
		{InvoiceNumber: "A-1", Vendor: ""},
	})
	assert.ErrorIs(t, err, invoice.ErrValidation)
}

func TestService_CreateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	itx := invoice.NewMockImportTx(ctrl)
	owner := uuid.New()

	params := []invoice.CreateParams{
		{InvoiceNumber: "A-3", Vendor: "Acme", Amount: decimal.RequireFromString("9.99")},
	}

	repo.EXPECT().BeginImport(gomock.Any(), owner).Return(itx, nil)
	itx.EXPECT().CreateInvoices(gomock.Any(), gomock.Any()).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	invs, err := newService(repo).CreateBatch(context.Background(), owner, params)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, owner, invs[0].OwnerID)
	assert.True(t, decimal.RequireFromString("9.99").Equal(invs[0].Amount))
}
