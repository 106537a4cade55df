package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
	"github.com/fieldclaims/fieldclaims/internal/domain/event"
)

func approvedUnit(id int64) *entity.UnitEntry {
	u := &entity.UnitEntry{
		ID:            id,
		CompanyID:     testActor.CompanyID,
		JobID:         55,
		ItemCode:      "TR-040",
		Description:   "Trench, 40 inch depth",
		UnitOfMeasure: "LF",
		UnitPrice:     decimal.NewFromInt(100),
		Quantity:      decimal.NewFromInt(2),
		WorkDate:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Status:        entity.UnitStatusApproved,
		Performer:     entity.Performer{Tier: entity.TierSub, WorkCategory: "civil", CrewSize: 3},
	}
	u.ComputeTotal()
	return u
}

func unitsByID(units ...*entity.UnitEntry) func(ctx context.Context, companyID int64, ids []int64) ([]*entity.UnitEntry, error) {
	return func(ctx context.Context, companyID int64, ids []int64) ([]*entity.UnitEntry, error) {
		byID := make(map[int64]*entity.UnitEntry, len(units))
		for _, u := range units {
			byID[u.ID] = u
		}
		var out []*entity.UnitEntry
		for _, id := range ids {
			if u, ok := byID[id]; ok {
				out = append(out, u)
			}
		}
		return out, nil
	}
}

func newTestClaimService(claimRepo *mockClaimRepo, unitRepo *mockUnitRepo, disp *mockDispatcher) ClaimService {
	return NewClaimService(claimRepo, unitRepo, &mockTxManager{}, disp, nopLogger{}, 30)
}

func TestClaimCreate_AggregatesApprovedUnits(t *testing.T) {
	u1, u2 := approvedUnit(101), approvedUnit(102)
	u2.JobID = 56

	var persisted *entity.Claim
	claimRepo := &mockClaimRepo{
		CreateFunc: func(ctx context.Context, claim *entity.Claim) error {
			claim.ID = 42
			persisted = claim
			return nil
		},
	}
	unitRepo := &mockUnitRepo{
		GetByIDsFunc: unitsByID(u1, u2),
		MarkInvoicedFunc: func(ctx context.Context, claimID int64, ids []int64) (int64, error) {
			assert.Equal(t, int64(42), claimID)
			return int64(len(ids)), nil
		},
	}
	disp := &mockDispatcher{}
	svc := newTestClaimService(claimRepo, unitRepo, disp)

	claim, err := svc.Create(context.Background(), testActor, CreateClaimInput{
		UnitIDs:       []int64{101, 102},
		RetentionRate: "0.1",
		TaxRate:       "0.05",
	})
	require.NoError(t, err)
	require.NotNil(t, persisted)

	require.Len(t, claim.LineItems, 2)
	assert.Equal(t, 1, claim.LineItems[0].LineNumber)
	assert.Equal(t, 2, claim.LineItems[1].LineNumber)
	assert.Equal(t, []int64{55, 56}, claim.JobIDs)

	// subtotal 400, retention 40, tax 20, adjustments fixed at zero
	assert.Equal(t, "400.00", claim.Subtotal.StringFixed(2))
	assert.Equal(t, "40.00", claim.RetentionAmount.StringFixed(2))
	assert.Equal(t, "20.00", claim.TaxAmount.StringFixed(2))
	assert.True(t, claim.AdjustmentTotal.IsZero())
	assert.Equal(t, "420.00", claim.TotalAmount.StringFixed(2))
	assert.Equal(t, "380.00", claim.AmountDue.StringFixed(2))

	assert.Equal(t, entity.ClaimStatusDraft, claim.Status)
	assert.True(t, strings.HasPrefix(claim.ClaimNumber, "CLM-"))
	assert.Contains(t, disp.Types(), event.TypeClaimCreated)
}

func TestClaimCreate_DeduplicatesIDs(t *testing.T) {
	u1 := approvedUnit(101)
	claimRepo := &mockClaimRepo{
		CreateFunc: func(ctx context.Context, claim *entity.Claim) error {
			claim.ID = 42
			return nil
		},
	}
	unitRepo := &mockUnitRepo{
		GetByIDsFunc: unitsByID(u1),
		MarkInvoicedFunc: func(ctx context.Context, claimID int64, ids []int64) (int64, error) {
			assert.Equal(t, []int64{101}, ids)
			return 1, nil
		},
	}
	svc := newTestClaimService(claimRepo, unitRepo, &mockDispatcher{})

	claim, err := svc.Create(context.Background(), testActor, CreateClaimInput{
		UnitIDs: []int64{101, 101, 101},
	})
	require.NoError(t, err)
	assert.Len(t, claim.LineItems, 1)
}

func TestClaimCreate_EligibilityPartition(t *testing.T) {
	claimed := approvedUnit(103)
	other := int64(40)
	claimed.ClaimID = &other
	claimed.Status = entity.UnitStatusInvoiced
	submitted := approvedUnit(102)
	submitted.Status = entity.UnitStatusSubmitted

	unitRepo := &mockUnitRepo{
		GetByIDsFunc: unitsByID(approvedUnit(101), submitted, claimed),
	}
	svc := newTestClaimService(&mockClaimRepo{}, unitRepo, &mockDispatcher{})

	_, err := svc.Create(context.Background(), testActor, CreateClaimInput{
		UnitIDs: []int64{101, 102, 103, 104},
	})
	require.True(t, entity.IsEligibility(err))

	var elig *entity.EligibilityError
	require.True(t, errors.As(err, &elig))
	assert.Equal(t, []int64{104}, elig.NotFound)
	assert.Equal(t, []int64{102}, elig.NotApproved)
	assert.Equal(t, []int64{103}, elig.AlreadyClaimed)
}

func TestClaimCreate_SoftDeletedUnitReportsNotFound(t *testing.T) {
	deleted := approvedUnit(102)
	deleted.IsDeleted = true
	deleted.DeleteReason = "entered twice"

	created := false
	claimRepo := &mockClaimRepo{
		CreateFunc: func(ctx context.Context, claim *entity.Claim) error {
			created = true
			return nil
		},
	}
	unitRepo := &mockUnitRepo{
		GetByIDsFunc: unitsByID(approvedUnit(101), deleted),
	}
	svc := newTestClaimService(claimRepo, unitRepo, &mockDispatcher{})

	_, err := svc.Create(context.Background(), testActor, CreateClaimInput{
		UnitIDs: []int64{101, 102},
	})
	require.True(t, entity.IsEligibility(err))

	var elig *entity.EligibilityError
	require.True(t, errors.As(err, &elig))
	assert.Equal(t, []int64{102}, elig.NotFound)
	assert.Empty(t, elig.NotApproved)
	assert.Empty(t, elig.AlreadyClaimed)
	assert.False(t, created, "no claim may be persisted for an ineligible set")
}

func TestClaimCreate_NoUnitsTouchedWhenPersistFails(t *testing.T) {
	marked := false
	claimRepo := &mockClaimRepo{
		CreateFunc: func(ctx context.Context, claim *entity.Claim) error {
			return errors.New("disk full")
		},
	}
	unitRepo := &mockUnitRepo{
		GetByIDsFunc: unitsByID(approvedUnit(101)),
		MarkInvoicedFunc: func(ctx context.Context, claimID int64, ids []int64) (int64, error) {
			marked = true
			return 0, nil
		},
	}
	svc := newTestClaimService(claimRepo, unitRepo, &mockDispatcher{})

	_, err := svc.Create(context.Background(), testActor, CreateClaimInput{UnitIDs: []int64{101}})
	require.Error(t, err)
	assert.False(t, marked, "unit batch update must not run when the claim was never persisted")
}

func TestClaimCreate_RacingClaimRollsBack(t *testing.T) {
	u1, u2 := approvedUnit(101), approvedUnit(102)

	deleted := false
	restored := false
	claimRepo := &mockClaimRepo{
		CreateFunc: func(ctx context.Context, claim *entity.Claim) error {
			claim.ID = 42
			return nil
		},
		DeleteFunc: func(ctx context.Context, id int64) error {
			assert.Equal(t, int64(42), id)
			deleted = true
			return nil
		},
	}
	calls := 0
	unitRepo := &mockUnitRepo{
		GetByIDsFunc: func(ctx context.Context, companyID int64, ids []int64) ([]*entity.UnitEntry, error) {
			calls++
			if calls > 1 {
				// second read reflects the racing claim having won unit 102
				winner := int64(41)
				u2.ClaimID = &winner
				u2.Status = entity.UnitStatusInvoiced
			}
			return unitsByID(u1, u2)(ctx, companyID, ids)
		},
		MarkInvoicedFunc: func(ctx context.Context, claimID int64, ids []int64) (int64, error) {
			return 1, nil // one of two rows matched the guard
		},
		RestoreApprovedFunc: func(ctx context.Context, claimID int64) error {
			restored = true
			return nil
		},
	}
	svc := newTestClaimService(claimRepo, unitRepo, &mockDispatcher{})

	_, err := svc.Create(context.Background(), testActor, CreateClaimInput{UnitIDs: []int64{101, 102}})
	require.True(t, entity.IsEligibility(err))

	var elig *entity.EligibilityError
	require.True(t, errors.As(err, &elig))
	assert.Equal(t, []int64{102}, elig.AlreadyClaimed)

	assert.True(t, restored, "captured units must be released")
	assert.True(t, deleted, "the losing claim must be removed")
}

func submittedClaim() *entity.Claim {
	c := &entity.Claim{
		ID:          42,
		ClaimNumber: "CLM-20260310-9f3a21bc",
		CompanyID:   testActor.CompanyID,
		Status:      entity.ClaimStatusSubmitted,
		LineItems: []entity.ClaimLineItem{
			{UnitEntryID: 101, LineNumber: 1, LineTotal: decimal.NewFromInt(1000)},
		},
	}
	c.RecomputeTotals()
	return c
}

func paymentMocks(claim *entity.Claim) (*mockClaimRepo, *mockUnitRepo, *bool) {
	unitsPaid := false
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
		UpdateFunc:     func(ctx context.Context, c *entity.Claim) error { return nil },
		AddPaymentFunc: func(ctx context.Context, claimID int64, p *entity.Payment) error { return nil },
	}
	unitRepo := &mockUnitRepo{
		MarkPaidByClaimFunc: func(ctx context.Context, claimID, actorID int64, paidAt time.Time) error {
			unitsPaid = true
			return nil
		},
	}
	return claimRepo, unitRepo, &unitsPaid
}

func TestRecordPayment_PartialThenFull(t *testing.T) {
	claim := submittedClaim()
	claimRepo, unitRepo, unitsPaid := paymentMocks(claim)
	disp := &mockDispatcher{}
	svc := newTestClaimService(claimRepo, unitRepo, disp)

	got, err := svc.RecordPayment(context.Background(), testActor, 42, PaymentInput{Amount: "600", Method: "ach"})
	require.NoError(t, err)
	assert.Equal(t, entity.ClaimStatusSubmitted, got.Status)
	assert.Equal(t, "400.00", got.Balance().StringFixed(2))
	assert.False(t, *unitsPaid)

	got, err = svc.RecordPayment(context.Background(), testActor, 42, PaymentInput{Amount: "400", Method: "check"})
	require.NoError(t, err)
	assert.Equal(t, entity.ClaimStatusPaid, got.Status)
	assert.True(t, got.Balance().IsZero())
	assert.True(t, *unitsPaid, "unit entries advance to paid with the claim")

	types := disp.Types()
	assert.Contains(t, types, event.TypeClaimPaymentMade)
	assert.Contains(t, types, event.TypeClaimPaid)
}

func TestRecordPayment_RejectsOverpayment(t *testing.T) {
	claim := submittedClaim()
	claimRepo, unitRepo, _ := paymentMocks(claim)
	svc := newTestClaimService(claimRepo, unitRepo, &mockDispatcher{})

	_, err := svc.RecordPayment(context.Background(), testActor, 42, PaymentInput{Amount: "1200", Method: "ach"})
	require.True(t, entity.IsPrecondition(err))
	assert.Contains(t, err.Error(), "exceeds")
}

func TestRecordPayment_RejectsNonPositiveAmount(t *testing.T) {
	svc := newTestClaimService(&mockClaimRepo{}, &mockUnitRepo{}, &mockDispatcher{})

	for _, amount := range []string{"0", "-5", "abc"} {
		_, err := svc.RecordPayment(context.Background(), testActor, 42, PaymentInput{Amount: amount, Method: "ach"})
		assert.True(t, entity.IsValidation(err), "amount %q must be rejected", amount)
	}
}

func TestRecordPayment_RejectsUnsubmittedClaim(t *testing.T) {
	claim := submittedClaim()
	claim.Status = entity.ClaimStatusApproved
	claimRepo, unitRepo, _ := paymentMocks(claim)
	svc := newTestClaimService(claimRepo, unitRepo, &mockDispatcher{})

	_, err := svc.RecordPayment(context.Background(), testActor, 42, PaymentInput{Amount: "100", Method: "ach"})
	assert.True(t, entity.IsPrecondition(err))
}

func TestClaimDelete_RestoresUnits(t *testing.T) {
	claim := submittedClaim()
	claim.Status = entity.ClaimStatusDraft

	restored := false
	deleted := false
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
		DeleteFunc: func(ctx context.Context, id int64) error {
			deleted = true
			return nil
		},
	}
	unitRepo := &mockUnitRepo{
		RestoreApprovedFunc: func(ctx context.Context, claimID int64) error {
			assert.Equal(t, int64(42), claimID)
			restored = true
			return nil
		},
	}
	svc := newTestClaimService(claimRepo, unitRepo, &mockDispatcher{})

	require.NoError(t, svc.Delete(context.Background(), testActor, 42))
	assert.True(t, restored)
	assert.True(t, deleted)
}

func TestClaimDelete_RejectsNonDraft(t *testing.T) {
	claim := submittedClaim()
	claim.Status = entity.ClaimStatusApproved
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
	}
	svc := newTestClaimService(claimRepo, &mockUnitRepo{}, &mockDispatcher{})

	err := svc.Delete(context.Background(), testActor, 42)
	assert.True(t, entity.IsPrecondition(err))
}

func TestClaimUpdate_RecomputesTotalsWhileEditable(t *testing.T) {
	claim := submittedClaim()
	claim.Status = entity.ClaimStatusDraft
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
		UpdateFunc: func(ctx context.Context, c *entity.Claim) error { return nil },
	}
	svc := newTestClaimService(claimRepo, &mockUnitRepo{}, &mockDispatcher{})

	retention := "0.05"
	got, err := svc.Update(context.Background(), testActor, 42, UpdateClaimInput{RetentionRate: &retention})
	require.NoError(t, err)
	assert.Equal(t, "50.00", got.RetentionAmount.StringFixed(2))
	assert.Equal(t, "950.00", got.AmountDue.StringFixed(2))
}

func TestClaimUpdate_RejectsLockedClaim(t *testing.T) {
	claim := submittedClaim()
	claim.Status = entity.ClaimStatusApproved
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
	}
	svc := newTestClaimService(claimRepo, &mockUnitRepo{}, &mockDispatcher{})

	retention := "0.05"
	_, err := svc.Update(context.Background(), testActor, 42, UpdateClaimInput{RetentionRate: &retention})
	assert.True(t, entity.IsPrecondition(err))
}

func TestClaimApproveThenSubmit(t *testing.T) {
	claim := submittedClaim()
	claim.Status = entity.ClaimStatusDraft
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
		UpdateFunc: func(ctx context.Context, c *entity.Claim) error { return nil },
	}
	disp := &mockDispatcher{}
	svc := newTestClaimService(claimRepo, &mockUnitRepo{}, disp)

	got, err := svc.Approve(context.Background(), testActor, 42)
	require.NoError(t, err)
	assert.Equal(t, entity.ClaimStatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, testActor.UserID, *got.ApprovedBy)

	got, err = svc.Submit(context.Background(), testActor, 42, SubmitClaimInput{Method: "portal", Reference: "UTL-889"})
	require.NoError(t, err)
	assert.Equal(t, entity.ClaimStatusSubmitted, got.Status)
	assert.Equal(t, "portal", got.SubmissionMethod)

	// default due date lands defaultDueDays out
	require.NotNil(t, got.DueDate)
	expected := time.Now().AddDate(0, 0, 30)
	assert.WithinDuration(t, expected, *got.DueDate, time.Minute)

	assert.Contains(t, disp.Types(), event.TypeClaimApproved)
	assert.Contains(t, disp.Types(), event.TypeClaimSubmitted)
}

func TestClaimSubmit_RejectsDraft(t *testing.T) {
	claim := submittedClaim()
	claim.Status = entity.ClaimStatusDraft
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
	}
	svc := newTestClaimService(claimRepo, &mockUnitRepo{}, &mockDispatcher{})

	_, err := svc.Submit(context.Background(), testActor, 42, SubmitClaimInput{})
	assert.True(t, entity.IsPrecondition(err))
}

func TestRepairInvoicing_ReRunsBatchUpdate(t *testing.T) {
	claim := submittedClaim()
	claim.Status = entity.ClaimStatusDraft
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
	}
	unitRepo := &mockUnitRepo{
		MarkInvoicedFunc: func(ctx context.Context, claimID int64, ids []int64) (int64, error) {
			assert.Equal(t, int64(42), claimID)
			assert.Equal(t, []int64{101}, ids)
			return 1, nil
		},
	}
	svc := newTestClaimService(claimRepo, unitRepo, &mockDispatcher{})

	affected, err := svc.RepairInvoicing(context.Background(), testActor, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}
