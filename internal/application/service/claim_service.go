package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fieldclaims/fieldclaims/internal/application/dispatcher"
	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/application/sanitize"
	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
	"github.com/fieldclaims/fieldclaims/internal/domain/event"
	"github.com/fieldclaims/fieldclaims/internal/domain/workflow"
)

// CreateClaimInput selects the unit entries to aggregate plus the
// caller-supplied rates.
type CreateClaimInput struct {
	UnitIDs       []int64 `json:"unit_ids"`
	RetentionRate string  `json:"retention_rate"`
	TaxRate       string  `json:"tax_rate"`
}

// UpdateClaimInput adjusts rates while the claim is still editable.
type UpdateClaimInput struct {
	RetentionRate *string `json:"retention_rate"`
	TaxRate       *string `json:"tax_rate"`
}

// SubmitClaimInput carries the submission channel details.
type SubmitClaimInput struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
	DueDate   string `json:"due_date"`
}

// PaymentInput records one payment against a claim.
type PaymentInput struct {
	Amount    string `json:"amount"`
	PaidDate  string `json:"paid_date"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

// ClaimService aggregates approved unit entries into claims and drives the
// claim lifecycle.
type ClaimService interface {
	Create(ctx context.Context, actor Identity, in CreateClaimInput) (*entity.Claim, error)
	Get(ctx context.Context, actor Identity, id int64) (*entity.Claim, error)
	List(ctx context.Context, actor Identity, filter port.ClaimFilter) ([]*entity.Claim, error)
	Update(ctx context.Context, actor Identity, id int64, in UpdateClaimInput) (*entity.Claim, error)
	Delete(ctx context.Context, actor Identity, id int64) error
	Approve(ctx context.Context, actor Identity, id int64) (*entity.Claim, error)
	Submit(ctx context.Context, actor Identity, id int64, in SubmitClaimInput) (*entity.Claim, error)
	RecordPayment(ctx context.Context, actor Identity, id int64, in PaymentInput) (*entity.Claim, error)

	// RepairInvoicing idempotently re-runs the unit batch update for a
	// claim whose creation was interrupted between claim persistence and
	// the unit status update.
	RepairInvoicing(ctx context.Context, actor Identity, id int64) (int64, error)
}

type claimServiceImpl struct {
	claimRepo  port.ClaimRepository
	unitRepo   port.UnitEntryRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     Logger

	defaultDueDays int
}

// NewClaimService creates a ClaimService.
func NewClaimService(
	claimRepo port.ClaimRepository,
	unitRepo port.UnitEntryRepository,
	txManager port.TransactionManager,
	disp dispatcher.Dispatcher,
	logger Logger,
	defaultDueDays int,
) ClaimService {
	return &claimServiceImpl{
		claimRepo:      claimRepo,
		unitRepo:       unitRepo,
		txManager:      txManager,
		dispatcher:     disp,
		logger:         logger,
		defaultDueDays: defaultDueDays,
	}
}

// Create aggregates approved, unclaimed unit entries into one claim.
//
// The write happens in two phases on purpose: the claim is persisted
// first, and only then are the source entries batch-updated to invoiced.
// A failure between the phases leaves an orphan claim with its units still
// approved and unclaimed — recoverable via RepairInvoicing — rather than
// half-claimed units. The batch update itself is guarded on
// status/claim_id, so of two racing creations only the first can claim a
// unit; the second sees a row-count mismatch and reports the conflict as
// an eligibility failure.
func (s *claimServiceImpl) Create(ctx context.Context, actor Identity, in CreateClaimInput) (*entity.Claim, error) {
	ids, err := sanitize.IDList("unit_ids", in.UnitIDs)
	if err != nil {
		return nil, err
	}
	retentionRate, err := sanitize.Rate("retention_rate", in.RetentionRate)
	if err != nil {
		return nil, err
	}
	taxRate, err := sanitize.Rate("tax_rate", in.TaxRate)
	if err != nil {
		return nil, err
	}

	units, err := s.unitRepo.GetByIDs(ctx, actor.CompanyID, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*entity.UnitEntry, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}

	eligibility := &entity.EligibilityError{}
	for _, id := range ids {
		unit, ok := byID[id]
		switch {
		case !ok || unit.IsDeleted:
			// soft-deleted entries read the same as absent ones
			eligibility.NotFound = append(eligibility.NotFound, id)
		case unit.ClaimID != nil:
			eligibility.AlreadyClaimed = append(eligibility.AlreadyClaimed, id)
		case unit.Status != entity.UnitStatusApproved:
			eligibility.NotApproved = append(eligibility.NotApproved, id)
		}
	}
	if eligibility.HasViolations() {
		return nil, eligibility
	}

	now := time.Now()
	claim := &entity.Claim{
		ClaimNumber:     newClaimNumber(now),
		CompanyID:       actor.CompanyID,
		RetentionRate:   retentionRate,
		TaxRate:         taxRate,
		AdjustmentTotal: decimal.Zero,
		Status:          entity.ClaimStatusDraft,
		AmountPaid:      decimal.Zero,
		CreatedBy:       actor.UserID,
		CreatedAt:       now,
	}

	jobSeen := make(map[int64]bool)
	for i, id := range ids {
		unit := byID[id]
		claim.LineItems = append(claim.LineItems, entity.ClaimLineItem{
			UnitEntryID:   unit.ID,
			LineNumber:    i + 1,
			JobID:         unit.JobID,
			ItemCode:      unit.ItemCode,
			Description:   unit.Description,
			UnitOfMeasure: unit.UnitOfMeasure,
			Quantity:      unit.Quantity,
			UnitPrice:     unit.UnitPrice,
			LineTotal:     unit.TotalAmount,
			WorkDate:      unit.WorkDate,
			WorkCategory:  unit.Performer.WorkCategory,
			PhotoCount:    unit.Evidence.PhotoCount(),
			HasGPS:        unit.Evidence.HasGPS(),
		})
		if !jobSeen[unit.JobID] {
			jobSeen[unit.JobID] = true
			claim.JobIDs = append(claim.JobIDs, unit.JobID)
		}
	}
	claim.RecomputeTotals()

	// Phase one: persist the claim. No unit is touched yet.
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.Create(txCtx, claim); err != nil {
			return err
		}
		return s.claimRepo.AppendChangeLog(txCtx, claim.ID, &entity.ChangeLogEntry{
			ActorID:   actor.UserID,
			Action:    "create",
			ToStatus:  claim.Status,
			Note:      fmt.Sprintf("%d line items", len(claim.LineItems)),
			Timestamp: now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to persist claim", "error", err, "company_id", actor.CompanyID)
		return nil, err
	}

	// Phase two: batch-update the source entries. Guarded on
	// status/claim_id so a concurrent claim cannot double-claim.
	affected, err := s.unitRepo.MarkInvoiced(ctx, claim.ID, ids)
	if err != nil {
		s.logger.Error("Failed to mark units invoiced", "error", err, "claim_id", claim.ID)
		return nil, fmt.Errorf("claim %s created but unit update failed, run repair-invoicing: %w", claim.ClaimNumber, err)
	}
	if affected != int64(len(ids)) {
		// A concurrent claim won the race for at least one unit. Undo
		// both phases and report the conflict.
		if rbErr := s.rollbackCreate(ctx, claim.ID); rbErr != nil {
			s.logger.Error("Failed to roll back conflicted claim", "error", rbErr, "claim_id", claim.ID)
		}
		return nil, s.conflictPartition(ctx, actor, ids)
	}

	s.emit(ctx, event.New(event.TypeClaimCreated, actor.CompanyID, actor.UserID, map[string]interface{}{
		"claim_number": claim.ClaimNumber,
		"total":        claim.TotalAmount.String(),
		"line_count":   len(claim.LineItems),
	}).ForClaim(claim.ID))

	return claim, nil
}

// rollbackCreate undoes a conflicted creation: restore whichever units this
// claim did capture, then remove the claim.
func (s *claimServiceImpl) rollbackCreate(ctx context.Context, claimID int64) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.unitRepo.RestoreApproved(txCtx, claimID); err != nil {
			return err
		}
		return s.claimRepo.Delete(txCtx, claimID)
	})
}

// conflictPartition re-reads the units to report which ids lost the race.
func (s *claimServiceImpl) conflictPartition(ctx context.Context, actor Identity, ids []int64) error {
	units, err := s.unitRepo.GetByIDs(ctx, actor.CompanyID, ids)
	if err != nil {
		return &entity.EligibilityError{AlreadyClaimed: ids}
	}
	byID := make(map[int64]*entity.UnitEntry, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	eligibility := &entity.EligibilityError{}
	for _, id := range ids {
		unit, ok := byID[id]
		switch {
		case !ok || unit.IsDeleted:
			// soft-deleted entries read the same as absent ones
			eligibility.NotFound = append(eligibility.NotFound, id)
		case unit.ClaimID != nil:
			eligibility.AlreadyClaimed = append(eligibility.AlreadyClaimed, id)
		case unit.Status != entity.UnitStatusApproved:
			eligibility.NotApproved = append(eligibility.NotApproved, id)
		}
	}
	if !eligibility.HasViolations() {
		eligibility.AlreadyClaimed = ids
	}
	return eligibility
}

func (s *claimServiceImpl) Get(ctx context.Context, actor Identity, id int64) (*entity.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("claim %d: %w", id, entity.ErrNotFound)
	}
	return claim, nil
}

func (s *claimServiceImpl) List(ctx context.Context, actor Identity, filter port.ClaimFilter) ([]*entity.Claim, error) {
	return s.claimRepo.List(ctx, actor.CompanyID, filter)
}

// Update changes retention/tax rates while the claim is still editable and
// recomputes every derived total.
func (s *claimServiceImpl) Update(ctx context.Context, actor Identity, id int64, in UpdateClaimInput) (*entity.Claim, error) {
	claim, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !claim.Editable() {
		return nil, entity.NewPreconditionError("claim in status %s can no longer be edited", claim.Status)
	}

	if in.RetentionRate != nil {
		rate, err := sanitize.Rate("retention_rate", *in.RetentionRate)
		if err != nil {
			return nil, err
		}
		claim.RetentionRate = rate
	}
	if in.TaxRate != nil {
		rate, err := sanitize.Rate("tax_rate", *in.TaxRate)
		if err != nil {
			return nil, err
		}
		claim.TaxRate = rate
	}
	claim.RecomputeTotals()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.Update(txCtx, claim); err != nil {
			return err
		}
		return s.claimRepo.AppendChangeLog(txCtx, claim.ID, &entity.ChangeLogEntry{
			ActorID:   actor.UserID,
			Action:    "update_rates",
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		s.logger.Error("Failed to update claim", "error", err, "claim_id", id)
		return nil, err
	}
	return claim, nil
}

// Delete removes a draft claim, restoring its unit entries to approved
// with the claim reference cleared.
func (s *claimServiceImpl) Delete(ctx context.Context, actor Identity, id int64) error {
	claim, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if claim.Status != entity.ClaimStatusDraft {
		return entity.NewPreconditionError("only draft claims can be deleted (current status: %s)", claim.Status)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.unitRepo.RestoreApproved(txCtx, claim.ID); err != nil {
			return err
		}
		return s.claimRepo.Delete(txCtx, claim.ID)
	})
	if err != nil {
		s.logger.Error("Failed to delete claim", "error", err, "claim_id", id)
		return err
	}
	return nil
}

// Approve moves a claim to approved and stamps the approver.
func (s *claimServiceImpl) Approve(ctx context.Context, actor Identity, id int64) (*entity.Claim, error) {
	claim, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	from := claim.Status
	if err := s.transition(ctx, claim, workflow.TriggerApprove); err != nil {
		return nil, entity.NewPreconditionError("only draft or pending_review claims can be approved (current status: %s)", from)
	}

	now := time.Now()
	claim.ApprovedAt = &now
	claim.ApprovedBy = &actor.UserID

	err = s.persistTransition(ctx, claim, actor, "approve", from, now)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, event.New(event.TypeClaimApproved, actor.CompanyID, actor.UserID, map[string]interface{}{
		"claim_number": claim.ClaimNumber,
	}).ForClaim(claim.ID))
	return claim, nil
}

// Submit sends an approved claim to the utility, setting the due date
// (default defaultDueDays out) and the submission channel.
func (s *claimServiceImpl) Submit(ctx context.Context, actor Identity, id int64, in SubmitClaimInput) (*entity.Claim, error) {
	claim, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	from := claim.Status
	if err := s.transition(ctx, claim, workflow.TriggerSubmit); err != nil {
		return nil, entity.NewPreconditionError("only approved claims can be submitted (current status: %s)", from)
	}

	now := time.Now()
	due := now.AddDate(0, 0, s.defaultDueDays)
	if in.DueDate != "" {
		parsed, derr := sanitize.Date("due_date", in.DueDate)
		if derr != nil {
			return nil, derr
		}
		due = parsed
	}
	claim.DueDate = &due
	claim.SubmissionMethod = sanitize.String(in.Method)
	claim.SubmissionReference = sanitize.String(in.Reference)

	if err := s.persistTransition(ctx, claim, actor, "submit", from, now); err != nil {
		return nil, err
	}

	s.emit(ctx, event.New(event.TypeClaimSubmitted, actor.CompanyID, actor.UserID, map[string]interface{}{
		"claim_number": claim.ClaimNumber,
		"due_date":     due.Format(sanitize.DateLayout),
	}).ForClaim(claim.ID))
	return claim, nil
}

// RecordPayment appends a payment and recomputes the running balance. The
// claim flips to paid exactly once, when cumulative payments reach the
// amount due; its unit entries advance to paid with it.
func (s *claimServiceImpl) RecordPayment(ctx context.Context, actor Identity, id int64, in PaymentInput) (*entity.Claim, error) {
	amount, err := sanitize.PositiveDecimal("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	method, err := sanitize.Enum("method", in.Method, entity.ValidPaymentMethods)
	if err != nil {
		return nil, err
	}
	paidDate := time.Now()
	if in.PaidDate != "" {
		paidDate, err = sanitize.Date("paid_date", in.PaidDate)
		if err != nil {
			return nil, err
		}
	}

	claim, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if claim.Status != entity.ClaimStatusSubmitted {
		return nil, entity.NewPreconditionError("payments can only be recorded against submitted claims (current status: %s)", claim.Status)
	}
	if amount.GreaterThan(claim.Balance()) {
		return nil, entity.NewPreconditionError("payment of %s exceeds the remaining balance of %s", amount.StringFixed(2), claim.Balance().StringFixed(2))
	}

	reference := sanitize.String(in.Reference)
	if reference == "" {
		reference = "PAY-" + uuid.NewString()[:8]
	}
	payment := &entity.Payment{
		Amount:     amount,
		PaidDate:   paidDate,
		Method:     method,
		Reference:  reference,
		RecordedBy: actor.UserID,
		RecordedAt: time.Now(),
	}

	from := claim.Status
	claim.AmountPaid = claim.AmountPaid.Add(amount)
	fullyPaid := claim.Balance().IsZero()
	if fullyPaid {
		if err := s.transition(ctx, claim, workflow.TriggerPay); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.AddPayment(txCtx, claim.ID, payment); err != nil {
			return err
		}
		if err := s.claimRepo.Update(txCtx, claim); err != nil {
			return err
		}
		action := "payment"
		logEntry := &entity.ChangeLogEntry{
			ActorID:   actor.UserID,
			Action:    action,
			Note:      fmt.Sprintf("%s via %s (%s)", amount.StringFixed(2), method, reference),
			Timestamp: now,
		}
		if fullyPaid {
			logEntry.FromStatus = from
			logEntry.ToStatus = claim.Status
		}
		if err := s.claimRepo.AppendChangeLog(txCtx, claim.ID, logEntry); err != nil {
			return err
		}
		if fullyPaid {
			return s.unitRepo.MarkPaidByClaim(txCtx, claim.ID, actor.UserID, now)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record payment", "error", err, "claim_id", id)
		return nil, err
	}
	claim.Payments = append(claim.Payments, *payment)

	if fullyPaid {
		s.emit(ctx, event.New(event.TypeClaimPaid, actor.CompanyID, actor.UserID, map[string]interface{}{
			"claim_number": claim.ClaimNumber,
		}).ForClaim(claim.ID))
	} else {
		s.emit(ctx, event.New(event.TypeClaimPaymentMade, actor.CompanyID, actor.UserID, map[string]interface{}{
			"claim_number": claim.ClaimNumber,
			"amount":       amount.String(),
			"balance":      claim.Balance().String(),
		}).ForClaim(claim.ID))
	}

	return claim, nil
}

// RepairInvoicing re-runs the guarded batch update for a claim whose
// creation crashed between the two phases. Safe to repeat: already
// invoiced units no longer match the guard.
func (s *claimServiceImpl) RepairInvoicing(ctx context.Context, actor Identity, id int64) (int64, error) {
	claim, err := s.Get(ctx, actor, id)
	if err != nil {
		return 0, err
	}

	affected, err := s.unitRepo.MarkInvoiced(ctx, claim.ID, claim.UnitEntryIDs())
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.logger.Info("Repaired claim invoicing", "claim_id", claim.ID, "units_updated", affected)
	}
	return affected, nil
}

func (s *claimServiceImpl) transition(ctx context.Context, claim *entity.Claim, trigger workflow.Trigger) error {
	machine := workflow.BuildClaimMachine(workflow.State(claim.Status))
	if err := machine.Fire(ctx, trigger); err != nil {
		return err
	}
	claim.Status = machine.State().String()
	return nil
}

func (s *claimServiceImpl) persistTransition(ctx context.Context, claim *entity.Claim, actor Identity, action, from string, at time.Time) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.Update(txCtx, claim); err != nil {
			return err
		}
		return s.claimRepo.AppendChangeLog(txCtx, claim.ID, &entity.ChangeLogEntry{
			ActorID:    actor.UserID,
			Action:     action,
			FromStatus: from,
			ToStatus:   claim.Status,
			Timestamp:  at,
		})
	})
	if err != nil {
		s.logger.Error("Failed to persist claim transition", "error", err, "claim_id", claim.ID, "action", action)
	}
	return err
}

func (s *claimServiceImpl) emit(ctx context.Context, evt *event.Event) {
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, evt)
	}
}

// newClaimNumber builds a human-readable claim number. The uuid fragment
// keeps numbers unique across instances without a sequence table.
func newClaimNumber(t time.Time) string {
	return "CLM-" + t.Format("20060102") + "-" + uuid.NewString()[:8]
}
