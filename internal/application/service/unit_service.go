package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldclaims/fieldclaims/internal/application/dispatcher"
	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/application/sanitize"
	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
	"github.com/fieldclaims/fieldclaims/internal/domain/event"
	"github.com/fieldclaims/fieldclaims/internal/domain/workflow"
)

// CreateUnitInput is the sanitized-on-entry shape for recording work.
// Exactly one of RateBookItemID / ItemCode selects the catalog item.
type CreateUnitInput struct {
	JobID          int64                   `json:"job_id"`
	RateBookItemID int64                   `json:"rate_book_item_id"`
	ItemCode       string                  `json:"item_code"`
	Quantity       string                  `json:"quantity"`
	WorkDate       string                  `json:"work_date"`
	Evidence       *sanitize.EvidenceInput `json:"evidence"`
	Performer      sanitize.PerformerInput `json:"performer"`
}

// ResolveDisputeInput carries a dispute resolution decision.
type ResolveDisputeInput struct {
	Action           string `json:"action"`
	Resolution       string `json:"resolution"`
	AdjustedQuantity string `json:"adjusted_quantity"`
	AdjustedReason   string `json:"adjusted_reason"`
}

// UnitEntryService drives unit entries through their lifecycle.
type UnitEntryService interface {
	Create(ctx context.Context, actor Identity, in CreateUnitInput) (*entity.UnitEntry, error)
	BatchCreate(ctx context.Context, actor Identity, in []CreateUnitInput) ([]*entity.UnitEntry, error)
	Get(ctx context.Context, actor Identity, id int64) (*entity.UnitEntry, error)
	List(ctx context.Context, actor Identity, filter port.UnitFilter) ([]*entity.UnitEntry, error)
	Submit(ctx context.Context, actor Identity, id int64) (*entity.UnitEntry, error)
	Verify(ctx context.Context, actor Identity, id int64, notes string) (*entity.UnitEntry, error)
	Approve(ctx context.Context, actor Identity, id int64, notes string) (*entity.UnitEntry, error)
	Dispute(ctx context.Context, actor Identity, id int64, reason, category string) (*entity.UnitEntry, error)
	ResolveDispute(ctx context.Context, actor Identity, id int64, in ResolveDisputeInput) (*entity.UnitEntry, error)
	Delete(ctx context.Context, actor Identity, id int64, reason string) error
}

type unitServiceImpl struct {
	unitRepo   port.UnitEntryRepository
	catalog    port.RateBookCatalog
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     Logger

	// GPS accuracy in meters above which a supplied fix blocks submission.
	gpsAccuracyLimit float64
}

// NewUnitEntryService creates a UnitEntryService.
func NewUnitEntryService(
	unitRepo port.UnitEntryRepository,
	catalog port.RateBookCatalog,
	txManager port.TransactionManager,
	disp dispatcher.Dispatcher,
	logger Logger,
	gpsAccuracyLimit float64,
) UnitEntryService {
	return &unitServiceImpl{
		unitRepo:         unitRepo,
		catalog:          catalog,
		txManager:        txManager,
		dispatcher:       disp,
		logger:           logger,
		gpsAccuracyLimit: gpsAccuracyLimit,
	}
}

// Create records a new unit entry, snapshotting the rate-book item at
// creation time. When the evidentiary requirements are already satisfied
// the entry is advanced straight through submit — a convenience shortcut,
// not a distinct state.
func (s *unitServiceImpl) Create(ctx context.Context, actor Identity, in CreateUnitInput) (*entity.UnitEntry, error) {
	unit, err := s.buildUnit(ctx, actor, in)
	if err != nil {
		return nil, err
	}

	autoSubmitted := s.submitGuards(unit) == nil
	if autoSubmitted {
		now := time.Now()
		unit.Status = entity.UnitStatusSubmitted
		unit.SubmittedAt = &now
		unit.SubmittedBy = &actor.UserID
	}

	if err := s.unitRepo.Create(ctx, unit); err != nil {
		s.logger.Error("Failed to create unit entry", "error", err, "job_id", in.JobID)
		return nil, err
	}

	s.emit(ctx, event.New(event.TypeUnitCreated, actor.CompanyID, actor.UserID, map[string]interface{}{
		"item_code": unit.ItemCode,
		"total":     unit.TotalAmount.String(),
	}).ForUnit(unit.ID))
	if autoSubmitted {
		s.emit(ctx, event.New(event.TypeUnitSubmitted, actor.CompanyID, actor.UserID, nil).ForUnit(unit.ID))
	}

	return unit, nil
}

// BatchCreate records several unit entries in one transaction. All succeed
// or none do.
func (s *unitServiceImpl) BatchCreate(ctx context.Context, actor Identity, in []CreateUnitInput) ([]*entity.UnitEntry, error) {
	if len(in) == 0 {
		return nil, entity.NewValidationError("units", "must not be empty")
	}

	units := make([]*entity.UnitEntry, 0, len(in))
	for i, one := range in {
		unit, err := s.buildUnit(ctx, actor, one)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i+1, err)
		}
		if s.submitGuards(unit) == nil {
			now := time.Now()
			unit.Status = entity.UnitStatusSubmitted
			unit.SubmittedAt = &now
			unit.SubmittedBy = &actor.UserID
		}
		units = append(units, unit)
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, unit := range units {
			if err := s.unitRepo.Create(txCtx, unit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to batch create unit entries", "error", err, "count", len(in))
		return nil, err
	}

	for _, unit := range units {
		s.emit(ctx, event.New(event.TypeUnitCreated, actor.CompanyID, actor.UserID, nil).ForUnit(unit.ID))
	}

	return units, nil
}

func (s *unitServiceImpl) buildUnit(ctx context.Context, actor Identity, in CreateUnitInput) (*entity.UnitEntry, error) {
	jobID, err := sanitize.ID("job_id", in.JobID)
	if err != nil {
		return nil, err
	}
	qty, err := sanitize.PositiveDecimal("quantity", in.Quantity)
	if err != nil {
		return nil, err
	}
	workDate, err := sanitize.Date("work_date", in.WorkDate)
	if err != nil {
		return nil, err
	}
	evidence, err := sanitize.Evidence(in.Evidence)
	if err != nil {
		return nil, err
	}
	performer, err := sanitize.Performer(in.Performer)
	if err != nil {
		return nil, err
	}

	item, err := s.resolveItem(ctx, actor.CompanyID, in)
	if err != nil {
		return nil, err
	}

	unit := &entity.UnitEntry{
		CompanyID:      actor.CompanyID,
		JobID:          jobID,
		RateBookItemID: item.ID,
		ItemCode:       item.ItemCode,
		Description:    item.Description,
		UnitOfMeasure:  item.UnitOfMeasure,
		UnitPrice:      item.UnitPrice,
		Quantity:       qty,
		WorkDate:       workDate,
		Evidence:       evidence,
		Performer:      performer,
		Status:         entity.UnitStatusDraft,
		CreatedBy:      actor.UserID,
	}
	if performer.WorkCategory == "" {
		unit.Performer.WorkCategory = item.WorkCategory
	}
	unit.ComputeTotal()

	return unit, nil
}

func (s *unitServiceImpl) resolveItem(ctx context.Context, companyID int64, in CreateUnitInput) (*entity.RateBookItem, error) {
	var item *entity.RateBookItem
	var err error

	switch {
	case in.RateBookItemID > 0:
		item, err = s.catalog.GetItem(ctx, companyID, in.RateBookItemID)
	case in.ItemCode != "":
		item, err = s.catalog.GetItemByCode(ctx, companyID, sanitize.String(in.ItemCode))
	default:
		return nil, entity.NewValidationError("rate_book_item_id", "either rate_book_item_id or item_code is required")
	}
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("rate-book item: %w", entity.ErrNotFound)
	}
	if !item.Active {
		return nil, entity.NewValidationError("item_code", "rate-book item "+item.ItemCode+" is inactive")
	}
	return item, nil
}

func (s *unitServiceImpl) Get(ctx context.Context, actor Identity, id int64) (*entity.UnitEntry, error) {
	unit, err := s.unitRepo.GetByID(ctx, actor.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if unit == nil || unit.IsDeleted {
		return nil, fmt.Errorf("unit entry %d: %w", id, entity.ErrNotFound)
	}
	return unit, nil
}

func (s *unitServiceImpl) List(ctx context.Context, actor Identity, filter port.UnitFilter) ([]*entity.UnitEntry, error) {
	return s.unitRepo.List(ctx, actor.CompanyID, filter)
}

// submitGuards checks the submission preconditions that are independent of
// the current status.
func (s *unitServiceImpl) submitGuards(unit *entity.UnitEntry) error {
	if !unit.Evidence.Satisfied() {
		return entity.NewPreconditionError("unit requires at least one photo or an explicit waiver with reason")
	}
	if unit.Evidence.HasGPS() && unit.Evidence.GPS.Accuracy > s.gpsAccuracyLimit {
		return entity.NewPreconditionError("GPS accuracy %.1fm exceeds the %.1fm limit", unit.Evidence.GPS.Accuracy, s.gpsAccuracyLimit)
	}
	return nil
}

// Submit moves a draft entry to submitted.
func (s *unitServiceImpl) Submit(ctx context.Context, actor Identity, id int64) (*entity.UnitEntry, error) {
	unit, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if unit.Status != entity.UnitStatusDraft {
		return nil, entity.NewPreconditionError("only draft units can be submitted (current status: %s)", unit.Status)
	}
	if err := s.submitGuards(unit); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, unit, workflow.TriggerSubmit); err != nil {
		return nil, err
	}

	now := time.Now()
	unit.SubmittedAt = &now
	unit.SubmittedBy = &actor.UserID

	if err := s.unitRepo.Update(ctx, unit); err != nil {
		s.logger.Error("Failed to persist submitted unit", "error", err, "unit_id", id)
		return nil, err
	}

	s.emit(ctx, event.New(event.TypeUnitSubmitted, actor.CompanyID, actor.UserID, nil).ForUnit(unit.ID))
	return unit, nil
}

// Verify records verifier identity and notes without touching money.
func (s *unitServiceImpl) Verify(ctx context.Context, actor Identity, id int64, notes string) (*entity.UnitEntry, error) {
	unit, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if unit.Status != entity.UnitStatusSubmitted {
		return nil, entity.NewPreconditionError("only submitted units can be verified (current status: %s)", unit.Status)
	}

	if err := s.transition(ctx, unit, workflow.TriggerVerify); err != nil {
		return nil, err
	}

	now := time.Now()
	unit.VerifiedAt = &now
	unit.VerifiedBy = &actor.UserID
	unit.VerifyNotes = sanitize.String(notes)

	if err := s.unitRepo.Update(ctx, unit); err != nil {
		s.logger.Error("Failed to persist verified unit", "error", err, "unit_id", id)
		return nil, err
	}

	s.emit(ctx, event.New(event.TypeUnitVerified, actor.CompanyID, actor.UserID, nil).ForUnit(unit.ID))
	return unit, nil
}

// Approve stamps the approver. Approved is the only state from which a
// unit may be attached to a claim.
func (s *unitServiceImpl) Approve(ctx context.Context, actor Identity, id int64, notes string) (*entity.UnitEntry, error) {
	unit, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if unit.Status != entity.UnitStatusSubmitted && unit.Status != entity.UnitStatusVerified {
		return nil, entity.NewPreconditionError("only submitted or verified units can be approved (current status: %s)", unit.Status)
	}

	if err := s.transition(ctx, unit, workflow.TriggerApprove); err != nil {
		return nil, err
	}

	now := time.Now()
	unit.ApprovedAt = &now
	unit.ApprovedBy = &actor.UserID
	unit.ApproveNotes = sanitize.String(notes)

	if err := s.unitRepo.Update(ctx, unit); err != nil {
		s.logger.Error("Failed to persist approved unit", "error", err, "unit_id", id)
		return nil, err
	}

	s.emit(ctx, event.New(event.TypeUnitApproved, actor.CompanyID, actor.UserID, nil).ForUnit(unit.ID))
	return unit, nil
}

// Dispute flags an entry without changing its status. Disputes and status
// are independent axes: an approved entry stays approved while disputed.
func (s *unitServiceImpl) Dispute(ctx context.Context, actor Identity, id int64, reason, category string) (*entity.UnitEntry, error) {
	cat, err := sanitize.Enum("category", category, entity.ValidDisputeCategories)
	if err != nil {
		return nil, err
	}
	reason = sanitize.String(reason)
	if reason == "" {
		return nil, entity.NewValidationError("reason", "required")
	}

	unit, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if !unit.PreInvoiced() {
		return nil, entity.NewPreconditionError("units already invoiced cannot be disputed (current status: %s)", unit.Status)
	}
	if unit.IsDisputed {
		return nil, entity.NewPreconditionError("unit is already under dispute")
	}

	unit.IsDisputed = true
	unit.Dispute = &entity.Dispute{
		Reason:   reason,
		Category: cat,
		RaisedBy: actor.UserID,
		RaisedAt: time.Now(),
	}

	if err := s.unitRepo.Update(ctx, unit); err != nil {
		s.logger.Error("Failed to persist dispute", "error", err, "unit_id", id)
		return nil, err
	}

	s.emit(ctx, event.New(event.TypeUnitDisputed, actor.CompanyID, actor.UserID, map[string]interface{}{
		"category": cat,
	}).ForUnit(unit.ID))
	return unit, nil
}

// ResolveDispute closes a dispute. "adjust" is the only path that changes
// money, and it does so through an adjustment record recomputing quantity
// and total — never by touching the rate-book snapshot.
func (s *unitServiceImpl) ResolveDispute(ctx context.Context, actor Identity, id int64, in ResolveDisputeInput) (*entity.UnitEntry, error) {
	action, err := sanitize.Enum("action", in.Action, entity.ValidResolutionActions)
	if err != nil {
		return nil, err
	}
	resolution := sanitize.String(in.Resolution)
	if resolution == "" {
		return nil, entity.NewValidationError("resolution", "required")
	}

	unit, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !unit.IsDisputed {
		return nil, entity.NewPreconditionError("unit is not under dispute")
	}

	var adjustment *entity.Adjustment

	switch action {
	case entity.ResolutionAccept:
		if err := s.transition(ctx, unit, workflow.TriggerApprove); err != nil {
			return nil, err
		}

	case entity.ResolutionAdjust:
		newQty, qerr := sanitize.PositiveDecimal("adjusted_quantity", in.AdjustedQuantity)
		if qerr != nil {
			return nil, qerr
		}
		if newQty.Equal(unit.Quantity) {
			return nil, entity.NewValidationError("adjusted_quantity", "must differ from the current quantity")
		}
		adjustment = &entity.Adjustment{
			OldQuantity: unit.Quantity,
			NewQuantity: newQty,
			Reason:      sanitize.String(in.AdjustedReason),
			AdjustedBy:  actor.UserID,
			AdjustedAt:  time.Now(),
		}
		unit.Quantity = newQty
		unit.ComputeTotal()
		if err := s.transition(ctx, unit, workflow.TriggerApprove); err != nil {
			return nil, err
		}

	case entity.ResolutionVoid:
		// status unchanged, record soft-deleted
		unit.IsDeleted = true
		unit.DeleteReason = resolution

	case entity.ResolutionResubmit:
		if err := s.transition(ctx, unit, workflow.TriggerResubmit); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	unit.IsDisputed = false
	unit.Dispute.Resolution = resolution
	unit.Dispute.ResolvedBy = &actor.UserID
	unit.Dispute.ResolvedAt = &now
	unit.Dispute.Action = action

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if adjustment != nil {
			if err := s.unitRepo.AddAdjustment(txCtx, unit.ID, adjustment); err != nil {
				return err
			}
		}
		return s.unitRepo.Update(txCtx, unit)
	})
	if err != nil {
		s.logger.Error("Failed to persist dispute resolution", "error", err, "unit_id", id)
		return nil, err
	}
	if adjustment != nil {
		unit.Adjustments = append(unit.Adjustments, *adjustment)
	}

	s.emit(ctx, event.New(event.TypeUnitDisputeResolved, actor.CompanyID, actor.UserID, map[string]interface{}{
		"action":     action,
		"resolution": resolution,
	}).ForUnit(unit.ID))
	return unit, nil
}

// Delete soft-deletes an entry. Entries attached to a claim cannot be
// deleted; delete the draft claim first.
func (s *unitServiceImpl) Delete(ctx context.Context, actor Identity, id int64, reason string) error {
	unit, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if unit.ClaimID != nil {
		return entity.NewPreconditionError("unit belongs to claim %d and cannot be deleted", *unit.ClaimID)
	}

	unit.IsDeleted = true
	unit.DeleteReason = sanitize.String(reason)

	if err := s.unitRepo.Update(ctx, unit); err != nil {
		s.logger.Error("Failed to soft-delete unit", "error", err, "unit_id", id)
		return err
	}
	return nil
}

// transition fires the state machine trigger and copies the resulting
// status back onto the entity. The machine is the single source of truth
// for which moves exist; callers produce the friendly precondition message
// before calling.
func (s *unitServiceImpl) transition(ctx context.Context, unit *entity.UnitEntry, trigger workflow.Trigger) error {
	machine := workflow.BuildUnitEntryMachine(workflow.State(unit.Status))
	if err := machine.Fire(ctx, trigger); err != nil {
		return entity.NewPreconditionError("cannot %s a unit in status %s", trigger, unit.Status)
	}
	unit.Status = machine.State().String()
	return nil
}

func (s *unitServiceImpl) emit(ctx context.Context, evt *event.Event) {
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, evt)
	}
}
