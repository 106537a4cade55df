package service

import (
	"context"
	"io"
	"time"

	"github.com/fieldclaims/fieldclaims/internal/application/dispatcher"
	"github.com/fieldclaims/fieldclaims/internal/application/export"
	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
	"github.com/fieldclaims/fieldclaims/internal/domain/event"
)

// ExportService renders approved claims into the ERP import formats.
// Exports never mutate billing state; the tracking metadata they write is
// best-effort and failures there are logged, not surfaced.
type ExportService interface {
	InvoiceJSON(ctx context.Context, actor Identity, claimID int64) (*export.InvoicePayload, error)
	BulkCSV(ctx context.Context, actor Identity, claimID int64, w io.Writer) error
	BulkCSVBatch(ctx context.Context, actor Identity, claimIDs []int64, w io.Writer) error
	Workbook(ctx context.Context, actor Identity, claimID int64, w io.Writer) error
}

type exportServiceImpl struct {
	claimRepo  port.ClaimRepository
	dispatcher dispatcher.Dispatcher
	logger     Logger
	opts       export.Options
}

// NewExportService creates an ExportService with company-level ERP options.
func NewExportService(claimRepo port.ClaimRepository, disp dispatcher.Dispatcher, logger Logger, opts export.Options) ExportService {
	return &exportServiceImpl{
		claimRepo:  claimRepo,
		dispatcher: disp,
		logger:     logger,
		opts:       opts,
	}
}

func (s *exportServiceImpl) InvoiceJSON(ctx context.Context, actor Identity, claimID int64) (*export.InvoicePayload, error) {
	claim, err := s.exportable(ctx, actor, claimID)
	if err != nil {
		return nil, err
	}

	payload := export.BuildInvoicePayload(claim, s.opts)
	s.trackExport(ctx, actor, claim, entity.ExportFormatInvoiceJSON)
	return payload, nil
}

func (s *exportServiceImpl) BulkCSV(ctx context.Context, actor Identity, claimID int64, w io.Writer) error {
	claim, err := s.exportable(ctx, actor, claimID)
	if err != nil {
		return err
	}

	if err := export.WriteCSV(w, export.BuildBulkInterface(claim, s.opts)); err != nil {
		return err
	}
	s.trackExport(ctx, actor, claim, entity.ExportFormatBulkCSV)
	return nil
}

func (s *exportServiceImpl) BulkCSVBatch(ctx context.Context, actor Identity, claimIDs []int64, w io.Writer) error {
	claims := make([]*entity.Claim, 0, len(claimIDs))
	for _, id := range claimIDs {
		claim, err := s.exportable(ctx, actor, id)
		if err != nil {
			return err
		}
		claims = append(claims, claim)
	}

	if err := export.WriteCSV(w, export.BuildBulkInterfaceBatch(claims, s.opts)); err != nil {
		return err
	}
	for _, claim := range claims {
		s.trackExport(ctx, actor, claim, entity.ExportFormatBulkCSV)
	}
	return nil
}

func (s *exportServiceImpl) Workbook(ctx context.Context, actor Identity, claimID int64, w io.Writer) error {
	claim, err := s.exportable(ctx, actor, claimID)
	if err != nil {
		return err
	}

	f, err := export.BuildWorkbook(export.BuildBulkInterface(claim, s.opts))
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return err
	}
	s.trackExport(ctx, actor, claim, entity.ExportFormatWorkbook)
	return nil
}

// exportable loads the claim and checks it has reached an exportable
// status. Draft and pending_review totals are not locked yet.
func (s *exportServiceImpl) exportable(ctx context.Context, actor Identity, claimID int64) (*entity.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, actor.CompanyID, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, entity.ErrNotFound
	}
	if claim.Editable() {
		return nil, entity.NewPreconditionError("claim %s is still %s; only approved claims can be exported", claim.ClaimNumber, claim.Status)
	}
	return claim, nil
}

// trackExport records when/who/what-format on the claim and appends to its
// change log. Failures here never fail the export itself.
func (s *exportServiceImpl) trackExport(ctx context.Context, actor Identity, claim *entity.Claim, format string) {
	now := time.Now()
	if err := s.claimRepo.SetExportMetadata(ctx, claim.ID, now, actor.UserID, format, "exported"); err != nil {
		s.logger.Error("Failed to record export metadata", "error", err, "claim_id", claim.ID, "format", format)
	}
	if err := s.claimRepo.AppendChangeLog(ctx, claim.ID, &entity.ChangeLogEntry{
		ActorID:   actor.UserID,
		Action:    "export",
		Note:      format,
		Timestamp: now,
	}); err != nil {
		s.logger.Error("Failed to append export change log", "error", err, "claim_id", claim.ID)
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, event.New(event.TypeClaimExported, actor.CompanyID, actor.UserID, map[string]interface{}{
			"claim_number": claim.ClaimNumber,
			"format":       format,
		}).ForClaim(claim.ID))
	}
}
