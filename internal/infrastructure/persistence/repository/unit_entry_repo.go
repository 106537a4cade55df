package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
	"github.com/fieldclaims/fieldclaims/internal/infrastructure/persistence/sqlite"
)

const unitColumns = `
	id, company_id, job_id, rate_book_item_id, item_code, description,
	unit_of_measure, unit_price, quantity, total_amount, work_date,
	evidence, performer_tier, performer_work_category, performer_crew_size,
	status, is_disputed, dispute, claim_id, is_deleted, delete_reason,
	created_by, submitted_at, submitted_by, verified_at, verified_by,
	verify_notes, approved_at, approved_by, approve_notes, paid_at, paid_by,
	created_at, updated_at`

// UnitEntryRepository implements port.UnitEntryRepository
type UnitEntryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewUnitEntryRepository creates a unit entry repository
func NewUnitEntryRepository(db *sqlite.DB, logger *zap.Logger) port.UnitEntryRepository {
	return &UnitEntryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a unit entry and loads the generated id back
func (r *UnitEntryRepository) Create(ctx context.Context, unit *entity.UnitEntry) error {
	evidence, err := json.Marshal(unit.Evidence)
	if err != nil {
		return fmt.Errorf("failed to encode evidence: %w", err)
	}

	query := `
		INSERT INTO unit_entries (
			company_id, job_id, rate_book_item_id, item_code, description,
			unit_of_measure, unit_price, quantity, total_amount, work_date,
			evidence, performer_tier, performer_work_category, performer_crew_size,
			status, created_by, submitted_at, submitted_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		unit.CompanyID,
		unit.JobID,
		unit.RateBookItemID,
		unit.ItemCode,
		unit.Description,
		unit.UnitOfMeasure,
		unit.UnitPrice,
		unit.Quantity,
		unit.TotalAmount,
		unit.WorkDate,
		string(evidence),
		unit.Performer.Tier,
		unit.Performer.WorkCategory,
		unit.Performer.CrewSize,
		unit.Status,
		unit.CreatedBy,
		unit.SubmittedAt,
		unit.SubmittedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create unit entry", zap.Error(err))
		return fmt.Errorf("failed to create unit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	unit.ID = id
	return nil
}

// GetByID retrieves one unit entry scoped to the company
func (r *UnitEntryRepository) GetByID(ctx context.Context, companyID, id int64) (*entity.UnitEntry, error) {
	query := `SELECT` + unitColumns + `
		FROM unit_entries
		WHERE id = ? AND company_id = ?
	`

	row := r.db.Executor(ctx).QueryRowContext(ctx, query, id, companyID)
	unit, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get unit entry", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get unit entry: %w", err)
	}

	if err := r.loadAdjustments(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// GetByIDs retrieves the non-deleted entries matching ids, in no
// guaranteed order. Missing and soft-deleted ids are simply absent from
// the result.
func (r *UnitEntryRepository) GetByIDs(ctx context.Context, companyID int64, ids []int64) ([]*entity.UnitEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT` + unitColumns + `
		FROM unit_entries
		WHERE company_id = ? AND is_deleted = 0 AND id IN (` + placeholders(len(ids)) + `)
	`

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, companyID)
	for _, id := range ids {
		args = append(args, id)
	}

	return r.queryUnits(ctx, query, args...)
}

// GetByClaimID retrieves all entries attached to a claim
func (r *UnitEntryRepository) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.UnitEntry, error) {
	query := `SELECT` + unitColumns + `
		FROM unit_entries
		WHERE claim_id = ?
		ORDER BY id ASC
	`
	return r.queryUnits(ctx, query, claimID)
}

// List retrieves entries for a company with optional filters
func (r *UnitEntryRepository) List(ctx context.Context, companyID int64, filter port.UnitFilter) ([]*entity.UnitEntry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT` + unitColumns + ` FROM unit_entries WHERE company_id = ?`)
	args := []interface{}{companyID}

	if !filter.IncludeDeleted {
		sb.WriteString(` AND is_deleted = 0`)
	}
	if filter.Status != "" {
		sb.WriteString(` AND status = ?`)
		args = append(args, filter.Status)
	}
	if filter.JobID > 0 {
		sb.WriteString(` AND job_id = ?`)
		args = append(args, filter.JobID)
	}
	if filter.ClaimID > 0 {
		sb.WriteString(` AND claim_id = ?`)
		args = append(args, filter.ClaimID)
	}

	sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			sb.WriteString(` OFFSET ?`)
			args = append(args, filter.Offset)
		}
	}

	return r.queryUnits(ctx, sb.String(), args...)
}

// Update persists the mutable fields of a unit entry
func (r *UnitEntryRepository) Update(ctx context.Context, unit *entity.UnitEntry) error {
	evidence, err := json.Marshal(unit.Evidence)
	if err != nil {
		return fmt.Errorf("failed to encode evidence: %w", err)
	}
	var dispute interface{}
	if unit.Dispute != nil {
		raw, err := json.Marshal(unit.Dispute)
		if err != nil {
			return fmt.Errorf("failed to encode dispute: %w", err)
		}
		dispute = string(raw)
	}

	query := `
		UPDATE unit_entries
		SET quantity = ?, total_amount = ?, evidence = ?,
			performer_tier = ?, performer_work_category = ?, performer_crew_size = ?,
			status = ?, is_disputed = ?, dispute = ?, claim_id = ?,
			is_deleted = ?, delete_reason = ?,
			submitted_at = ?, submitted_by = ?,
			verified_at = ?, verified_by = ?, verify_notes = ?,
			approved_at = ?, approved_by = ?, approve_notes = ?,
			paid_at = ?, paid_by = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND company_id = ?
	`

	_, err = r.db.Executor(ctx).ExecContext(ctx, query,
		unit.Quantity,
		unit.TotalAmount,
		string(evidence),
		unit.Performer.Tier,
		unit.Performer.WorkCategory,
		unit.Performer.CrewSize,
		unit.Status,
		unit.IsDisputed,
		dispute,
		unit.ClaimID,
		unit.IsDeleted,
		unit.DeleteReason,
		unit.SubmittedAt,
		unit.SubmittedBy,
		unit.VerifiedAt,
		unit.VerifiedBy,
		unit.VerifyNotes,
		unit.ApprovedAt,
		unit.ApprovedBy,
		unit.ApproveNotes,
		unit.PaidAt,
		unit.PaidBy,
		unit.ID,
		unit.CompanyID,
	)
	if err != nil {
		r.logger.Error("Failed to update unit entry", zap.Int64("id", unit.ID), zap.Error(err))
		return fmt.Errorf("failed to update unit entry: %w", err)
	}

	return nil
}

// AddAdjustment appends a quantity adjustment record
func (r *UnitEntryRepository) AddAdjustment(ctx context.Context, unitID int64, adj *entity.Adjustment) error {
	query := `
		INSERT INTO unit_adjustments (unit_entry_id, old_quantity, new_quantity, reason, adjusted_by, adjusted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		unitID,
		adj.OldQuantity,
		adj.NewQuantity,
		adj.Reason,
		adj.AdjustedBy,
		adj.AdjustedAt,
	)
	if err != nil {
		r.logger.Error("Failed to add adjustment", zap.Int64("unit_id", unitID), zap.Error(err))
		return fmt.Errorf("failed to add adjustment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	adj.ID = id
	return nil
}

// MarkInvoiced advances approved, unclaimed entries to invoiced in one
// guarded batch. The WHERE clause is the concurrency guard: a row already
// claimed or no longer approved does not match, so the affected-row count
// tells the caller whether it won every unit it asked for.
func (r *UnitEntryRepository) MarkInvoiced(ctx context.Context, claimID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE unit_entries
		SET status = ?, claim_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id IN (` + placeholders(len(ids)) + `)
			AND status = ? AND claim_id IS NULL AND is_deleted = 0
	`

	args := make([]interface{}, 0, len(ids)+3)
	args = append(args, entity.UnitStatusInvoiced, claimID)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, entity.UnitStatusApproved)

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to mark units invoiced", zap.Int64("claim_id", claimID), zap.Error(err))
		return 0, fmt.Errorf("failed to mark units invoiced: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected, nil
}

// RestoreApproved reverses MarkInvoiced for every entry of a claim
func (r *UnitEntryRepository) RestoreApproved(ctx context.Context, claimID int64) error {
	query := `
		UPDATE unit_entries
		SET status = ?, claim_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE claim_id = ? AND status = ?
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		entity.UnitStatusApproved, claimID, entity.UnitStatusInvoiced)
	if err != nil {
		r.logger.Error("Failed to restore units", zap.Int64("claim_id", claimID), zap.Error(err))
		return fmt.Errorf("failed to restore units: %w", err)
	}
	return nil
}

// MarkPaidByClaim advances every invoiced entry of a fully paid claim
func (r *UnitEntryRepository) MarkPaidByClaim(ctx context.Context, claimID, actorID int64, paidAt time.Time) error {
	query := `
		UPDATE unit_entries
		SET status = ?, paid_at = ?, paid_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE claim_id = ? AND status = ?
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		entity.UnitStatusPaid, paidAt, actorID, claimID, entity.UnitStatusInvoiced)
	if err != nil {
		r.logger.Error("Failed to mark units paid", zap.Int64("claim_id", claimID), zap.Error(err))
		return fmt.Errorf("failed to mark units paid: %w", err)
	}
	return nil
}

func (r *UnitEntryRepository) queryUnits(ctx context.Context, query string, args ...interface{}) ([]*entity.UnitEntry, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query unit entries", zap.Error(err))
		return nil, fmt.Errorf("failed to query unit entries: %w", err)
	}
	defer rows.Close()

	var units []*entity.UnitEntry
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit entry: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func (r *UnitEntryRepository) loadAdjustments(ctx context.Context, unit *entity.UnitEntry) error {
	query := `
		SELECT id, old_quantity, new_quantity, reason, adjusted_by, adjusted_at
		FROM unit_adjustments
		WHERE unit_entry_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, unit.ID)
	if err != nil {
		return fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var adj entity.Adjustment
		if err := rows.Scan(&adj.ID, &adj.OldQuantity, &adj.NewQuantity, &adj.Reason, &adj.AdjustedBy, &adj.AdjustedAt); err != nil {
			return fmt.Errorf("failed to scan adjustment: %w", err)
		}
		unit.Adjustments = append(unit.Adjustments, adj)
	}
	return rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(s scanner) (*entity.UnitEntry, error) {
	var unit entity.UnitEntry
	var evidence string
	var dispute sql.NullString
	var deleteReason, verifyNotes, approveNotes sql.NullString
	var claimID, submittedBy, verifiedBy, approvedBy, paidBy sql.NullInt64
	var submittedAt, verifiedAt, approvedAt, paidAt sql.NullTime

	err := s.Scan(
		&unit.ID,
		&unit.CompanyID,
		&unit.JobID,
		&unit.RateBookItemID,
		&unit.ItemCode,
		&unit.Description,
		&unit.UnitOfMeasure,
		&unit.UnitPrice,
		&unit.Quantity,
		&unit.TotalAmount,
		&unit.WorkDate,
		&evidence,
		&unit.Performer.Tier,
		&unit.Performer.WorkCategory,
		&unit.Performer.CrewSize,
		&unit.Status,
		&unit.IsDisputed,
		&dispute,
		&claimID,
		&unit.IsDeleted,
		&deleteReason,
		&unit.CreatedBy,
		&submittedAt,
		&submittedBy,
		&verifiedAt,
		&verifiedBy,
		&verifyNotes,
		&approvedAt,
		&approvedBy,
		&approveNotes,
		&paidAt,
		&paidBy,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if evidence != "" {
		if err := json.Unmarshal([]byte(evidence), &unit.Evidence); err != nil {
			return nil, fmt.Errorf("failed to decode evidence: %w", err)
		}
	}
	if dispute.Valid && dispute.String != "" {
		unit.Dispute = &entity.Dispute{}
		if err := json.Unmarshal([]byte(dispute.String), unit.Dispute); err != nil {
			return nil, fmt.Errorf("failed to decode dispute: %w", err)
		}
	}

	unit.DeleteReason = deleteReason.String
	unit.VerifyNotes = verifyNotes.String
	unit.ApproveNotes = approveNotes.String
	if claimID.Valid {
		unit.ClaimID = &claimID.Int64
	}
	unit.SubmittedAt = nullTime(submittedAt)
	unit.SubmittedBy = nullInt(submittedBy)
	unit.VerifiedAt = nullTime(verifiedAt)
	unit.VerifiedBy = nullInt(verifiedBy)
	unit.ApprovedAt = nullTime(approvedAt)
	unit.ApprovedBy = nullInt(approvedBy)
	unit.PaidAt = nullTime(paidAt)
	unit.PaidBy = nullInt(paidBy)

	return &unit, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if t.Valid {
		return &t.Time
	}
	return nil
}

func nullInt(i sql.NullInt64) *int64 {
	if i.Valid {
		return &i.Int64
	}
	return nil
}

// placeholders builds "?, ?, ?" for IN clauses
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Verify interface compliance
var _ port.UnitEntryRepository = (*UnitEntryRepository)(nil)
