package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
	"github.com/fieldclaims/fieldclaims/internal/infrastructure/persistence/sqlite"
)

const claimColumns = `
	id, claim_number, company_id, job_ids, subtotal, retention_rate,
	retention_amount, tax_rate, tax_amount, adjustment_total, total_amount,
	amount_due, status, amount_paid, due_date, submission_method,
	submission_reference, approved_at, approved_by, exported_at, exported_by,
	export_format, export_status, created_by, created_at, updated_at`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewClaimRepository creates a claim repository
func NewClaimRepository(db *sqlite.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a claim and its line items
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	jobIDs, err := json.Marshal(claim.JobIDs)
	if err != nil {
		return fmt.Errorf("failed to encode job ids: %w", err)
	}

	query := `
		INSERT INTO claims (
			claim_number, company_id, job_ids, subtotal, retention_rate,
			retention_amount, tax_rate, tax_amount, adjustment_total,
			total_amount, amount_due, status, amount_paid, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		claim.ClaimNumber,
		claim.CompanyID,
		string(jobIDs),
		claim.Subtotal,
		claim.RetentionRate,
		claim.RetentionAmount,
		claim.TaxRate,
		claim.TaxAmount,
		claim.AdjustmentTotal,
		claim.TotalAmount,
		claim.AmountDue,
		claim.Status,
		claim.AmountPaid,
		claim.CreatedBy,
		claim.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.String("claim_number", claim.ClaimNumber), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	claim.ID = id

	lineQuery := `
		INSERT INTO claim_line_items (
			claim_id, unit_entry_id, line_number, job_id, item_code,
			description, unit_of_measure, quantity, unit_price, line_total,
			work_date, work_category, photo_count, has_gps
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i := range claim.LineItems {
		li := &claim.LineItems[i]
		lineResult, err := r.db.Executor(ctx).ExecContext(ctx, lineQuery,
			claim.ID,
			li.UnitEntryID,
			li.LineNumber,
			li.JobID,
			li.ItemCode,
			li.Description,
			li.UnitOfMeasure,
			li.Quantity,
			li.UnitPrice,
			li.LineTotal,
			li.WorkDate,
			li.WorkCategory,
			li.PhotoCount,
			li.HasGPS,
		)
		if err != nil {
			r.logger.Error("Failed to create claim line item", zap.Int64("claim_id", claim.ID), zap.Error(err))
			return fmt.Errorf("failed to create claim line item: %w", err)
		}
		if li.ID, err = lineResult.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a claim with its line items, payments and change log
func (r *ClaimRepository) GetByID(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
	query := `SELECT` + claimColumns + `
		FROM claims
		WHERE id = ? AND company_id = ?
	`

	claim, err := scanClaim(r.db.Executor(ctx).QueryRowContext(ctx, query, id, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	if err := r.loadLineItems(ctx, claim); err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, claim); err != nil {
		return nil, err
	}
	if err := r.loadChangeLog(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// List retrieves claims for a company, newest first. Line items are loaded
// per claim; listings are low-volume back-office views.
func (r *ClaimRepository) List(ctx context.Context, companyID int64, filter port.ClaimFilter) ([]*entity.Claim, error) {
	query := `SELECT` + claimColumns + ` FROM claims WHERE company_id = ?`
	args := []interface{}{companyID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*entity.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, claim := range claims {
		if err := r.loadLineItems(ctx, claim); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

// Update persists the mutable claim fields
func (r *ClaimRepository) Update(ctx context.Context, claim *entity.Claim) error {
	query := `
		UPDATE claims
		SET subtotal = ?, retention_rate = ?, retention_amount = ?,
			tax_rate = ?, tax_amount = ?, adjustment_total = ?,
			total_amount = ?, amount_due = ?, status = ?, amount_paid = ?,
			due_date = ?, submission_method = ?, submission_reference = ?,
			approved_at = ?, approved_by = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND company_id = ?
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		claim.Subtotal,
		claim.RetentionRate,
		claim.RetentionAmount,
		claim.TaxRate,
		claim.TaxAmount,
		claim.AdjustmentTotal,
		claim.TotalAmount,
		claim.AmountDue,
		claim.Status,
		claim.AmountPaid,
		claim.DueDate,
		claim.SubmissionMethod,
		claim.SubmissionReference,
		claim.ApprovedAt,
		claim.ApprovedBy,
		claim.ID,
		claim.CompanyID,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.Int64("id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}
	return nil
}

// Delete removes a claim and its owned rows
func (r *ClaimRepository) Delete(ctx context.Context, id int64) error {
	for _, query := range []string{
		`DELETE FROM claim_line_items WHERE claim_id = ?`,
		`DELETE FROM claim_payments WHERE claim_id = ?`,
		`DELETE FROM claim_change_log WHERE claim_id = ?`,
		`DELETE FROM claims WHERE id = ?`,
	} {
		if _, err := r.db.Executor(ctx).ExecContext(ctx, query, id); err != nil {
			r.logger.Error("Failed to delete claim", zap.Int64("id", id), zap.Error(err))
			return fmt.Errorf("failed to delete claim: %w", err)
		}
	}
	return nil
}

// AddPayment appends a payment row
func (r *ClaimRepository) AddPayment(ctx context.Context, claimID int64, payment *entity.Payment) error {
	query := `
		INSERT INTO claim_payments (claim_id, amount, paid_date, method, reference, recorded_by, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		claimID,
		payment.Amount,
		payment.PaidDate,
		payment.Method,
		payment.Reference,
		payment.RecordedBy,
		payment.RecordedAt,
	)
	if err != nil {
		r.logger.Error("Failed to add payment", zap.Int64("claim_id", claimID), zap.Error(err))
		return fmt.Errorf("failed to add payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	payment.ID = id
	return nil
}

// AppendChangeLog appends one audit row. The log is insert-only.
func (r *ClaimRepository) AppendChangeLog(ctx context.Context, claimID int64, entry *entity.ChangeLogEntry) error {
	query := `
		INSERT INTO claim_change_log (claim_id, actor_id, action, from_status, to_status, note, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		claimID,
		entry.ActorID,
		entry.Action,
		entry.FromStatus,
		entry.ToStatus,
		entry.Note,
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append change log", zap.Int64("claim_id", claimID), zap.Error(err))
		return fmt.Errorf("failed to append change log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// SetExportMetadata records the latest export run on a claim
func (r *ClaimRepository) SetExportMetadata(ctx context.Context, claimID int64, exportedAt time.Time, exportedBy int64, format, status string) error {
	query := `
		UPDATE claims
		SET exported_at = ?, exported_by = ?, export_format = ?, export_status = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query, exportedAt, exportedBy, format, status, claimID)
	if err != nil {
		r.logger.Error("Failed to set export metadata", zap.Int64("claim_id", claimID), zap.Error(err))
		return fmt.Errorf("failed to set export metadata: %w", err)
	}
	return nil
}

func (r *ClaimRepository) loadLineItems(ctx context.Context, claim *entity.Claim) error {
	query := `
		SELECT id, unit_entry_id, line_number, job_id, item_code, description,
			unit_of_measure, quantity, unit_price, line_total, work_date,
			work_category, photo_count, has_gps
		FROM claim_line_items
		WHERE claim_id = ?
		ORDER BY line_number ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, claim.ID)
	if err != nil {
		return fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li entity.ClaimLineItem
		var workCategory sql.NullString
		if err := rows.Scan(
			&li.ID, &li.UnitEntryID, &li.LineNumber, &li.JobID, &li.ItemCode,
			&li.Description, &li.UnitOfMeasure, &li.Quantity, &li.UnitPrice,
			&li.LineTotal, &li.WorkDate, &workCategory, &li.PhotoCount, &li.HasGPS,
		); err != nil {
			return fmt.Errorf("failed to scan line item: %w", err)
		}
		li.WorkCategory = workCategory.String
		claim.LineItems = append(claim.LineItems, li)
	}
	return rows.Err()
}

func (r *ClaimRepository) loadPayments(ctx context.Context, claim *entity.Claim) error {
	query := `
		SELECT id, amount, paid_date, method, reference, recorded_by, recorded_at
		FROM claim_payments
		WHERE claim_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, claim.ID)
	if err != nil {
		return fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p entity.Payment
		var reference sql.NullString
		if err := rows.Scan(&p.ID, &p.Amount, &p.PaidDate, &p.Method, &reference, &p.RecordedBy, &p.RecordedAt); err != nil {
			return fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Reference = reference.String
		claim.Payments = append(claim.Payments, p)
	}
	return rows.Err()
}

func (r *ClaimRepository) loadChangeLog(ctx context.Context, claim *entity.Claim) error {
	query := `
		SELECT id, actor_id, action, from_status, to_status, note, timestamp
		FROM claim_change_log
		WHERE claim_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, claim.ID)
	if err != nil {
		return fmt.Errorf("failed to query change log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e entity.ChangeLogEntry
		var fromStatus, toStatus, note sql.NullString
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &fromStatus, &toStatus, &note, &e.Timestamp); err != nil {
			return fmt.Errorf("failed to scan change log entry: %w", err)
		}
		e.FromStatus = fromStatus.String
		e.ToStatus = toStatus.String
		e.Note = note.String
		claim.ChangeLog = append(claim.ChangeLog, e)
	}
	return rows.Err()
}

func scanClaim(s scanner) (*entity.Claim, error) {
	var claim entity.Claim
	var jobIDs string
	var dueDate, approvedAt, exportedAt sql.NullTime
	var approvedBy, exportedBy sql.NullInt64
	var submissionMethod, submissionReference, exportFormat, exportStatus sql.NullString

	err := s.Scan(
		&claim.ID,
		&claim.ClaimNumber,
		&claim.CompanyID,
		&jobIDs,
		&claim.Subtotal,
		&claim.RetentionRate,
		&claim.RetentionAmount,
		&claim.TaxRate,
		&claim.TaxAmount,
		&claim.AdjustmentTotal,
		&claim.TotalAmount,
		&claim.AmountDue,
		&claim.Status,
		&claim.AmountPaid,
		&dueDate,
		&submissionMethod,
		&submissionReference,
		&approvedAt,
		&approvedBy,
		&exportedAt,
		&exportedBy,
		&exportFormat,
		&exportStatus,
		&claim.CreatedBy,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if jobIDs != "" {
		if err := json.Unmarshal([]byte(jobIDs), &claim.JobIDs); err != nil {
			return nil, fmt.Errorf("failed to decode job ids: %w", err)
		}
	}
	claim.DueDate = nullTime(dueDate)
	claim.SubmissionMethod = submissionMethod.String
	claim.SubmissionReference = submissionReference.String
	claim.ApprovedAt = nullTime(approvedAt)
	claim.ApprovedBy = nullInt(approvedBy)
	claim.ExportedAt = nullTime(exportedAt)
	claim.ExportedBy = nullInt(exportedBy)
	claim.ExportFormat = exportFormat.String
	claim.ExportStatus = exportStatus.String

	return &claim, nil
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
