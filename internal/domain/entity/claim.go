package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Claim is an invoice aggregating approved unit entries for one company.
// Line items are frozen copies of each entry's billing fields; once the
// claim leaves draft/pending_review they change only through payments and
// status transitions.
type Claim struct {
	ID          int64   `json:"id"`
	ClaimNumber string  `json:"claim_number"`
	CompanyID   int64   `json:"company_id"`
	JobIDs      []int64 `json:"job_ids"`

	LineItems []ClaimLineItem `json:"line_items"`

	Subtotal        decimal.Decimal `json:"subtotal"`
	RetentionRate   decimal.Decimal `json:"retention_rate"`
	RetentionAmount decimal.Decimal `json:"retention_amount"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	AdjustmentTotal decimal.Decimal `json:"adjustment_total"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AmountDue       decimal.Decimal `json:"amount_due"`

	Status string `json:"status"`

	Payments   []Payment       `json:"payments,omitempty"`
	AmountPaid decimal.Decimal `json:"amount_paid"`

	ChangeLog []ChangeLogEntry `json:"change_log,omitempty"`

	DueDate             *time.Time `json:"due_date,omitempty"`
	SubmissionMethod    string     `json:"submission_method,omitempty"`
	SubmissionReference string     `json:"submission_reference,omitempty"`

	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ApprovedBy *int64     `json:"approved_by,omitempty"`

	ExportedAt     *time.Time `json:"exported_at,omitempty"`
	ExportedBy     *int64     `json:"exported_by,omitempty"`
	ExportFormat   string     `json:"export_format,omitempty"`
	ExportStatus   string     `json:"export_status,omitempty"`

	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClaimLineItem is a frozen copy of one unit entry's billing fields plus
// evidentiary metadata kept for export and audit.
type ClaimLineItem struct {
	ID          int64           `json:"id"`
	UnitEntryID int64           `json:"unit_entry_id"`
	LineNumber  int             `json:"line_number"`
	JobID       int64           `json:"job_id"`
	ItemCode    string          `json:"item_code"`
	Description string          `json:"description"`
	UnitOfMeasure string        `json:"unit_of_measure"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	WorkDate    time.Time       `json:"work_date"`
	WorkCategory string         `json:"work_category,omitempty"`
	PhotoCount  int             `json:"photo_count"`
	HasGPS      bool            `json:"has_gps"`
}

// Payment is one recorded payment against a claim.
type Payment struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidDate  time.Time       `json:"paid_date"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	RecordedBy int64          `json:"recorded_by"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// ChangeLogEntry is one append-only audit row on a claim. The log is never
// edited or pruned.
type ChangeLogEntry struct {
	ID         int64     `json:"id"`
	ActorID    int64     `json:"actor_id"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// RecomputeTotals derives every monetary total from the line items and the
// current retention/tax rates:
//
//	subtotal   = sum(line totals)
//	retention  = subtotal * retentionRate
//	tax        = subtotal * taxRate
//	total      = subtotal + adjustments + tax
//	amountDue  = total - retention
func (c *Claim) RecomputeTotals() {
	subtotal := decimal.Zero
	for _, li := range c.LineItems {
		subtotal = subtotal.Add(li.LineTotal)
	}
	c.Subtotal = subtotal
	c.RetentionAmount = subtotal.Mul(c.RetentionRate).Round(2)
	c.TaxAmount = subtotal.Mul(c.TaxRate).Round(2)
	c.TotalAmount = c.Subtotal.Add(c.AdjustmentTotal).Add(c.TaxAmount)
	c.AmountDue = c.TotalAmount.Sub(c.RetentionAmount)
}

// Balance returns the amount still owed after recorded payments.
func (c *Claim) Balance() decimal.Decimal {
	return c.AmountDue.Sub(c.AmountPaid)
}

// Editable reports whether line items and rates may still change.
func (c *Claim) Editable() bool {
	return c.Status == ClaimStatusDraft || c.Status == ClaimStatusPendingReview
}

// UnitEntryIDs returns the referenced unit entry ids in line order.
func (c *Claim) UnitEntryIDs() []int64 {
	ids := make([]int64, 0, len(c.LineItems))
	for _, li := range c.LineItems {
		ids = append(ids, li.UnitEntryID)
	}
	return ids
}
