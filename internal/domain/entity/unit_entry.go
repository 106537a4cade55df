package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitEntry is one billable record of unit-price work, priced against a
// rate-book item snapshot taken at creation time.
type UnitEntry struct {
	ID        int64 `json:"id"`
	CompanyID int64 `json:"company_id"`
	JobID     int64 `json:"job_id"`

	// Rate-book snapshot. ItemCode and UnitPrice are immutable after
	// creation; adjustments change Quantity through an Adjustment record.
	RateBookItemID int64           `json:"rate_book_item_id"`
	ItemCode       string          `json:"item_code"`
	Description    string          `json:"description"`
	UnitOfMeasure  string          `json:"unit_of_measure"`
	UnitPrice      decimal.Decimal `json:"unit_price"`

	Quantity    decimal.Decimal `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	WorkDate    time.Time       `json:"work_date"`

	Evidence  Evidence  `json:"evidence"`
	Performer Performer `json:"performer"`

	Status string `json:"status"`

	// Dispute state is orthogonal to Status: an approved entry can be
	// simultaneously disputed.
	IsDisputed bool     `json:"is_disputed"`
	Dispute    *Dispute `json:"dispute,omitempty"`

	Adjustments []Adjustment `json:"adjustments,omitempty"`

	ClaimID *int64 `json:"claim_id,omitempty"`

	IsDeleted    bool   `json:"is_deleted"`
	DeleteReason string `json:"delete_reason,omitempty"`

	CreatedBy   int64      `json:"created_by"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	SubmittedBy *int64     `json:"submitted_by,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	VerifiedBy  *int64     `json:"verified_by,omitempty"`
	VerifyNotes string     `json:"verify_notes,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	ApproveNotes string    `json:"approve_notes,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	PaidBy      *int64     `json:"paid_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Dispute records why an entry is contested and, once resolved, how.
type Dispute struct {
	Reason     string     `json:"reason"`
	Category   string     `json:"category"`
	RaisedBy   int64      `json:"raised_by"`
	RaisedAt   time.Time  `json:"raised_at"`
	Resolution string     `json:"resolution,omitempty"`
	ResolvedBy *int64     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Action     string     `json:"action,omitempty"`
}

// Adjustment is one quantity correction applied during dispute resolution.
// The rate-book snapshot is never touched; only quantity moves.
type Adjustment struct {
	ID          int64           `json:"id"`
	OldQuantity decimal.Decimal `json:"old_quantity"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason"`
	AdjustedBy  int64           `json:"adjusted_by"`
	AdjustedAt  time.Time       `json:"adjusted_at"`
}

// ComputeTotal recomputes TotalAmount from the current quantity and the
// locked unit price. Called after creation and after every adjustment so
// the total invariant holds at all times.
func (u *UnitEntry) ComputeTotal() {
	u.TotalAmount = u.Quantity.Mul(u.UnitPrice)
}

// Claimable reports whether this entry may be attached to a claim.
func (u *UnitEntry) Claimable() bool {
	return !u.IsDeleted && u.Status == UnitStatusApproved && u.ClaimID == nil
}

// PreInvoiced reports whether the entry has not yet been pulled into a
// claim. Disputes may only be raised while this holds.
func (u *UnitEntry) PreInvoiced() bool {
	switch u.Status {
	case UnitStatusDraft, UnitStatusSubmitted, UnitStatusVerified, UnitStatusApproved:
		return true
	}
	return false
}
