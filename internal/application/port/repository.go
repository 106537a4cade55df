package port

import (
	"context"
	"time"

	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
)

// UnitFilter narrows unit entry listings. Zero values mean "no filter".
type UnitFilter struct {
	Status         string
	JobID          int64
	ClaimID        int64
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	Status string
	Limit  int
	Offset int
}

// UnitEntryRepository defines persistence operations for UnitEntry. All
// reads are tenant-scoped by company id.
type UnitEntryRepository interface {
	Create(ctx context.Context, unit *entity.UnitEntry) error
	GetByID(ctx context.Context, companyID, id int64) (*entity.UnitEntry, error)
	GetByIDs(ctx context.Context, companyID int64, ids []int64) ([]*entity.UnitEntry, error)
	GetByClaimID(ctx context.Context, claimID int64) ([]*entity.UnitEntry, error)
	List(ctx context.Context, companyID int64, filter UnitFilter) ([]*entity.UnitEntry, error)
	Update(ctx context.Context, unit *entity.UnitEntry) error
	AddAdjustment(ctx context.Context, unitID int64, adj *entity.Adjustment) error

	// MarkInvoiced advances the given approved, unclaimed entries to
	// invoiced with the claim reference set, in one guarded batch update.
	// The returned count is the number of rows actually updated; callers
	// compare it against len(ids) to detect a racing claim.
	MarkInvoiced(ctx context.Context, claimID int64, ids []int64) (int64, error)

	// RestoreApproved reverses MarkInvoiced for a deleted draft claim.
	RestoreApproved(ctx context.Context, claimID int64) error

	// MarkPaidByClaim advances all entries of a fully paid claim to paid.
	MarkPaidByClaim(ctx context.Context, claimID, actorID int64, paidAt time.Time) error
}

// ClaimRepository defines persistence operations for Claim and its owned
// rows (line items, payments, change log).
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, companyID, id int64) (*entity.Claim, error)
	List(ctx context.Context, companyID int64, filter ClaimFilter) ([]*entity.Claim, error)
	Update(ctx context.Context, claim *entity.Claim) error
	Delete(ctx context.Context, id int64) error
	AddPayment(ctx context.Context, claimID int64, payment *entity.Payment) error
	AppendChangeLog(ctx context.Context, claimID int64, entry *entity.ChangeLogEntry) error
	SetExportMetadata(ctx context.Context, claimID int64, exportedAt time.Time, exportedBy int64, format, status string) error
}

// TransactionManager provides transactional execution boundaries
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
