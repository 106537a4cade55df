package port

import (
	"context"

	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
	"github.com/fieldclaims/fieldclaims/internal/domain/event"
)

// RateBookCatalog resolves priced catalog items. It is a read-only external
// service: results are immutable snapshots, never a shared cache.
type RateBookCatalog interface {
	GetItem(ctx context.Context, companyID, id int64) (*entity.RateBookItem, error)
	GetItemByCode(ctx context.Context, companyID int64, code string) (*entity.RateBookItem, error)
}

// Notifier delivers best-effort notifications for domain events. Failures
// are logged by callers and never abort the originating operation.
type Notifier interface {
	Notify(ctx context.Context, evt *event.Event) error
}

// AuditLogger records sensitive transitions with an external audit-log
// collaborator.
type AuditLogger interface {
	Record(ctx context.Context, evt *event.Event) error
}
