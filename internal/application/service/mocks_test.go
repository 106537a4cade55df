package service

import (
	"context"
	"sync"
	"time"

	"github.com/fieldclaims/fieldclaims/internal/application/dispatcher"
	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
	"github.com/fieldclaims/fieldclaims/internal/domain/event"
)

// Hand-rolled function-field mocks. Only the fields a test sets are
// callable; an unset field means the test does not expect that call.

type mockUnitRepo struct {
	CreateFunc          func(ctx context.Context, unit *entity.UnitEntry) error
	GetByIDFunc         func(ctx context.Context, companyID, id int64) (*entity.UnitEntry, error)
	GetByIDsFunc        func(ctx context.Context, companyID int64, ids []int64) ([]*entity.UnitEntry, error)
	GetByClaimIDFunc    func(ctx context.Context, claimID int64) ([]*entity.UnitEntry, error)
	ListFunc            func(ctx context.Context, companyID int64, filter port.UnitFilter) ([]*entity.UnitEntry, error)
	UpdateFunc          func(ctx context.Context, unit *entity.UnitEntry) error
	AddAdjustmentFunc   func(ctx context.Context, unitID int64, adj *entity.Adjustment) error
	MarkInvoicedFunc    func(ctx context.Context, claimID int64, ids []int64) (int64, error)
	RestoreApprovedFunc func(ctx context.Context, claimID int64) error
	MarkPaidByClaimFunc func(ctx context.Context, claimID, actorID int64, paidAt time.Time) error
}

func (m *mockUnitRepo) Create(ctx context.Context, unit *entity.UnitEntry) error {
	return m.CreateFunc(ctx, unit)
}

func (m *mockUnitRepo) GetByID(ctx context.Context, companyID, id int64) (*entity.UnitEntry, error) {
	return m.GetByIDFunc(ctx, companyID, id)
}

func (m *mockUnitRepo) GetByIDs(ctx context.Context, companyID int64, ids []int64) ([]*entity.UnitEntry, error) {
	return m.GetByIDsFunc(ctx, companyID, ids)
}

func (m *mockUnitRepo) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.UnitEntry, error) {
	return m.GetByClaimIDFunc(ctx, claimID)
}

func (m *mockUnitRepo) List(ctx context.Context, companyID int64, filter port.UnitFilter) ([]*entity.UnitEntry, error) {
	return m.ListFunc(ctx, companyID, filter)
}

func (m *mockUnitRepo) Update(ctx context.Context, unit *entity.UnitEntry) error {
	return m.UpdateFunc(ctx, unit)
}

func (m *mockUnitRepo) AddAdjustment(ctx context.Context, unitID int64, adj *entity.Adjustment) error {
	return m.AddAdjustmentFunc(ctx, unitID, adj)
}

func (m *mockUnitRepo) MarkInvoiced(ctx context.Context, claimID int64, ids []int64) (int64, error) {
	return m.MarkInvoicedFunc(ctx, claimID, ids)
}

func (m *mockUnitRepo) RestoreApproved(ctx context.Context, claimID int64) error {
	return m.RestoreApprovedFunc(ctx, claimID)
}

func (m *mockUnitRepo) MarkPaidByClaim(ctx context.Context, claimID, actorID int64, paidAt time.Time) error {
	return m.MarkPaidByClaimFunc(ctx, claimID, actorID, paidAt)
}

type mockClaimRepo struct {
	CreateFunc            func(ctx context.Context, claim *entity.Claim) error
	GetByIDFunc           func(ctx context.Context, companyID, id int64) (*entity.Claim, error)
	ListFunc              func(ctx context.Context, companyID int64, filter port.ClaimFilter) ([]*entity.Claim, error)
	UpdateFunc            func(ctx context.Context, claim *entity.Claim) error
	DeleteFunc            func(ctx context.Context, id int64) error
	AddPaymentFunc        func(ctx context.Context, claimID int64, payment *entity.Payment) error
	AppendChangeLogFunc   func(ctx context.Context, claimID int64, entry *entity.ChangeLogEntry) error
	SetExportMetadataFunc func(ctx context.Context, claimID int64, exportedAt time.Time, exportedBy int64, format, status string) error
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	return m.CreateFunc(ctx, claim)
}

func (m *mockClaimRepo) GetByID(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
	return m.GetByIDFunc(ctx, companyID, id)
}

func (m *mockClaimRepo) List(ctx context.Context, companyID int64, filter port.ClaimFilter) ([]*entity.Claim, error) {
	return m.ListFunc(ctx, companyID, filter)
}

func (m *mockClaimRepo) Update(ctx context.Context, claim *entity.Claim) error {
	return m.UpdateFunc(ctx, claim)
}

func (m *mockClaimRepo) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

func (m *mockClaimRepo) AddPayment(ctx context.Context, claimID int64, payment *entity.Payment) error {
	return m.AddPaymentFunc(ctx, claimID, payment)
}

func (m *mockClaimRepo) AppendChangeLog(ctx context.Context, claimID int64, entry *entity.ChangeLogEntry) error {
	if m.AppendChangeLogFunc == nil {
		return nil
	}
	return m.AppendChangeLogFunc(ctx, claimID, entry)
}

func (m *mockClaimRepo) SetExportMetadata(ctx context.Context, claimID int64, exportedAt time.Time, exportedBy int64, format, status string) error {
	return m.SetExportMetadataFunc(ctx, claimID, exportedAt, exportedBy, format, status)
}

type mockCatalog struct {
	GetItemFunc       func(ctx context.Context, companyID, id int64) (*entity.RateBookItem, error)
	GetItemByCodeFunc func(ctx context.Context, companyID int64, code string) (*entity.RateBookItem, error)
}

func (m *mockCatalog) GetItem(ctx context.Context, companyID, id int64) (*entity.RateBookItem, error) {
	return m.GetItemFunc(ctx, companyID, id)
}

func (m *mockCatalog) GetItemByCode(ctx context.Context, companyID int64, code string) (*entity.RateBookItem, error) {
	return m.GetItemByCodeFunc(ctx, companyID, code)
}

// mockTxManager runs the function inline; tests that need a failing
// transaction set Err.
type mockTxManager struct {
	Err error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.Err != nil {
		return m.Err
	}
	return fn(ctx)
}

// mockDispatcher records dispatched events for assertions.
type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, name string, handler dispatcher.Handler) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) Close() error { return nil }

func (m *mockDispatcher) Types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]event.Type, 0, len(m.events))
	for _, evt := range m.events {
		types = append(types, evt.Type)
	}
	return types
}

// nopLogger satisfies Logger without output.
type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
