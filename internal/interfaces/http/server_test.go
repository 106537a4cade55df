package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldclaims/fieldclaims/internal/application/export"
	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/application/service"
	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
)

type stubUnitService struct {
	CreateFunc func(ctx context.Context, actor service.Identity, in service.CreateUnitInput) (*entity.UnitEntry, error)
	GetFunc    func(ctx context.Context, actor service.Identity, id int64) (*entity.UnitEntry, error)
}

func (s *stubUnitService) Create(ctx context.Context, actor service.Identity, in service.CreateUnitInput) (*entity.UnitEntry, error) {
	return s.CreateFunc(ctx, actor, in)
}
func (s *stubUnitService) BatchCreate(ctx context.Context, actor service.Identity, in []service.CreateUnitInput) ([]*entity.UnitEntry, error) {
	return nil, nil
}
func (s *stubUnitService) Get(ctx context.Context, actor service.Identity, id int64) (*entity.UnitEntry, error) {
	return s.GetFunc(ctx, actor, id)
}
func (s *stubUnitService) List(ctx context.Context, actor service.Identity, filter port.UnitFilter) ([]*entity.UnitEntry, error) {
	return nil, nil
}
func (s *stubUnitService) Submit(ctx context.Context, actor service.Identity, id int64) (*entity.UnitEntry, error) {
	return nil, nil
}
func (s *stubUnitService) Verify(ctx context.Context, actor service.Identity, id int64, notes string) (*entity.UnitEntry, error) {
	return nil, nil
}
func (s *stubUnitService) Approve(ctx context.Context, actor service.Identity, id int64, notes string) (*entity.UnitEntry, error) {
	return nil, nil
}
func (s *stubUnitService) Dispute(ctx context.Context, actor service.Identity, id int64, reason, category string) (*entity.UnitEntry, error) {
	return nil, nil
}
func (s *stubUnitService) ResolveDispute(ctx context.Context, actor service.Identity, id int64, in service.ResolveDisputeInput) (*entity.UnitEntry, error) {
	return nil, nil
}
func (s *stubUnitService) Delete(ctx context.Context, actor service.Identity, id int64, reason string) error {
	return nil
}

type stubClaimService struct {
	CreateFunc func(ctx context.Context, actor service.Identity, in service.CreateClaimInput) (*entity.Claim, error)
}

func (s *stubClaimService) Create(ctx context.Context, actor service.Identity, in service.CreateClaimInput) (*entity.Claim, error) {
	return s.CreateFunc(ctx, actor, in)
}
func (s *stubClaimService) Get(ctx context.Context, actor service.Identity, id int64) (*entity.Claim, error) {
	return nil, entity.ErrNotFound
}
func (s *stubClaimService) List(ctx context.Context, actor service.Identity, filter port.ClaimFilter) ([]*entity.Claim, error) {
	return nil, nil
}
func (s *stubClaimService) Update(ctx context.Context, actor service.Identity, id int64, in service.UpdateClaimInput) (*entity.Claim, error) {
	return nil, nil
}
func (s *stubClaimService) Delete(ctx context.Context, actor service.Identity, id int64) error {
	return nil
}
func (s *stubClaimService) Approve(ctx context.Context, actor service.Identity, id int64) (*entity.Claim, error) {
	return nil, nil
}
func (s *stubClaimService) Submit(ctx context.Context, actor service.Identity, id int64, in service.SubmitClaimInput) (*entity.Claim, error) {
	return nil, nil
}
func (s *stubClaimService) RecordPayment(ctx context.Context, actor service.Identity, id int64, in service.PaymentInput) (*entity.Claim, error) {
	return nil, nil
}
func (s *stubClaimService) RepairInvoicing(ctx context.Context, actor service.Identity, id int64) (int64, error) {
	return 0, nil
}

type stubExportService struct{}

func (s *stubExportService) InvoiceJSON(ctx context.Context, actor service.Identity, claimID int64) (*export.InvoicePayload, error) {
	return nil, entity.ErrNotFound
}
func (s *stubExportService) BulkCSV(ctx context.Context, actor service.Identity, claimID int64, w io.Writer) error {
	return entity.ErrNotFound
}
func (s *stubExportService) BulkCSVBatch(ctx context.Context, actor service.Identity, claimIDs []int64, w io.Writer) error {
	return entity.ErrNotFound
}
func (s *stubExportService) Workbook(ctx context.Context, actor service.Identity, claimID int64, w io.Writer) error {
	return entity.ErrNotFound
}

type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(units *stubUnitService, claims *stubClaimService) *Server {
	return NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, units, claims, &stubExportService{}, testLogger{})
}

func doRequest(srv *Server, method, path, body string, withIdentity bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withIdentity {
		req.Header.Set("X-User-ID", "9")
		req.Header.Set("X-Company-ID", "7")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestIdentityMiddleware_RejectsMissingHeaders(t *testing.T) {
	srv := newTestServer(&stubUnitService{}, &stubClaimService{})

	w := doRequest(srv, http.MethodGet, "/api/v1/units", "", false)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthCheck_NeedsNoIdentity(t *testing.T) {
	srv := newTestServer(&stubUnitService{}, &stubClaimService{})

	w := doRequest(srv, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateUnit_PassesIdentityThrough(t *testing.T) {
	units := &stubUnitService{
		CreateFunc: func(ctx context.Context, actor service.Identity, in service.CreateUnitInput) (*entity.UnitEntry, error) {
			assert.Equal(t, int64(9), actor.UserID)
			assert.Equal(t, int64(7), actor.CompanyID)
			return &entity.UnitEntry{ID: 101, Status: entity.UnitStatusDraft}, nil
		},
	}
	srv := newTestServer(units, &stubClaimService{})

	w := doRequest(srv, http.MethodPost, "/api/v1/units", `{"job_id":55}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestCreateClaim_EligibilityFailureMapsTo400WithPartition(t *testing.T) {
	claims := &stubClaimService{
		CreateFunc: func(ctx context.Context, actor service.Identity, in service.CreateClaimInput) (*entity.Claim, error) {
			return nil, &entity.EligibilityError{NotApproved: []int64{102}, AlreadyClaimed: []int64{103}}
		},
	}
	srv := newTestServer(&stubUnitService{}, claims)

	w := doRequest(srv, http.MethodPost, "/api/v1/claims", `{"unit_ids":[101,102,103]}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"not_approved":[102]`)
	assert.Contains(t, w.Body.String(), `"already_claimed":[103]`)
}

func TestGetUnit_NotFoundMapsTo404(t *testing.T) {
	units := &stubUnitService{
		GetFunc: func(ctx context.Context, actor service.Identity, id int64) (*entity.UnitEntry, error) {
			return nil, entity.ErrNotFound
		},
	}
	srv := newTestServer(units, &stubClaimService{})

	w := doRequest(srv, http.MethodGet, "/api/v1/units/101", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUnit_PreconditionMapsTo409(t *testing.T) {
	units := &stubUnitService{
		GetFunc: func(ctx context.Context, actor service.Identity, id int64) (*entity.UnitEntry, error) {
			return nil, entity.NewPreconditionError("wrong state")
		},
	}
	srv := newTestServer(units, &stubClaimService{})

	w := doRequest(srv, http.MethodGet, "/api/v1/units/101", "", true)
	assert.Equal(t, http.StatusConflict, w.Code)
}
