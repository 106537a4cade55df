package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldclaims/fieldclaims/internal/application/export"
	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
)

func approvedClaim() *entity.Claim {
	approved := time.Date(2026, 3, 12, 15, 30, 0, 0, time.UTC)
	c := &entity.Claim{
		ID:          42,
		ClaimNumber: "CLM-20260310-9f3a21bc",
		CompanyID:   testActor.CompanyID,
		Status:      entity.ClaimStatusApproved,
		CreatedAt:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		ApprovedAt:  &approved,
		LineItems: []entity.ClaimLineItem{
			{
				UnitEntryID: 101,
				LineNumber:  1,
				JobID:       55,
				ItemCode:    "TR-040",
				Description: "Trench, 40 inch depth",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.NewFromInt(100),
				LineTotal:   decimal.NewFromInt(200),
			},
		},
	}
	c.RecomputeTotals()
	return c
}

func newTestExportService(claimRepo *mockClaimRepo) ExportService {
	return NewExportService(claimRepo, &mockDispatcher{}, nopLogger{}, export.Options{
		BusinessUnit: "UTIL CO BU",
		VendorID:     "VND-4411",
		Currency:     "USD",
		Source:       "FIELDCLAIMS",
	})
}

func TestInvoiceJSON_TracksExport(t *testing.T) {
	claim := approvedClaim()
	var trackedFormat string
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
		SetExportMetadataFunc: func(ctx context.Context, claimID int64, exportedAt time.Time, exportedBy int64, format, status string) error {
			trackedFormat = format
			return nil
		},
	}
	svc := newTestExportService(claimRepo)

	payload, err := svc.InvoiceJSON(context.Background(), testActor, 42)
	require.NoError(t, err)
	assert.Equal(t, "INV-20260310-9f3a21bc", payload.InvoiceNumber)
	assert.Equal(t, entity.ExportFormatInvoiceJSON, trackedFormat)
}

func TestExport_RejectsEditableClaim(t *testing.T) {
	claim := approvedClaim()
	claim.Status = entity.ClaimStatusDraft
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
	}
	svc := newTestExportService(claimRepo)

	_, err := svc.InvoiceJSON(context.Background(), testActor, 42)
	assert.True(t, entity.IsPrecondition(err))
}

func TestBulkCSV_TrackingFailureDoesNotFailExport(t *testing.T) {
	claim := approvedClaim()
	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			return claim, nil
		},
		SetExportMetadataFunc: func(ctx context.Context, claimID int64, exportedAt time.Time, exportedBy int64, format, status string) error {
			return errors.New("metadata table locked")
		},
	}
	svc := newTestExportService(claimRepo)

	var buf bytes.Buffer
	require.NoError(t, svc.BulkCSV(context.Background(), testActor, 42, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "# INVOICE HEADERS"))
}

func TestBulkCSVBatch_CombinesClaims(t *testing.T) {
	c1 := approvedClaim()
	c2 := approvedClaim()
	c2.ID = 43
	c2.ClaimNumber = "CLM-20260311-11aa22bb"

	claimRepo := &mockClaimRepo{
		GetByIDFunc: func(ctx context.Context, companyID, id int64) (*entity.Claim, error) {
			if id == 42 {
				return c1, nil
			}
			return c2, nil
		},
		SetExportMetadataFunc: func(ctx context.Context, claimID int64, exportedAt time.Time, exportedBy int64, format, status string) error {
			return nil
		},
	}
	svc := newTestExportService(claimRepo)

	var buf bytes.Buffer
	require.NoError(t, svc.BulkCSVBatch(context.Background(), testActor, []int64{42, 43}, &buf))
	assert.Contains(t, buf.String(), "INV-20260310-9f3a21bc")
	assert.Contains(t, buf.String(), "INV-20260311-11aa22bb")
}
