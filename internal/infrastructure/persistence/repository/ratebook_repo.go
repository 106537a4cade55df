package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fieldclaims/fieldclaims/internal/application/port"
	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
	"github.com/fieldclaims/fieldclaims/internal/infrastructure/persistence/sqlite"
)

// RateBookRepository implements port.RateBookCatalog against the local
// rate_book_items table, which mirrors the utility's priced catalog.
type RateBookRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRateBookRepository creates a rate book repository
func NewRateBookRepository(db *sqlite.DB, logger *zap.Logger) port.RateBookCatalog {
	return &RateBookRepository{
		db:     db,
		logger: logger,
	}
}

// GetItem retrieves one catalog item by id
func (r *RateBookRepository) GetItem(ctx context.Context, companyID, id int64) (*entity.RateBookItem, error) {
	query := `
		SELECT id, item_code, description, unit_of_measure, unit_price, work_category, active
		FROM rate_book_items
		WHERE id = ? AND company_id = ?
	`
	return r.getItem(ctx, query, id, companyID)
}

// GetItemByCode retrieves one catalog item by its code
func (r *RateBookRepository) GetItemByCode(ctx context.Context, companyID int64, code string) (*entity.RateBookItem, error) {
	query := `
		SELECT id, item_code, description, unit_of_measure, unit_price, work_category, active
		FROM rate_book_items
		WHERE item_code = ? AND company_id = ?
	`
	return r.getItem(ctx, query, code, companyID)
}

func (r *RateBookRepository) getItem(ctx context.Context, query string, args ...interface{}) (*entity.RateBookItem, error) {
	var item entity.RateBookItem
	var workCategory sql.NullString

	err := r.db.Executor(ctx).QueryRowContext(ctx, query, args...).Scan(
		&item.ID,
		&item.ItemCode,
		&item.Description,
		&item.UnitOfMeasure,
		&item.UnitPrice,
		&workCategory,
		&item.Active,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get rate book item", zap.Error(err))
		return nil, fmt.Errorf("failed to get rate book item: %w", err)
	}

	item.WorkCategory = workCategory.String
	return &item, nil
}

// Verify interface compliance
var _ port.RateBookCatalog = (*RateBookRepository)(nil)
