package entity

import "github.com/shopspring/decimal"

// RateBookItem is a priced catalog entry resolved from the catalog
// collaborator. It is an immutable value object: unit entries copy its
// fields at creation time and never read the catalog again, so later price
// changes cannot leak into already-priced work.
type RateBookItem struct {
	ID            int64           `json:"id"`
	ItemCode      string          `json:"item_code"`
	Description   string          `json:"description"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	WorkCategory  string          `json:"work_category,omitempty"`
	Active        bool            `json:"active"`
}
