package export

import (
	"strconv"

	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
)

// The bulk-interface column lists are a contract with the ERP's batch
// loader: emit every column verbatim, in order, even when the value is
// empty. Never reorder, rename, or omit.
var (
	HeaderColumns = []string{
		"INVOICE_ID",
		"BUSINESS_UNIT",
		"SOURCE",
		"INVOICE_NUM",
		"INVOICE_AMOUNT",
		"INVOICE_DATE",
		"VENDOR_NUM",
		"INVOICE_CURRENCY_CODE",
		"INVOICE_TYPE_LOOKUP_CODE",
		"DESCRIPTION",
		"GL_DATE",
		"ATTRIBUTE_CATEGORY",
		"ATTRIBUTE1",
		"ATTRIBUTE2",
	}

	LineColumns = []string{
		"INVOICE_ID",
		"LINE_NUMBER",
		"LINE_TYPE_LOOKUP_CODE",
		"AMOUNT",
		"QUANTITY_INVOICED",
		"UNIT_PRICE",
		"DESCRIPTION",
		"PROJECT_REFERENCE",
		"ATTRIBUTE_CATEGORY",
		"ATTRIBUTE1",
		"ATTRIBUTE2",
	}
)

const (
	lineTypeItem      = "ITEM"
	attributeCategory = "FIELD_CLAIMS"
)

// BulkData is the two-table bulk-interface structure: a one-row-per-claim
// header table and an N-row line table.
type BulkData struct {
	HeaderColumns []string
	HeaderRows    [][]string
	LineColumns   []string
	LineRows      [][]string
}

// BuildBulkInterface maps one claim into bulk-interface tables.
func BuildBulkInterface(claim *entity.Claim, opts Options) *BulkData {
	return BuildBulkInterfaceBatch([]*entity.Claim{claim}, opts)
}

// BuildBulkInterfaceBatch concatenates multiple claims into one header
// table and one line table. Per-claim grouping is implicit in row order:
// lines carry their claim's INVOICE_ID and appear in claim order.
func BuildBulkInterfaceBatch(claims []*entity.Claim, opts Options) *BulkData {
	data := &BulkData{
		HeaderColumns: HeaderColumns,
		LineColumns:   LineColumns,
		HeaderRows:    make([][]string, 0, len(claims)),
	}

	for _, claim := range claims {
		invoiceID := strconv.FormatInt(claim.ID, 10)

		data.HeaderRows = append(data.HeaderRows, []string{
			invoiceID,
			opts.BusinessUnit,
			opts.Source,
			InvoiceNumber(claim.ClaimNumber),
			Money(claim.TotalAmount),
			erpDate(claim.CreatedAt),
			opts.VendorID,
			opts.Currency,
			invoiceTypeStandard,
			"Claim " + claim.ClaimNumber,
			glDate(claim),
			attributeCategory,
			opts.ContractorCategory,
			claim.ClaimNumber,
		})

		for _, li := range claim.LineItems {
			data.LineRows = append(data.LineRows, []string{
				invoiceID,
				strconv.Itoa(li.LineNumber),
				lineTypeItem,
				Money(li.LineTotal),
				li.Quantity.String(),
				Money(li.UnitPrice),
				LineDescription(li),
				projectReference(li),
				attributeCategory,
				li.ItemCode,
				li.WorkCategory,
			})
		}
	}

	return data
}

// projectReference renders the job reference the project system keys on.
func projectReference(li entity.ClaimLineItem) string {
	if li.JobID == 0 {
		return ""
	}
	return "JOB-" + strconv.FormatInt(li.JobID, 10)
}
