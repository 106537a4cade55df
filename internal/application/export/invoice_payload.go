// Package export maps a claim's locked data into the payloads the utility's
// ERP ingests: a REST-style JSON invoice and a fixed-column bulk-interface
// format. Everything here is a pure transform — export bookkeeping (claim
// metadata, change log) belongs to the calling service. Given the same
// claim state, output is byte-identical on every invocation.
package export

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldclaims/fieldclaims/internal/domain/entity"
)

// Options carries the ERP-facing identifiers supplied by configuration.
type Options struct {
	BusinessUnit       string
	VendorID           string
	Currency           string
	Source             string
	ContractorCategory string
}

const (
	invoiceTypeStandard = "Standard"
	erpDateLayout       = "2006/01/02"
)

// InvoicePayload is the flat JSON invoice consumed by the ERP's payables
// REST interface. Field names are a contract; do not rename.
type InvoicePayload struct {
	InvoiceNumber      string        `json:"invoiceNumber"`
	BusinessUnit       string        `json:"businessUnit"`
	Supplier           string        `json:"supplier"`
	InvoiceAmount      string        `json:"invoiceAmount"`
	InvoiceDate        string        `json:"invoiceDate"`
	GLDate             string        `json:"glDate"`
	InvoiceCurrency    string        `json:"invoiceCurrency"`
	InvoiceType        string        `json:"invoiceType"`
	Description        string        `json:"description"`
	ContractorCategory string        `json:"attributeContractorCategory"`
	ClaimNumber        string        `json:"attributeClaimNumber"`
	Lines              []InvoiceLine `json:"invoiceLines"`
}

// InvoiceLine is one invoice line in the JSON payload.
type InvoiceLine struct {
	LineNumber   int    `json:"lineNumber"`
	Description  string `json:"description"`
	Quantity     string `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
	Amount       string `json:"amount"`
	ItemCode     string `json:"attributeItemCode"`
	WorkCategory string `json:"attributeWorkCategory"`
}

// BuildInvoicePayload maps a claim into the JSON invoice payload.
func BuildInvoicePayload(claim *entity.Claim, opts Options) *InvoicePayload {
	payload := &InvoicePayload{
		InvoiceNumber:      InvoiceNumber(claim.ClaimNumber),
		BusinessUnit:       opts.BusinessUnit,
		Supplier:           opts.VendorID,
		InvoiceAmount:      Money(claim.TotalAmount),
		InvoiceDate:        erpDate(claim.CreatedAt),
		GLDate:             glDate(claim),
		InvoiceCurrency:    opts.Currency,
		InvoiceType:        invoiceTypeStandard,
		Description:        "Claim " + claim.ClaimNumber,
		ContractorCategory: opts.ContractorCategory,
		ClaimNumber:        claim.ClaimNumber,
		Lines:              make([]InvoiceLine, 0, len(claim.LineItems)),
	}

	for _, li := range claim.LineItems {
		payload.Lines = append(payload.Lines, InvoiceLine{
			LineNumber:   li.LineNumber,
			Description:  LineDescription(li),
			Quantity:     li.Quantity.String(),
			UnitPrice:    Money(li.UnitPrice),
			Amount:       Money(li.LineTotal),
			ItemCode:     li.ItemCode,
			WorkCategory: li.WorkCategory,
		})
	}

	return payload
}

// InvoiceNumber derives the ERP invoice number from a claim number.
func InvoiceNumber(claimNumber string) string {
	if strings.HasPrefix(claimNumber, "CLM-") {
		return "INV-" + strings.TrimPrefix(claimNumber, "CLM-")
	}
	return "INV-" + claimNumber
}

// LineDescription incorporates the item code into the line description the
// way the ERP expects it.
func LineDescription(li entity.ClaimLineItem) string {
	return "[" + li.ItemCode + "] " + li.Description
}

// Money renders a monetary amount with exactly two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// glDate derives the GL date from the claim's locked state. Approval time
// wins so re-exports stay stable; creation time is the fallback for drafts.
func glDate(claim *entity.Claim) string {
	if claim.ApprovedAt != nil {
		return erpDate(*claim.ApprovedAt)
	}
	return erpDate(claim.CreatedAt)
}

func erpDate(t time.Time) string {
	return t.Format(erpDateLayout)
}
