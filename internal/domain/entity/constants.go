package entity

// Unit entry statuses. These strings are stored verbatim and carried on the
// REST surface, so they stay lowercase snake case.
const (
	UnitStatusDraft     = "draft"
	UnitStatusSubmitted = "submitted"
	UnitStatusVerified  = "verified"
	UnitStatusApproved  = "approved"
	UnitStatusInvoiced  = "invoiced"
	UnitStatusPaid      = "paid"
	UnitStatusVoid      = "void"
)

// Claim statuses.
const (
	ClaimStatusDraft         = "draft"
	ClaimStatusPendingReview = "pending_review"
	ClaimStatusApproved      = "approved"
	ClaimStatusSubmitted     = "submitted"
	ClaimStatusPaid          = "paid"
)

// Performer tiers (who physically performed the work).
const (
	TierPrime    = "prime"
	TierSub      = "sub"
	TierSubOfSub = "sub_of_sub"
)

// ValidTiers enumerates accepted performer tiers.
var ValidTiers = map[string]bool{
	TierPrime:    true,
	TierSub:      true,
	TierSubOfSub: true,
}

// Dispute categories.
const (
	DisputeCategoryQuantity = "quantity"
	DisputeCategoryQuality  = "quality"
	DisputeCategoryLocation = "location"
	DisputeCategoryPricing  = "pricing"
	DisputeCategoryEvidence = "evidence"
	DisputeCategoryOther    = "other"
)

// ValidDisputeCategories enumerates accepted dispute categories.
var ValidDisputeCategories = map[string]bool{
	DisputeCategoryQuantity: true,
	DisputeCategoryQuality:  true,
	DisputeCategoryLocation: true,
	DisputeCategoryPricing:  true,
	DisputeCategoryEvidence: true,
	DisputeCategoryOther:    true,
}

// Dispute resolution actions.
const (
	ResolutionAccept   = "accept"
	ResolutionAdjust   = "adjust"
	ResolutionVoid     = "void"
	ResolutionResubmit = "resubmit"
)

// ValidResolutionActions enumerates accepted dispute resolution actions.
var ValidResolutionActions = map[string]bool{
	ResolutionAccept:   true,
	ResolutionAdjust:   true,
	ResolutionVoid:     true,
	ResolutionResubmit: true,
}

// Payment methods accepted on claim payments.
const (
	PaymentMethodACH   = "ach"
	PaymentMethodCheck = "check"
	PaymentMethodWire  = "wire"
	PaymentMethodOther = "other"
)

// ValidPaymentMethods enumerates accepted payment methods.
var ValidPaymentMethods = map[string]bool{
	PaymentMethodACH:   true,
	PaymentMethodCheck: true,
	PaymentMethodWire:  true,
	PaymentMethodOther: true,
}

// Export formats recorded on a claim after an export run.
const (
	ExportFormatInvoiceJSON = "invoice_json"
	ExportFormatBulkCSV     = "bulk_csv"
	ExportFormatWorkbook    = "workbook"
)
