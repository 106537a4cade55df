package workflow

// Trigger represents an event that can cause a state transition.
type Trigger string

// Unit entry triggers.
const (
	TriggerSubmit   Trigger = "SUBMIT"
	TriggerVerify   Trigger = "VERIFY"
	TriggerApprove  Trigger = "APPROVE"
	TriggerInvoice  Trigger = "INVOICE"
	TriggerPay      Trigger = "PAY"
	TriggerResubmit Trigger = "RESUBMIT"
	TriggerRestore  Trigger = "RESTORE"
)

// Claim triggers. TriggerApprove, TriggerSubmit and TriggerPay are shared
// with the unit side.
const (
	TriggerRequestReview Trigger = "REQUEST_REVIEW"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
