package workflow

// State represents a lifecycle state. The string values double as the
// stored status column, so they are lowercase snake case.
type State string

// Unit entry states.
const (
	UnitDraft     State = "draft"
	UnitSubmitted State = "submitted"
	UnitVerified  State = "verified"
	UnitApproved  State = "approved"
	UnitInvoiced  State = "invoiced"
	UnitPaid      State = "paid"
	UnitVoid      State = "void"
)

// Claim states. Draft and Paid share values with the unit side on purpose:
// the strings are a wire contract, not an enum namespace.
const (
	ClaimDraft         State = "draft"
	ClaimPendingReview State = "pending_review"
	ClaimApproved      State = "approved"
	ClaimSubmitted     State = "submitted"
	ClaimPaid          State = "paid"
)

var unitTerminal = map[State]bool{
	UnitPaid: true,
	UnitVoid: true,
}

// IsTerminalUnitState reports whether no further unit transitions exist.
func IsTerminalUnitState(s State) bool {
	return unitTerminal[s]
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}
