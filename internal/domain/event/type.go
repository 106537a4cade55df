package event

// Type identifies the type of domain event
type Type string

const (
	TypeUnitCreated         Type = "unit.created"
	TypeUnitSubmitted       Type = "unit.submitted"
	TypeUnitVerified        Type = "unit.verified"
	TypeUnitApproved        Type = "unit.approved"
	TypeUnitDisputed        Type = "unit.disputed"
	TypeUnitDisputeResolved Type = "unit.dispute_resolved"
	TypeClaimCreated        Type = "claim.created"
	TypeClaimApproved       Type = "claim.approved"
	TypeClaimSubmitted      Type = "claim.submitted"
	TypeClaimPaymentMade    Type = "claim.payment_recorded"
	TypeClaimPaid           Type = "claim.paid"
	TypeClaimExported       Type = "claim.exported"
)

// AllTypes returns every defined event type, for handlers that subscribe
// across the board.
func AllTypes() []Type {
	return []Type{
		TypeUnitCreated,
		TypeUnitSubmitted,
		TypeUnitVerified,
		TypeUnitApproved,
		TypeUnitDisputed,
		TypeUnitDisputeResolved,
		TypeClaimCreated,
		TypeClaimApproved,
		TypeClaimSubmitted,
		TypeClaimPaymentMade,
		TypeClaimPaid,
		TypeClaimExported,
	}
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeUnitCreated,
		TypeUnitSubmitted,
		TypeUnitVerified,
		TypeUnitApproved,
		TypeUnitDisputed,
		TypeUnitDisputeResolved,
		TypeClaimCreated,
		TypeClaimApproved,
		TypeClaimSubmitted,
		TypeClaimPaymentMade,
		TypeClaimPaid,
		TypeClaimExported:
		return true
	default:
		return false
	}
}

// Sensitive reports whether the event must also be written to the audit
// log, not just fanned out as a notification.
func (t Type) Sensitive() bool {
	switch t {
	case TypeUnitApproved,
		TypeUnitDisputeResolved,
		TypeClaimCreated,
		TypeClaimApproved,
		TypeClaimSubmitted,
		TypeClaimPaymentMade,
		TypeClaimPaid:
		return true
	default:
		return false
	}
}
