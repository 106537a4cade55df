package workflow

// BuildUnitEntryMachine creates a state machine configured for the unit
// entry lifecycle. The disputed flag is tracked on the entity, not here:
// a unit can be approved and disputed at the same time, so dispute state is
// an orthogonal axis rather than a machine state.
func BuildUnitEntryMachine(initialState State) StateMachine {
	builder := NewBuilder()

	builder.Configure(UnitDraft).
		Permit(TriggerSubmit, UnitSubmitted)

	builder.Configure(UnitSubmitted).
		Permit(TriggerVerify, UnitVerified).
		Permit(TriggerApprove, UnitApproved).
		Permit(TriggerResubmit, UnitDraft)

	builder.Configure(UnitVerified).
		Permit(TriggerApprove, UnitApproved).
		Permit(TriggerResubmit, UnitDraft)

	builder.Configure(UnitApproved).
		Permit(TriggerInvoice, UnitInvoiced).
		Permit(TriggerResubmit, UnitDraft).
		// Dispute resolution "accept" re-affirms approval in place.
		Permit(TriggerApprove, UnitApproved)

	builder.Configure(UnitInvoiced).
		Permit(TriggerPay, UnitPaid).
		// Deleting a draft claim restores its units to approved.
		Permit(TriggerRestore, UnitApproved)

	// paid and void are terminal

	return builder.Build(initialState)
}

// BuildClaimMachine creates a state machine configured for the claim
// lifecycle. past_due/unpaid are derived views, never stored states.
func BuildClaimMachine(initialState State) StateMachine {
	builder := NewBuilder()

	builder.Configure(ClaimDraft).
		Permit(TriggerRequestReview, ClaimPendingReview).
		Permit(TriggerApprove, ClaimApproved)

	builder.Configure(ClaimPendingReview).
		Permit(TriggerApprove, ClaimApproved)

	builder.Configure(ClaimApproved).
		Permit(TriggerSubmit, ClaimSubmitted)

	builder.Configure(ClaimSubmitted).
		Permit(TriggerPay, ClaimPaid)

	// paid is terminal

	return builder.Build(initialState)
}
