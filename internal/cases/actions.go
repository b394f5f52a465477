package cases

// Audit log action tags for state-changing operations.
const (
	ActionCreatedByAI     = "created_by_ai"
	ActionInternClaimed   = "intern_claimed"
	ActionDoctorClaimed   = "doctor_claimed"
	ActionInternSubmitted = "intern_submitted"
	ActionDoctorFinalized = "doctor_finalized"
	ActionClaimExpired    = "claim_expired"
)
