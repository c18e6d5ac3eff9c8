package claim

const (
	EventClaimFiled           = "ClaimFiled"
	EventClaimInvestigated    = "ClaimInvestigated"
	EventClaimAssessed        = "ClaimAssessed"
	EventClaimApproved        = "ClaimApproved"
	EventClaimRejected        = "ClaimRejected"
	EventClaimPaid            = "ClaimPaid"
	EventClaimPaymentReversed = "ClaimPaymentReversed"
)

type ClaimFiled struct {
	PolicyID      string `json:"policy_id"`
	Claimant      string `json:"claimant"`
	Category      string `json:"category"`
	ClaimedAmount int64  `json:"claimed_amount"`
	Deductible    int64  `json:"deductible"`
	Description   string `json:"description"`
}

type ClaimInvestigated struct {
	Investigator string `json:"investigator"`
	Findings     string `json:"findings"`
	FraudRisk    string `json:"fraud_risk"` // LOW, MEDIUM, HIGH
}

type ClaimAssessed struct {
	AssessedAmount int64  `json:"assessed_amount"`
	Notes          string `json:"notes"`
}

type ClaimApproved struct {
	ApprovedAmount int64 `json:"approved_amount"`
}

type ClaimRejected struct {
	Reason string `json:"reason"`
}

type ClaimPaid struct {
	PaidAmount       int64  `json:"paid_amount"`
	PaymentReference string `json:"payment_reference"`
}

// ClaimPaymentReversed is the compensation counter-event for ClaimPaid: it
// returns the claim to APPROVED so a settlement can be retried or the
// claim can be rejected by an operator.
type ClaimPaymentReversed struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}
