package readmodel

import "time"

// Read store collection names. Every projector and query handler goes
// through these constants so a rebuild clears exactly what projections
// write.
const (
	CollectionAccountSummaries = "account_summaries"
	CollectionClaimDashboards  = "claim_dashboards"
	CollectionOrderDashboards  = "order_dashboards"
	CollectionPolicyStats      = "policy_stats"
	CollectionPolicies         = "policies"
	CollectionTransfers        = "transfers"
)

// AccountSummary is the denormalized per-account view. ProjectedVersion is
// the highest event version folded in; events at or below it are skipped,
// which makes projecting the same event twice a no-op.
type AccountSummary struct {
	AccountID         string    `json:"account_id"`
	Holder            string    `json:"holder"`
	Currency          string    `json:"currency"`
	Balance           int64     `json:"balance"`
	TotalTransactions int64     `json:"total_transactions"`
	DepositCount      int64     `json:"deposit_count"`
	WithdrawalCount   int64     `json:"withdrawal_count"`
	TransferInCount   int64     `json:"transfer_in_count"`
	TransferOutCount  int64     `json:"transfer_out_count"`
	InterestEarned    int64     `json:"interest_earned"`
	Closed            bool      `json:"closed"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	ProjectedVersion  int64     `json:"projected_version"`
}

// ClaimDashboard is the per-claim operational view.
type ClaimDashboard struct {
	ClaimID          string    `json:"claim_id"`
	PolicyID         string    `json:"policy_id"`
	Claimant         string    `json:"claimant"`
	Category         string    `json:"category"`
	Status           string    `json:"status"`
	ClaimedAmount    int64     `json:"claimed_amount"`
	AssessedAmount   int64     `json:"assessed_amount"`
	ApprovedAmount   int64     `json:"approved_amount"`
	PaidAmount       int64     `json:"paid_amount"`
	FraudRisk        string    `json:"fraud_risk,omitempty"`
	RejectionReason  string    `json:"rejection_reason,omitempty"`
	LastActivityAt   time.Time `json:"last_activity_at"`
	ProjectedVersion int64     `json:"projected_version"`
}

// OrderDashboard is the per-order fulfillment view.
type OrderDashboard struct {
	OrderID          string    `json:"order_id"`
	CustomerID       string    `json:"customer_id"`
	Status           string    `json:"status"`
	TotalAmount      int64     `json:"total_amount"`
	LineCount        int       `json:"line_count"`
	TrackingNumber   string    `json:"tracking_number,omitempty"`
	LastActivityAt   time.Time `json:"last_activity_at"`
	ProjectedVersion int64     `json:"projected_version"`
}

// PolicyStats aggregates claim activity per policy. It folds events from
// many claim aggregates, so a single projected version is not enough;
// SeenVersions keeps the highest folded version per claim instead.
type PolicyStats struct {
	PolicyID        string           `json:"policy_id"`
	ClaimsFiled     int64            `json:"claims_filed"`
	ClaimsRejected  int64            `json:"claims_rejected"`
	TotalClaimsPaid int64            `json:"total_claims_paid"`
	LastActivityAt  time.Time        `json:"last_activity_at"`
	SeenVersions    map[string]int64 `json:"seen_versions"`
}

// PolicyCoverage is the operational policy document the settlement saga
// reads and updates. It is written by policy administration, not by the
// projector, and survives projection rebuilds.
type PolicyCoverage struct {
	PolicyID      string `json:"policy_id"`
	PolicyHolder  string `json:"policy_holder"`
	CoverageLimit int64  `json:"coverage_limit"`
	CoverageUsed  int64  `json:"coverage_used"`
	Active        bool   `json:"active"`
}

// Remaining is the coverage still available for settlements.
func (p PolicyCoverage) Remaining() int64 { return p.CoverageLimit - p.CoverageUsed }

// TransferRecord is the audit document the transfer saga writes after
// money has moved. The document ID is the saga ID.
type TransferRecord struct {
	TransferID      string    `json:"transfer_id"`
	SourceAccountID string    `json:"source_account_id"`
	TargetAccountID string    `json:"target_account_id"`
	Amount          int64     `json:"amount"`
	Description     string    `json:"description"`
	RecordedAt      time.Time `json:"recorded_at"`
}
