package account

const (
	EventAccountOpened       = "AccountOpened"
	EventFundsDeposited      = "FundsDeposited"
	EventFundsWithdrawn      = "FundsWithdrawn"
	EventFundsTransferredOut = "FundsTransferredOut"
	EventFundsTransferredIn  = "FundsTransferredIn"
	EventInterestAccrued     = "InterestAccrued"
	EventAccountClosed       = "AccountClosed"
)

// Amounts are int64 minor units (cents).

type AccountOpened struct {
	Holder         string `json:"holder"`
	InitialBalance int64  `json:"initial_balance"`
	Currency       string `json:"currency"`
}

type FundsDeposited struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type FundsWithdrawn struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type FundsTransferredOut struct {
	Amount          int64  `json:"amount"`
	TargetAccountID string `json:"target_account_id"`
	Description     string `json:"description"`
}

type FundsTransferredIn struct {
	Amount          int64  `json:"amount"`
	SourceAccountID string `json:"source_account_id"`
	Description     string `json:"description"`
}

type InterestAccrued struct {
	Amount int64 `json:"amount"`
}

type AccountClosed struct{}
