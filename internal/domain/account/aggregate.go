package account

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/infrastructure/store"
)

const AggregateType = "BankAccount"

var (
	ErrAccountNotFound = errors.New("account not found")

	ErrNegativeOpeningBalance = fmt.Errorf("%w: opening balance cannot be negative", aggregate.ErrInvariantViolation)
	ErrNonPositiveAmount      = fmt.Errorf("%w: amount must be positive", aggregate.ErrInvariantViolation)
	ErrAccountClosed          = fmt.Errorf("%w: account is closed", aggregate.ErrInvariantViolation)
	ErrInsufficientFunds      = fmt.Errorf("%w: insufficient funds", aggregate.ErrInvariantViolation)
	ErrNonZeroBalance         = fmt.Errorf("%w: cannot close account with non-zero balance", aggregate.ErrInvariantViolation)
)

// State is the replayed bank account state. Transitions go through apply
// only, so replaying the same events always lands on the same values.
type State struct {
	AccountID string `json:"account_id"`
	Holder    string `json:"holder"`
	Balance   int64  `json:"balance"`
	Currency  string `json:"currency"`
	Closed    bool   `json:"closed"`
	Version   int64  `json:"version"`
}

// Account is the bank account aggregate.
type Account struct {
	State
	aggregate.Recorder
}

func (a *Account) GetID() string     { return a.AccountID }
func (a *Account) GetVersion() int64 { return a.State.Version }

func (a *Account) Apply(event store.Event) error {
	next, err := apply(a.State, event)
	if err != nil {
		return err
	}
	a.State = next
	return nil
}

// apply is the pure transition function: value in, value out, no clock, no
// randomness. Unknown event types fail rather than being skipped.
func apply(s State, event store.Event) (State, error) {
	switch event.EventType {
	case EventAccountOpened:
		var e AccountOpened
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.AccountID = event.AggregateID
		s.Holder = e.Holder
		s.Balance = e.InitialBalance
		s.Currency = e.Currency
		s.Closed = false
	case EventFundsDeposited:
		var e FundsDeposited
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.Balance += e.Amount
	case EventFundsWithdrawn:
		var e FundsWithdrawn
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.Balance -= e.Amount
	case EventFundsTransferredOut:
		var e FundsTransferredOut
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.Balance -= e.Amount
	case EventFundsTransferredIn:
		var e FundsTransferredIn
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.Balance += e.Amount
	case EventInterestAccrued:
		var e InterestAccrued
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.Balance += e.Amount
	case EventAccountClosed:
		s.Closed = true
	default:
		return s, fmt.Errorf("unknown account event type %q", event.EventType)
	}
	s.Version = event.Version
	return s, nil
}

// Open creates a new account with version 1.
func Open(accountID, holder string, initialBalance int64, currency string) (*Account, error) {
	if initialBalance < 0 {
		return nil, ErrNegativeOpeningBalance
	}
	a := &Account{}
	event, err := store.NewEvent(accountID, AggregateType, EventAccountOpened, 1, AccountOpened{
		Holder:         holder,
		InitialBalance: initialBalance,
		Currency:       currency,
	})
	if err != nil {
		return nil, err
	}
	if err := a.Apply(event); err != nil {
		return nil, err
	}
	a.Record(event)
	return a, nil
}

// Replay reconstructs an account from its full event history.
func Replay(events []store.Event) (*Account, error) {
	if len(events) == 0 {
		return nil, ErrAccountNotFound
	}
	a := &Account{}
	for _, event := range events {
		if err := a.Apply(event); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Account) Deposit(amount int64, description string) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if a.Closed {
		return ErrAccountClosed
	}
	return a.emit(EventFundsDeposited, FundsDeposited{Amount: amount, Description: description})
}

func (a *Account) Withdraw(amount int64, description string) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if a.Closed {
		return ErrAccountClosed
	}
	if a.Balance < amount {
		return fmt.Errorf("%w: balance=%d, requested=%d", ErrInsufficientFunds, a.Balance, amount)
	}
	return a.emit(EventFundsWithdrawn, FundsWithdrawn{Amount: amount, Description: description})
}

func (a *Account) TransferOut(amount int64, targetAccountID, description string) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if a.Closed {
		return ErrAccountClosed
	}
	if a.Balance < amount {
		return fmt.Errorf("%w: balance=%d, requested=%d", ErrInsufficientFunds, a.Balance, amount)
	}
	return a.emit(EventFundsTransferredOut, FundsTransferredOut{
		Amount:          amount,
		TargetAccountID: targetAccountID,
		Description:     description,
	})
}

func (a *Account) TransferIn(amount int64, sourceAccountID, description string) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if a.Closed {
		return ErrAccountClosed
	}
	return a.emit(EventFundsTransferredIn, FundsTransferredIn{
		Amount:          amount,
		SourceAccountID: sourceAccountID,
		Description:     description,
	})
}

func (a *Account) AccrueInterest(amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if a.Closed {
		return ErrAccountClosed
	}
	return a.emit(EventInterestAccrued, InterestAccrued{Amount: amount})
}

func (a *Account) Close() error {
	if a.Closed {
		return ErrAccountClosed
	}
	if a.Balance != 0 {
		return fmt.Errorf("%w: balance=%d", ErrNonZeroBalance, a.Balance)
	}
	return a.emit(EventAccountClosed, AccountClosed{})
}

func (a *Account) emit(eventType string, payload any) error {
	event, err := store.NewEvent(a.AccountID, AggregateType, eventType, a.State.Version+1, payload)
	if err != nil {
		return err
	}
	if err := a.Apply(event); err != nil {
		return err
	}
	a.Record(event)
	return nil
}
