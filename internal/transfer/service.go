package transfer

import (
	"context"
	"errors"

	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/saga"
)

const SagaType = "MONEY_TRANSFER"

var (
	ErrSameAccount       = errors.New("source and target accounts must differ")
	ErrNonPositiveAmount = errors.New("transfer amount must be positive")
	ErrMissingAccountID  = errors.New("source and target account IDs are required")
)

// Service runs money transfers between two accounts as a saga. The debit
// and credit are separate commits on separate aggregates; a failure after
// the debit is undone by a counter-credit, never by editing history.
type Service struct {
	orchestrator *saga.Orchestrator
	es           store.EventStore
	reads        store.ReadStore
}

func NewService(orchestrator *saga.Orchestrator, es store.EventStore, reads store.ReadStore) *Service {
	return &Service{orchestrator: orchestrator, es: es, reads: reads}
}

// Transfer moves amount from the source to the target account. The saga ID
// is returned in every outcome; a nil error means the transfer completed.
func (s *Service) Transfer(ctx context.Context, sourceAccountID, targetAccountID string, amount int64, description string) (string, error) {
	if sourceAccountID == "" || targetAccountID == "" {
		return "", ErrMissingAccountID
	}
	if sourceAccountID == targetAccountID {
		return "", ErrSameAccount
	}
	if amount <= 0 {
		return "", ErrNonPositiveAmount
	}

	sc := saga.NewContext(map[string]any{
		keySource:      sourceAccountID,
		keyTarget:      targetAccountID,
		keyAmount:      amount,
		keyDescription: description,
	})
	steps := []saga.Step{
		NewDebitSourceStep(s.es),
		NewCreditTargetStep(s.es),
		NewRecordTransferStep(s.reads),
	}
	return s.orchestrator.Execute(ctx, SagaType, steps, sc)
}
