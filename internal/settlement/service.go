package settlement

import (
	"context"
	"errors"

	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/notification"
	"github.com/example/ledger-saga/internal/saga"
)

const SagaType = "CLAIM_SETTLEMENT"

var ErrMissingClaimID = errors.New("claim ID is required")

// Service settles approved claims: fraud gate, coverage booking, payment,
// claimant notification. Each step commits its own effects; a failure
// unwinds the earlier steps through their compensations.
type Service struct {
	orchestrator *saga.Orchestrator
	es           store.EventStore
	reads        store.ReadStore
	notifier     notification.Notifier
}

func NewService(orchestrator *saga.Orchestrator, es store.EventStore, reads store.ReadStore, notifier notification.Notifier) *Service {
	return &Service{orchestrator: orchestrator, es: es, reads: reads, notifier: notifier}
}

// Settle pays out the claim's approved amount. The saga ID is returned in
// every outcome; a nil error means the settlement completed.
func (s *Service) Settle(ctx context.Context, claimID, paymentReference string) (string, error) {
	if claimID == "" {
		return "", ErrMissingClaimID
	}

	sc := saga.NewContext(map[string]any{
		keyClaimID:    claimID,
		keyPaymentRef: paymentReference,
	})
	steps := []saga.Step{
		NewFraudCheckStep(s.es),
		NewUpdatePolicyStep(s.reads),
		NewPayClaimStep(s.es),
		NewNotifySettlementStep(s.es, s.notifier),
	}
	return s.orchestrator.Execute(ctx, SagaType, steps, sc)
}
