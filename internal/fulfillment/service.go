package fulfillment

import (
	"context"
	"errors"

	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/saga"
)

const SagaType = "ORDER_FULFILLMENT"

var ErrMissingOrderID = errors.New("order ID is required")

// Service fulfills placed orders: stock validation, reservation, payment,
// confirmation. A failure anywhere releases the reservations, refunds the
// charge and cancels the order.
type Service struct {
	orchestrator *saga.Orchestrator
	es           store.EventStore
	gateway      PaymentGateway
}

func NewService(orchestrator *saga.Orchestrator, es store.EventStore, gateway PaymentGateway) *Service {
	return &Service{orchestrator: orchestrator, es: es, gateway: gateway}
}

// Fulfill drives the order from PLACED to CONFIRMED. The saga ID is
// returned in every outcome; a nil error means the order was confirmed.
func (s *Service) Fulfill(ctx context.Context, orderID string) (string, error) {
	if orderID == "" {
		return "", ErrMissingOrderID
	}

	sc := saga.NewContext(map[string]any{
		keyOrderID: orderID,
	})
	steps := []saga.Step{
		NewValidateStockStep(s.es),
		NewReserveInventoryStep(s.es),
		NewProcessPaymentStep(s.es, s.gateway),
		NewConfirmOrderStep(s.es),
	}
	return s.orchestrator.Execute(ctx, SagaType, steps, sc)
}
