package fulfillment

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// PaymentGateway is the external charge boundary. Charge returns a payment
// reference that Refund accepts back.
type PaymentGateway interface {
	Charge(ctx context.Context, orderID string, amount int64) (string, error)
	Refund(ctx context.Context, orderID, paymentReference string, amount int64) error
}

// LoggingGateway approves every charge and logs it. Used in local
// development where no payment provider is wired up.
type LoggingGateway struct{}

func (LoggingGateway) Charge(ctx context.Context, orderID string, amount int64) (string, error) {
	ref := "pay-" + uuid.New().String()
	log.Printf("[Payment] charged order %s amount %d ref %s", orderID, amount, ref)
	return ref, nil
}

func (LoggingGateway) Refund(ctx context.Context, orderID, paymentReference string, amount int64) error {
	log.Printf("[Payment] refunded order %s amount %d ref %s", orderID, amount, paymentReference)
	return nil
}
