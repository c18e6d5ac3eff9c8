package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/ledger-saga/internal/domain/account"
	"github.com/example/ledger-saga/internal/domain/claim"
	"github.com/example/ledger-saga/internal/domain/order"
	"github.com/example/ledger-saga/internal/infrastructure/store"
)

// Handler turns selected domain events into notifications. Events that
// carry no customer-visible outcome are dropped.
type Handler struct {
	notifier Notifier
}

func NewHandler(notifier Notifier) *Handler {
	return &Handler{notifier: notifier}
}

// HandleMessage adapts HandleEvent to the Kafka consumer contract.
func (h *Handler) HandleMessage(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("decode event message (key %q): %w", key, err)
	}
	return h.HandleEvent(ctx, event)
}

func (h *Handler) HandleEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case claim.EventClaimPaid:
		var e claim.ClaimPaid
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return h.notifier.Notify(ctx, Notification{
			Recipient: event.AggregateID,
			Subject:   "Claim payment sent",
			Body:      fmt.Sprintf("Your claim %s has been paid (reference %s).", event.AggregateID, e.PaymentReference),
		})
	case order.EventOrderConfirmed:
		return h.notifier.Notify(ctx, Notification{
			Recipient: event.AggregateID,
			Subject:   "Order confirmed",
			Body:      fmt.Sprintf("Your order %s has been confirmed and will ship soon.", event.AggregateID),
		})
	case account.EventAccountClosed:
		return h.notifier.Notify(ctx, Notification{
			Recipient: event.AggregateID,
			Subject:   "Account closed",
			Body:      fmt.Sprintf("Your account %s has been closed.", event.AggregateID),
		})
	default:
		return nil
	}
}
