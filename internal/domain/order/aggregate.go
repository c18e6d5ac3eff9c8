package order

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/infrastructure/store"
)

const AggregateType = "Order"

type Status string

const (
	StatusPlaced            Status = "PLACED"
	StatusInventoryReserved Status = "INVENTORY_RESERVED"
	StatusPaymentProcessed  Status = "PAYMENT_PROCESSED"
	StatusConfirmed         Status = "CONFIRMED"
	StatusShipped           Status = "SHIPPED"
	StatusCancelled         Status = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusShipped || s == StatusCancelled
}

var (
	ErrOrderNotFound = errors.New("order not found")

	ErrEmptyOrder    = fmt.Errorf("%w: order must have at least one line", aggregate.ErrInvariantViolation)
	ErrWrongStatus   = fmt.Errorf("%w: operation not allowed in current status", aggregate.ErrInvariantViolation)
	ErrOrderTerminal = fmt.Errorf("%w: order is in a terminal status", aggregate.ErrInvariantViolation)
)

type State struct {
	OrderID        string `json:"order_id"`
	CustomerID     string `json:"customer_id"`
	Lines          []Line `json:"lines"`
	TotalAmount    int64  `json:"total_amount"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Status         Status `json:"status"`
	Version        int64  `json:"version"`
}

// Order is the fulfillment aggregate. Each forward command is legal from
// exactly one status; Cancel is legal from any non-terminal status and is
// the universal compensation target.
type Order struct {
	State
	aggregate.Recorder
}

func (o *Order) GetID() string     { return o.OrderID }
func (o *Order) GetVersion() int64 { return o.State.Version }

func (o *Order) Apply(event store.Event) error {
	next, err := apply(o.State, event)
	if err != nil {
		return err
	}
	o.State = next
	return nil
}

func apply(s State, event store.Event) (State, error) {
	switch event.EventType {
	case EventOrderPlaced:
		var e OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.OrderID = event.AggregateID
		s.CustomerID = e.CustomerID
		s.Lines = e.Lines
		s.TotalAmount = e.TotalAmount
		s.Status = StatusPlaced
	case EventInventoryReserved:
		s.Status = StatusInventoryReserved
	case EventPaymentProcessed:
		s.Status = StatusPaymentProcessed
	case EventOrderConfirmed:
		s.Status = StatusConfirmed
	case EventOrderShipped:
		var e OrderShipped
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.TrackingNumber = e.TrackingNumber
		s.Status = StatusShipped
	case EventOrderCancelled:
		s.Status = StatusCancelled
	default:
		return s, fmt.Errorf("unknown order event type %q", event.EventType)
	}
	s.Version = event.Version
	return s, nil
}

func Place(orderID, customerID string, lines []Line) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	var total int64
	for _, line := range lines {
		total += line.Total()
	}
	o := &Order{}
	event, err := store.NewEvent(orderID, AggregateType, EventOrderPlaced, 1, OrderPlaced{
		CustomerID:  customerID,
		Lines:       lines,
		TotalAmount: total,
	})
	if err != nil {
		return nil, err
	}
	if err := o.Apply(event); err != nil {
		return nil, err
	}
	o.Record(event)
	return o, nil
}

func Replay(events []store.Event) (*Order, error) {
	if len(events) == 0 {
		return nil, ErrOrderNotFound
	}
	o := &Order{}
	for _, event := range events {
		if err := o.Apply(event); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Order) ReserveInventory(productIDs []string) error {
	if o.Status != StatusPlaced {
		return fmt.Errorf("%w: reserve requires PLACED, current %s", ErrWrongStatus, o.Status)
	}
	return o.emit(EventInventoryReserved, InventoryReserved{ProductIDs: productIDs})
}

func (o *Order) ProcessPayment(amount int64, paymentReference string) error {
	if o.Status != StatusInventoryReserved {
		return fmt.Errorf("%w: payment requires INVENTORY_RESERVED, current %s", ErrWrongStatus, o.Status)
	}
	return o.emit(EventPaymentProcessed, PaymentProcessed{Amount: amount, PaymentReference: paymentReference})
}

func (o *Order) Confirm() error {
	if o.Status != StatusPaymentProcessed {
		return fmt.Errorf("%w: confirm requires PAYMENT_PROCESSED, current %s", ErrWrongStatus, o.Status)
	}
	return o.emit(EventOrderConfirmed, OrderConfirmed{})
}

func (o *Order) Ship(trackingNumber string) error {
	if o.Status != StatusConfirmed {
		return fmt.Errorf("%w: ship requires CONFIRMED, current %s", ErrWrongStatus, o.Status)
	}
	return o.emit(EventOrderShipped, OrderShipped{TrackingNumber: trackingNumber})
}

// Cancel is legal from any non-terminal status.
func (o *Order) Cancel(reason string) error {
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: current %s", ErrOrderTerminal, o.Status)
	}
	return o.emit(EventOrderCancelled, OrderCancelled{Reason: reason})
}

func (o *Order) emit(eventType string, payload any) error {
	event, err := store.NewEvent(o.OrderID, AggregateType, eventType, o.State.Version+1, payload)
	if err != nil {
		return err
	}
	if err := o.Apply(event); err != nil {
		return err
	}
	o.Record(event)
	return nil
}
