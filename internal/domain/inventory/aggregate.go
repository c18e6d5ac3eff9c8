package inventory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/infrastructure/store"
)

const AggregateType = "Inventory"

var (
	ErrInventoryNotFound = errors.New("inventory not found")

	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be positive", aggregate.ErrInvariantViolation)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", aggregate.ErrInvariantViolation)
)

// State tracks stock per product. Available stock is total minus reserved.
type State struct {
	ProductID     string `json:"product_id"`
	TotalStock    int    `json:"total_stock"`
	ReservedStock int    `json:"reserved_stock"`
	Version       int64  `json:"version"`
}

func (s State) AvailableStock() int { return s.TotalStock - s.ReservedStock }

type Inventory struct {
	State
	aggregate.Recorder
}

func (i *Inventory) GetID() string     { return i.ProductID }
func (i *Inventory) GetVersion() int64 { return i.State.Version }

func (i *Inventory) Apply(event store.Event) error {
	next, err := apply(i.State, event)
	if err != nil {
		return err
	}
	i.State = next
	return nil
}

func apply(s State, event store.Event) (State, error) {
	switch event.EventType {
	case EventStockAdded:
		var e StockAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.ProductID = event.AggregateID
		s.TotalStock += e.Quantity
	case EventStockReserved:
		var e StockReserved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.ReservedStock += e.Quantity
	case EventStockReleased:
		var e StockReleased
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.ReservedStock -= e.Quantity
		if s.ReservedStock < 0 {
			s.ReservedStock = 0
		}
	case EventStockDeducted:
		var e StockDeducted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.TotalStock -= e.Quantity
		s.ReservedStock -= e.Quantity
		if s.ReservedStock < 0 {
			s.ReservedStock = 0
		}
	default:
		return s, fmt.Errorf("unknown inventory event type %q", event.EventType)
	}
	s.Version = event.Version
	return s, nil
}

// NewProduct starts an inventory stream for a product at version 1.
func NewProduct(productID string, initialStock int) (*Inventory, error) {
	if initialStock <= 0 {
		return nil, ErrInvalidQuantity
	}
	i := &Inventory{}
	event, err := store.NewEvent(productID, AggregateType, EventStockAdded, 1, StockAdded{Quantity: initialStock})
	if err != nil {
		return nil, err
	}
	if err := i.Apply(event); err != nil {
		return nil, err
	}
	i.Record(event)
	return i, nil
}

func Replay(events []store.Event) (*Inventory, error) {
	if len(events) == 0 {
		return nil, ErrInventoryNotFound
	}
	i := &Inventory{}
	for _, event := range events {
		if err := i.Apply(event); err != nil {
			return nil, err
		}
	}
	return i, nil
}

func (i *Inventory) AddStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return i.emit(EventStockAdded, StockAdded{Quantity: quantity})
}

func (i *Inventory) Reserve(orderID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.AvailableStock() < quantity {
		return fmt.Errorf("%w: product %s available=%d, requested=%d",
			ErrInsufficientStock, i.ProductID, i.AvailableStock(), quantity)
	}
	return i.emit(EventStockReserved, StockReserved{OrderID: orderID, Quantity: quantity})
}

func (i *Inventory) Release(orderID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return i.emit(EventStockReleased, StockReleased{OrderID: orderID, Quantity: quantity})
}

func (i *Inventory) Deduct(orderID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i.TotalStock < quantity {
		return fmt.Errorf("%w: product %s total=%d, requested=%d",
			ErrInsufficientStock, i.ProductID, i.TotalStock, quantity)
	}
	return i.emit(EventStockDeducted, StockDeducted{OrderID: orderID, Quantity: quantity})
}

func (i *Inventory) emit(eventType string, payload any) error {
	event, err := store.NewEvent(i.ProductID, AggregateType, eventType, i.State.Version+1, payload)
	if err != nil {
		return err
	}
	if err := i.Apply(event); err != nil {
		return err
	}
	i.Record(event)
	return nil
}
