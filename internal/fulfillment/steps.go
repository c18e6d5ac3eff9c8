package fulfillment

import (
	"context"
	"fmt"

	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/domain/inventory"
	"github.com/example/ledger-saga/internal/domain/order"
	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/saga"
)

const (
	keySagaID     = "sagaId"
	keyOrderID    = "orderId"
	keyAmount     = "amount"
	keyPaymentRef = "paymentReference"
)

func loadOrder(ctx context.Context, es store.EventStore, orderID string) (*order.Order, error) {
	o, found, err := aggregate.Load(ctx, es, orderID, func() *order.Order { return &order.Order{} })
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("order %s: %w", orderID, order.ErrOrderNotFound)
	}
	return o, nil
}

func loadInventory(ctx context.Context, es store.EventStore, productID string) (*inventory.Inventory, error) {
	inv, found, err := aggregate.Load(ctx, es, productID, func() *inventory.Inventory { return &inventory.Inventory{} })
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("product %s: %w", productID, inventory.ErrInventoryNotFound)
	}
	return inv, nil
}

// ValidateStockStep checks that every order line can be covered by the
// currently available stock. Read-only; the authoritative check happens
// again in the reserve step, this one just fails fast before any state
// changes.
type ValidateStockStep struct {
	es store.EventStore
}

func NewValidateStockStep(es store.EventStore) *ValidateStockStep {
	return &ValidateStockStep{es: es}
}

func (s *ValidateStockStep) Name() string { return "VALIDATE_STOCK" }

func (s *ValidateStockStep) Execute(ctx context.Context, sc *saga.Context) error {
	o, err := loadOrder(ctx, s.es, sc.GetString(keyOrderID))
	if err != nil {
		return err
	}
	if o.Status != order.StatusPlaced {
		return fmt.Errorf("%w: fulfillment requires PLACED, current %s", order.ErrWrongStatus, o.Status)
	}
	for _, line := range o.Lines {
		inv, err := loadInventory(ctx, s.es, line.ProductID)
		if err != nil {
			return err
		}
		if inv.AvailableStock() < line.Quantity {
			return fmt.Errorf("%w: product %s available=%d, requested=%d",
				inventory.ErrInsufficientStock, line.ProductID, inv.AvailableStock(), line.Quantity)
		}
	}
	sc.Put(keyAmount, o.TotalAmount)
	return nil
}

func (s *ValidateStockStep) Compensate(ctx context.Context, sc *saga.Context) error {
	return nil
}

// ReserveInventoryStep reserves stock line by line and moves the order to
// INVENTORY_RESERVED. Each reservation commits on its own; a mid-line
// failure releases the lines already reserved before the error surfaces,
// because only fully succeeded steps get compensated. Compensation
// releases every line and then cancels the order, the order's only
// backward transition.
type ReserveInventoryStep struct {
	es store.EventStore
}

func NewReserveInventoryStep(es store.EventStore) *ReserveInventoryStep {
	return &ReserveInventoryStep{es: es}
}

func (s *ReserveInventoryStep) Name() string { return "RESERVE_INVENTORY" }

func (s *ReserveInventoryStep) Execute(ctx context.Context, sc *saga.Context) error {
	orderID := sc.GetString(keyOrderID)
	o, err := loadOrder(ctx, s.es, orderID)
	if err != nil {
		return err
	}

	var reserved []order.Line
	for _, line := range o.Lines {
		if err := s.reserveLine(ctx, orderID, line); err != nil {
			s.releaseLines(ctx, orderID, reserved)
			return err
		}
		reserved = append(reserved, line)
	}

	productIDs := make([]string, len(o.Lines))
	for i, line := range o.Lines {
		productIDs[i] = line.ProductID
	}
	if err := o.ReserveInventory(productIDs); err != nil {
		s.releaseLines(ctx, orderID, reserved)
		return err
	}
	if _, err := aggregate.Commit(ctx, s.es, o); err != nil {
		s.releaseLines(ctx, orderID, reserved)
		return err
	}
	return nil
}

func (s *ReserveInventoryStep) Compensate(ctx context.Context, sc *saga.Context) error {
	orderID := sc.GetString(keyOrderID)
	o, err := loadOrder(ctx, s.es, orderID)
	if err != nil {
		return err
	}

	for _, line := range o.Lines {
		inv, err := loadInventory(ctx, s.es, line.ProductID)
		if err != nil {
			return err
		}
		if err := inv.Release(orderID, line.Quantity); err != nil {
			return err
		}
		if _, err := aggregate.Commit(ctx, s.es, inv); err != nil {
			return err
		}
	}

	if o.Status.IsTerminal() {
		return nil
	}
	reason := fmt.Sprintf("fulfillment %s rolled back", sc.GetString(keySagaID))
	if err := o.Cancel(reason); err != nil {
		return err
	}
	_, err = aggregate.Commit(ctx, s.es, o)
	return err
}

func (s *ReserveInventoryStep) reserveLine(ctx context.Context, orderID string, line order.Line) error {
	inv, err := loadInventory(ctx, s.es, line.ProductID)
	if err != nil {
		return err
	}
	if err := inv.Reserve(orderID, line.Quantity); err != nil {
		return err
	}
	_, err = aggregate.Commit(ctx, s.es, inv)
	return err
}

// releaseLines is best-effort cleanup of partial reservations. The
// original reservation error is what the caller surfaces.
func (s *ReserveInventoryStep) releaseLines(ctx context.Context, orderID string, lines []order.Line) {
	for _, line := range lines {
		inv, err := loadInventory(ctx, s.es, line.ProductID)
		if err != nil {
			continue
		}
		if err := inv.Release(orderID, line.Quantity); err != nil {
			continue
		}
		_, _ = aggregate.Commit(ctx, s.es, inv)
	}
}

// ProcessPaymentStep charges the order total through the gateway and marks
// the order paid. Compensation refunds the charge; the order state unwind
// is left to the reserve step's compensation, which cancels the order.
type ProcessPaymentStep struct {
	es      store.EventStore
	gateway PaymentGateway
}

func NewProcessPaymentStep(es store.EventStore, gateway PaymentGateway) *ProcessPaymentStep {
	return &ProcessPaymentStep{es: es, gateway: gateway}
}

func (s *ProcessPaymentStep) Name() string { return "PROCESS_PAYMENT" }

func (s *ProcessPaymentStep) Execute(ctx context.Context, sc *saga.Context) error {
	orderID := sc.GetString(keyOrderID)
	o, err := loadOrder(ctx, s.es, orderID)
	if err != nil {
		return err
	}
	ref, err := s.gateway.Charge(ctx, orderID, o.TotalAmount)
	if err != nil {
		return fmt.Errorf("charge order %s: %w", orderID, err)
	}
	sc.Put(keyPaymentRef, ref)

	if err := o.ProcessPayment(o.TotalAmount, ref); err != nil {
		return err
	}
	_, err = aggregate.Commit(ctx, s.es, o)
	return err
}

func (s *ProcessPaymentStep) Compensate(ctx context.Context, sc *saga.Context) error {
	ref := sc.GetString(keyPaymentRef)
	if ref == "" {
		return nil
	}
	orderID := sc.GetString(keyOrderID)
	if err := s.gateway.Refund(ctx, orderID, ref, sc.GetInt64(keyAmount)); err != nil {
		return fmt.Errorf("refund order %s: %w", orderID, err)
	}
	return nil
}

// ConfirmOrderStep is the final forward step; once it succeeds the saga is
// complete, so its compensation never runs.
type ConfirmOrderStep struct {
	es store.EventStore
}

func NewConfirmOrderStep(es store.EventStore) *ConfirmOrderStep {
	return &ConfirmOrderStep{es: es}
}

func (s *ConfirmOrderStep) Name() string { return "CONFIRM_ORDER" }

func (s *ConfirmOrderStep) Execute(ctx context.Context, sc *saga.Context) error {
	o, err := loadOrder(ctx, s.es, sc.GetString(keyOrderID))
	if err != nil {
		return err
	}
	if err := o.Confirm(); err != nil {
		return err
	}
	if _, err := aggregate.Commit(ctx, s.es, o); err != nil {
		return err
	}
	return aggregate.MaybeSnapshot(ctx, s.es, o, order.AggregateType)
}

func (s *ConfirmOrderStep) Compensate(ctx context.Context, sc *saga.Context) error {
	return nil
}
