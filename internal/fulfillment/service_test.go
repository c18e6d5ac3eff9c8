package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/domain/inventory"
	"github.com/example/ledger-saga/internal/domain/order"
	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/saga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway records charges and refunds and optionally declines.
type fakeGateway struct {
	chargeErr error
	charges   []int64
	refunds   []int64
}

func (g *fakeGateway) Charge(ctx context.Context, orderID string, amount int64) (string, error) {
	if g.chargeErr != nil {
		return "", g.chargeErr
	}
	g.charges = append(g.charges, amount)
	return "pay-ref-test", nil
}

func (g *fakeGateway) Refund(ctx context.Context, orderID, paymentReference string, amount int64) error {
	g.refunds = append(g.refunds, amount)
	return nil
}

type testEnv struct {
	es      *store.MemoryEventStore
	logs    *saga.MemoryLogStore
	gateway *fakeGateway
	service *Service
}

func newTestEnv() *testEnv {
	es := store.NewMemoryEventStore(nil)
	logs := saga.NewMemoryLogStore()
	gateway := &fakeGateway{}
	return &testEnv{
		es:      es,
		logs:    logs,
		gateway: gateway,
		service: NewService(saga.NewOrchestrator(logs), es, gateway),
	}
}

func (e *testEnv) addProduct(t *testing.T, productID string, stock int) {
	t.Helper()
	inv, err := inventory.NewProduct(productID, stock)
	require.NoError(t, err)
	_, err = aggregate.Commit(context.Background(), e.es, inv)
	require.NoError(t, err)
}

func (e *testEnv) placeOrder(t *testing.T, orderID string, lines []order.Line) {
	t.Helper()
	o, err := order.Place(orderID, "customer-1", lines)
	require.NoError(t, err)
	_, err = aggregate.Commit(context.Background(), e.es, o)
	require.NoError(t, err)
}

func (e *testEnv) loadOrder(t *testing.T, orderID string) *order.Order {
	t.Helper()
	events, err := e.es.LoadEvents(context.Background(), orderID)
	require.NoError(t, err)
	o, err := order.Replay(events)
	require.NoError(t, err)
	return o
}

func (e *testEnv) loadInventory(t *testing.T, productID string) *inventory.Inventory {
	t.Helper()
	events, err := e.es.LoadEvents(context.Background(), productID)
	require.NoError(t, err)
	inv, err := inventory.Replay(events)
	require.NoError(t, err)
	return inv
}

// ============================================
// Fulfill Tests
// ============================================

func TestFulfill_Success(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.addProduct(t, "prod-1", 10)
	env.addProduct(t, "prod-2", 5)
	env.placeOrder(t, "order-1", []order.Line{
		{ProductID: "prod-1", Quantity: 2, UnitPrice: 1_000},
		{ProductID: "prod-2", Quantity: 1, UnitPrice: 3_000},
	})

	sagaID, err := env.service.Fulfill(ctx, "order-1")

	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, env.loadOrder(t, "order-1").Status)
	assert.Equal(t, 8, env.loadInventory(t, "prod-1").AvailableStock())
	assert.Equal(t, 4, env.loadInventory(t, "prod-2").AvailableStock())
	assert.Equal(t, []int64{5_000}, env.gateway.charges)
	assert.Empty(t, env.gateway.refunds)

	record, err := env.logs.Get(ctx, sagaID)
	require.NoError(t, err)
	assert.Equal(t, saga.StatusCompleted, record.Status)
}

func TestFulfill_InsufficientStockFailsValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.addProduct(t, "prod-1", 1)
	env.placeOrder(t, "order-1", []order.Line{
		{ProductID: "prod-1", Quantity: 5, UnitPrice: 1_000},
	})

	sagaID, err := env.service.Fulfill(ctx, "order-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var execErr *saga.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "VALIDATE_STOCK", execErr.Step)

	// Nothing changed: no reservation, no charge, order still PLACED.
	assert.Equal(t, order.StatusPlaced, env.loadOrder(t, "order-1").Status)
	assert.Equal(t, 1, env.loadInventory(t, "prod-1").AvailableStock())
	assert.Empty(t, env.gateway.charges)

	record, getErr := env.logs.Get(ctx, sagaID)
	require.NoError(t, getErr)
	assert.True(t, record.Status.IsTerminal())
}

func TestFulfill_PaymentFailureReleasesStockAndCancels(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.addProduct(t, "prod-1", 10)
	env.placeOrder(t, "order-1", []order.Line{
		{ProductID: "prod-1", Quantity: 3, UnitPrice: 2_000},
	})
	env.gateway.chargeErr = errors.New("card declined")

	sagaID, err := env.service.Fulfill(ctx, "order-1")

	require.Error(t, err)
	var execErr *saga.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "PROCESS_PAYMENT", execErr.Step)

	o := env.loadOrder(t, "order-1")
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.Equal(t, 10, env.loadInventory(t, "prod-1").AvailableStock())
	// The charge never went through, so no refund either.
	assert.Empty(t, env.gateway.refunds)

	record, getErr := env.logs.Get(ctx, sagaID)
	require.NoError(t, getErr)
	assert.Equal(t, saga.StatusCompensated, record.Status)
	assert.Equal(t, saga.StepCompensated, record.Steps[1].Status)
}

func TestFulfill_PartialReservationSelfCleans(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.addProduct(t, "prod-1", 10)
	// prod-2 exists with enough stock for validation, but a competing
	// order takes it before the reserve step runs.
	env.addProduct(t, "prod-2", 5)
	env.placeOrder(t, "order-1", []order.Line{
		{ProductID: "prod-1", Quantity: 2, UnitPrice: 1_000},
		{ProductID: "prod-2", Quantity: 5, UnitPrice: 1_000},
	})

	steps := []saga.Step{
		NewValidateStockStep(env.es),
		&stealStockStep{env: env},
		NewReserveInventoryStep(env.es),
	}
	orch := saga.NewOrchestrator(env.logs)
	sc := saga.NewContext(map[string]any{keyOrderID: "order-1"})

	_, err := orch.Execute(ctx, "TEST_FULFILLMENT", steps, sc)

	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	// The partial reservation on prod-1 was released by the failing step
	// itself.
	assert.Equal(t, 10, env.loadInventory(t, "prod-1").AvailableStock())
}

// stealStockStep reserves prod-2 for another order between validation and
// reservation.
type stealStockStep struct {
	env *testEnv
}

func (s *stealStockStep) Name() string { return "STEAL_STOCK" }

func (s *stealStockStep) Execute(ctx context.Context, sc *saga.Context) error {
	events, err := s.env.es.LoadEvents(ctx, "prod-2")
	if err != nil {
		return err
	}
	inv, err := inventory.Replay(events)
	if err != nil {
		return err
	}
	if err := inv.Reserve("order-other", 3); err != nil {
		return err
	}
	_, err = aggregate.Commit(ctx, s.env.es, inv)
	return err
}

func (s *stealStockStep) Compensate(ctx context.Context, sc *saga.Context) error { return nil }

func TestFulfill_MissingOrderID(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.Fulfill(context.Background(), "")

	assert.ErrorIs(t, err, ErrMissingOrderID)
}
