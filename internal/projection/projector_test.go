package projection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/example/ledger-saga/internal/domain/account"
	"github.com/example/ledger-saga/internal/domain/claim"
	"github.com/example/ledger-saga/internal/domain/order"
	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/policy"
	"github.com/example/ledger-saga/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func projectAll(t *testing.T, p *Projector, events []store.Event) {
	t.Helper()
	for _, event := range events {
		require.NoError(t, p.Project(context.Background(), event))
	}
}

// ============================================
// Account Summary Tests
// ============================================

func TestProjectAccount_Scenario(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	// Open with 10,000, two deposits of 5,000, two withdrawals of 2,000.
	a, err := account.Open("acc-A", "Alice", 10_000, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.Deposit(5_000, "first"))
	require.NoError(t, a.Deposit(5_000, "second"))
	require.NoError(t, a.Withdraw(2_000, "third"))
	require.NoError(t, a.Withdraw(2_000, "fourth"))
	projectAll(t, p, a.UncommittedEvents())

	var doc readmodel.AccountSummary
	require.NoError(t, reads.Get(ctx, readmodel.CollectionAccountSummaries, "acc-A", &doc))

	assert.Equal(t, int64(16_000), doc.Balance)
	assert.Equal(t, int64(4), doc.TotalTransactions)
	assert.Equal(t, int64(2), doc.DepositCount)
	assert.Equal(t, int64(2), doc.WithdrawalCount)
	assert.Equal(t, "Alice", doc.Holder)
	assert.Equal(t, int64(5), doc.ProjectedVersion)
	assert.False(t, doc.Closed)
}

func TestProjectAccount_Idempotent(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	a, err := account.Open("acc-A", "Alice", 1_000, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.Deposit(500, ""))
	events := a.UncommittedEvents()

	projectAll(t, p, events)
	// Redeliver the whole stream.
	projectAll(t, p, events)
	// And the last event once more.
	require.NoError(t, p.Project(ctx, events[len(events)-1]))

	var doc readmodel.AccountSummary
	require.NoError(t, reads.Get(ctx, readmodel.CollectionAccountSummaries, "acc-A", &doc))
	assert.Equal(t, int64(1_500), doc.Balance)
	assert.Equal(t, int64(1), doc.TotalTransactions)
}

func TestProjectAccount_InterestAndClose(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	a, err := account.Open("acc-A", "Alice", 100, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.AccrueInterest(10))
	require.NoError(t, a.Withdraw(110, "drain"))
	require.NoError(t, a.Close())
	projectAll(t, p, a.UncommittedEvents())

	var doc readmodel.AccountSummary
	require.NoError(t, reads.Get(ctx, readmodel.CollectionAccountSummaries, "acc-A", &doc))
	assert.Equal(t, int64(0), doc.Balance)
	assert.Equal(t, int64(10), doc.InterestEarned)
	assert.True(t, doc.Closed)
}

// ============================================
// Claim Dashboard / Policy Stats Tests
// ============================================

func paidClaimEvents(t *testing.T, claimID string) []store.Event {
	t.Helper()
	c, err := claim.File(claimID, "policy-1", "Bob", "FIRE", 200_000, 10_000, "")
	require.NoError(t, err)
	require.NoError(t, c.Investigate("inspector", "", "LOW"))
	require.NoError(t, c.Assess(150_000, "", policy.AssessmentCeiling()))
	require.NoError(t, c.Approve(150_000))
	require.NoError(t, c.Pay(150_000, "pay-ref"))
	return c.UncommittedEvents()
}

func TestProjectClaim_DashboardAndPolicyStats(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	projectAll(t, p, paidClaimEvents(t, "claim-1"))

	var dashboard readmodel.ClaimDashboard
	require.NoError(t, reads.Get(ctx, readmodel.CollectionClaimDashboards, "claim-1", &dashboard))
	assert.Equal(t, string(claim.StatusPaid), dashboard.Status)
	assert.Equal(t, int64(150_000), dashboard.PaidAmount)
	assert.Equal(t, "policy-1", dashboard.PolicyID)

	var stats readmodel.PolicyStats
	require.NoError(t, reads.Get(ctx, readmodel.CollectionPolicyStats, "policy-1", &stats))
	assert.Equal(t, int64(1), stats.ClaimsFiled)
	assert.Equal(t, int64(150_000), stats.TotalClaimsPaid)
}

func TestProjectClaim_PolicyStatsAcrossClaims(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	projectAll(t, p, paidClaimEvents(t, "claim-1"))
	projectAll(t, p, paidClaimEvents(t, "claim-2"))

	var stats readmodel.PolicyStats
	require.NoError(t, reads.Get(ctx, readmodel.CollectionPolicyStats, "policy-1", &stats))
	assert.Equal(t, int64(2), stats.ClaimsFiled)
	assert.Equal(t, int64(300_000), stats.TotalClaimsPaid)
}

func TestProjectClaim_PaymentReversalAdjustsStats(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	c, err := claim.File("claim-1", "policy-1", "Bob", "FIRE", 200_000, 10_000, "")
	require.NoError(t, err)
	require.NoError(t, c.Investigate("inspector", "", "LOW"))
	require.NoError(t, c.Assess(150_000, "", policy.AssessmentCeiling()))
	require.NoError(t, c.Approve(150_000))
	require.NoError(t, c.Pay(150_000, "pay-ref"))
	require.NoError(t, c.ReversePayment("rolled back"))
	projectAll(t, p, c.UncommittedEvents())

	var dashboard readmodel.ClaimDashboard
	require.NoError(t, reads.Get(ctx, readmodel.CollectionClaimDashboards, "claim-1", &dashboard))
	assert.Equal(t, string(claim.StatusApproved), dashboard.Status)
	assert.Equal(t, int64(0), dashboard.PaidAmount)

	var stats readmodel.PolicyStats
	require.NoError(t, reads.Get(ctx, readmodel.CollectionPolicyStats, "policy-1", &stats))
	assert.Equal(t, int64(0), stats.TotalClaimsPaid)
}

// ============================================
// Order Dashboard Tests
// ============================================

func TestProjectOrder_Dashboard(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	o, err := order.Place("order-1", "customer-1", []order.Line{
		{ProductID: "prod-1", Quantity: 2, UnitPrice: 1_000},
	})
	require.NoError(t, err)
	require.NoError(t, o.ReserveInventory([]string{"prod-1"}))
	require.NoError(t, o.ProcessPayment(2_000, "pay-ref"))
	require.NoError(t, o.Confirm())
	require.NoError(t, o.Ship("track-9"))
	projectAll(t, p, o.UncommittedEvents())

	var doc readmodel.OrderDashboard
	require.NoError(t, reads.Get(ctx, readmodel.CollectionOrderDashboards, "order-1", &doc))
	assert.Equal(t, string(order.StatusShipped), doc.Status)
	assert.Equal(t, int64(2_000), doc.TotalAmount)
	assert.Equal(t, 1, doc.LineCount)
	assert.Equal(t, "track-9", doc.TrackingNumber)
	assert.Equal(t, "customer-1", doc.CustomerID)
	assert.Equal(t, int64(5), doc.ProjectedVersion)
}

func TestProjectOrder_Idempotent(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	o, err := order.Place("order-1", "customer-1", []order.Line{
		{ProductID: "prod-1", Quantity: 3, UnitPrice: 500},
	})
	require.NoError(t, err)
	require.NoError(t, o.ReserveInventory([]string{"prod-1"}))
	events := o.UncommittedEvents()

	projectAll(t, p, events)
	// Redeliver the whole stream, then the last event once more.
	projectAll(t, p, events)
	require.NoError(t, p.Project(ctx, events[len(events)-1]))

	var doc readmodel.OrderDashboard
	require.NoError(t, reads.Get(ctx, readmodel.CollectionOrderDashboards, "order-1", &doc))
	assert.Equal(t, string(order.StatusInventoryReserved), doc.Status)
	assert.Equal(t, int64(1_500), doc.TotalAmount)
	assert.Equal(t, int64(2), doc.ProjectedVersion)
}

func TestProjectOrder_Cancelled(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	o, err := order.Place("order-1", "customer-1", []order.Line{
		{ProductID: "prod-1", Quantity: 1, UnitPrice: 900},
	})
	require.NoError(t, err)
	require.NoError(t, o.ReserveInventory([]string{"prod-1"}))
	require.NoError(t, o.Cancel("payment declined"))
	projectAll(t, p, o.UncommittedEvents())

	var doc readmodel.OrderDashboard
	require.NoError(t, reads.Get(ctx, readmodel.CollectionOrderDashboards, "order-1", &doc))
	assert.Equal(t, string(order.StatusCancelled), doc.Status)
	assert.Empty(t, doc.TrackingNumber)
}

// ============================================
// Rebuild Tests
// ============================================

func TestRebuildAll_EqualsIncremental(t *testing.T) {
	incrementalReads := store.NewMemoryReadStore()
	rebuiltReads := store.NewMemoryReadStore()
	ctx := context.Background()

	a, err := account.Open("acc-A", "Alice", 10_000, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.Deposit(5_000, ""))
	require.NoError(t, a.Withdraw(2_000, ""))
	events := a.UncommittedEvents()
	events = append(events, paidClaimEvents(t, "claim-1")...)

	o, err := order.Place("order-1", "customer-1", []order.Line{
		{ProductID: "prod-1", Quantity: 2, UnitPrice: 1_000},
	})
	require.NoError(t, err)
	require.NoError(t, o.ReserveInventory([]string{"prod-1"}))
	require.NoError(t, o.ProcessPayment(2_000, "pay-ref"))
	require.NoError(t, o.Confirm())
	events = append(events, o.UncommittedEvents()...)

	projectAll(t, NewProjector(incrementalReads), events)

	rebuilt := NewProjector(rebuiltReads)
	// Seed with stale garbage that the rebuild must clear.
	require.NoError(t, rebuiltReads.Put(ctx, readmodel.CollectionAccountSummaries, "stale",
		readmodel.AccountSummary{AccountID: "stale", Balance: 999}))
	require.NoError(t, rebuilt.RebuildAll(ctx, events))

	var incDoc, rebDoc readmodel.AccountSummary
	require.NoError(t, incrementalReads.Get(ctx, readmodel.CollectionAccountSummaries, "acc-A", &incDoc))
	require.NoError(t, rebuiltReads.Get(ctx, readmodel.CollectionAccountSummaries, "acc-A", &rebDoc))
	assert.Equal(t, incDoc, rebDoc)

	var incStats, rebStats readmodel.PolicyStats
	require.NoError(t, incrementalReads.Get(ctx, readmodel.CollectionPolicyStats, "policy-1", &incStats))
	require.NoError(t, rebuiltReads.Get(ctx, readmodel.CollectionPolicyStats, "policy-1", &rebStats))
	assert.Equal(t, incStats, rebStats)

	var incOrder, rebOrder readmodel.OrderDashboard
	require.NoError(t, incrementalReads.Get(ctx, readmodel.CollectionOrderDashboards, "order-1", &incOrder))
	require.NoError(t, rebuiltReads.Get(ctx, readmodel.CollectionOrderDashboards, "order-1", &rebOrder))
	assert.Equal(t, incOrder, rebOrder)

	err = rebuiltReads.Get(ctx, readmodel.CollectionAccountSummaries, "stale", &rebDoc)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRebuildAll_Idempotent(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	a, err := account.Open("acc-A", "Alice", 1_000, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.Deposit(500, ""))
	events := a.UncommittedEvents()

	require.NoError(t, p.RebuildAll(ctx, events))
	require.NoError(t, p.RebuildAll(ctx, events))

	var doc readmodel.AccountSummary
	require.NoError(t, reads.Get(ctx, readmodel.CollectionAccountSummaries, "acc-A", &doc))
	assert.Equal(t, int64(1_500), doc.Balance)
	assert.Equal(t, int64(1), doc.TotalTransactions)
}

// ============================================
// Kafka Adapter Tests
// ============================================

func TestHandleMessage_DecodesEnvelope(t *testing.T) {
	reads := store.NewMemoryReadStore()
	p := NewProjector(reads)
	ctx := context.Background()

	a, err := account.Open("acc-A", "Alice", 1_000, "EUR")
	require.NoError(t, err)
	event := a.UncommittedEvents()[0]

	raw := mustMarshal(t, event)
	require.NoError(t, p.HandleMessage(ctx, []byte(event.AggregateID), raw))

	var doc readmodel.AccountSummary
	require.NoError(t, reads.Get(ctx, readmodel.CollectionAccountSummaries, "acc-A", &doc))
	assert.Equal(t, int64(1_000), doc.Balance)
}

func TestHandleMessage_BadPayload(t *testing.T) {
	p := NewProjector(store.NewMemoryReadStore())

	err := p.HandleMessage(context.Background(), []byte("key"), []byte("{not json"))

	require.Error(t, err)
}

func TestProject_IgnoresUnknownAggregateType(t *testing.T) {
	p := NewProjector(store.NewMemoryReadStore())

	event, err := store.NewEvent("x-1", "SomethingElse", "Whatever", 1, struct{}{})
	require.NoError(t, err)

	assert.NoError(t, p.Project(context.Background(), event))
}
