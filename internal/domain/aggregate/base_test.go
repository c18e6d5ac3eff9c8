package aggregate_test

import (
	"context"
	"testing"

	"github.com/example/ledger-saga/internal/domain/account"
	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount() *account.Account { return &account.Account{} }

// ============================================
// Commit Tests
// ============================================

func TestCommit_AppendsAndClearsBuffer(t *testing.T) {
	eventStore := mocks.NewMockEventStore()
	ctx := context.Background()

	a, err := account.Open("acc-1", "Alice", 1_000, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.Deposit(500, ""))

	committed, err := aggregate.Commit(ctx, eventStore, a)

	require.NoError(t, err)
	assert.Len(t, committed, 2)
	assert.Empty(t, a.UncommittedEvents())
	assert.Len(t, eventStore.AppendCalls, 2)
}

func TestCommit_ConflictKeepsBuffer(t *testing.T) {
	eventStore := mocks.NewMockEventStore()
	ctx := context.Background()

	first, err := account.Open("acc-1", "Alice", 1_000, "EUR")
	require.NoError(t, err)
	_, err = aggregate.Commit(ctx, eventStore, first)
	require.NoError(t, err)

	// A second writer opens the same aggregate ID; its version 1 slot is
	// already taken.
	second, err := account.Open("acc-1", "Mallory", 5, "EUR")
	require.NoError(t, err)

	_, err = aggregate.Commit(ctx, eventStore, second)

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.Len(t, second.UncommittedEvents(), 1)
}

// ============================================
// Load Tests
// ============================================

func TestLoad_ReplaysEvents(t *testing.T) {
	eventStore := mocks.NewMockEventStore()
	ctx := context.Background()

	a, err := account.Open("acc-1", "Alice", 1_000, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.Deposit(250, ""))
	_, err = aggregate.Commit(ctx, eventStore, a)
	require.NoError(t, err)

	loaded, found, err := aggregate.Load(ctx, eventStore, "acc-1", newAccount)

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1_250), loaded.Balance)
	assert.Equal(t, int64(2), loaded.GetVersion())
}

func TestLoad_NotFound(t *testing.T) {
	eventStore := mocks.NewMockEventStore()

	_, found, err := aggregate.Load(context.Background(), eventStore, "missing", newAccount)

	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoad_SnapshotPlusTail(t *testing.T) {
	eventStore := mocks.NewMockEventStore()
	ctx := context.Background()

	a, err := account.Open("acc-1", "Alice", 0, "EUR")
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		require.NoError(t, a.Deposit(100, ""))
	}
	_, err = aggregate.Commit(ctx, eventStore, a)
	require.NoError(t, err)

	// Version 10 crosses the snapshot threshold.
	require.NoError(t, aggregate.MaybeSnapshot(ctx, eventStore, a, account.AggregateType))
	snapshot, err := eventStore.LatestSnapshot(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(10), snapshot.Version)

	// Two more events after the snapshot.
	require.NoError(t, a.Deposit(50, ""))
	require.NoError(t, a.Withdraw(25, ""))
	_, err = aggregate.Commit(ctx, eventStore, a)
	require.NoError(t, err)

	loaded, found, err := aggregate.Load(ctx, eventStore, "acc-1", newAccount)

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, a.Balance, loaded.Balance)
	assert.Equal(t, int64(12), loaded.GetVersion())
}

func TestMaybeSnapshot_BelowThreshold(t *testing.T) {
	eventStore := mocks.NewMockEventStore()
	ctx := context.Background()

	a, err := account.Open("acc-1", "Alice", 0, "EUR")
	require.NoError(t, err)

	require.NoError(t, aggregate.MaybeSnapshot(ctx, eventStore, a, account.AggregateType))

	snapshot, err := eventStore.LatestSnapshot(ctx, "acc-1")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}
