package account

import (
	"testing"

	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Open Tests
// ============================================

func TestOpen_Success(t *testing.T) {
	a, err := Open("acc-1", "Alice", 10_000, "EUR")

	require.NoError(t, err)
	assert.Equal(t, "acc-1", a.GetID())
	assert.Equal(t, int64(1), a.GetVersion())
	assert.Equal(t, int64(10_000), a.Balance)
	assert.Equal(t, "Alice", a.Holder)
	assert.False(t, a.Closed)

	pending := a.UncommittedEvents()
	require.Len(t, pending, 1)
	assert.Equal(t, EventAccountOpened, pending[0].EventType)
	assert.Equal(t, int64(1), pending[0].Version)
	assert.Equal(t, AggregateType, pending[0].AggregateType)
}

func TestOpen_NegativeBalance(t *testing.T) {
	_, err := Open("acc-1", "Alice", -1, "EUR")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNegativeOpeningBalance)
	assert.ErrorIs(t, err, aggregate.ErrInvariantViolation)
}

func TestOpen_ZeroBalance(t *testing.T) {
	a, err := Open("acc-1", "Alice", 0, "EUR")

	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Balance)
}

// ============================================
// Command Tests
// ============================================

func TestDeposit_IncreasesBalance(t *testing.T) {
	a, err := Open("acc-1", "Alice", 1_000, "EUR")
	require.NoError(t, err)

	require.NoError(t, a.Deposit(500, "salary"))

	assert.Equal(t, int64(1_500), a.Balance)
	assert.Equal(t, int64(2), a.GetVersion())
	assert.Len(t, a.UncommittedEvents(), 2)
}

func TestDeposit_NonPositiveAmount(t *testing.T) {
	a, err := Open("acc-1", "Alice", 1_000, "EUR")
	require.NoError(t, err)

	assert.ErrorIs(t, a.Deposit(0, ""), ErrNonPositiveAmount)
	assert.ErrorIs(t, a.Deposit(-5, ""), ErrNonPositiveAmount)
	assert.Equal(t, int64(1_000), a.Balance)
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	a, err := Open("acc-1", "Alice", 100, "EUR")
	require.NoError(t, err)

	err = a.Withdraw(200, "too much")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.ErrorIs(t, err, aggregate.ErrInvariantViolation)
	assert.Equal(t, int64(100), a.Balance)
	assert.Equal(t, int64(1), a.GetVersion())
}

func TestWithdraw_ExactBalance(t *testing.T) {
	a, err := Open("acc-1", "Alice", 100, "EUR")
	require.NoError(t, err)

	require.NoError(t, a.Withdraw(100, "everything"))
	assert.Equal(t, int64(0), a.Balance)
}

func TestTransferOut_InsufficientFunds(t *testing.T) {
	a, err := Open("acc-1", "Alice", 100, "EUR")
	require.NoError(t, err)

	err = a.TransferOut(500, "acc-2", "rent")

	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestAccrueInterest_IncreasesBalance(t *testing.T) {
	a, err := Open("acc-1", "Alice", 1_000, "EUR")
	require.NoError(t, err)

	require.NoError(t, a.AccrueInterest(25))
	assert.Equal(t, int64(1_025), a.Balance)
}

func TestClose_RequiresZeroBalance(t *testing.T) {
	a, err := Open("acc-1", "Alice", 100, "EUR")
	require.NoError(t, err)

	err = a.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonZeroBalance)

	require.NoError(t, a.Withdraw(100, "drain"))
	require.NoError(t, a.Close())
	assert.True(t, a.Closed)
}

func TestClosedAccount_RejectsCommands(t *testing.T) {
	a, err := Open("acc-1", "Alice", 0, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.Deposit(100, ""), ErrAccountClosed)
	assert.ErrorIs(t, a.Withdraw(100, ""), ErrAccountClosed)
	assert.ErrorIs(t, a.TransferIn(100, "acc-2", ""), ErrAccountClosed)
	assert.ErrorIs(t, a.AccrueInterest(100), ErrAccountClosed)
	assert.ErrorIs(t, a.Close(), ErrAccountClosed)
}

// ============================================
// Replay Tests
// ============================================

func TestReplay_Deterministic(t *testing.T) {
	a, err := Open("acc-1", "Alice", 10_000, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.Deposit(5_000, "first"))
	require.NoError(t, a.Deposit(5_000, "second"))
	require.NoError(t, a.Withdraw(2_000, "third"))
	require.NoError(t, a.Withdraw(2_000, "fourth"))

	events := a.UncommittedEvents()
	require.Len(t, events, 5)

	first, err := Replay(events)
	require.NoError(t, err)
	second, err := Replay(events)
	require.NoError(t, err)

	assert.Equal(t, int64(16_000), first.Balance)
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, a.State, first.State)
	assert.Empty(t, first.UncommittedEvents())
}

func TestReplay_Empty(t *testing.T) {
	_, err := Replay(nil)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestReplay_UnknownEventType(t *testing.T) {
	event, err := store.NewEvent("acc-1", AggregateType, "SomethingElse", 1, struct{}{})
	require.NoError(t, err)

	_, err = Replay([]store.Event{event})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account event type")
}

func TestVersions_StrictlyIncreasing(t *testing.T) {
	a, err := Open("acc-1", "Alice", 1_000, "EUR")
	require.NoError(t, err)
	require.NoError(t, a.Deposit(1, ""))
	require.NoError(t, a.Deposit(1, ""))

	events := a.UncommittedEvents()
	for i, event := range events {
		assert.Equal(t, int64(i+1), event.Version)
	}
}
