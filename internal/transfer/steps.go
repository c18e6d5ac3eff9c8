package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ledger-saga/internal/domain/account"
	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/readmodel"
	"github.com/example/ledger-saga/internal/saga"
)

// Context keys shared by the transfer steps.
const (
	keySagaID      = "sagaId"
	keySource      = "sourceAccountId"
	keyTarget      = "targetAccountId"
	keyAmount      = "amount"
	keyDescription = "description"
)

func loadAccount(ctx context.Context, es store.EventStore, accountID string) (*account.Account, error) {
	acc, found, err := aggregate.Load(ctx, es, accountID, func() *account.Account { return &account.Account{} })
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("account %s: %w", accountID, account.ErrAccountNotFound)
	}
	return acc, nil
}

// DebitSourceStep moves the amount out of the source account. Its
// compensation is a counter-movement back in, not a restore of the old
// balance, so deposits that landed in between are preserved.
type DebitSourceStep struct {
	es store.EventStore
}

func NewDebitSourceStep(es store.EventStore) *DebitSourceStep {
	return &DebitSourceStep{es: es}
}

func (s *DebitSourceStep) Name() string { return "DEBIT_SOURCE" }

func (s *DebitSourceStep) Execute(ctx context.Context, sc *saga.Context) error {
	acc, err := loadAccount(ctx, s.es, sc.GetString(keySource))
	if err != nil {
		return err
	}
	if err := acc.TransferOut(sc.GetInt64(keyAmount), sc.GetString(keyTarget), sc.GetString(keyDescription)); err != nil {
		return err
	}
	if _, err := aggregate.Commit(ctx, s.es, acc); err != nil {
		return err
	}
	return aggregate.MaybeSnapshot(ctx, s.es, acc, account.AggregateType)
}

func (s *DebitSourceStep) Compensate(ctx context.Context, sc *saga.Context) error {
	acc, err := loadAccount(ctx, s.es, sc.GetString(keySource))
	if err != nil {
		return err
	}
	reason := fmt.Sprintf("reversal of transfer %s", sc.GetString(keySagaID))
	if err := acc.TransferIn(sc.GetInt64(keyAmount), sc.GetString(keyTarget), reason); err != nil {
		return err
	}
	_, err = aggregate.Commit(ctx, s.es, acc)
	return err
}

// CreditTargetStep moves the amount into the target account.
type CreditTargetStep struct {
	es store.EventStore
}

func NewCreditTargetStep(es store.EventStore) *CreditTargetStep {
	return &CreditTargetStep{es: es}
}

func (s *CreditTargetStep) Name() string { return "CREDIT_TARGET" }

func (s *CreditTargetStep) Execute(ctx context.Context, sc *saga.Context) error {
	acc, err := loadAccount(ctx, s.es, sc.GetString(keyTarget))
	if err != nil {
		return err
	}
	if err := acc.TransferIn(sc.GetInt64(keyAmount), sc.GetString(keySource), sc.GetString(keyDescription)); err != nil {
		return err
	}
	if _, err := aggregate.Commit(ctx, s.es, acc); err != nil {
		return err
	}
	return aggregate.MaybeSnapshot(ctx, s.es, acc, account.AggregateType)
}

func (s *CreditTargetStep) Compensate(ctx context.Context, sc *saga.Context) error {
	acc, err := loadAccount(ctx, s.es, sc.GetString(keyTarget))
	if err != nil {
		return err
	}
	reason := fmt.Sprintf("reversal of transfer %s", sc.GetString(keySagaID))
	if err := acc.TransferOut(sc.GetInt64(keyAmount), sc.GetString(keySource), reason); err != nil {
		return err
	}
	_, err = aggregate.Commit(ctx, s.es, acc)
	return err
}

// RecordTransferStep writes the transfer audit document. Compensation
// deletes it, so only completed transfers are visible.
type RecordTransferStep struct {
	reads store.ReadStore
}

func NewRecordTransferStep(reads store.ReadStore) *RecordTransferStep {
	return &RecordTransferStep{reads: reads}
}

func (s *RecordTransferStep) Name() string { return "RECORD_TRANSFER" }

func (s *RecordTransferStep) Execute(ctx context.Context, sc *saga.Context) error {
	sagaID := sc.GetString(keySagaID)
	return s.reads.Put(ctx, readmodel.CollectionTransfers, sagaID, readmodel.TransferRecord{
		TransferID:      sagaID,
		SourceAccountID: sc.GetString(keySource),
		TargetAccountID: sc.GetString(keyTarget),
		Amount:          sc.GetInt64(keyAmount),
		Description:     sc.GetString(keyDescription),
		RecordedAt:      time.Now().UTC(),
	})
}

func (s *RecordTransferStep) Compensate(ctx context.Context, sc *saga.Context) error {
	return s.reads.Delete(ctx, readmodel.CollectionTransfers, sc.GetString(keySagaID))
}
