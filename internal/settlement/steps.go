package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/domain/claim"
	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/notification"
	"github.com/example/ledger-saga/internal/readmodel"
	"github.com/example/ledger-saga/internal/saga"
)

const (
	keySagaID     = "sagaId"
	keyClaimID    = "claimId"
	keyPolicyID   = "policyId"
	keyAmount     = "amount"
	keyPaymentRef = "paymentReference"
)

var (
	ErrClaimNotApproved  = errors.New("claim is not approved for settlement")
	ErrCoverageExhausted = errors.New("policy coverage exhausted")
	ErrPolicyInactive    = errors.New("policy is not active")
	ErrUnacceptableRisk  = errors.New("fraud risk too high to settle")
)

func loadClaim(ctx context.Context, es store.EventStore, claimID string) (*claim.Claim, error) {
	c, found, err := aggregate.Load(ctx, es, claimID, func() *claim.Claim { return &claim.Claim{} })
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("claim %s: %w", claimID, claim.ErrClaimNotFound)
	}
	return c, nil
}

// FraudCheckStep gates the settlement on the claim's state: it must be
// APPROVED and carry an acceptable fraud risk. The step is read-only, so
// its compensation is a no-op. It also seeds the context with the policy
// ID and approved amount for the later steps.
type FraudCheckStep struct {
	es store.EventStore
}

func NewFraudCheckStep(es store.EventStore) *FraudCheckStep {
	return &FraudCheckStep{es: es}
}

func (s *FraudCheckStep) Name() string { return "FRAUD_CHECK" }

func (s *FraudCheckStep) Execute(ctx context.Context, sc *saga.Context) error {
	c, err := loadClaim(ctx, s.es, sc.GetString(keyClaimID))
	if err != nil {
		return err
	}
	if c.Status != claim.StatusApproved {
		return fmt.Errorf("%w: claim %s is %s", ErrClaimNotApproved, c.ClaimID, c.Status)
	}
	if c.FraudRisk == "HIGH" {
		return fmt.Errorf("%w: claim %s", ErrUnacceptableRisk, c.ClaimID)
	}
	sc.Put(keyPolicyID, c.PolicyID)
	sc.Put(keyAmount, c.ApprovedAmount)
	return nil
}

func (s *FraudCheckStep) Compensate(ctx context.Context, sc *saga.Context) error {
	return nil
}

// UpdatePolicyStep books the settlement against the policy's coverage.
// Compensation books the amount back.
type UpdatePolicyStep struct {
	reads store.ReadStore
}

func NewUpdatePolicyStep(reads store.ReadStore) *UpdatePolicyStep {
	return &UpdatePolicyStep{reads: reads}
}

func (s *UpdatePolicyStep) Name() string { return "UPDATE_POLICY" }

func (s *UpdatePolicyStep) Execute(ctx context.Context, sc *saga.Context) error {
	policyID := sc.GetString(keyPolicyID)
	var doc readmodel.PolicyCoverage
	if err := s.reads.Get(ctx, readmodel.CollectionPolicies, policyID, &doc); err != nil {
		return fmt.Errorf("load policy %s: %w", policyID, err)
	}
	if !doc.Active {
		return fmt.Errorf("%w: policy %s", ErrPolicyInactive, policyID)
	}
	amount := sc.GetInt64(keyAmount)
	if doc.Remaining() < amount {
		return fmt.Errorf("%w: policy %s remaining=%d, requested=%d",
			ErrCoverageExhausted, policyID, doc.Remaining(), amount)
	}
	doc.CoverageUsed += amount
	return s.reads.Put(ctx, readmodel.CollectionPolicies, policyID, doc)
}

func (s *UpdatePolicyStep) Compensate(ctx context.Context, sc *saga.Context) error {
	policyID := sc.GetString(keyPolicyID)
	var doc readmodel.PolicyCoverage
	if err := s.reads.Get(ctx, readmodel.CollectionPolicies, policyID, &doc); err != nil {
		return fmt.Errorf("load policy %s: %w", policyID, err)
	}
	doc.CoverageUsed -= sc.GetInt64(keyAmount)
	return s.reads.Put(ctx, readmodel.CollectionPolicies, policyID, doc)
}

// PayClaimStep marks the claim paid. Compensation emits the payment
// reversal counter-event, which returns the claim to APPROVED.
type PayClaimStep struct {
	es store.EventStore
}

func NewPayClaimStep(es store.EventStore) *PayClaimStep {
	return &PayClaimStep{es: es}
}

func (s *PayClaimStep) Name() string { return "PAY_CLAIM" }

func (s *PayClaimStep) Execute(ctx context.Context, sc *saga.Context) error {
	c, err := loadClaim(ctx, s.es, sc.GetString(keyClaimID))
	if err != nil {
		return err
	}
	if err := c.Pay(sc.GetInt64(keyAmount), sc.GetString(keyPaymentRef)); err != nil {
		return err
	}
	if _, err := aggregate.Commit(ctx, s.es, c); err != nil {
		return err
	}
	return aggregate.MaybeSnapshot(ctx, s.es, c, claim.AggregateType)
}

func (s *PayClaimStep) Compensate(ctx context.Context, sc *saga.Context) error {
	c, err := loadClaim(ctx, s.es, sc.GetString(keyClaimID))
	if err != nil {
		return err
	}
	if c.Status != claim.StatusPaid {
		// Execute failed before the payment committed; nothing to reverse.
		return nil
	}
	reason := fmt.Sprintf("settlement %s rolled back", sc.GetString(keySagaID))
	if err := c.ReversePayment(reason); err != nil {
		return err
	}
	_, err = aggregate.Commit(ctx, s.es, c)
	return err
}

// NotifySettlementStep tells the claimant the money is on its way. A
// notification cannot be unsent; compensation is a no-op, and the step is
// last so a compensated saga never notified anyone.
type NotifySettlementStep struct {
	es       store.EventStore
	notifier notification.Notifier
}

func NewNotifySettlementStep(es store.EventStore, notifier notification.Notifier) *NotifySettlementStep {
	return &NotifySettlementStep{es: es, notifier: notifier}
}

func (s *NotifySettlementStep) Name() string { return "NOTIFY_SETTLEMENT" }

func (s *NotifySettlementStep) Execute(ctx context.Context, sc *saga.Context) error {
	c, err := loadClaim(ctx, s.es, sc.GetString(keyClaimID))
	if err != nil {
		return err
	}
	return s.notifier.Notify(ctx, notification.Notification{
		Recipient: c.Claimant,
		Subject:   "Claim settled",
		Body: fmt.Sprintf("Your claim %s has been settled for %d (reference %s).",
			c.ClaimID, c.PaidAmount, sc.GetString(keyPaymentRef)),
	})
}

func (s *NotifySettlementStep) Compensate(ctx context.Context, sc *saga.Context) error {
	return nil
}
