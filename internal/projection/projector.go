package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/example/ledger-saga/internal/domain/account"
	"github.com/example/ledger-saga/internal/domain/claim"
	"github.com/example/ledger-saga/internal/domain/order"
	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/readmodel"
)

// Projector folds events into read store documents. Project is idempotent:
// an event whose version is already folded into the target document is
// skipped, so redeliveries and replays cannot double-count.
type Projector struct {
	reads store.ReadStore
}

func NewProjector(reads store.ReadStore) *Projector {
	return &Projector{reads: reads}
}

// Project folds one event. Events of aggregate types without a projection
// are ignored; the event stream is shared with consumers that care about
// other types.
func (p *Projector) Project(ctx context.Context, event store.Event) error {
	switch event.AggregateType {
	case account.AggregateType:
		return p.projectAccount(ctx, event)
	case claim.AggregateType:
		if err := p.projectClaim(ctx, event); err != nil {
			return err
		}
		return p.projectPolicyStats(ctx, event)
	case order.AggregateType:
		return p.projectOrder(ctx, event)
	default:
		return nil
	}
}

// RebuildAll clears every projection collection and refolds the given
// events. Afterwards the documents are identical to what incremental
// projection of the same events would have produced.
func (p *Projector) RebuildAll(ctx context.Context, events []store.Event) error {
	collections := []string{
		readmodel.CollectionAccountSummaries,
		readmodel.CollectionClaimDashboards,
		readmodel.CollectionOrderDashboards,
		readmodel.CollectionPolicyStats,
	}
	for _, collection := range collections {
		if err := p.reads.Clear(ctx, collection); err != nil {
			return fmt.Errorf("clear %s: %w", collection, err)
		}
	}
	for _, event := range events {
		if err := p.Project(ctx, event); err != nil {
			return fmt.Errorf("rebuild at event %s (%s v%d): %w",
				event.ID, event.AggregateID, event.Version, err)
		}
	}
	log.Printf("[Projector] rebuilt %d collections from %d events", len(collections), len(events))
	return nil
}

// HandleMessage adapts Project to the Kafka consumer contract. The message
// value is a JSON-encoded event envelope.
func (p *Projector) HandleMessage(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("decode event message (key %q): %w", key, err)
	}
	return p.Project(ctx, event)
}

func (p *Projector) projectAccount(ctx context.Context, event store.Event) error {
	var doc readmodel.AccountSummary
	err := p.reads.Get(ctx, readmodel.CollectionAccountSummaries, event.AggregateID, &doc)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if event.Version <= doc.ProjectedVersion {
		return nil
	}

	switch event.EventType {
	case account.EventAccountOpened:
		var e account.AccountOpened
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.AccountID = event.AggregateID
		doc.Holder = e.Holder
		doc.Currency = e.Currency
		doc.Balance = e.InitialBalance
	case account.EventFundsDeposited:
		var e account.FundsDeposited
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.Balance += e.Amount
		doc.DepositCount++
		doc.TotalTransactions++
	case account.EventFundsWithdrawn:
		var e account.FundsWithdrawn
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.Balance -= e.Amount
		doc.WithdrawalCount++
		doc.TotalTransactions++
	case account.EventFundsTransferredOut:
		var e account.FundsTransferredOut
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.Balance -= e.Amount
		doc.TransferOutCount++
		doc.TotalTransactions++
	case account.EventFundsTransferredIn:
		var e account.FundsTransferredIn
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.Balance += e.Amount
		doc.TransferInCount++
		doc.TotalTransactions++
	case account.EventInterestAccrued:
		var e account.InterestAccrued
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.Balance += e.Amount
		doc.InterestEarned += e.Amount
	case account.EventAccountClosed:
		doc.Closed = true
	default:
		return fmt.Errorf("unknown account event type %q", event.EventType)
	}

	doc.LastActivityAt = event.OccurredAt
	doc.ProjectedVersion = event.Version
	return p.reads.Put(ctx, readmodel.CollectionAccountSummaries, event.AggregateID, doc)
}

func (p *Projector) projectClaim(ctx context.Context, event store.Event) error {
	var doc readmodel.ClaimDashboard
	err := p.reads.Get(ctx, readmodel.CollectionClaimDashboards, event.AggregateID, &doc)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if event.Version <= doc.ProjectedVersion {
		return nil
	}

	switch event.EventType {
	case claim.EventClaimFiled:
		var e claim.ClaimFiled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.ClaimID = event.AggregateID
		doc.PolicyID = e.PolicyID
		doc.Claimant = e.Claimant
		doc.Category = e.Category
		doc.ClaimedAmount = e.ClaimedAmount
		doc.Status = string(claim.StatusFiled)
	case claim.EventClaimInvestigated:
		var e claim.ClaimInvestigated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.FraudRisk = e.FraudRisk
		doc.Status = string(claim.StatusUnderInvestigation)
	case claim.EventClaimAssessed:
		var e claim.ClaimAssessed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.AssessedAmount = e.AssessedAmount
		doc.Status = string(claim.StatusAssessed)
	case claim.EventClaimApproved:
		var e claim.ClaimApproved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.ApprovedAmount = e.ApprovedAmount
		doc.Status = string(claim.StatusApproved)
	case claim.EventClaimRejected:
		var e claim.ClaimRejected
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.RejectionReason = e.Reason
		doc.Status = string(claim.StatusRejected)
	case claim.EventClaimPaid:
		var e claim.ClaimPaid
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.PaidAmount = e.PaidAmount
		doc.Status = string(claim.StatusPaid)
	case claim.EventClaimPaymentReversed:
		doc.PaidAmount = 0
		doc.Status = string(claim.StatusApproved)
	default:
		return fmt.Errorf("unknown claim event type %q", event.EventType)
	}

	doc.LastActivityAt = event.OccurredAt
	doc.ProjectedVersion = event.Version
	return p.reads.Put(ctx, readmodel.CollectionClaimDashboards, event.AggregateID, doc)
}

// projectPolicyStats keeps per-policy totals across all of the policy's
// claims. Idempotence is tracked per claim in SeenVersions because the
// document folds events from many aggregates. The policy ID rides on
// ClaimFiled only; later events resolve it through the claim dashboard,
// which projectClaim has already written for this claim.
func (p *Projector) projectPolicyStats(ctx context.Context, event store.Event) error {
	var (
		policyID string
		delta    func(*readmodel.PolicyStats)
	)
	switch event.EventType {
	case claim.EventClaimFiled:
		var e claim.ClaimFiled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		policyID = e.PolicyID
		delta = func(doc *readmodel.PolicyStats) { doc.ClaimsFiled++ }
	case claim.EventClaimRejected:
		delta = func(doc *readmodel.PolicyStats) { doc.ClaimsRejected++ }
	case claim.EventClaimPaid:
		var e claim.ClaimPaid
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		delta = func(doc *readmodel.PolicyStats) { doc.TotalClaimsPaid += e.PaidAmount }
	case claim.EventClaimPaymentReversed:
		var e claim.ClaimPaymentReversed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		delta = func(doc *readmodel.PolicyStats) { doc.TotalClaimsPaid -= e.Amount }
	default:
		return nil
	}

	if policyID == "" {
		var dashboard readmodel.ClaimDashboard
		if err := p.reads.Get(ctx, readmodel.CollectionClaimDashboards, event.AggregateID, &dashboard); err != nil {
			return fmt.Errorf("resolve policy for claim %s: %w", event.AggregateID, err)
		}
		policyID = dashboard.PolicyID
	}

	var doc readmodel.PolicyStats
	err := p.reads.Get(ctx, readmodel.CollectionPolicyStats, policyID, &doc)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if doc.SeenVersions == nil {
		doc.SeenVersions = make(map[string]int64)
	}
	if event.Version <= doc.SeenVersions[event.AggregateID] {
		return nil
	}

	doc.PolicyID = policyID
	delta(&doc)
	doc.LastActivityAt = event.OccurredAt
	doc.SeenVersions[event.AggregateID] = event.Version
	return p.reads.Put(ctx, readmodel.CollectionPolicyStats, policyID, doc)
}

func (p *Projector) projectOrder(ctx context.Context, event store.Event) error {
	var doc readmodel.OrderDashboard
	err := p.reads.Get(ctx, readmodel.CollectionOrderDashboards, event.AggregateID, &doc)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if event.Version <= doc.ProjectedVersion {
		return nil
	}

	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.OrderID = event.AggregateID
		doc.CustomerID = e.CustomerID
		doc.TotalAmount = e.TotalAmount
		doc.LineCount = len(e.Lines)
		doc.Status = string(order.StatusPlaced)
	case order.EventInventoryReserved:
		doc.Status = string(order.StatusInventoryReserved)
	case order.EventPaymentProcessed:
		doc.Status = string(order.StatusPaymentProcessed)
	case order.EventOrderConfirmed:
		doc.Status = string(order.StatusConfirmed)
	case order.EventOrderShipped:
		var e order.OrderShipped
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		doc.TrackingNumber = e.TrackingNumber
		doc.Status = string(order.StatusShipped)
	case order.EventOrderCancelled:
		doc.Status = string(order.StatusCancelled)
	default:
		return fmt.Errorf("unknown order event type %q", event.EventType)
	}

	doc.LastActivityAt = event.OccurredAt
	doc.ProjectedVersion = event.Version
	return p.reads.Put(ctx, readmodel.CollectionOrderDashboards, event.AggregateID, doc)
}
