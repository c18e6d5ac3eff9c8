package claim

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ledger-saga/internal/domain/aggregate"
	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/policy"
)

const AggregateType = "Claim"

type Status string

const (
	StatusFiled              Status = "FILED"
	StatusUnderInvestigation Status = "UNDER_INVESTIGATION"
	StatusAssessed           Status = "ASSESSED"
	StatusApproved           Status = "APPROVED"
	StatusRejected           Status = "REJECTED"
	StatusPaid               Status = "PAID"
)

var (
	ErrClaimNotFound = errors.New("claim not found")

	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be positive", aggregate.ErrInvariantViolation)
	ErrWrongStatus       = fmt.Errorf("%w: operation not allowed in current status", aggregate.ErrInvariantViolation)
	ErrHighFraudRisk     = fmt.Errorf("%w: cannot approve claim with HIGH fraud risk", aggregate.ErrInvariantViolation)
)

type State struct {
	ClaimID        string `json:"claim_id"`
	PolicyID       string `json:"policy_id"`
	Claimant       string `json:"claimant"`
	Category       string `json:"category"`
	ClaimedAmount  int64  `json:"claimed_amount"`
	Deductible     int64  `json:"deductible"`
	AssessedAmount int64  `json:"assessed_amount"`
	ApprovedAmount int64  `json:"approved_amount"`
	PaidAmount     int64  `json:"paid_amount"`
	FraudRisk      string `json:"fraud_risk"`
	Status         Status `json:"status"`
	Version        int64  `json:"version"`
}

// Claim is the insurance claim process aggregate.
type Claim struct {
	State
	aggregate.Recorder
}

func (c *Claim) GetID() string     { return c.ClaimID }
func (c *Claim) GetVersion() int64 { return c.State.Version }

func (c *Claim) Apply(event store.Event) error {
	next, err := apply(c.State, event)
	if err != nil {
		return err
	}
	c.State = next
	return nil
}

func apply(s State, event store.Event) (State, error) {
	switch event.EventType {
	case EventClaimFiled:
		var e ClaimFiled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.ClaimID = event.AggregateID
		s.PolicyID = e.PolicyID
		s.Claimant = e.Claimant
		s.Category = e.Category
		s.ClaimedAmount = e.ClaimedAmount
		s.Deductible = e.Deductible
		s.Status = StatusFiled
	case EventClaimInvestigated:
		var e ClaimInvestigated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.FraudRisk = e.FraudRisk
		s.Status = StatusUnderInvestigation
	case EventClaimAssessed:
		var e ClaimAssessed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.AssessedAmount = e.AssessedAmount
		s.Status = StatusAssessed
	case EventClaimApproved:
		var e ClaimApproved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.ApprovedAmount = e.ApprovedAmount
		s.Status = StatusApproved
	case EventClaimRejected:
		s.Status = StatusRejected
	case EventClaimPaid:
		var e ClaimPaid
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return s, err
		}
		s.PaidAmount = e.PaidAmount
		s.Status = StatusPaid
	case EventClaimPaymentReversed:
		s.PaidAmount = 0
		s.Status = StatusApproved
	default:
		return s, fmt.Errorf("unknown claim event type %q", event.EventType)
	}
	s.Version = event.Version
	return s, nil
}

// File opens a new claim process at version 1.
func File(claimID, policyID, claimant, category string, claimedAmount, deductible int64, description string) (*Claim, error) {
	if claimedAmount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	c := &Claim{}
	event, err := store.NewEvent(claimID, AggregateType, EventClaimFiled, 1, ClaimFiled{
		PolicyID:      policyID,
		Claimant:      claimant,
		Category:      category,
		ClaimedAmount: claimedAmount,
		Deductible:    deductible,
		Description:   description,
	})
	if err != nil {
		return nil, err
	}
	if err := c.Apply(event); err != nil {
		return nil, err
	}
	c.Record(event)
	return c, nil
}

func Replay(events []store.Event) (*Claim, error) {
	if len(events) == 0 {
		return nil, ErrClaimNotFound
	}
	c := &Claim{}
	for _, event := range events {
		if err := c.Apply(event); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Claim) Investigate(investigator, findings, fraudRisk string) error {
	if c.Status != StatusFiled {
		return fmt.Errorf("%w: investigate requires FILED, current %s", ErrWrongStatus, c.Status)
	}
	return c.emit(EventClaimInvestigated, ClaimInvestigated{
		Investigator: investigator,
		Findings:     findings,
		FraudRisk:    fraudRisk,
	})
}

// Assess validates the amount against a pluggable assessment policy; the
// aggregate holds no business thresholds of its own.
func (c *Claim) Assess(assessedAmount int64, notes string, assessable policy.Assessment) error {
	if c.Status != StatusUnderInvestigation {
		return fmt.Errorf("%w: assess requires UNDER_INVESTIGATION, current %s", ErrWrongStatus, c.Status)
	}
	if assessedAmount <= 0 {
		return ErrNonPositiveAmount
	}
	if err := assessable(c.ClaimedAmount, c.Deductible, assessedAmount); err != nil {
		return err
	}
	return c.emit(EventClaimAssessed, ClaimAssessed{AssessedAmount: assessedAmount, Notes: notes})
}

func (c *Claim) Approve(approvedAmount int64) error {
	if c.Status != StatusAssessed {
		return fmt.Errorf("%w: approve requires ASSESSED, current %s", ErrWrongStatus, c.Status)
	}
	if c.FraudRisk == "HIGH" {
		return ErrHighFraudRisk
	}
	if approvedAmount <= 0 || approvedAmount > c.AssessedAmount {
		return fmt.Errorf("%w: approved amount %d outside (0, %d]", aggregate.ErrInvariantViolation,
			approvedAmount, c.AssessedAmount)
	}
	return c.emit(EventClaimApproved, ClaimApproved{ApprovedAmount: approvedAmount})
}

func (c *Claim) Reject(reason string) error {
	switch c.Status {
	case StatusFiled, StatusUnderInvestigation, StatusAssessed:
		return c.emit(EventClaimRejected, ClaimRejected{Reason: reason})
	default:
		return fmt.Errorf("%w: reject requires FILED/UNDER_INVESTIGATION/ASSESSED, current %s", ErrWrongStatus, c.Status)
	}
}

func (c *Claim) Pay(paidAmount int64, paymentReference string) error {
	if c.Status != StatusApproved {
		return fmt.Errorf("%w: pay requires APPROVED, current %s", ErrWrongStatus, c.Status)
	}
	if paidAmount != c.ApprovedAmount {
		return fmt.Errorf("%w: paid amount %d must equal approved amount %d", aggregate.ErrInvariantViolation,
			paidAmount, c.ApprovedAmount)
	}
	return c.emit(EventClaimPaid, ClaimPaid{PaidAmount: paidAmount, PaymentReference: paymentReference})
}

// ReversePayment compensates a payment: the claim returns to APPROVED.
func (c *Claim) ReversePayment(reason string) error {
	if c.Status != StatusPaid {
		return fmt.Errorf("%w: reverse payment requires PAID, current %s", ErrWrongStatus, c.Status)
	}
	return c.emit(EventClaimPaymentReversed, ClaimPaymentReversed{Amount: c.PaidAmount, Reason: reason})
}

func (c *Claim) emit(eventType string, payload any) error {
	event, err := store.NewEvent(c.ClaimID, AggregateType, eventType, c.State.Version+1, payload)
	if err != nil {
		return err
	}
	if err := c.Apply(event); err != nil {
		return err
	}
	c.Record(event)
	return nil
}
