// Package policy holds the pluggable domain predicates supplied to
// aggregate commands and saga steps. Predicates are pure functions over
// primitive inputs; the event-sourcing core embeds no business thresholds.
package policy

import (
	"fmt"

	"github.com/example/ledger-saga/internal/domain/aggregate"
)

// Assessment validates an assessed claim amount against the claimed amount
// and deductible.
type Assessment func(claimed, deductible, assessed int64) error

// AssessmentCeiling allows assessments up to claimed minus deductible.
func AssessmentCeiling() Assessment {
	return func(claimed, deductible, assessed int64) error {
		max := claimed - deductible
		if assessed > max {
			return fmt.Errorf("%w: assessed amount %d exceeds maximum assessable %d (claimed %d - deductible %d)",
				aggregate.ErrInvariantViolation, assessed, max, claimed, deductible)
		}
		return nil
	}
}

// LoanEligibility validates an applicant's annual income against the
// annual payment of the requested loan.
type LoanEligibility func(annualIncome, annualPayment int64) error

// IncomeMultiple requires income of at least multiple × annual payment.
func IncomeMultiple(multiple int64) LoanEligibility {
	return func(annualIncome, annualPayment int64) error {
		if annualIncome < multiple*annualPayment {
			return fmt.Errorf("%w: annual income %d below %dx annual payment %d",
				aggregate.ErrInvariantViolation, annualIncome, multiple, annualPayment)
		}
		return nil
	}
}
