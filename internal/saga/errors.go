package saga

import "fmt"

// ExecutionError wraps the step failure that stopped a saga, carrying the
// saga ID and step name for audit. The saga's final status (COMPENSATED or
// FAILED) must still be read from the log; the error alone does not tell
// whether compensation succeeded.
type ExecutionError struct {
	SagaID string
	Step   string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("saga %s: step %s failed: %v", e.SagaID, e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
