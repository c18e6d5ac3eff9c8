package saga

import "time"

// Status is the lifecycle state of a saga execution. STARTED and RUNNING
// are transient; a saga found in one of them after a crash is stuck and
// needs manual or future automated resumption.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusRunning      Status = "RUNNING"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusCompensated  Status = "COMPENSATED"
	StatusFailed       Status = "FAILED"
)

// IsTerminal reports whether the saga will never change status again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCompensated || s == StatusFailed
}

type StepStatus string

const (
	StepPending     StepStatus = "PENDING"
	StepRunning     StepStatus = "RUNNING"
	StepSucceeded   StepStatus = "SUCCEEDED"
	StepFailed      StepStatus = "FAILED"
	StepCompensated StepStatus = "COMPENSATED"
)

type StepLog struct {
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Log is the durable audit record of one saga execution. It is created
// before step 0 runs and updated at every step boundary.
type Log struct {
	SagaID           string         `json:"saga_id"`
	SagaType         string         `json:"saga_type"`
	Status           Status         `json:"status"`
	CurrentStepIndex int            `json:"current_step_index"`
	Steps            []StepLog      `json:"steps"`
	Context          map[string]any `json:"context"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	FailureReason    string         `json:"failure_reason,omitempty"`
}

func NewLog(sagaID, sagaType string, stepNames []string, contextSnapshot map[string]any) *Log {
	steps := make([]StepLog, len(stepNames))
	for i, name := range stepNames {
		steps[i] = StepLog{Name: name, Status: StepPending}
	}
	return &Log{
		SagaID:    sagaID,
		SagaType:  sagaType,
		Status:    StatusStarted,
		Steps:     steps,
		Context:   contextSnapshot,
		StartedAt: time.Now().UTC(),
	}
}
