package saga

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Orchestrator runs saga steps sequentially and compensates succeeded
// steps in reverse order when one fails. Steps within one execution never
// run in parallel; independent sagas may run concurrently and race on
// shared aggregates, which surfaces as a version conflict in the losing
// step.
type Orchestrator struct {
	logs LogStore
}

func NewOrchestrator(logs LogStore) *Orchestrator {
	return &Orchestrator{logs: logs}
}

// Execute runs the steps in order. The saga ID is returned in every
// outcome so callers can inspect the log; the error is nil only when the
// saga COMPLETED.
func (o *Orchestrator) Execute(ctx context.Context, sagaType string, steps []Step, sc *Context) (string, error) {
	sagaID := uuid.New().String()
	sc.Put("sagaId", sagaID)

	names := make([]string, len(steps))
	for i, step := range steps {
		names[i] = step.Name()
	}

	record := NewLog(sagaID, sagaType, names, sc.Snapshot())
	if err := o.logs.Save(ctx, record); err != nil {
		return sagaID, fmt.Errorf("save saga log: %w", err)
	}

	record.Status = StatusRunning
	o.persist(ctx, record)

	lastCompleted := -1
	for i, step := range steps {
		started := time.Now().UTC()
		record.Steps[i].Status = StepRunning
		record.Steps[i].StartedAt = &started
		o.persist(ctx, record)

		log.Printf("[Saga] %s (%s) executing step %d: %s", sagaID, sagaType, i, step.Name())
		if err := step.Execute(ctx, sc); err != nil {
			log.Printf("[Saga] %s step %s failed: %v", sagaID, step.Name(), err)
			completed := time.Now().UTC()
			record.Steps[i].Status = StepFailed
			record.Steps[i].CompletedAt = &completed
			record.Steps[i].Error = err.Error()
			record.FailureReason = err.Error()
			record.Context = sc.Snapshot()
			o.persist(ctx, record)

			o.compensate(ctx, record, steps, sc, lastCompleted)
			return sagaID, &ExecutionError{SagaID: sagaID, Step: step.Name(), Err: err}
		}

		completed := time.Now().UTC()
		record.Steps[i].Status = StepSucceeded
		record.Steps[i].CompletedAt = &completed
		record.CurrentStepIndex = i + 1
		record.Context = sc.Snapshot()
		o.persist(ctx, record)
		lastCompleted = i
	}

	o.finish(ctx, record, StatusCompleted)
	log.Printf("[Saga] %s (%s) completed", sagaID, sagaType)
	return sagaID, nil
}

// compensate walks the succeeded steps in strict reverse order. The failed
// step itself is never compensated. The first compensation failure leaves
// the saga FAILED, an operator-visible terminal state with no automatic
// retry.
func (o *Orchestrator) compensate(ctx context.Context, record *Log, steps []Step, sc *Context, lastCompleted int) {
	record.Status = StatusCompensating
	o.persist(ctx, record)

	for i := lastCompleted; i >= 0; i-- {
		step := steps[i]
		log.Printf("[Saga] %s compensating step %d: %s", record.SagaID, i, step.Name())
		if err := step.Compensate(ctx, sc); err != nil {
			log.Printf("[Saga] %s compensation of step %s failed: %v", record.SagaID, step.Name(), err)
			record.Steps[i].Error = fmt.Sprintf("compensation failed: %v", err)
			o.finish(ctx, record, StatusFailed)
			return
		}
		completed := time.Now().UTC()
		record.Steps[i].Status = StepCompensated
		record.Steps[i].CompletedAt = &completed
		record.Context = sc.Snapshot()
		o.persist(ctx, record)
	}

	o.finish(ctx, record, StatusCompensated)
}

func (o *Orchestrator) finish(ctx context.Context, record *Log, status Status) {
	now := time.Now().UTC()
	record.Status = status
	record.CompletedAt = &now
	o.persist(ctx, record)
}

func (o *Orchestrator) persist(ctx context.Context, record *Log) {
	if err := o.logs.Update(ctx, record); err != nil {
		log.Printf("[Saga] persist log %s: %v", record.SagaID, err)
	}
}
