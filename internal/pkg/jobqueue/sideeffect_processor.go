package jobqueue

import (
	"context"
	"errors"
	"fmt"
)

// SideEffectRunner is implemented by the payments service.
type SideEffectRunner interface {
	RetrySideEffect(ctx context.Context, paymentReference string) error
}

// NewSideEffectProcessor builds the processor for side-effect retry jobs.
func NewSideEffectProcessor(runner SideEffectRunner) Processor {
	return func(ctx context.Context, job *Job) error {
		payload, err := SideEffectRetryPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid side effect retry payload: %w", err)
		}
		if payload.PaymentReference == "" {
			return errors.New("side effect retry job missing payment reference")
		}
		return runner.RetrySideEffect(ctx, payload.PaymentReference)
	}
}

// Enqueuer adapts the queue to the payments service's retry hook.
type Enqueuer struct {
	queue *Queue
}

// NewEnqueuer wraps a queue for side-effect retry submissions.
func NewEnqueuer(q *Queue) *Enqueuer {
	return &Enqueuer{queue: q}
}

// EnqueueSideEffectRetry queues one retry of a payment's side effect.
func (e *Enqueuer) EnqueueSideEffectRetry(paymentReference string) error {
	_, err := e.queue.EnqueueJob(JobTypeSideEffectRetry, SideEffectRetryPayload{
		PaymentReference: paymentReference,
	}.ToMap())
	return err
}
