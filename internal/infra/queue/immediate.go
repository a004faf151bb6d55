package queue

import (
	"context"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

// HandlerQueue supports setting a handler for job delivery.
type HandlerQueue interface {
	healthsync.JobQueue
	SetHandler(handler Handler)
}

// Handler executes sync jobs in the background.
type Handler func(ctx context.Context, job healthsync.SyncJob)

// ImmediateQueue calls the handler immediately on enqueue.
type ImmediateQueue struct {
	handler Handler
}

// NewImmediateQueue constructs the queue.
func NewImmediateQueue(handler Handler) *ImmediateQueue {
	return &ImmediateQueue{handler: handler}
}

// SetHandler replaces the handler used for queued jobs.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.handler = handler
}

// Enqueue invokes the handler asynchronously, detached from the request context.
func (q *ImmediateQueue) Enqueue(ctx context.Context, job healthsync.SyncJob) error {
	if q.handler == nil {
		return nil
	}
	go q.handler(context.WithoutCancel(ctx), job)
	return nil
}

var _ HandlerQueue = (*ImmediateQueue)(nil)
