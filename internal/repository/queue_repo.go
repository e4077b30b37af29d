package repository

import (
	"context"
	"time"
)

// QueueRepository defines the interface for a FIFO queue of batch ids waiting
// for the worker.
type QueueRepository interface {
	// Push adds a batch id to the end of the queue.
	Push(ctx context.Context, batchID string) error
	// Pop removes and returns the oldest batch id, blocking up to wait.
	// It returns ErrQueueEmpty when nothing arrived in time.
	Pop(ctx context.Context, wait time.Duration) (string, error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
