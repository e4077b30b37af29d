package repository

import (
	"context"
	"time"

	"github.com/user/titledate-verifier/internal/entity"
)

// BatchRepository persists batch reports and their row outcomes.
type BatchRepository interface {
	// Create stores a new batch in its initial state.
	Create(ctx context.Context, report *entity.BatchReport) error
	// MarkRunning records that a worker picked the batch up.
	MarkRunning(ctx context.Context, id string, totalRows int, at time.Time) error
	// AppendRow stores one row outcome. Rows are kept in arrival order.
	AppendRow(ctx context.Context, id string, outcome entity.RowOutcome) error
	// Finish moves the batch to a terminal status.
	Finish(ctx context.Context, id string, status entity.BatchStatus, reason string, at time.Time) error
	// FindByID loads a batch with all rows stored so far, or ErrBatchNotFound.
	FindByID(ctx context.Context, id string) (*entity.BatchReport, error)
}
