package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/pkg/metrics"
)

// BatchWorker defines the interface for the queued batch processing loop.
type BatchWorker interface {
	// ProcessNext runs the oldest queued batch, if any.
	ProcessNext(ctx context.Context) error
	// Run processes batches until ctx is done.
	Run(ctx context.Context) error
}

type batchWorkerUseCase struct {
	queueRepo repository.QueueRepository
	batchRepo repository.BatchRepository
	reader    repository.DatasetReader
	runner    *BatchRunner
	pollWait  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewBatchWorker creates a new instance of the batch worker use case.
func NewBatchWorker(
	queueRepo repository.QueueRepository,
	batchRepo repository.BatchRepository,
	reader repository.DatasetReader,
	runner *BatchRunner,
	pollWait time.Duration,
	logger *zap.Logger,
) BatchWorker {
	return &batchWorkerUseCase{
		queueRepo: queueRepo,
		batchRepo: batchRepo,
		reader:    reader,
		runner:    runner,
		pollWait:  pollWait,
		logger:    logger,
		now:       time.Now,
	}
}

func (uc *batchWorkerUseCase) Run(ctx context.Context) error {
	uc.logger.Info("Batch worker started")
	for {
		if err := ctx.Err(); err != nil {
			uc.logger.Info("Batch worker stopped")
			return nil
		}
		if err := uc.ProcessNext(ctx); err != nil {
			uc.logger.Error("Batch processing failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(uc.pollWait):
			}
		}
	}
}

// ProcessNext pops a single batch id from the queue and runs it.
// Dataset problems fail the batch; only infrastructure errors are returned.
func (uc *batchWorkerUseCase) ProcessNext(ctx context.Context) error {
	id, err := uc.queueRepo.Pop(ctx, uc.pollWait)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) || ctx.Err() != nil {
			// Queue is empty, which is a normal state.
			return nil
		}
		return fmt.Errorf("failed to pop batch from queue: %w", err)
	}
	if size, err := uc.queueRepo.Size(ctx); err == nil {
		metrics.BatchesInQueue.Set(float64(size))
	}

	report, err := uc.batchRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			uc.logger.Warn("Queued batch no longer exists", zap.String("batch", id))
			return nil
		}
		return fmt.Errorf("failed to load batch %s: %w", id, err)
	}

	// Persist progress even when ctx is cancelled mid-batch.
	persistCtx := context.WithoutCancel(ctx)

	rows, err := uc.reader.ReadRows(ctx, report.Path)
	if err != nil {
		uc.logger.Error("Dataset unreadable, failing batch", zap.String("batch", id), zap.Error(err))
		metrics.BatchesTotal.WithLabelValues(string(entity.BatchFailed)).Inc()
		if ferr := uc.batchRepo.Finish(persistCtx, id, entity.BatchFailed, err.Error(), uc.now()); ferr != nil {
			return fmt.Errorf("failed to mark batch %s failed: %w", id, ferr)
		}
		return nil
	}

	if err := uc.batchRepo.MarkRunning(persistCtx, id, len(rows), uc.now()); err != nil {
		return fmt.Errorf("failed to mark batch %s running: %w", id, err)
	}

	events := make(chan entity.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.Outcome == nil {
				continue
			}
			if err := uc.batchRepo.AppendRow(persistCtx, id, *ev.Outcome); err != nil {
				uc.logger.Error("Failed to store row outcome", zap.String("batch", id), zap.Int("row", ev.Row), zap.Error(err))
			}
		}
	}()

	final := uc.runner.Run(ctx, report, rows, events)
	<-done

	finishedAt := uc.now()
	if final.FinishedAt != nil {
		finishedAt = *final.FinishedAt
	}
	if err := uc.batchRepo.Finish(persistCtx, id, final.Status, "", finishedAt); err != nil {
		return fmt.Errorf("failed to finish batch %s: %w", id, err)
	}
	return nil
}
