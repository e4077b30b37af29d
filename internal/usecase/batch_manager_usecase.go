package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/pkg/metrics"
)

// SupportedExtensions lists the dataset formats accepted for upload.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".csv"}

// BatchManager defines the interface for submitting datasets and checking batches.
type BatchManager interface {
	// Submit stores the uploaded dataset and queues it. It returns the batch id.
	Submit(ctx context.Context, filename string, content io.Reader) (string, error)
	// GetStatus returns the batch with every row finished so far.
	GetStatus(ctx context.Context, id string) (*entity.BatchReport, error)
}

type batchManagerUseCase struct {
	batchRepo repository.BatchRepository
	queueRepo repository.QueueRepository
	uploadDir string
	logger    *zap.Logger
	now       func() time.Time
}

// NewBatchManager creates a new BatchManager use case.
func NewBatchManager(
	batchRepo repository.BatchRepository,
	queueRepo repository.QueueRepository,
	uploadDir string,
	logger *zap.Logger,
) BatchManager {
	return &batchManagerUseCase{
		batchRepo: batchRepo,
		queueRepo: queueRepo,
		uploadDir: uploadDir,
		logger:    logger,
		now:       time.Now,
	}
}

func (uc *batchManagerUseCase) Submit(ctx context.Context, filename string, content io.Reader) (string, error) {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	if !supported(ext) {
		return "", fmt.Errorf("%w: %q", repository.ErrUnsupportedFormat, ext)
	}

	id := uuid.NewString()
	path, err := uc.store(id, ext, content)
	if err != nil {
		return "", err
	}

	report := &entity.BatchReport{
		ID:        id,
		Source:    base,
		Path:      path,
		Status:    entity.BatchQueued,
		CreatedAt: uc.now(),
	}
	if err := uc.batchRepo.Create(ctx, report); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("create batch: %w", err)
	}

	if err := uc.queueRepo.Push(ctx, id); err != nil {
		// The batch row exists but no worker will see it; record why.
		if ferr := uc.batchRepo.Finish(ctx, id, entity.BatchFailed, "could not be queued", uc.now()); ferr != nil {
			uc.logger.Error("Failed to mark unqueued batch as failed", zap.String("batch", id), zap.Error(ferr))
		}
		return "", fmt.Errorf("queue batch: %w", err)
	}

	if size, err := uc.queueRepo.Size(ctx); err == nil {
		metrics.BatchesInQueue.Set(float64(size))
	}
	uc.logger.Info("Batch queued", zap.String("batch", id), zap.String("source", base))
	return id, nil
}

func (uc *batchManagerUseCase) store(id, ext string, content io.Reader) (string, error) {
	if err := os.MkdirAll(uc.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(uc.uploadDir, id+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	n, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = ErrEmptyUpload
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, nil
}

func (uc *batchManagerUseCase) GetStatus(ctx context.Context, id string) (*entity.BatchReport, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrBatchNotFound
	}
	return uc.batchRepo.FindByID(ctx, id)
}

func supported(ext string) bool {
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
