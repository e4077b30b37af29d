package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/titledate-verifier/internal/entity"
)

type workerFixture struct {
	batches *memBatches
	queue   *memQueue
	worker  BatchWorker
}

func newWorkerFixture(t *testing.T, reader readerFunc) *workerFixture {
	t.Helper()
	v := verifierFunc(func(ctx context.Context, req entity.VerificationRequest, onStep func(string)) entity.Verdict {
		if req.Title == "测试标题" {
			return entity.Matched(PassStructured, 1)
		}
		return entity.NotMatched(1)
	})
	f := &workerFixture{batches: newMemBatches(), queue: &memQueue{}}
	f.worker = NewBatchWorker(f.queue, f.batches, reader, NewBatchRunner(v, nop()), 5*time.Millisecond, nop())
	return f
}

func (f *workerFixture) enqueue(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.batches.Create(ctx, &entity.BatchReport{ID: id, Source: "rows.csv", Path: "/uploads/" + id + ".csv", Status: entity.BatchQueued}))
	require.NoError(t, f.queue.Push(ctx, id))
}

func twoRows(ctx context.Context, path string) ([]entity.RawRow, error) {
	return []entity.RawRow{
		{Number: 2, Date: "2020-05-01", Title: "测试标题"},
		{Number: 3, Date: "2020-05-01", Title: "不存在的标题"},
	}, nil
}

func TestBatchWorker_ProcessNext(t *testing.T) {
	var readPath string
	f := newWorkerFixture(t, func(ctx context.Context, path string) ([]entity.RawRow, error) {
		readPath = path
		return twoRows(ctx, path)
	})
	f.enqueue(t, "b1")

	require.NoError(t, f.worker.ProcessNext(context.Background()))

	report, err := f.batches.FindByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/b1.csv", readPath)
	assert.Equal(t, entity.BatchCompleted, report.Status)
	assert.Equal(t, 2, report.TotalRows)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, []int{3}, report.NotMatchedRows())
	assert.NotNil(t, report.FinishedAt)
}

func TestBatchWorker_EmptyQueue(t *testing.T) {
	f := newWorkerFixture(t, twoRows)

	assert.NoError(t, f.worker.ProcessNext(context.Background()))
}

func TestBatchWorker_BatchGone(t *testing.T) {
	f := newWorkerFixture(t, twoRows)
	require.NoError(t, f.queue.Push(context.Background(), "deleted"))

	assert.NoError(t, f.worker.ProcessNext(context.Background()))
}

func TestBatchWorker_UnreadableDatasetFailsBatch(t *testing.T) {
	f := newWorkerFixture(t, func(ctx context.Context, path string) ([]entity.RawRow, error) {
		return nil, errors.New(`missing column "标题"`)
	})
	f.enqueue(t, "b1")

	require.NoError(t, f.worker.ProcessNext(context.Background()))

	report, err := f.batches.FindByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, entity.BatchFailed, report.Status)
	assert.Contains(t, report.FailReason, "标题")
	assert.Empty(t, report.Rows)
}

func TestBatchWorker_RunUntilCancelled(t *testing.T) {
	f := newWorkerFixture(t, twoRows)
	f.enqueue(t, "b1")
	f.enqueue(t, "b2")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- f.worker.Run(ctx) }()

	assert.Eventually(t, func() bool {
		for _, id := range []string{"b1", "b2"} {
			r, err := f.batches.FindByID(context.Background(), id)
			if err != nil || r.Status != entity.BatchCompleted {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
