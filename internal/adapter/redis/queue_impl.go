package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/titledate-verifier/internal/repository"
)

const batchQueueKey = "verifier:batches"

// QueueRepoImpl provides a concrete implementation for the QueueRepository interface using Redis Lists.
type QueueRepoImpl struct {
	client *redis.Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds a batch id to the left side of the Redis list (acting as a queue).
func (r *QueueRepoImpl) Push(ctx context.Context, batchID string) error {
	return r.client.LPush(ctx, batchQueueKey, batchID).Err()
}

// Pop removes and returns a batch id from the right side of the list. It
// blocks for up to wait; a non-positive wait does not block.
func (r *QueueRepoImpl) Pop(ctx context.Context, wait time.Duration) (string, error) {
	if wait <= 0 {
		id, err := r.client.RPop(ctx, batchQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrQueueEmpty
		}
		return id, err
	}
	// BRPOP replies with [key, value].
	res, err := r.client.BRPop(ctx, wait, batchQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	return res[1], nil
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, batchQueueKey).Result()
}
