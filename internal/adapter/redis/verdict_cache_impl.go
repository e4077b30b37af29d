package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/titledate-verifier/internal/entity"
)

const verdictKeyPrefix = "verdict:"

// VerdictCacheRepoImpl provides a concrete implementation for the VerdictCacheRepository interface using Redis.
type VerdictCacheRepoImpl struct {
	client *redis.Client
}

// NewVerdictCacheRepo creates a new instance of VerdictCacheRepoImpl.
func NewVerdictCacheRepo(client *redis.Client) *VerdictCacheRepoImpl {
	return &VerdictCacheRepoImpl{client: client}
}

// Get returns the verdict stored under the request hash, if any.
func (r *VerdictCacheRepoImpl) Get(ctx context.Context, key string) (entity.Verdict, bool, error) {
	b, err := r.client.Get(ctx, verdictKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.Verdict{}, false, nil
	}
	if err != nil {
		return entity.Verdict{}, false, err
	}
	v, err := entity.DecodeVerdict(b)
	if err != nil {
		return entity.Verdict{}, false, err
	}
	return v, true, nil
}

// Put stores a verdict. SETEX is atomic and sets the key with an expiry;
// a non-positive ttl keeps the key until it is deleted.
func (r *VerdictCacheRepoImpl) Put(ctx context.Context, key string, v entity.Verdict, ttl time.Duration) error {
	b, err := entity.EncodeVerdict(v)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return r.client.Set(ctx, verdictKeyPrefix+key, b, 0).Err()
	}
	return r.client.SetEx(ctx, verdictKeyPrefix+key, b, ttl).Err()
}

// Delete removes a cached verdict, used to force re-verification.
func (r *VerdictCacheRepoImpl) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, verdictKeyPrefix+key).Err()
}
