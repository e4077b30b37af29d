// Package memory holds in-process repository implementations for the CLI,
// where no Redis is configured.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/user/titledate-verifier/internal/entity"
)

// VerdictCacheRepoImpl keeps verdicts in process memory.
type VerdictCacheRepoImpl struct {
	c *cache.Cache
}

// NewVerdictCacheRepo creates a cache whose entries default to ttl. A
// non-positive ttl keeps entries for the life of the process.
func NewVerdictCacheRepo(ttl time.Duration) *VerdictCacheRepoImpl {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &VerdictCacheRepoImpl{c: cache.New(ttl, 10*time.Minute)}
}

func (r *VerdictCacheRepoImpl) Get(ctx context.Context, key string) (entity.Verdict, bool, error) {
	v, ok := r.c.Get(key)
	if !ok {
		return entity.Verdict{}, false, nil
	}
	return v.(entity.Verdict), true, nil
}

func (r *VerdictCacheRepoImpl) Put(ctx context.Context, key string, v entity.Verdict, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	r.c.Set(key, v, ttl)
	return nil
}

func (r *VerdictCacheRepoImpl) Delete(ctx context.Context, key string) error {
	r.c.Delete(key)
	return nil
}

// Len returns the number of cached verdicts, expired ones included until
// the janitor runs.
func (r *VerdictCacheRepoImpl) Len() int {
	return r.c.ItemCount()
}
