package repository

import (
	"context"
	"time"

	"github.com/user/titledate-verifier/internal/entity"
)

// VerdictCacheRepository memoizes final verdicts keyed by a request hash so
// identical rows are not verified twice.
type VerdictCacheRepository interface {
	// Get returns the cached verdict for key and whether one was found.
	Get(ctx context.Context, key string) (entity.Verdict, bool, error)
	// Put stores v under key for ttl.
	Put(ctx context.Context, key string, v entity.Verdict, ttl time.Duration) error
	// Delete removes key, used to force re-verification.
	Delete(ctx context.Context, key string) error
}
