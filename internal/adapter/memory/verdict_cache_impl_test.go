package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/titledate-verifier/internal/entity"
)

func TestVerdictCacheRepo(t *testing.T) {
	c := NewVerdictCacheRepo(0)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	v := entity.NotMatched(4)
	require.NoError(t, c.Put(ctx, "k", v, 0))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, v, got)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestVerdictCacheRepo_Expiry(t *testing.T) {
	c := NewVerdictCacheRepo(time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", entity.Matched("structured", 1), time.Millisecond))

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
