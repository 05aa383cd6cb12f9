package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/placement-sarthi/placement-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientIsNoop(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	require.ErrorIs(t, repo.Get(ctx, "reports:student:A1", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "reports:student:A1", map[string]int{"a": 1}, time.Minute))
	require.NoError(t, repo.Delete(ctx, "reports:student:A1"))
	require.NoError(t, repo.DeleteByPattern(ctx, "reports:*"))
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Close())
}
