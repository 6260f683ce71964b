package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPreferenceRepo(t *testing.T) *PreferenceRepository {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPreferenceRepository(client)
}

func TestPreferenceRepositoryToggleArchived(t *testing.T) {
	repo := newPreferenceRepo(t)
	ctx := context.Background()

	archived, err := repo.ToggleArchived(ctx, "math-2024")
	require.NoError(t, err)
	assert.True(t, archived)

	set, err := repo.ArchivedExamIDs(ctx)
	require.NoError(t, err)
	assert.True(t, set["math-2024"])

	archived, err = repo.ToggleArchived(ctx, "math-2024")
	require.NoError(t, err)
	assert.False(t, archived)

	set, err = repo.ArchivedExamIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestPreferenceRepositorySetArchived(t *testing.T) {
	repo := newPreferenceRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetArchived(ctx, "math-2023", true))
	require.NoError(t, repo.SetArchived(ctx, "math-2023", true)) // idempotent

	set, err := repo.ArchivedExamIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 1)

	require.NoError(t, repo.SetArchived(ctx, "math-2023", false))
	set, err = repo.ArchivedExamIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestPreferenceRepositoryDeletedBuiltins(t *testing.T) {
	repo := newPreferenceRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.MarkBuiltinDeleted(ctx, "math-2019"))
	require.NoError(t, repo.MarkBuiltinDeleted(ctx, "math-2019"))

	set, err := repo.DeletedBuiltinIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 1)
	assert.True(t, set["math-2019"])
}
