package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresMalformedIDsAreNotFound(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping")
	}

	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, PostgresConfig{DSN: dsn})
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Migrate(ctx))

	u, err := repo.GetUserByID(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, u)

	req, err := repo.GetRequest(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, req)

	req, err = repo.LatestRequestByStudent(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, req)

	_, err = repo.SetTaskCompletion(ctx, "abc", "def", true)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.AddAwardedPoints(ctx, "abc", 10)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.ResolveRequest(ctx, "abc", 10)
	require.ErrorIs(t, err, ErrNotFound)
}
