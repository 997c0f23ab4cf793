package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHealthCheckAll(t *testing.T) {
	r := NewRegistry()
	down := errors.New("connection refused")

	r.Register("database", NewCheckFunc("postgres", func(ctx context.Context) error { return nil }))
	r.Register("redis", NewCheckFunc("redis", func(ctx context.Context) error { return down }))

	assert.Equal(t, []string{"database", "redis"}, r.List())
	assert.Equal(t, "postgres", r.Get("database").Type())

	results := r.HealthCheckAll(context.Background())
	require.Len(t, results, 2)
	assert.NoError(t, results["database"])
	assert.ErrorIs(t, results["redis"], down)
	assert.Nil(t, r.Get("missing"))
}
