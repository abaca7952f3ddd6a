package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir)
	require.NoError(t, err)

	_, err = s.Get(ctx, KeySettings)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeySettings, `{"theme":"dark"}`))
	require.NoError(t, s.Set(ctx, KeySettings, `{"theme":"light"}`))
	got, err := s.Get(ctx, KeySettings)
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"light"}`, got)

	require.NoError(t, s.Set(ctx, KeyToken, "abc"))
	require.NoError(t, s.Close())

	// migrations are idempotent and data survives a reopen
	s, err = Open(ctx, dir)
	require.NoError(t, err)
	defer s.Close()

	got, err = s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, s.Delete(ctx, KeyToken))
	require.NoError(t, s.Delete(ctx, KeyToken))
	_, err = s.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)
}
