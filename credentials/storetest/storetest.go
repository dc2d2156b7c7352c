// Package storetest checks a credentials.Store implementation against the
// behaviour every backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/mento-client/credentials"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh store returned by newStore in each subtest.
func Run(t *testing.T, newStore func(t *testing.T) credentials.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		s := newStore(t)
		v, err := s.Get(ctx, credentials.KeyAccessToken)
		require.NoError(t, err)
		require.Nil(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, credentials.KeyAccessToken, "A1"))
		v, err := s.Get(ctx, credentials.KeyAccessToken)
		require.NoError(t, err)
		require.NotNil(t, v)
		require.Equal(t, "A1", *v)

		require.NoError(t, s.Set(ctx, credentials.KeyAccessToken, "A2"))
		v, err = s.Get(ctx, credentials.KeyAccessToken)
		require.NoError(t, err)
		require.Equal(t, "A2", *v)
	})

	t.Run("empty value is present", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, credentials.KeyUserData, ""))
		v, err := s.Get(ctx, credentials.KeyUserData)
		require.NoError(t, err)
		require.NotNil(t, v)
		require.Equal(t, "", *v)
	})

	t.Run("remove", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, credentials.KeyRefreshToken, "R1"))
		require.NoError(t, s.Remove(ctx, credentials.KeyRefreshToken))
		require.NoError(t, s.Remove(ctx, credentials.KeyRefreshToken))
		v, err := s.Get(ctx, credentials.KeyRefreshToken)
		require.NoError(t, err)
		require.Nil(t, v)
	})

	t.Run("remove all", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, credentials.KeyAccessToken, "A1"))
		require.NoError(t, s.Set(ctx, credentials.KeyRefreshToken, "R1"))
		require.NoError(t, s.Set(ctx, "unrelated", "keep"))

		require.NoError(t, s.RemoveAll(ctx, credentials.SessionKeys))
		require.NoError(t, s.RemoveAll(ctx, credentials.SessionKeys))

		for _, k := range credentials.SessionKeys {
			v, err := s.Get(ctx, k)
			require.NoError(t, err)
			require.Nil(t, v, k)
		}
		v, err := s.Get(ctx, "unrelated")
		require.NoError(t, err)
		require.Equal(t, "keep", *v)
	})
}
