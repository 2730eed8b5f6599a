// Package credentialstest holds behaviour shared by every credentials.Repo
// implementation.
package credentialstest

import (
	"sync"
	"testing"

	"github.com/jrsteele09/go-kinde-auth/credentials"
	"github.com/stretchr/testify/require"
)

// RunRepoTests checks the Get/Upsert/Delete/Exists contract against repo.
// The repo must be empty.
func RunRepoTests(t *testing.T, repo credentials.Repo) {
	t.Helper()

	const key = "com.example.app.authState"

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.Get(key)
		require.ErrorIs(t, err, credentials.ErrNotFound)

		exists, err := repo.Exists(key)
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("upsert and get", func(t *testing.T) {
		require.NoError(t, repo.Upsert(key, []byte("first")))
		blob, err := repo.Get(key)
		require.NoError(t, err)
		require.Equal(t, []byte("first"), blob)

		exists, err := repo.Exists(key)
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		require.NoError(t, repo.Upsert(key, []byte("second")))
		blob, err := repo.Get(key)
		require.NoError(t, err)
		require.Equal(t, []byte("second"), blob)
	})

	t.Run("returned blob is a copy", func(t *testing.T) {
		blob, err := repo.Get(key)
		require.NoError(t, err)
		blob[0] = 'X'

		again, err := repo.Get(key)
		require.NoError(t, err)
		require.Equal(t, []byte("second"), again)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, repo.Upsert("other/key with spaces", []byte("other")))
		blob, err := repo.Get(key)
		require.NoError(t, err)
		require.Equal(t, []byte("second"), blob)
		require.NoError(t, repo.Delete("other/key with spaces"))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(key))
		_, err := repo.Get(key)
		require.ErrorIs(t, err, credentials.ErrNotFound)
		require.ErrorIs(t, repo.Delete(key), credentials.ErrNotFound)
	})

	t.Run("concurrent upserts", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.Upsert(key, []byte("concurrent"))
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		blob, err := repo.Get(key)
		require.NoError(t, err)
		require.Equal(t, []byte("concurrent"), blob)
		require.NoError(t, repo.Delete(key))
	})
}
