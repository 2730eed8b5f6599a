package sqlitestore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-kinde-auth/credentials"
	"github.com/jrsteele09/go-kinde-auth/credentials/credentialstest"
	"github.com/jrsteele09/go-kinde-auth/credentials/sqlitestore"
	"github.com/stretchr/testify/require"
)

var testKDF = credentials.KDFParams{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestStore(t *testing.T) {
	store, err := sqlitestore.New(filepath.Join(t.TempDir(), "creds.db"), []byte("passphrase"), sqlitestore.WithKDF(testKDF))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	credentialstest.RunRepoTests(t, store)
}

func TestStore_Reopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "creds.db")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	store, err := sqlitestore.New(dsn, []byte("passphrase"),
		sqlitestore.WithKDF(testKDF),
		sqlitestore.WithNowFunc(func() time.Time { return now }),
	)
	require.NoError(t, err)
	require.NoError(t, store.Upsert("state", []byte("blob")))

	updated, err := store.UpdatedAt("state")
	require.NoError(t, err)
	require.True(t, now.Equal(updated))

	_, err = store.UpdatedAt("missing")
	require.ErrorIs(t, err, credentials.ErrNotFound)
	require.NoError(t, store.Close())

	t.Run("migrations are idempotent and salt is kept", func(t *testing.T) {
		reopened, err := sqlitestore.New(dsn, []byte("passphrase"), sqlitestore.WithKDF(testKDF))
		require.NoError(t, err)
		defer reopened.Close()

		blob, err := reopened.Get("state")
		require.NoError(t, err)
		require.Equal(t, []byte("blob"), blob)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		reopened, err := sqlitestore.New(dsn, []byte("nope"), sqlitestore.WithKDF(testKDF))
		require.NoError(t, err)
		defer reopened.Close()

		_, err = reopened.Get("state")
		require.ErrorIs(t, err, credentials.ErrSealedDataInvalid)
	})
}
