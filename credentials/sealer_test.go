package credentials_test

import (
	"testing"

	"github.com/jrsteele09/go-kinde-auth/credentials"
	"github.com/stretchr/testify/require"
)

var testKDF = credentials.KDFParams{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestSealer(t *testing.T) {
	salt, err := credentials.NewSalt()
	require.NoError(t, err)
	require.Len(t, salt, credentials.SaltSize)

	sealer, err := credentials.NewSealer([]byte("correct horse"), salt, testKDF)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		sealed, err := sealer.Seal("app.authState", []byte(`{"access_token":"abc"}`))
		require.NoError(t, err)
		require.NotContains(t, string(sealed), "access_token")

		opened, err := sealer.Open("app.authState", sealed)
		require.NoError(t, err)
		require.Equal(t, `{"access_token":"abc"}`, string(opened))
	})

	t.Run("different key", func(t *testing.T) {
		sealed, err := sealer.Seal("app.authState", []byte("secret"))
		require.NoError(t, err)

		_, err = sealer.Open("other.authState", sealed)
		require.ErrorIs(t, err, credentials.ErrSealedDataInvalid)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		sealed, err := sealer.Seal("k", []byte("secret"))
		require.NoError(t, err)

		other, err := credentials.NewSealer([]byte("wrong"), salt, testKDF)
		require.NoError(t, err)
		_, err = other.Open("k", sealed)
		require.ErrorIs(t, err, credentials.ErrSealedDataInvalid)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := sealer.Open("k", []byte("short"))
		require.ErrorIs(t, err, credentials.ErrSealedDataInvalid)
	})

	t.Run("missing passphrase", func(t *testing.T) {
		_, err := credentials.NewSealer(nil, salt, testKDF)
		require.Error(t, err)
		require.Contains(t, err.Error(), "passphrase is required")
	})

	t.Run("short salt", func(t *testing.T) {
		_, err := credentials.NewSealer([]byte("p"), []byte("x"), testKDF)
		require.Error(t, err)
	})
}
