package memstore_test

import (
	"testing"

	"github.com/jrsteele09/go-kinde-auth/credentials/credentialstest"
	"github.com/jrsteele09/go-kinde-auth/credentials/memstore"
)

func TestStore(t *testing.T) {
	credentialstest.RunRepoTests(t, memstore.New())
}
