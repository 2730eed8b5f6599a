// Package credentials defines the secure at-rest store that holds the
// serialized authentication state. Implementations live in sub packages.
package credentials

import "errors"

// ErrNotFound is returned by Get and Delete when nothing is stored under the key.
var ErrNotFound = errors.New("credential not found")

// Repo stores one opaque blob per key.
type Repo interface {
	Get(key string) ([]byte, error)
	Upsert(key string, blob []byte) error
	Delete(key string) error
	Exists(key string) (bool, error)
}
