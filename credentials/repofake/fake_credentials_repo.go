package credentialsrepofake

import (
	"sync"

	"github.com/jrsteele09/go-kinde-auth/credentials"
)

var _ credentials.Repo = (*FakeCredentialsRepo)(nil)

// FakeCredentialsRepo keeps blobs in memory. UpsertErr, when set, is returned
// by every Upsert so tests can simulate a store that refuses writes.
type FakeCredentialsRepo struct {
	blobs     map[string][]byte
	UpsertErr error
	lock      sync.RWMutex
}

func NewFakeCredentialsRepo() *FakeCredentialsRepo {
	return &FakeCredentialsRepo{
		blobs: make(map[string][]byte),
	}
}

func (r *FakeCredentialsRepo) Get(key string) ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	blob, ok := r.blobs[key]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (r *FakeCredentialsRepo) Upsert(key string, blob []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	r.blobs[key] = append([]byte(nil), blob...)
	return nil
}

func (r *FakeCredentialsRepo) Delete(key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.blobs[key]; !ok {
		return credentials.ErrNotFound
	}
	delete(r.blobs, key)
	return nil
}

func (r *FakeCredentialsRepo) Exists(key string) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.blobs[key]
	return ok, nil
}
