// Package memstore keeps credentials in process memory. Nothing survives a
// restart, so users have to sign in again on every launch.
package memstore

import (
	"sync"

	"github.com/jrsteele09/go-kinde-auth/credentials"
)

var _ credentials.Repo = (*Store)(nil)

type Store struct {
	blobs map[string][]byte
	lock  sync.RWMutex
}

func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Get(key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	blob, ok := s.blobs[key]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (s *Store) Upsert(key string, blob []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.blobs[key] = append([]byte(nil), blob...)
	return nil
}

func (s *Store) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return credentials.ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *Store) Exists(key string) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, ok := s.blobs[key]
	return ok, nil
}
