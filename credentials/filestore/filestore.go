// Package filestore keeps encrypted credential blobs in a directory, one file
// per key.
package filestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/credentials"
)

const (
	saltFile   = "salt"
	fileSuffix = ".cred"
)

var _ credentials.Repo = (*Store)(nil)

// Store is a credentials.Repo backed by the file system.
type Store struct {
	dir    string
	sealer *credentials.Sealer
	lock   sync.Mutex
}

// Option configures a Store.
type Option func(*options)

type options struct {
	kdf credentials.KDFParams
}

// WithKDF overrides the key derivation parameters.
func WithKDF(params credentials.KDFParams) Option {
	return func(o *options) {
		o.kdf = params
	}
}

// New opens (creating if needed) a store in dir. The salt for key derivation
// is generated on first use and kept alongside the blobs.
func New(dir string, passphrase []byte, opts ...Option) (*Store, error) {
	o := options{kdf: credentials.DefaultKDF}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, autherrors.Wrapf(err, "failed to create credential directory")
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, err
	}

	sealer, err := credentials.NewSealer(passphrase, salt, o.kdf)
	if err != nil {
		return nil, err
	}

	return &Store{dir: dir, sealer: sealer}, nil
}

func (s *Store) Get(key string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	sealed, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, autherrors.Wrapf(err, "failed to read credential")
	}
	return s.sealer.Open(key, sealed)
}

func (s *Store) Upsert(key string, blob []byte) error {
	sealed, err := s.sealer.Seal(key, blob)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	return writeAtomic(s.dir, s.path(key), sealed)
}

func (s *Store) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return credentials.ErrNotFound
	}
	if err != nil {
		return autherrors.Wrapf(err, "failed to delete credential")
	}
	return nil
}

func (s *Store) Exists(key string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, err := os.Stat(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, autherrors.Wrapf(err, "failed to stat credential")
	}
	return true, nil
}

// path maps a key onto a file name that is safe on every platform.
func (s *Store) path(key string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+fileSuffix)
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) < credentials.SaltSize {
			return nil, fmt.Errorf("salt file %s is corrupt", path)
		}
		return salt, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, autherrors.Wrapf(err, "failed to read salt")
	}

	salt, err = credentials.NewSalt()
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(filepath.Dir(path), path, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// writeAtomic writes data to a temp file and renames it over path.
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return autherrors.Wrapf(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return autherrors.Wrapf(err, "failed to set permissions")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return autherrors.Wrapf(err, "failed to write credential")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return autherrors.Wrapf(err, "failed to sync credential")
	}
	if err := tmp.Close(); err != nil {
		return autherrors.Wrapf(err, "failed to close credential")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return autherrors.Wrapf(err, "failed to replace credential")
	}
	return nil
}
