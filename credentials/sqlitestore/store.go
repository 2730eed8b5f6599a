// Package sqlitestore keeps encrypted credential blobs in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/credentials"
	_ "modernc.org/sqlite"
)

const saltName = "kdf_salt"

var _ credentials.Repo = (*Store)(nil)

// Store is a credentials.Repo backed by SQLite.
type Store struct {
	db      *sql.DB
	sealer  *credentials.Sealer
	nowFunc func() time.Time
}

// Option configures a Store.
type Option func(*options)

type options struct {
	kdf     credentials.KDFParams
	nowFunc func() time.Time
}

// WithKDF overrides the key derivation parameters.
func WithKDF(params credentials.KDFParams) Option {
	return func(o *options) {
		o.kdf = params
	}
}

// WithNowFunc sets the clock used for updated_at (primarily for testing).
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = nowFunc
	}
}

// New opens the database at dsn, applies migrations and derives the
// encryption key from passphrase.
func New(dsn string, passphrase []byte, opts ...Option) (*Store, error) {
	o := options{kdf: credentials.DefaultKDF, nowFunc: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, autherrors.Wrapf(err, "failed to open credential database")
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, nowFunc: o.nowFunc}
	if err := s.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, autherrors.Wrapf(err, "failed to migrate credential database")
	}

	salt, err := s.loadOrCreateSalt(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s.sealer, err = credentials.NewSealer(passphrase, salt, o.kdf)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Get(key string) ([]byte, error) {
	var sealed []byte
	err := s.db.QueryRow(`SELECT blob FROM credentials WHERE key = ?`, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
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

	_, err = s.db.Exec(
		`INSERT INTO credentials (key, blob, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		key, sealed, s.nowFunc().Unix(),
	)
	if err != nil {
		return autherrors.Wrapf(err, "failed to write credential")
	}
	return nil
}

func (s *Store) Delete(key string) error {
	res, err := s.db.Exec(`DELETE FROM credentials WHERE key = ?`, key)
	if err != nil {
		return autherrors.Wrapf(err, "failed to delete credential")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return autherrors.Wrapf(err, "failed to delete credential")
	}
	if n == 0 {
		return credentials.ErrNotFound
	}
	return nil
}

func (s *Store) Exists(key string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM credentials WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, autherrors.Wrapf(err, "failed to check credential")
	}
	return true, nil
}

// UpdatedAt returns when the credential under key was last written.
func (s *Store) UpdatedAt(key string) (time.Time, error) {
	var unix int64
	err := s.db.QueryRow(`SELECT updated_at FROM credentials WHERE key = ?`, key).Scan(&unix)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, credentials.ErrNotFound
	}
	if err != nil {
		return time.Time{}, autherrors.Wrapf(err, "failed to read credential")
	}
	return time.Unix(unix, 0), nil
}

func (s *Store) loadOrCreateSalt(ctx context.Context) ([]byte, error) {
	var salt []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE name = ?`, saltName).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, autherrors.Wrapf(err, "failed to read salt")
	}

	salt, err = credentials.NewSalt()
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO store_meta (name, value) VALUES (?, ?)`, saltName, salt); err != nil {
		return nil, autherrors.Wrapf(err, "failed to store salt")
	}
	return salt, nil
}
