// Package authstate owns the current authentication state: it caches it in
// memory, persists it to a credentials.Repo and re-persists it whenever a
// silent token refresh reports a change.
package authstate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-kinde-auth/autherrors"
	"github.com/jrsteele09/go-kinde-auth/credentials"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultKeySuffix is appended to the application identifier to build the store key.
const DefaultKeySuffix = ".authState"

// Observer receives the outcome of work started from base, a state handed out
// by the Repository. The update is applied only while base is still current;
// the result reports whether it was.
type Observer interface {
	StateDidChange(base, updated *State) bool
	StateDidEncounterAuthorizationError(base, updated *State, err error) bool
}

var _ Observer = (*Repository)(nil)

// Repository is the single source of truth for the current State. All reads
// and writes of the cached state go through lock.
type Repository struct {
	key    string
	store  credentials.Repo
	logger zerolog.Logger

	lock   sync.Mutex
	cached *State
	loaded bool
}

// RepositoryOption defines a function type to modify the Repository instance.
type RepositoryOption func(*Repository)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger zerolog.Logger) RepositoryOption {
	return func(r *Repository) {
		r.logger = logger
	}
}

// KeyFor returns the store key used for the application identified by appID.
func KeyFor(appID string) string {
	if appID == "" {
		appID = "com.kinde.KindeAuth"
	}
	return appID + DefaultKeySuffix
}

// NewRepository creates a Repository persisting under key in store.
func NewRepository(key string, store credentials.Repo, options ...RepositoryOption) (*Repository, error) {
	if key == "" {
		return nil, errors.New("[NewRepository] key is required")
	}
	if store == nil {
		return nil, errors.New("[NewRepository] store is required")
	}

	r := &Repository{
		key:    key,
		store:  store,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// State returns the cached state, loading it from the store on first use. It
// returns nil when nothing is persisted or the stored blob cannot be decoded.
func (r *Repository) State() *State {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.cached != nil || r.loaded {
		return r.cached
	}

	blob, err := r.store.Get(r.key)
	if err != nil {
		if !errors.Is(err, credentials.ErrNotFound) {
			r.logger.Error().Err(err).Str("key", r.key).Msg("Failed to load authentication state")
		}
		return nil
	}

	state, err := Unmarshal(blob)
	if err != nil {
		r.logger.Error().Err(err).Str("key", r.key).Msg("Failed to decode authentication state")
		return nil
	}

	r.cached = state
	r.loaded = true
	return r.cached
}

// SetState replaces the cached state and persists it. A persistence failure
// is returned wrapped in autherrors.ErrFailedToSaveState; the cache still
// holds the new state so the running process keeps working.
func (r *Repository) SetState(state *State) error {
	if state == nil {
		return errors.New("[SetState] state is required")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.cached = state
	r.loaded = true
	return r.persist(state)
}

// Clear drops the cached state and deletes the persisted entry. A missing
// entry counts as success.
func (r *Repository) Clear() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.cached = nil
	r.loaded = true

	exists, err := r.store.Exists(r.key)
	if err != nil {
		return autherrors.Wrapf(err, "failed to check authentication state")
	}
	if !exists {
		return nil
	}
	if err := r.store.Delete(r.key); err != nil && !errors.Is(err, credentials.ErrNotFound) {
		return autherrors.Wrapf(err, "failed to delete authentication state")
	}
	return nil
}

// StateDidChange implements Observer. Refreshed tokens are cached and
// persisted so they survive a restart.
func (r *Repository) StateDidChange(base, updated *State) bool {
	applied, err := r.replace(base, updated)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to persist refreshed authentication state")
	}
	return applied
}

// StateDidEncounterAuthorizationError implements Observer.
func (r *Repository) StateDidEncounterAuthorizationError(base, updated *State, err error) bool {
	r.logger.Error().Err(err).Bool("authorized", updated.Authorized).Msg("Authorization error during token refresh")
	applied, saveErr := r.replace(base, updated)
	if saveErr != nil {
		r.logger.Error().Err(saveErr).Msg("Failed to persist authentication state after authorization error")
	}
	return applied
}

// replace swaps in updated only if the cached state is still base. A logout
// or a new login in the meantime wins over the stale result.
func (r *Repository) replace(base, updated *State) (bool, error) {
	if updated == nil {
		return false, errors.New("[replace] state is required")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if base == nil || r.cached != base {
		r.logger.Debug().Bool("cleared", r.cached == nil).Msg("Authentication state changed during refresh, dropping the result")
		return false, nil
	}
	r.cached = updated
	return true, r.persist(updated)
}

func (r *Repository) persist(state *State) error {
	blob, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %w", autherrors.ErrFailedToSaveState, err)
	}
	if err := r.store.Upsert(r.key, blob); err != nil {
		return fmt.Errorf("%w: %w", autherrors.ErrFailedToSaveState, err)
	}
	return nil
}
