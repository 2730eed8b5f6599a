package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-kinde-auth/authstate"
	"github.com/jrsteele09/go-kinde-auth/config"
	"github.com/jrsteele09/go-kinde-auth/credentials"
	"github.com/jrsteele09/go-kinde-auth/credentials/filestore"
	"github.com/jrsteele09/go-kinde-auth/credentials/memstore"
	"github.com/jrsteele09/go-kinde-auth/credentials/sqlitestore"
	internalconfig "github.com/jrsteele09/go-kinde-auth/internal/config"
	"github.com/jrsteele09/go-kinde-auth/kinde"
	"github.com/jrsteele09/go-kinde-auth/useragent"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const sqliteFile = "kinde.db"

// app is the SDK client plus the resources the command owns.
type app struct {
	client   *kinde.Client
	settings internalconfig.Config
	store    credentials.Repo
	closers  []func() error
	storedAt func(key string) (time.Time, error) // Set when the store records write times
}

func newApp(settings internalconfig.Config) (*app, error) {
	cfg, err := config.Load(settings.GetConfigFile(), settings.GetDotenvFile())
	if err != nil {
		return nil, err
	}

	a := &app{settings: settings}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.store = store

	logger := log.Logger.With().Str("app_id", settings.GetAppID()).Logger()
	agent := useragent.NewLoopback(
		useragent.WithTimeout(settings.GetCallbackTimeout()),
		useragent.WithLogger(logger),
		useragent.WithOpener(func(rawURL string) error {
			fmt.Fprintf(os.Stderr, "Opening %s\n", rawURL)
			return browser.OpenURL(rawURL)
		}),
	)

	opts := []kinde.Option{
		kinde.WithStore(store),
		kinde.WithUserAgent(agent),
		kinde.WithLogger(logger),
		kinde.WithAppID(settings.GetAppID()),
		kinde.WithPrivateSession(settings.GetPrivateSession()),
	}
	if r := settings.GetAPIRate(); r > 0 {
		opts = append(opts, kinde.WithAPIRateLimit(rate.Limit(r), settings.GetAPIBurst()))
	}

	a.client, err = kinde.New(cfg, opts...)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore() (credentials.Repo, error) {
	kind := a.settings.GetStoreKind()
	if kind == internalconfig.StoreMemory {
		log.Warn().Msg("Using the in-memory store, the session ends with the command")
		return memstore.New(), nil
	}

	passphrase := a.settings.GetPassphrase()
	if passphrase == "" {
		return nil, errors.New("KINDE_PASSPHRASE is required to encrypt the stored session")
	}

	folder := a.settings.GetDataFolder()
	switch kind {
	case internalconfig.StoreSQLite:
		if err := os.MkdirAll(folder, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data folder: %w", err)
		}
		store, err := sqlitestore.New(filepath.Join(folder, sqliteFile), []byte(passphrase))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.storedAt = store.UpdatedAt
		return store, nil
	default:
		return filestore.New(folder, []byte(passphrase))
	}
}

// stateKey is where the session of this app lives in the store.
func (a *app) stateKey() string {
	return authstate.KeyFor(a.settings.GetAppID())
}

func (a *app) close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}
}
