package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-kinde-auth/autherrors"
)

// DefaultFile is the configuration file looked up next to the application.
const DefaultFile = "kinde-auth.json"

// Environment variables read by FromEnv.
const (
	IssuerEnvVar                = "KINDE_ISSUER"
	ClientIDEnvVar              = "KINDE_CLIENT_ID"
	RedirectURIEnvVar           = "KINDE_REDIRECT_URI"
	PostLogoutRedirectURIEnvVar = "KINDE_POST_LOGOUT_REDIRECT_URI"
	ScopeEnvVar                 = "KINDE_SCOPE"
	AudienceEnvVar              = "KINDE_AUDIENCE"
)

// LoadFile reads a JSON configuration file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: reading %s: %w", autherrors.ErrConfiguration, path, err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: decoding %s: %w", autherrors.ErrConfiguration, path, err)
	}
	return c, nil
}

// FromEnv builds a Config from KINDE_* environment variables. Values found in
// the given dotenv files are used when the variable is not set in the process
// environment. Missing dotenv files are skipped.
func FromEnv(dotenvFiles ...string) (Config, error) {
	lookup, err := envLookup(dotenvFiles)
	if err != nil {
		return Config{}, err
	}
	return overlay(Config{}, lookup), nil
}

// Load reads the JSON file at path (if it exists) and overlays any KINDE_*
// environment variables on top of it. It fails if the result is not valid.
func Load(path string, dotenvFiles ...string) (Config, error) {
	var c Config
	if path != "" {
		loaded, err := LoadFile(path)
		switch {
		case err == nil:
			c = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, err
		}
	}

	lookup, err := envLookup(dotenvFiles)
	if err != nil {
		return Config{}, err
	}
	c = overlay(c, lookup)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func envLookup(dotenvFiles []string) (func(string) string, error) {
	fileValues := make(map[string]string)
	for _, f := range dotenvFiles {
		values, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: reading %s: %w", autherrors.ErrConfiguration, f, err)
		}
		for k, v := range values {
			if _, exists := fileValues[k]; !exists {
				fileValues[k] = v
			}
		}
	}

	return func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileValues[key]
	}, nil
}

func overlay(c Config, lookup func(string) string) Config {
	set := func(field *string, key string) {
		if v := lookup(key); v != "" {
			*field = v
		}
	}
	set(&c.Issuer, IssuerEnvVar)
	set(&c.ClientID, ClientIDEnvVar)
	set(&c.RedirectURI, RedirectURIEnvVar)
	set(&c.PostLogoutRedirectURI, PostLogoutRedirectURIEnvVar)
	set(&c.Scope, ScopeEnvVar)
	set(&c.Audience, AudienceEnvVar)
	return c
}
