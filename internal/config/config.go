// Package config holds the settings of the kinde command line tool. Every
// value comes from the environment with a default.
package config

import "time"

type Config interface {
	EnvConfig
	StoreConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAppID() string
	GetEnv() string
	GetLogLevel() string
	GetConfigFile() string
	GetDotenvFile() string
}

type StoreConfig interface {
	GetStoreKind() StoreKind
	GetDataFolder() string
	GetPassphrase() string
}

type SessionConfig interface {
	GetCallbackTimeout() time.Duration
	GetUseNonce() bool
	GetPrivateSession() bool
	GetAPIRate() float64
	GetAPIBurst() int
}

type mainConfig struct {
	EnvVars
	Store
	Session
}

func New() Config {
	return mainConfig{}
}
