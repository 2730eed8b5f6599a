package config

import "strings"

// StoreKind selects where the session is persisted.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreSQLite StoreKind = "sqlite"
)

const (
	storeKindVar  = "STORE"
	folderEnvVar  = "FOLDER"
	passphraseVar = "KINDE_PASSPHRASE"
)

type Store struct{}

var _ StoreConfig = Store{}

// GetStoreKind falls back to the file store for unknown values.
func (Store) GetStoreKind() StoreKind {
	switch kind := StoreKind(strings.ToLower(GetEnv(storeKindVar, string(StoreFile)))); kind {
	case StoreMemory, StoreFile, StoreSQLite:
		return kind
	default:
		return StoreFile
	}
}

func (Store) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetPassphrase is the secret the persisted session is encrypted with.
func (Store) GetPassphrase() string {
	return GetEnv(passphraseVar, "")
}
