package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-kinde-auth/internal/utils"
)

const (
	appNameVar    = "APP_NAME"
	appIDVar      = "APP_ID"
	logLevelVar   = "LOG_LEVEL"
	configFileVar = "KINDE_CONFIG_FILE"
	dotenvFileVar = "DOTENV_FILE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Kinde Auth")
}

// GetAppID namespaces the stored session so several tools can share a store.
func (EnvVars) GetAppID() string {
	return GetEnv(appIDVar, "kinde-cli")
}

func (EnvVars) GetEnv() string {
	return GetEnv("ENV", "DEV")
}

func (EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelVar, "info"))
}

func (EnvVars) GetConfigFile() string {
	return GetEnv(configFileVar, "kinde-auth.json")
}

func (EnvVars) GetDotenvFile() string {
	return GetEnv(dotenvFileVar, ".env")
}

func GetEnv(envVar, defaultValue string) string {
	return utils.Or(os.Getenv(envVar), defaultValue)
}

// GetBoolEnv returns defaultValue when envVar is unset or not a boolean.
func GetBoolEnv(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
