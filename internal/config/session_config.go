package config

import (
	"strconv"
	"time"
)

const (
	callbackTimeoutVar = "CALLBACK_TIMEOUT"
	useNonceVar        = "USE_NONCE"
	privateSessionVar  = "PRIVATE_SESSION"
	apiRateVar         = "API_RATE"
	apiBurstVar        = "API_BURST"
)

type Session struct{}

var _ SessionConfig = Session{}

// GetCallbackTimeout is how long the browser login may take.
func (Session) GetCallbackTimeout() time.Duration {
	return GetDurationEnv(callbackTimeoutVar, 5*time.Minute)
}

func (Session) GetUseNonce() bool {
	return GetBoolEnv(useNonceVar, true)
}

func (Session) GetPrivateSession() bool {
	return GetBoolEnv(privateSessionVar, false)
}

// GetAPIRate is the Account API requests per second, zero for unlimited.
func (Session) GetAPIRate() float64 {
	rate, err := strconv.ParseFloat(GetEnv(apiRateVar, "5"), 64)
	if err != nil || rate < 0 {
		return 0
	}
	return rate
}

func (Session) GetAPIBurst() int {
	burst, err := strconv.Atoi(GetEnv(apiBurstVar, "1"))
	if err != nil || burst < 1 {
		return 1
	}
	return burst
}
