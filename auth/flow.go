package auth

import (
	"time"

	"github.com/jrsteele09/go-kinde-auth/oauthmodel"
)

// Flow describes the authorization flow currently in flight.
type Flow struct {
	ID        string
	Type      oauthmodel.FlowType
	State     string
	Ephemeral bool
	StartedAt time.Time
}
