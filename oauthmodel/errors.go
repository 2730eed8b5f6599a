package oauthmodel

import "errors"

var (
	ErrInvalidCallback = errors.New("invalid authorization callback")
	ErrMissingCode     = errors.New("authorization callback has no code")
)
