package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrNoObservation  = errors.New("no observation available")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUnavailable    = errors.New("service unavailable")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrClosed         = errors.New("closed")
)
