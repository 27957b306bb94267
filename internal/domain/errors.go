package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateCondition = errors.New("duplicate condition id")
	ErrQuoteUnavailable   = errors.New("quote unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidOrder       = errors.New("invalid order parameters")
	ErrSigningFailed      = errors.New("signing failed")
	ErrWSDisconnect       = errors.New("websocket disconnected")
)
