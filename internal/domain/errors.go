package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUpstream       = errors.New("upstream unavailable")
	ErrScanSuperseded = errors.New("scan superseded")
	ErrNoUniverse     = errors.New("market universe not loaded")
	ErrLockHeld       = errors.New("lock held by another owner")
)
