package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and outbound
// clients return these (optionally wrapped) so services can translate them
// into domain errors or degrade gracefully.
//
// - ErrNotFound: entry does not exist (or has expired) in a store or cache
// - ErrUnavailable: dependency temporarily unavailable (open breaker, missing credentials)
// - ErrInvalidState: value in a store could not be interpreted
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
