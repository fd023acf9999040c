package genroute

import "errors"

var (
	// ErrAllProvidersExhausted is returned when every provider in the
	// registry was skipped or failed and no fallback value was supplied.
	// It covers both "couldn't afford any provider" and "every provider
	// errored"; callers present a generic failure message.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrInsufficientCredits is returned by an atomic debit when the
	// balance no longer covers the cost. Within the fallback loop it
	// causes a skip to the next provider, never an abort.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrProviderUnavailable wraps a single provider attempt's failure.
	// It is never surfaced to callers.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrUserNotFound is returned when an operation names a user the
	// store does not know.
	ErrUserNotFound = errors.New("user not found")

	// ErrStorageCapacity is returned by a record store that refuses a
	// write because it is full. The orchestrator recovers by evicting
	// the oldest records and retrying once.
	ErrStorageCapacity = errors.New("storage capacity exceeded")

	// ErrInvalidMode is returned for a request mode this package
	// does not route.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidRequest is returned for a structurally broken request
	// (missing user id or provider logic).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNegativeCredits is returned when setting a balance below zero.
	ErrNegativeCredits = errors.New("credits cannot be negative")
)
