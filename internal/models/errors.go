package models

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStaleState is returned by a conditional transition when the intent
	// is no longer in the expected state. The caller lost the claim race and
	// must perform no side effect.
	ErrStaleState = errors.New("intent not in expected state")
	// ErrDuplicatePost is returned when an intent for the source post already exists.
	ErrDuplicatePost = errors.New("intent already exists for post")
	// ErrDuplicateName is returned when a non-failed intent already holds the name.
	ErrDuplicateName = errors.New("token name already taken")
	// ErrDuplicateSymbol is returned when a non-failed intent already holds the symbol.
	ErrDuplicateSymbol = errors.New("token symbol already taken")

	// ErrUnconfigured is returned by a component whose required configuration
	// is missing. Operations fail fast instead of attempting partial work.
	ErrUnconfigured = errors.New("service not configured")
	// ErrOnChainRevert is returned when a confirmed receipt reports failure.
	ErrOnChainRevert = errors.New("on-chain revert")
	// ErrEventNotFound is returned when a confirmed receipt carries no TokenCreated event.
	ErrEventNotFound = errors.New("TokenCreated event not found")
	// ErrInsufficientFunding is returned when the funding wallet cannot cover a shortfall.
	ErrInsufficientFunding = errors.New("funding wallet balance insufficient")

	// ErrNotAuthenticated is returned when no usable posting credential exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrRateLimited is returned on a social API rate-limit response.
	ErrRateLimited = errors.New("rate limited by social API")
)
