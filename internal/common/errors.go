package common

import "errors"

// Callers match these with errors.Is.
var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal         = errors.New("internal error")
	ErrorPermissionDenied = errors.New("permission denied")

	// Sharing state machine errors.
	ErrorInvalidStatus       = errors.New("invalid membership status")
	ErrorInvariantViolation  = errors.New("invariant violation")
	ErrorTeamLocked          = errors.New("team is locked")
	ErrorMissingShareTarget  = errors.New("exactly one of cipher or folder must be provided")
	ErrorImmutableCipherType = errors.New("cipher type cannot be moved")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
