package engine

import (
	"errors"
	"fmt"
)

// Client-facing failures for a tap. The engine never retries any of these;
// whether "tap again" makes sense is the caller's decision.
var (
	ErrIdentityNotFound    = errors.New("card is not linked to any user")
	ErrIdentityNotVerified = errors.New("user has not completed email verification")
	ErrScopeNotFound       = errors.New("scope not found")
	ErrScopeInactive       = errors.New("facility is not active")
	ErrScopeEnded          = errors.New("scope has already ended")
	ErrCapacityExceeded    = errors.New("facility is at capacity")

	// ErrAlreadyActiveElsewhere means the current-location pointer was set
	// even though no matching active session was found. That is an internal
	// consistency breach; it is logged loudly and surfaced as a conflict.
	ErrAlreadyActiveElsewhere = errors.New("user is already checked in elsewhere")
)

// ScopeConflictError reports a tap at facility B while the user is still
// checked into facility A, naming the facility to check out of first.
type ScopeConflictError struct {
	Slug string
	Name string
}

func (e *ScopeConflictError) Error() string {
	return fmt.Sprintf("already checked into %s, check out there first", e.Name)
}
