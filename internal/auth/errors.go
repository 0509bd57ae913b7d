package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotAuthorized is returned when an operation that needs an authorized
// session runs before one exists. This is a usage error, not a transport
// failure: the caller must run Authorize first.
var ErrNotAuthorized = errors.New("not authorized: complete the authorization flow first")

// VerificationTimeoutError is raised by the web-based verification flow when
// no code arrives before the deadline. The whole authorization attempt must
// be restarted; the verification step alone cannot be resumed.
type VerificationTimeoutError struct {
	Elapsed time.Duration
}

func (e *VerificationTimeoutError) Error() string {
	return fmt.Sprintf("authorization timed out after %s, please try again", e.Elapsed.Round(time.Second))
}

// RenewalError signals that extending an existing grant failed. The session
// can no longer be trusted and the caller must explicitly re-run the full
// authorization flow; the manager never falls back to an interactive flow on
// its own.
type RenewalError struct {
	ProfileID string
	Err       error
}

func (e *RenewalError) Error() string {
	return fmt.Sprintf("token renewal failed for profile %s: %v (re-authorization required)", e.ProfileID, e.Err)
}

func (e *RenewalError) Unwrap() error {
	return e.Err
}
