package domain

import "fmt"

// AuthError marks a 401/403 from the tracker. Never retried; the whole run
// aborts immediately.
type AuthError struct {
    Status int
    Body   string
}

func (e *AuthError) Error() string {
    return fmt.Sprintf("jira auth failed status=%d body=%s", e.Status, e.Body)
}

// TransientError marks a retriable failure (429, 5xx, network timeout) that
// exhausted its retry budget.
type TransientError struct {
    Attempts int
    Err      error
}

func (e *TransientError) Error() string {
    return fmt.Sprintf("jira request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ValidationError marks bad caller input, surfaced before any network call.
type ValidationError struct {
    Field  string
    Reason string
}

func (e *ValidationError) Error() string {
    return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PartialDataError marks a fetch that failed after earlier pages succeeded.
// The run fails rather than reporting on a truncated issue set.
type PartialDataError struct {
    Fetched int
    Err     error
}

func (e *PartialDataError) Error() string {
    return fmt.Sprintf("fetch failed after %d issues retrieved: %v", e.Fetched, e.Err)
}

func (e *PartialDataError) Unwrap() error { return e.Err }
