package tools

import (
	"fmt"
	"time"
)

// ValidationError reports malformed tool input, rejected before any side
// effect runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: field %q: %s", e.Field, e.Reason)
}

// AutomationFailure reports a scripted UI step that could not complete. The
// driver has already torn the session down by the time this surfaces.
type AutomationFailure struct {
	Op  string
	Err error
}

func (e *AutomationFailure) Error() string {
	return fmt.Sprintf("automation failure during %s: %v", e.Op, e.Err)
}

func (e *AutomationFailure) Unwrap() error { return e.Err }

// TimeoutError reports a relay request whose completion was never observed
// within the bounded wait. The queue entry has been discarded.
type TimeoutError struct {
	Op   string
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Wait)
}

// AuthRequiredError reports a calendar or email operation attempted without a
// detected login session.
type AuthRequiredError struct {
	Op string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%s requires a logged-in browser session", e.Op)
}

// RateLimitedError reports a screenshot request arriving before the minimum
// inter-capture interval has elapsed. The request is rejected, not queued.
type RateLimitedError struct {
	MinInterval time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("screenshot rate limited: minimum interval between captures is %s", e.MinInterval)
}
