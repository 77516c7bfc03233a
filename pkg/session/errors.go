package session

import (
	"fmt"
	"time"
)

// LoginTimeoutError means no signed-in state was observed within the login
// wait budget. The session cannot proceed without authentication.
type LoginTimeoutError struct {
	Waited time.Duration
}

func (e *LoginTimeoutError) Error() string {
	return fmt.Sprintf("login not detected after %s", e.Waited)
}

// NavigationError wraps a failure to reach a required page or surface.
type NavigationError struct {
	Op  string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed during %s: %v", e.Op, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// FatalError means the session cannot continue and must stop with a final
// summary. Everything recoverable is retried before one of these is raised.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
