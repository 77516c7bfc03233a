package browser

import (
	"fmt"
	"strings"
)

// TransientUIError reports that every strategy for one UI operation failed.
// Callers log it and keep the session moving.
type TransientUIError struct {
	// Op names the operation, e.g. "flip-forward" or "click-read".
	Op string

	// Strategies lists the names of the strategies that were attempted.
	Strategies []string

	// Last is the error returned by the final strategy, if any.
	Last error
}

func (e *TransientUIError) Error() string {
	msg := fmt.Sprintf("all %d strategies failed for %s (%s)",
		len(e.Strategies), e.Op, strings.Join(e.Strategies, ", "))
	if e.Last != nil {
		msg += fmt.Sprintf(": %v", e.Last)
	}
	return msg
}

func (e *TransientUIError) Unwrap() error {
	return e.Last
}
