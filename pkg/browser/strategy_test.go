package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptFirstSuccessWins(t *testing.T) {
	var ran []string

	err := Attempt("flip-forward", nil,
		Strategy{Name: "aria-label", Run: func() error {
			ran = append(ran, "aria-label")
			return errors.New("not found")
		}},
		Strategy{Name: "legacy-class", Run: func() error {
			ran = append(ran, "legacy-class")
			return nil
		}},
		Strategy{Name: "keyboard", Run: func() error {
			ran = append(ran, "keyboard")
			return nil
		}},
	)

	require.NoError(t, err)
	// Later strategies are never attempted once one succeeds.
	assert.Equal(t, []string{"aria-label", "legacy-class"}, ran)
}

func TestAttemptExhaustionYieldsTransientUIError(t *testing.T) {
	lastErr := errors.New("element detached")

	err := Attempt("click-read", nil,
		Strategy{Name: "primary-button", Run: func() error { return errors.New("timeout") }},
		Strategy{Name: "text-match", Run: func() error { return lastErr }},
	)

	require.Error(t, err)

	var uiErr *TransientUIError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, "click-read", uiErr.Op)
	assert.Equal(t, []string{"primary-button", "text-match"}, uiErr.Strategies)
	assert.ErrorIs(t, err, lastErr)
	assert.Contains(t, err.Error(), "click-read")
	assert.Contains(t, err.Error(), "primary-button")
}

func TestAttemptNoStrategies(t *testing.T) {
	err := Attempt("noop", nil)

	var uiErr *TransientUIError
	require.ErrorAs(t, err, &uiErr)
	assert.Empty(t, uiErr.Strategies)
}
