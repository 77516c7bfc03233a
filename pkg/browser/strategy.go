package browser

import (
	"time"

	"github.com/ifung-0/lightsail-auto/pkg/logging"
)

// Strategy is one named way of performing a UI operation. Strategies for an
// operation are tried in order; the first success wins.
type Strategy struct {
	// Name identifies the strategy in logs and errors.
	Name string

	// Run performs the attempt. Timeouts belong inside Run, bounded by the
	// underlying click/fill/wait options.
	Run func() error
}

// Attempt runs strategies in order until one succeeds. Exhaustion yields a
// *TransientUIError naming the operation and every strategy tried, never a
// silent no-op. logger may be nil.
func Attempt(op string, logger *logging.Logger, strategies ...Strategy) error {
	var last error
	names := make([]string, 0, len(strategies))

	for _, s := range strategies {
		names = append(names, s.Name)
		err := s.Run()
		if err == nil {
			if logger != nil {
				logger.Debugf("%s: strategy %q succeeded", op, s.Name)
			}
			return nil
		}
		last = err
		if logger != nil {
			logger.Debugf("%s: strategy %q failed: %v", op, s.Name, err)
		}
	}

	return &TransientUIError{Op: op, Strategies: names, Last: last}
}

// ClickAny tries each selector in order against dom, returning the selector
// that was clicked. This is the most common ranked operation against the
// target UI, where controls are frequently renamed or restyled.
func ClickAny(dom DOM, op string, logger *logging.Logger, selectors []string, timeout time.Duration) (string, error) {
	var clicked string
	strategies := make([]Strategy, 0, len(selectors))
	for _, selector := range selectors {
		sel := selector
		strategies = append(strategies, Strategy{
			Name: sel,
			Run: func() error {
				if err := dom.Click(sel, timeout); err != nil {
					return err
				}
				clicked = sel
				return nil
			},
		})
	}
	if err := Attempt(op, logger, strategies...); err != nil {
		return "", err
	}
	return clicked, nil
}
