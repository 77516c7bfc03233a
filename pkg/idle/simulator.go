// Package idle keeps the reader session looking attended. The target site
// pauses reading credit when the tab reports itself hidden or the user goes
// still, so the simulator pins the page's visibility state and feeds the
// document a slow trickle of pointer activity.
package idle

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ifung-0/lightsail-auto/pkg/browser"
	"github.com/ifung-0/lightsail-auto/pkg/logging"
)

// visibilityScript runs before any page script. It pins document.hidden and
// visibilityState, swallows the listeners the site uses to detect tab
// switches, and dispatches an in-page mousemove every five seconds.
const visibilityScript = `
Object.defineProperty(document, 'hidden', { get: () => false });
Object.defineProperty(document, 'visibilityState', { get: () => 'visible' });

const realAddEventListener = EventTarget.prototype.addEventListener;
EventTarget.prototype.addEventListener = function (type, listener, options) {
	if (type === 'visibilitychange' || type === 'blur' || type === 'focus') {
		return;
	}
	return realAddEventListener.call(this, type, listener, options);
};

setInterval(() => {
	document.dispatchEvent(new MouseEvent('mousemove', {
		bubbles: true,
		clientX: 100 + Math.floor(Math.random() * 100),
		clientY: 100 + Math.floor(Math.random() * 100),
	}));
}, 5000);
`

const (
	// tickInterval is the pace of simulated activity.
	tickInterval = 10 * time.Second

	// scrollChance is the fraction of ticks that also nudge the scroll
	// position.
	scrollChance = 0.3
)

// Simulator drives periodic anti-AFK activity on a document handle.
type Simulator struct {
	dom    browser.DOM
	logger *logging.Logger
	rng    *rand.Rand
	tick   time.Duration
}

// Option adjusts a Simulator.
type Option func(*Simulator)

// WithTick overrides the activity interval. Used by tests.
func WithTick(d time.Duration) Option {
	return func(s *Simulator) { s.tick = d }
}

// WithSeed makes the activity pattern reproducible. Used by tests.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewSource(seed)) }
}

// New creates a Simulator. logger may be nil.
func New(dom browser.DOM, logger *logging.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		dom:    dom,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		tick:   tickInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Install registers the visibility override so it applies to every page the
// context navigates to. Call once before the first navigation.
func (s *Simulator) Install() error {
	return s.dom.AddInitScript(visibilityScript)
}

// Run emits pointer activity until ctx is cancelled: every tick a small
// mouse move, and on some ticks a tiny scroll nudge. Individual failures are
// logged and skipped; the loop itself only exits with the context.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step()
		}
	}
}

// step performs one round of activity.
func (s *Simulator) step() {
	x := float64(100 + s.rng.Intn(101))
	y := float64(100 + s.rng.Intn(101))
	if err := s.dom.MouseMove(x, y); err != nil {
		s.logf("idle mouse move failed: %v", err)
		return
	}

	if s.rng.Float64() < scrollChance {
		dx := s.rng.Intn(21) - 10
		dy := s.rng.Intn(21) - 10
		expr := scrollExpr(dx, dy)
		if _, err := s.dom.Evaluate(expr); err != nil {
			s.logf("idle scroll failed: %v", err)
		}
	}
}

func scrollExpr(dx, dy int) string {
	return fmt.Sprintf("() => window.scrollBy(%d, %d)", dx, dy)
}
