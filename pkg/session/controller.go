// Package session runs the unattended reading session: wait for login,
// select a book, then flip pages on a humanlike cadence while answering any
// assessment that appears. The controller owns all progress counters and
// pushes read-only snapshots outward through a status.Reporter.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ifung-0/lightsail-auto/pkg/browser"
	"github.com/ifung-0/lightsail-auto/pkg/config"
	"github.com/ifung-0/lightsail-auto/pkg/logging"
	"github.com/ifung-0/lightsail-auto/pkg/navigate"
	"github.com/ifung-0/lightsail-auto/pkg/question"
	"github.com/ifung-0/lightsail-auto/pkg/status"
)

// Phase is the controller's internal state machine position.
type Phase string

const (
	PhaseInitializing      Phase = "initializing"
	PhaseAwaitingLogin     Phase = "awaiting-login"
	PhaseSelectingContent  Phase = "selecting-content"
	PhaseReading           Phase = "reading"
	PhaseAnsweringQuestion Phase = "answering-question"
	PhaseStopped           Phase = "stopped"
)

// Navigator is the content-selection surface the controller drives. It is
// satisfied by *navigate.Navigator and by test doubles.
type Navigator interface {
	SelectContent(ctx context.Context, forExisting bool) error
	ExitAndReselect(ctx context.Context) error
	IsComplete() bool
	Flip(forward bool) error
	Current() *navigate.ContentItem
}

// QuestionResolver detects and answers in-reader assessments. It is
// satisfied by *question.Resolver and by test doubles.
type QuestionResolver interface {
	DetectCurrent() *question.Record
	AnswerCurrent(ctx context.Context, rec *question.Record) error
}

// maxNoProgressFlips is how many consecutive failed flips are tolerated
// before the controller forces a completion check. A book on its last page
// presents exactly this way.
const maxNoProgressFlips = 3

// Options configures a Controller. Zero durations take production defaults;
// tests shrink them.
type Options struct {
	// BaseURL is the entry page opened before the login wait.
	BaseURL string

	// FlipInterval and Jitter set the reading cadence: each wait is the
	// interval plus a uniform offset in [-Jitter, +Jitter].
	FlipInterval time.Duration
	Jitter       time.Duration

	// FlipPolicy selects forward-only or alternating flips.
	FlipPolicy config.FlipPolicy

	// AutoAnswer enables question detection and answering.
	AutoAnswer bool

	// Credentials for the automatic sign-in attempt. Empty means the user
	// signs in by hand in the opened browser.
	Username string
	Password string

	// LoginPollInterval and LoginPollAttempts bound the login wait.
	LoginPollInterval time.Duration
	LoginPollAttempts int

	// SelectRetries bounds consecutive selection failures before the
	// session gives up.
	SelectRetries int

	// ErrorBackoff is the pause after a recoverable in-loop failure.
	ErrorBackoff time.Duration

	// StopGranularity caps how long a stop request can sit unnoticed
	// inside a cadence wait.
	StopGranularity time.Duration

	// SaveStorageState, when set, persists the authenticated browser state
	// right after login is confirmed.
	SaveStorageState func() error
}

func (o *Options) applyDefaults() {
	if o.FlipInterval == 0 {
		o.FlipInterval = 40 * time.Second
	}
	if o.LoginPollInterval == 0 {
		o.LoginPollInterval = time.Second
	}
	if o.LoginPollAttempts == 0 {
		o.LoginPollAttempts = 300
	}
	if o.SelectRetries == 0 {
		o.SelectRetries = 3
	}
	if o.ErrorBackoff == 0 {
		o.ErrorBackoff = 5 * time.Second
	}
	if o.StopGranularity == 0 {
		o.StopGranularity = time.Second
	}
}

// signedInSelectors are links that only render for an authenticated user.
var signedInSelectors = []string{
	`a:has-text("Library")`,
	`a:has-text("Home")`,
}

// Controller is the session state machine.
type Controller struct {
	dom       browser.DOM
	nav       Navigator
	questions QuestionResolver
	reporter  status.Reporter
	logger    *logging.Logger
	opts      Options
	rng       *rand.Rand

	mu    sync.Mutex
	phase Phase
	snap  status.Snapshot

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Controller. reporter and logger may be nil.
func New(dom browser.DOM, nav Navigator, questions QuestionResolver, reporter status.Reporter, logger *logging.Logger, opts Options) *Controller {
	opts.applyDefaults()
	return &Controller{
		dom:       dom,
		nav:       nav,
		questions: questions,
		reporter:  reporter,
		logger:    logger,
		opts:      opts,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		phase:     PhaseInitializing,
		stopCh:    make(chan struct{}),
	}
}

// Stop requests a graceful shutdown. Safe to call from any goroutine and
// more than once; the reading loop notices within the stop granularity.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// Phase returns the current state machine position.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Summary returns a copy of the session counters, valid at any point
// including after Run returns.
func (c *Controller) Summary() status.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Run executes the session until completion is impossible, a fatal error
// occurs, or Stop is called. A final summary is reported on every path.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.snap.StartedAt = time.Now()
	c.mu.Unlock()
	defer c.finish()

	if err := c.dom.Goto(c.opts.BaseURL, time.Minute); err != nil {
		return &NavigationError{Op: "open-entry-page", Err: err}
	}

	if err := c.awaitLogin(ctx); err != nil {
		return err
	}

	if c.opts.SaveStorageState != nil {
		if err := c.opts.SaveStorageState(); err != nil {
			c.report(status.LevelWarning, fmt.Sprintf("could not save browser state: %v", err))
		}
	}

	if err := c.selectInitial(ctx); err != nil {
		return err
	}

	return c.readLoop(ctx)
}

// awaitLogin polls for a signed-in page. Credentials, when configured, are
// tried once as a best effort; manual sign-in in the opened browser is the
// expected path.
func (c *Controller) awaitLogin(ctx context.Context) error {
	c.setPhase(PhaseAwaitingLogin)
	c.report(status.LevelInfo, "waiting for sign-in")

	c.tryCredentials()

	for attempt := 0; attempt < c.opts.LoginPollAttempts; attempt++ {
		if c.signedIn() {
			c.report(status.LevelInfo, "sign-in detected")
			return nil
		}
		if attempt > 0 && attempt%30 == 0 {
			c.report(status.LevelInfo, fmt.Sprintf("still waiting for sign-in (%d/%d)",
				attempt, c.opts.LoginPollAttempts))
		}
		if !c.sleep(ctx, c.opts.LoginPollInterval) {
			return &FatalError{Reason: "stopped while waiting for sign-in"}
		}
	}

	waited := time.Duration(c.opts.LoginPollAttempts) * c.opts.LoginPollInterval
	return &LoginTimeoutError{Waited: waited}
}

// tryCredentials fills the login form when credentials are configured.
// Every failure is silent; the poll loop covers the manual path.
func (c *Controller) tryCredentials() {
	if c.opts.Username == "" || c.opts.Password == "" {
		return
	}
	if err := c.dom.Fill(`input[type="email"], input[name="username"]`, c.opts.Username, 3*time.Second); err != nil {
		return
	}
	if err := c.dom.Fill(`input[type="password"]`, c.opts.Password, 3*time.Second); err != nil {
		return
	}
	_, _ = browser.ClickAny(c.dom, "sign-in", c.logger, []string{
		`button[type="submit"]`,
		`button:has-text("Sign In")`,
		`button:has-text("Log In")`,
	}, 3*time.Second)
}

// signedIn reports whether the page shows an authenticated state: not a
// login URL, and at least one signed-in-only link present.
func (c *Controller) signedIn() bool {
	if strings.Contains(strings.ToLower(c.dom.URL()), "login") {
		return false
	}
	for _, selector := range signedInSelectors {
		if el, err := c.dom.QuerySelector(selector); err == nil && el != nil {
			return true
		}
	}
	return false
}

// selectInitial picks the first book, retrying with backoff.
func (c *Controller) selectInitial(ctx context.Context) error {
	c.setPhase(PhaseSelectingContent)

	var lastErr error
	for attempt := 1; attempt <= c.opts.SelectRetries; attempt++ {
		lastErr = c.nav.SelectContent(ctx, false)
		if lastErr == nil {
			c.noteBook()
			c.setPhase(PhaseReading)
			return nil
		}
		if handleLost(lastErr) {
			return &FatalError{Reason: "document handle lost", Err: lastErr}
		}
		c.report(status.LevelWarning, fmt.Sprintf("book selection attempt %d failed: %v", attempt, lastErr))
		if !c.sleep(ctx, c.opts.ErrorBackoff) {
			return &FatalError{Reason: "stopped during book selection"}
		}
	}
	return &FatalError{Reason: "could not select a book", Err: lastErr}
}

// readLoop is the session hot loop. Each iteration checks completion, then
// questions, then flips a page and waits out the jittered cadence.
func (c *Controller) readLoop(ctx context.Context) error {
	forward := true
	noProgress := 0
	reselectFailures := 0

	for {
		if c.stopRequested(ctx) {
			return nil
		}

		if c.nav.IsComplete() {
			if err := c.advanceToNextBook(ctx); err != nil {
				if handleLost(err) {
					return &FatalError{Reason: "document handle lost", Err: err}
				}
				reselectFailures++
				if reselectFailures >= c.opts.SelectRetries {
					return &FatalError{Reason: "could not select the next book", Err: err}
				}
				if !c.sleep(ctx, c.opts.ErrorBackoff) {
					return nil
				}
				continue
			}
			reselectFailures = 0
			noProgress = 0
			c.setNoProgress(0)
			continue
		}

		if c.opts.AutoAnswer {
			if rec := c.questions.DetectCurrent(); rec != nil {
				// A live question is progress: the page is responsive even
				// though no flip landed.
				noProgress = 0
				c.setNoProgress(0)
				c.handleQuestion(ctx, rec)
				continue
			}
		}

		dir := true
		if c.opts.FlipPolicy == config.FlipAlternate {
			dir = forward
			forward = !forward
		}

		if err := c.nav.Flip(dir); err != nil {
			if handleLost(err) {
				c.report(status.LevelError, fmt.Sprintf("document handle lost: %v", err))
				return &FatalError{Reason: "document handle lost", Err: err}
			}
			noProgress++
			c.setNoProgress(noProgress)
			c.report(status.LevelWarning, fmt.Sprintf("page flip failed (%d in a row): %v", noProgress, err))
			if noProgress >= maxNoProgressFlips {
				c.report(status.LevelWarning, fmt.Sprintf("no page progress after %d flips, checking completion", noProgress))
				noProgress = 0
				c.setNoProgress(0)
				// Skip the backoff so the loop top re-checks completion
				// right away; a book stuck on its last page resolves there.
				continue
			}
			if !c.sleep(ctx, c.opts.ErrorBackoff) {
				return nil
			}
			continue
		}

		noProgress = 0
		c.bump(func(s *status.Snapshot) {
			s.NoProgressFlips = 0
			s.TotalFlips++
			if dir {
				s.PagesRead++
			}
		})

		if !c.sleep(ctx, c.cadence()) {
			return nil
		}
	}
}

// handleLost reports whether err means the browser or page is gone.
// playwright surfaces these as "target closed" and "has been closed" errors;
// nothing recovers from them, so the session must stop rather than spin.
func handleLost(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "has been closed") ||
		strings.Contains(msg, "browser closed")
}

// handleQuestion hands the loop over to the resolver for one question.
func (c *Controller) handleQuestion(ctx context.Context, rec *question.Record) {
	c.setPhase(PhaseAnsweringQuestion)
	c.bump(func(s *status.Snapshot) { s.QuestionsDetected++ })
	c.report(status.LevelInfo, fmt.Sprintf("question detected: %s", rec.Kind))

	if err := c.questions.AnswerCurrent(ctx, rec); err != nil {
		c.report(status.LevelWarning, fmt.Sprintf("answering failed: %v", err))
		c.sleep(ctx, c.opts.ErrorBackoff)
	}
	if rec.Answered {
		c.bump(func(s *status.Snapshot) { s.QuestionsAnswered++ })
	}

	c.setPhase(PhaseReading)
}

// advanceToNextBook exits the finished book and selects another. The
// completed counter only moves once the next book is actually open, so a
// failed exit cannot inflate it.
func (c *Controller) advanceToNextBook(ctx context.Context) error {
	title := ""
	if current := c.nav.Current(); current != nil {
		title = current.Title
	}
	c.report(status.LevelInfo, fmt.Sprintf("book completed: %s", title))
	c.setPhase(PhaseSelectingContent)

	if err := c.nav.ExitAndReselect(ctx); err != nil {
		c.report(status.LevelWarning, fmt.Sprintf("could not move to next book: %v", err))
		return err
	}

	c.bump(func(s *status.Snapshot) { s.BooksCompleted++ })
	c.noteBook()
	c.setPhase(PhaseReading)
	return nil
}

// cadence returns the next flip wait: interval plus uniform jitter.
func (c *Controller) cadence() time.Duration {
	if c.opts.Jitter <= 0 {
		return c.opts.FlipInterval
	}
	offset := time.Duration(c.rng.Int63n(int64(2*c.opts.Jitter))) - c.opts.Jitter
	return c.opts.FlipInterval + offset
}

// sleep waits for d in stop-granularity chunks. It returns false when the
// wait was interrupted by Stop or context cancellation.
func (c *Controller) sleep(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		chunk := c.opts.StopGranularity
		if remaining < chunk {
			chunk = remaining
		}
		select {
		case <-c.stopCh:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(chunk):
		}
	}
}

func (c *Controller) stopRequested(ctx context.Context) bool {
	select {
	case <-c.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// setPhase updates the state machine position and pushes a snapshot.
func (c *Controller) setPhase(phase Phase) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()
	c.push()
}

// bump applies a counter mutation under the lock and pushes a snapshot.
func (c *Controller) bump(mutate func(*status.Snapshot)) {
	c.mu.Lock()
	mutate(&c.snap)
	c.mu.Unlock()
	c.push()
}

// setNoProgress mirrors the loop's stall counter into the snapshot so the
// dashboard can show a developing stall.
func (c *Controller) setNoProgress(n int) {
	c.mu.Lock()
	changed := c.snap.NoProgressFlips != n
	c.snap.NoProgressFlips = n
	c.mu.Unlock()
	if changed {
		c.push()
	}
}

// noteBook records the currently open title.
func (c *Controller) noteBook() {
	title := ""
	if current := c.nav.Current(); current != nil {
		title = current.Title
	}
	c.mu.Lock()
	c.snap.Book = title
	c.mu.Unlock()
}

// push sends the current snapshot to the reporter.
func (c *Controller) push() {
	if c.reporter == nil {
		return
	}
	c.mu.Lock()
	snap := c.snap
	snap.State = stateFor(c.phase)
	c.mu.Unlock()
	c.reporter.Update(snap)
}

func stateFor(phase Phase) status.State {
	switch phase {
	case PhaseInitializing, PhaseAwaitingLogin:
		return status.StateStarting
	case PhaseStopped:
		return status.StateStopped
	default:
		return status.StateRunning
	}
}

// report sends a log line to the reporter and the file logger.
func (c *Controller) report(level status.Level, message string) {
	if c.reporter != nil {
		c.reporter.Log(level, message)
		return
	}
	if c.logger != nil {
		c.logger.Infof("%s", message)
	}
}

// finish marks the session stopped and emits the final summary. Runs on
// every exit path.
func (c *Controller) finish() {
	c.mu.Lock()
	c.phase = PhaseStopped
	snap := c.snap
	c.mu.Unlock()

	c.push()
	c.report(status.LevelInfo, fmt.Sprintf(
		"session ended: %d pages read, %d flips, %d books completed, %d/%d questions answered",
		snap.PagesRead, snap.TotalFlips, snap.BooksCompleted,
		snap.QuestionsAnswered, snap.QuestionsDetected))
}
