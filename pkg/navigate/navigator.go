// Package navigate selects books from the LightSail library, drives page
// flips, and handles content completion. All lookups go through ranked
// selector strategies because the target UI renames and restyles its
// controls between releases.
package navigate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/ifung-0/lightsail-auto/pkg/browser"
	"github.com/ifung-0/lightsail-auto/pkg/logging"
)

// SelectionTier records how a book was found.
type SelectionTier string

const (
	// TierPowerText means the candidate carried the Power Text icon, the
	// one marker unique to readable books.
	TierPowerText SelectionTier = "power-text"

	// TierLibrary means the candidate came from a library section scan.
	TierLibrary SelectionTier = "library"

	// TierLastResort means the candidate survived the unfiltered button scan.
	TierLastResort SelectionTier = "last-resort"
)

// ContentItem is the currently selected book.
type ContentItem struct {
	Title string
	Tier  SelectionTier
}

// ErrNoBook is returned when every selection tier comes up empty.
var ErrNoBook = errors.New("no suitable book found")

// Selectors for the library and reader surfaces. Kept in one place because
// they break together when the site updates.
const (
	bookButtonSelector  = `button.btn.w-100.border-0.image-wrapper`
	powerTextMarker     = `img[src*="power-text.svg"]`
	coverImageSelector  = `img[src*=".jpg"], img[src*=".png"], img[alt*="book" i]`
	progressSelector    = `span.reader-progress-text`
	nextPageSelector    = `button[aria-label="Go To Next Page"]`
	readPrimarySelector = `button.btn.btn-primary`
)

var nextPageSelectors = []string{
	nextPageSelector,
	`button.reader-button-next.btn`,
	`button[aria-label="Next page"]`,
	`button:has-text("Next")`,
}

var prevPageSelectors = []string{
	`button[aria-label="Go To Previous Page"]`,
	`button.reader-button-prev.btn`,
	`button[aria-label="Previous page"]`,
	`button:has-text("Previous")`,
}

var exitSelectors = []string{
	`button.reader-exit-btn`,
	`button:has-text("Exit")`,
	`button:has-text("Close")`,
}

var confirmExitSelectors = []string{
	`button:has-text("Yes, I want to exit")`,
	`button.btn-primary:has-text("Exit")`,
	`button:has-text("Yes")`,
}

// assignmentKeywords mark a button as an assignment rather than a book.
var assignmentKeywords = []string{
	"retake", "clozes", "assignment", "quiz", "test",
	"start", "resume", "submit", "retry", "current assignment",
}

// assignmentSections mark an enclosing area as the assignment surface.
var assignmentSections = []string{
	"current assignment", "assignments", "to-do", "todo",
}

// sectionTextJS extracts the text of a candidate's enclosing section so
// books listed under "Current Assignments" can be rejected.
const sectionTextJS = `el => {
	const sec = el.closest('section, [class*="assignment" i], [class*="library" i], [class*="shelf" i]');
	return sec ? sec.innerText : '';
}`

const (
	// titleMaxLen truncates stored titles for status display.
	titleMaxLen = 50

	// minLibraryTitleLen rejects non-title buttons in the library tier.
	minLibraryTitleLen = 10

	// minLastResortTitleLen is stricter because the last-resort scan has no
	// other signal to go on.
	minLastResortTitleLen = 15
)

// Options configures a Navigator.
type Options struct {
	// LibraryURL is the content-library entry point used as the exit
	// fallback.
	LibraryURL string

	// PreferredTitle is an optional glob matched case-insensitively against
	// candidate titles before the ranked tiers run.
	PreferredTitle string

	// SettleDelay is the pause after clicks that trigger page transitions.
	SettleDelay time.Duration
}

// Navigator owns book selection, flips, and completion for one session.
type Navigator struct {
	dom         browser.DOM
	logger      *logging.Logger
	libraryURL  string
	preferred   glob.Glob
	settleDelay time.Duration

	current   *ContentItem
	lastTitle string
}

// New creates a Navigator over the shared document handle. logger may be nil.
func New(dom browser.DOM, logger *logging.Logger, opts Options) (*Navigator, error) {
	n := &Navigator{
		dom:         dom,
		logger:      logger,
		libraryURL:  opts.LibraryURL,
		settleDelay: opts.SettleDelay,
	}
	if n.settleDelay == 0 {
		n.settleDelay = 2 * time.Second
	}
	if opts.PreferredTitle != "" {
		g, err := glob.Compile(strings.ToLower(opts.PreferredTitle))
		if err != nil {
			return nil, fmt.Errorf("invalid preferred_book_title pattern: %w", err)
		}
		n.preferred = g
	}
	return n, nil
}

// Current returns the selected book, or nil before the first selection.
func (n *Navigator) Current() *ContentItem {
	return n.current
}

// SelectContent picks a book using the ranked tiers and enters the reader.
// forExisting marks a reselection after completing a book, which excludes
// the previous title from the last-resort scan.
func (n *Navigator) SelectContent(ctx context.Context, forExisting bool) error {
	candidates, err := n.dom.QuerySelectorAll(bookButtonSelector)
	if err != nil {
		return fmt.Errorf("book candidate query failed: %w", err)
	}

	if pick := n.pickPreferred(candidates); pick != nil {
		return n.open(ctx, pick)
	}

	tiers := []struct {
		tier SelectionTier
		pick func([]browser.Element) *candidate
	}{
		{TierPowerText, n.pickPowerText},
		{TierLibrary, n.pickLibrary},
		{TierLastResort, n.pickLastResort},
	}

	for _, t := range tiers {
		if pick := t.pick(candidates); pick != nil {
			pick.tier = t.tier
			return n.open(ctx, pick)
		}
	}

	n.logf(warnLevel, "no suitable books found among %d candidates", len(candidates))
	return ErrNoBook
}

type candidate struct {
	element browser.Element
	title   string
	tier    SelectionTier
}

// pickPreferred honors the configured title glob before any ranked tier, but
// still refuses assignment-like candidates.
func (n *Navigator) pickPreferred(candidates []browser.Element) *candidate {
	if n.preferred == nil {
		return nil
	}
	for _, el := range candidates {
		title := n.candidateTitle(el)
		if title == "" || isAssignmentLike(title) {
			continue
		}
		if n.preferred.Match(strings.ToLower(title)) {
			n.logf(infoLevel, "preferred title matched: %s", truncateTitle(title))
			return &candidate{element: el, title: title, tier: TierPowerText}
		}
	}
	return nil
}

// pickPowerText accepts only candidates carrying the Power Text marker.
func (n *Navigator) pickPowerText(candidates []browser.Element) *candidate {
	for _, el := range candidates {
		marker, err := el.QuerySelector(powerTextMarker)
		if err != nil || marker == nil {
			continue
		}
		title := n.candidateTitle(el)
		if title == "" || isAssignmentLike(title) {
			n.logf(infoLevel, "skipping assignment: %s", truncateTitle(title))
			continue
		}
		if n.inAssignmentSection(el) {
			n.logf(infoLevel, "skipping %s - in assignment section", truncateTitle(title))
			continue
		}
		return &candidate{element: el, title: title}
	}
	return nil
}

// pickLibrary accepts candidates with a cover image and a plausible title.
func (n *Navigator) pickLibrary(candidates []browser.Element) *candidate {
	for _, el := range candidates {
		title := n.candidateTitle(el)
		if len(title) < minLibraryTitleLen || isAssignmentLike(title) {
			continue
		}
		if n.inAssignmentSection(el) {
			continue
		}
		cover, err := el.QuerySelector(coverImageSelector)
		if err != nil || cover == nil {
			continue
		}
		return &candidate{element: el, title: title}
	}
	return nil
}

// pickLastResort accepts the first sufficiently titled candidate that is not
// an assignment and not the book just finished.
func (n *Navigator) pickLastResort(candidates []browser.Element) *candidate {
	for _, el := range candidates {
		title := n.candidateTitle(el)
		if len(title) < minLastResortTitleLen || isAssignmentLike(title) {
			continue
		}
		if n.lastTitle != "" && truncateTitle(title) == n.lastTitle {
			continue
		}
		if n.inAssignmentSection(el) {
			continue
		}
		return &candidate{element: el, title: title}
	}
	return nil
}

// open clicks the chosen candidate and enters the reader.
func (n *Navigator) open(ctx context.Context, pick *candidate) error {
	if err := pick.element.Click(); err != nil {
		return fmt.Errorf("failed to open %q: %w", truncateTitle(pick.title), err)
	}
	n.sleep(ctx, n.settleDelay)

	if err := n.EnterReader(); err != nil {
		n.logf(warnLevel, "could not confirm reader entry for %s: %v", truncateTitle(pick.title), err)
	}

	title := truncateTitle(pick.title)
	n.current = &ContentItem{Title: title, Tier: pick.tier}
	n.logf(infoLevel, "selected book: %s (%s tier)", title, pick.tier)
	return nil
}

// EnterReader clicks through to read mode: exact primary-button text first,
// attribute-based matching next, keyboard focus-and-activate last.
func (n *Navigator) EnterReader() error {
	if strings.Contains(strings.ToLower(n.dom.URL()), "reader") {
		return nil
	}

	err := browser.Attempt("click-read", n.logger,
		browser.Strategy{Name: "primary-button-text", Run: n.clickReadPrimary},
		browser.Strategy{Name: "has-text-read", Run: func() error {
			return n.dom.Click(`button:has-text("Read")`, 3*time.Second)
		}},
		browser.Strategy{Name: "keyboard-activate", Run: func() error {
			if err := n.dom.Press("Tab"); err != nil {
				return err
			}
			return n.dom.Press("Enter")
		}},
	)
	if err != nil {
		return err
	}

	if !strings.Contains(strings.ToLower(n.dom.URL()), "reader") {
		n.logf(warnLevel, "read action clicked but URL is %s", n.dom.URL())
	}
	return nil
}

// clickReadPrimary finds the "Read Book" primary button and clicks its
// bounding-box center, which survives overlay wrappers that swallow normal
// element clicks.
func (n *Navigator) clickReadPrimary() error {
	buttons, err := n.dom.QuerySelectorAll(readPrimarySelector)
	if err != nil {
		return err
	}
	for _, btn := range buttons {
		text, err := btn.InnerText()
		if err != nil || !strings.Contains(text, "Read") {
			continue
		}
		box, err := btn.BoundingBox()
		if err == nil && box != nil {
			return n.dom.MouseClick(box.X+box.Width/2, box.Y+box.Height/2)
		}
		return btn.Click()
	}
	return fmt.Errorf("no primary button with Read text")
}

// IsComplete reports whether the current book is finished: the progress
// indicator reads 100% AND the next-page control is gone. Either signal
// alone is not trusted; a saturated indicator shows up before pagination
// settles, and the next button disappears during transient UI errors.
func (n *Navigator) IsComplete() bool {
	progressFull := false
	if el, err := n.dom.QuerySelector(progressSelector); err == nil && el != nil {
		if text, err := el.InnerText(); err == nil && strings.TrimSpace(text) == "100%" {
			progressFull = true
		}
	}
	if !progressFull {
		return false
	}

	next, err := n.dom.QuerySelector(nextPageSelector)
	if err != nil {
		return false
	}
	return next == nil
}

// Flip advances (or reverses) one page: ranked button selectors first, then
// the keyboard arrow.
func (n *Navigator) Flip(forward bool) error {
	selectors := nextPageSelectors
	key := "ArrowRight"
	if !forward {
		selectors = prevPageSelectors
		key = "ArrowLeft"
	}

	if _, err := browser.ClickAny(n.dom, "flip", n.logger, selectors, 3*time.Second); err == nil {
		return nil
	}
	if err := n.dom.Press(key); err != nil {
		return &browser.TransientUIError{Op: "flip", Strategies: append(selectors[:len(selectors):len(selectors)], "keyboard-"+key), Last: err}
	}
	return nil
}

// ExitAndReselect leaves the finished book and selects the next one. Any
// step failure falls back to navigating straight to the library URL before
// one final selection attempt.
func (n *Navigator) ExitAndReselect(ctx context.Context) error {
	if n.current != nil {
		n.lastTitle = n.current.Title
	}

	exitErr := n.exitReader(ctx)
	if exitErr == nil {
		n.sleep(ctx, n.settleDelay)
		if err := n.SelectContent(ctx, true); err == nil {
			return nil
		}
	} else {
		n.logf(warnLevel, "exit flow failed: %v", exitErr)
	}

	// Direct navigation fallback, then one more selection attempt.
	if n.libraryURL != "" {
		if err := n.dom.Goto(n.libraryURL, time.Minute); err != nil {
			return fmt.Errorf("library fallback navigation failed: %w", err)
		}
		n.sleep(ctx, n.settleDelay)
	}
	return n.SelectContent(ctx, true)
}

func (n *Navigator) exitReader(ctx context.Context) error {
	if _, err := browser.ClickAny(n.dom, "exit-reader", n.logger, exitSelectors, 3*time.Second); err != nil {
		return err
	}
	n.sleep(ctx, n.settleDelay)

	// The confirm dialog does not always appear; its absence is fine.
	if _, err := browser.ClickAny(n.dom, "confirm-exit", n.logger, confirmExitSelectors, 3*time.Second); err != nil {
		n.logf(infoLevel, "no exit confirmation dialog found")
	}
	return nil
}

// candidateTitle returns a candidate's visible text.
func (n *Navigator) candidateTitle(el browser.Element) string {
	text, err := el.InnerText()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// inAssignmentSection reports whether the candidate sits inside an
// assignment area, judged by the enclosing section's text.
func (n *Navigator) inAssignmentSection(el browser.Element) bool {
	result, err := el.Evaluate(sectionTextJS)
	if err != nil {
		return false
	}
	text, ok := result.(string)
	if !ok {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range assignmentSections {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isAssignmentLike reports whether visible text matches the assignment
// keyword set.
func isAssignmentLike(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range assignmentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func truncateTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) > titleMaxLen {
		return title[:titleMaxLen]
	}
	return title
}

// sleep waits for d unless the context is cancelled first.
func (n *Navigator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

type logLevel int

const (
	infoLevel logLevel = iota
	warnLevel
)

func (n *Navigator) logf(level logLevel, format string, v ...interface{}) {
	if n.logger == nil {
		return
	}
	if level == warnLevel {
		n.logger.Warnf(format, v...)
		return
	}
	n.logger.Infof(format, v...)
}
