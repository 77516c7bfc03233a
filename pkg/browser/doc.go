// Package browser owns the remote document handle.
//
// It wraps a single Playwright Chromium page behind narrow DOM, Element, and
// Frame interfaces so the navigation and question logic can be exercised
// against in-memory fakes, and provides the ranked-strategy runner used for
// every interaction with the frequently-changing target UI.
//
// The page is shared between the session controller's loop and the activity
// simulator. Ordering is cooperative: each command is issued as one atomic
// step and callers yield between steps, so no lock is held around the handle.
package browser
