package browser

import (
	"time"
)

// Box is an element's bounding box in page coordinates.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Element is a handle to one DOM element.
//
// Lookups that find nothing return (nil, nil); callers must check for a nil
// Element before use.
type Element interface {
	// InnerText returns the rendered text of the element.
	InnerText() (string, error)

	// GetAttribute returns the value of the named attribute, or "" when absent.
	GetAttribute(name string) (string, error)

	// Click clicks the element.
	Click() error

	// Fill sets the value of an input element.
	Fill(value string) error

	// IsVisible reports whether the element has a non-empty layout box.
	IsVisible() (bool, error)

	// QuerySelector finds the first descendant matching the selector.
	QuerySelector(selector string) (Element, error)

	// QuerySelectorAll finds all descendants matching the selector.
	QuerySelectorAll(selector string) ([]Element, error)

	// Evaluate runs a JavaScript expression with the element bound as the
	// first argument.
	Evaluate(expression string) (interface{}, error)

	// BoundingBox returns the element's box, or nil when detached.
	BoundingBox() (*Box, error)
}

// Frame is a nested browsing context (iframe). Question content is often
// rendered inside one.
type Frame interface {
	URL() string
	QuerySelector(selector string) (Element, error)
	Evaluate(expression string) (interface{}, error)
}

// DOM is the document handle shared by the controller, the navigator, the
// question resolver, and the activity simulator. Each method is one atomic
// remote command.
type DOM interface {
	// URL returns the page's current URL.
	URL() string

	// Goto navigates to url, waiting up to timeout for the main document.
	Goto(url string, timeout time.Duration) error

	// QuerySelector finds the first element matching the selector, or nil.
	QuerySelector(selector string) (Element, error)

	// QuerySelectorAll finds all elements matching the selector.
	QuerySelectorAll(selector string) ([]Element, error)

	// Click clicks the first element matching the selector, failing after
	// timeout if no such element becomes actionable.
	Click(selector string, timeout time.Duration) error

	// Fill fills the first input matching the selector.
	Fill(selector, value string, timeout time.Duration) error

	// Press sends a keyboard key, e.g. "ArrowRight", "Tab", "Enter".
	Press(key string) error

	// Evaluate runs a JavaScript expression in the page.
	Evaluate(expression string) (interface{}, error)

	// Frames returns all frames attached to the page, including the main one.
	Frames() []Frame

	// MouseMove moves the pointer to page coordinates.
	MouseMove(x, y float64) error

	// MouseClick clicks at page coordinates.
	MouseClick(x, y float64) error

	// Screenshot writes a full-page screenshot to path.
	Screenshot(path string) error

	// AddInitScript registers JavaScript evaluated in every new document
	// before any of the page's own scripts run.
	AddInitScript(script string) error
}
