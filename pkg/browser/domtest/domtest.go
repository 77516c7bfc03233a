// Package domtest provides in-memory fakes for the browser.DOM interfaces,
// used by navigation and question tests that must run without a live browser.
package domtest

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ifung-0/lightsail-auto/pkg/browser"
)

// FakeElement implements browser.Element from plain fields.
type FakeElement struct {
	Text       string
	Attributes map[string]string
	Hidden     bool // when true, IsVisible reports false
	Children   map[string][]*FakeElement
	Box        *browser.Box

	// EvalResults maps a JavaScript expression substring to its result.
	EvalResults map[string]interface{}

	// Recorded interactions.
	Clicks    int
	FillValue string
	ClickErr  error
}

var _ browser.Element = (*FakeElement)(nil)

func (e *FakeElement) InnerText() (string, error) {
	return e.Text, nil
}

func (e *FakeElement) GetAttribute(name string) (string, error) {
	return e.Attributes[name], nil
}

func (e *FakeElement) Click() error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	return nil
}

func (e *FakeElement) Fill(value string) error {
	e.FillValue = value
	return nil
}

func (e *FakeElement) IsVisible() (bool, error) {
	return !e.Hidden, nil
}

func (e *FakeElement) QuerySelector(selector string) (browser.Element, error) {
	children := e.Children[selector]
	if len(children) == 0 {
		return nil, nil
	}
	return children[0], nil
}

func (e *FakeElement) QuerySelectorAll(selector string) ([]browser.Element, error) {
	children := e.Children[selector]
	out := make([]browser.Element, 0, len(children))
	for _, c := range children {
		out = append(out, c)
	}
	return out, nil
}

func (e *FakeElement) Evaluate(expression string) (interface{}, error) {
	for key, result := range e.EvalResults {
		if strings.Contains(expression, key) {
			return result, nil
		}
	}
	return e.Text, nil
}

func (e *FakeElement) BoundingBox() (*browser.Box, error) {
	return e.Box, nil
}

// FakeFrame implements browser.Frame.
type FakeFrame struct {
	FrameURL    string
	Elements    map[string]*FakeElement
	EvalResults map[string]interface{}
}

var _ browser.Frame = (*FakeFrame)(nil)

func (f *FakeFrame) URL() string {
	return f.FrameURL
}

func (f *FakeFrame) QuerySelector(selector string) (browser.Element, error) {
	el, ok := f.Elements[selector]
	if !ok {
		return nil, nil
	}
	return el, nil
}

func (f *FakeFrame) Evaluate(expression string) (interface{}, error) {
	for key, result := range f.EvalResults {
		if strings.Contains(expression, key) {
			return result, nil
		}
	}
	return nil, nil
}

// FakeDOM implements browser.DOM over selector-keyed fixtures.
type FakeDOM struct {
	mu sync.Mutex

	// CurrentURL is returned by URL and updated by Goto.
	CurrentURL string

	// Elements maps selectors to matches, in document order.
	Elements map[string][]*FakeElement

	// ClickableSelectors lists selectors Click succeeds on.
	ClickableSelectors map[string]bool

	// EvalResults maps a JavaScript expression substring to its result.
	EvalResults map[string]interface{}

	FramesList []*FakeFrame

	// Recorded interactions.
	GotoURLs    []string
	Clicked     []string
	Filled      map[string]string
	Pressed     []string
	MouseMoves  int
	MouseClicks int
	Screenshots []string
	InitScripts []string

	// GotoErr, when set, is returned by every Goto.
	GotoErr error
}

var _ browser.DOM = (*FakeDOM)(nil)

// NewFakeDOM creates an empty fake document at the given URL.
func NewFakeDOM(url string) *FakeDOM {
	return &FakeDOM{
		CurrentURL:         url,
		Elements:           map[string][]*FakeElement{},
		ClickableSelectors: map[string]bool{},
		EvalResults:        map[string]interface{}{},
		Filled:             map[string]string{},
	}
}

func (d *FakeDOM) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.CurrentURL
}

func (d *FakeDOM) Goto(url string, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.GotoErr != nil {
		return d.GotoErr
	}
	d.GotoURLs = append(d.GotoURLs, url)
	d.CurrentURL = url
	return nil
}

func (d *FakeDOM) QuerySelector(selector string) (browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	matches := d.Elements[selector]
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func (d *FakeDOM) QuerySelectorAll(selector string) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	matches := d.Elements[selector]
	out := make([]browser.Element, 0, len(matches))
	for _, m := range matches {
		out = append(out, m)
	}
	return out, nil
}

func (d *FakeDOM) Click(selector string, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ClickableSelectors[selector] {
		return fmt.Errorf("no element matching %q", selector)
	}
	d.Clicked = append(d.Clicked, selector)
	return nil
}

func (d *FakeDOM) Fill(selector, value string, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Elements[selector]) == 0 {
		return fmt.Errorf("no element matching %q", selector)
	}
	d.Filled[selector] = value
	return nil
}

func (d *FakeDOM) Press(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Pressed = append(d.Pressed, key)
	return nil
}

func (d *FakeDOM) Evaluate(expression string) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, result := range d.EvalResults {
		if strings.Contains(expression, key) {
			return result, nil
		}
	}
	return nil, nil
}

func (d *FakeDOM) Frames() []browser.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]browser.Frame, 0, len(d.FramesList))
	for _, f := range d.FramesList {
		out = append(out, f)
	}
	return out
}

// MouseMoveCount returns the recorded move count under the lock, for tests
// that poll while another goroutine drives the fake.
func (d *FakeDOM) MouseMoveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.MouseMoves
}

func (d *FakeDOM) MouseMove(x, y float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.MouseMoves++
	return nil
}

func (d *FakeDOM) MouseClick(x, y float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.MouseClicks++
	return nil
}

func (d *FakeDOM) Screenshot(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Screenshots = append(d.Screenshots, path)
	return nil
}

func (d *FakeDOM) AddInitScript(script string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.InitScripts = append(d.InitScripts, script)
	return nil
}
