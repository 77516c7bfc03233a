package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// pageDOM adapts a Playwright page to the DOM interface.
type pageDOM struct {
	page playwright.Page
}

// NewDOM wraps a Playwright page in the DOM interface.
func NewDOM(page playwright.Page) DOM {
	return &pageDOM{page: page}
}

func (d *pageDOM) URL() string {
	return d.page.URL()
}

func (d *pageDOM) Goto(url string, timeout time.Duration) error {
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (d *pageDOM) QuerySelector(selector string) (Element, error) {
	handle, err := d.page.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &elementHandle{handle: handle}, nil
}

func (d *pageDOM) QuerySelectorAll(selector string) ([]Element, error) {
	handles, err := d.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &elementHandle{handle: h})
	}
	return elements, nil
}

func (d *pageDOM) Click(selector string, timeout time.Duration) error {
	return d.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (d *pageDOM) Fill(selector, value string, timeout time.Duration) error {
	return d.page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (d *pageDOM) Press(key string) error {
	return d.page.Keyboard().Press(key)
}

func (d *pageDOM) Evaluate(expression string) (interface{}, error) {
	return d.page.Evaluate(expression)
}

func (d *pageDOM) Frames() []Frame {
	pwFrames := d.page.Frames()
	frames := make([]Frame, 0, len(pwFrames))
	for _, f := range pwFrames {
		frames = append(frames, &frameAdapter{frame: f})
	}
	return frames
}

func (d *pageDOM) MouseMove(x, y float64) error {
	return d.page.Mouse().Move(x, y)
}

func (d *pageDOM) MouseClick(x, y float64) error {
	return d.page.Mouse().Click(x, y)
}

func (d *pageDOM) Screenshot(path string) error {
	_, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	return err
}

func (d *pageDOM) AddInitScript(script string) error {
	return d.page.AddInitScript(playwright.Script{Content: playwright.String(script)})
}

// elementHandle adapts a Playwright element handle to the Element interface.
type elementHandle struct {
	handle playwright.ElementHandle
}

func (e *elementHandle) InnerText() (string, error) {
	return e.handle.InnerText()
}

func (e *elementHandle) GetAttribute(name string) (string, error) {
	return e.handle.GetAttribute(name)
}

func (e *elementHandle) Click() error {
	return e.handle.Click()
}

func (e *elementHandle) Fill(value string) error {
	return e.handle.Fill(value)
}

func (e *elementHandle) IsVisible() (bool, error) {
	return e.handle.IsVisible()
}

func (e *elementHandle) QuerySelector(selector string) (Element, error) {
	handle, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &elementHandle{handle: handle}, nil
}

func (e *elementHandle) QuerySelectorAll(selector string) ([]Element, error) {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &elementHandle{handle: h})
	}
	return elements, nil
}

func (e *elementHandle) Evaluate(expression string) (interface{}, error) {
	return e.handle.Evaluate(expression)
}

func (e *elementHandle) BoundingBox() (*Box, error) {
	rect, err := e.handle.BoundingBox()
	if err != nil {
		return nil, err
	}
	if rect == nil {
		return nil, nil
	}
	return &Box{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}, nil
}

// frameAdapter adapts a Playwright frame to the Frame interface.
type frameAdapter struct {
	frame playwright.Frame
}

func (f *frameAdapter) URL() string {
	return f.frame.URL()
}

func (f *frameAdapter) QuerySelector(selector string) (Element, error) {
	handle, err := f.frame.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &elementHandle{handle: handle}, nil
}

func (f *frameAdapter) Evaluate(expression string) (interface{}, error) {
	return f.frame.Evaluate(expression)
}
