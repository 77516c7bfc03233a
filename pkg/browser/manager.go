package browser

import (
	"fmt"
	"io"
	"os"

	"github.com/playwright-community/playwright-go"

	"github.com/ifung-0/lightsail-auto/pkg/logging"
)

// Options configures the managed browser session.
type Options struct {
	// Headless controls whether Chromium runs without a visible window.
	Headless bool

	// StorageStatePath, when it points at an existing file, seeds the
	// browser context with previously captured authentication state.
	StorageStatePath string
}

// launchArgs harden the browser against the target site's automation and
// background-tab detection.
var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
}

// Manager owns the Playwright lifecycle and the single page used for the
// whole session.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *logging.Logger
	started bool
}

// NewManager creates an unstarted manager. logger may be nil.
func NewManager(logger *logging.Logger) *Manager {
	return &Manager{logger: logger}
}

// Start installs and runs Playwright, launches Chromium, and opens the
// session page. The returned DOM is the shared document handle.
func (m *Manager) Start(opts Options) (DOM, error) {
	if m.started {
		return nil, fmt.Errorf("browser manager already started")
	}

	// Discard the driver's own output so it does not interleave with ours.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	m.pw = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     launchArgs,
	})
	if err != nil {
		m.stopPlaywright()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	m.browser = browser

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1366, Height: 768},
	}
	if opts.StorageStatePath != "" {
		if _, statErr := os.Stat(opts.StorageStatePath); statErr == nil {
			contextOpts.StorageStatePath = playwright.String(opts.StorageStatePath)
			if m.logger != nil {
				m.logger.Infof("loaded stored authentication state from %s", opts.StorageStatePath)
			}
		}
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		m.stopPlaywright()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	m.context = context

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		m.stopPlaywright()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	m.page = page
	m.started = true

	return NewDOM(page), nil
}

// SaveStorageState persists the context's cookies and local storage so the
// next run can skip interactive login.
func (m *Manager) SaveStorageState(path string) error {
	if m.context == nil {
		return fmt.Errorf("browser manager not started")
	}
	if _, err := m.context.StorageState(path); err != nil {
		return fmt.Errorf("failed to save storage state: %w", err)
	}
	return nil
}

// Shutdown closes the page, context, and browser, and stops Playwright.
// Safe to call after a partial start.
func (m *Manager) Shutdown() error {
	if m.page != nil {
		_ = m.page.Close()
		m.page = nil
	}
	if m.context != nil {
		_ = m.context.Close()
		m.context = nil
	}
	if m.browser != nil {
		_ = m.browser.Close()
		m.browser = nil
	}
	m.started = false
	return m.stopPlaywright()
}

func (m *Manager) stopPlaywright() error {
	if m.pw == nil {
		return nil
	}
	err := m.pw.Stop()
	m.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
