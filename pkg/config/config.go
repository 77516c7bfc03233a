// Package config loads and validates the lightsail-auto settings file.
//
// Settings are stored as versioned YAML. Legacy config.json files written by
// earlier versions of the bot are migrated once, before anything else reads
// the settings. The controller receives the resulting Settings value
// read-only; nothing mutates it after startup.
package config

import (
	"fmt"
)

// CurrentVersion is the settings schema version written by this build.
const CurrentVersion = 2

// FlipPolicy selects the page-flip direction behavior of the reading loop.
type FlipPolicy string

const (
	// FlipForward always flips forward. Used for genuine reading progress.
	FlipForward FlipPolicy = "forward"

	// FlipAlternate alternates forward and backward flips, holding position
	// while still registering reading activity.
	FlipAlternate FlipPolicy = "alternate"
)

// Settings is the complete configuration surface consumed by the controller.
type Settings struct {
	Version int `yaml:"version"`

	// Target site.
	BaseURL  string `yaml:"base_url"`
	Headless bool   `yaml:"headless"`

	// Credentials are optional; when absent the session waits for a manual
	// (e.g. Google) sign-in in the opened browser.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Reading loop timing, in seconds.
	FlipInterval  int        `yaml:"flip_interval"`
	JitterSeconds int        `yaml:"jitter_seconds"`
	FlipPolicy    FlipPolicy `yaml:"flip_policy"`

	// Book selection.
	PreferredBookTitle string `yaml:"preferred_book_title"`

	// Question handling.
	AutoAnswer           bool `yaml:"auto_answer"`
	ScreenshotOnQuestion bool `yaml:"screenshot_on_question"`

	// Answer backend (OpenAI-compatible chat completions endpoint).
	Answer AnswerSettings `yaml:"answer"`

	// Dashboard bind address, e.g. "127.0.0.1:8765". Empty disables it.
	DashboardAddr string `yaml:"dashboard_addr"`

	// StorageStatePath is where authenticated browser state is persisted.
	StorageStatePath string `yaml:"storage_state_path"`

	// HistoryPath is the SQLite file recording session summaries.
	// Empty disables history.
	HistoryPath string `yaml:"history_path"`
}

// AnswerSettings configures the AI answer backend. An empty APIKey disables
// the backend entirely; question answering then uses deterministic fallbacks.
type AnswerSettings struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Settings {
	return Settings{
		Version:              CurrentVersion,
		BaseURL:              "https://lightsailed.com/school/literacy/",
		Headless:             false,
		FlipInterval:         40,
		JitterSeconds:        5,
		FlipPolicy:           FlipForward,
		AutoAnswer:           true,
		ScreenshotOnQuestion: true,
		Answer: AnswerSettings{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "qwen/qwen-2.5-coder-32b-instruct:free",
		},
		DashboardAddr:    "127.0.0.1:8765",
		StorageStatePath: "storage_state.json",
		HistoryPath:      "history.db",
	}
}

// Validate checks settings invariants. Zero-value timing fields are filled
// from defaults rather than rejected, so a sparse file remains usable.
func (s *Settings) Validate() error {
	defaults := Defaults()

	if s.BaseURL == "" {
		s.BaseURL = defaults.BaseURL
	}
	if s.FlipInterval <= 0 {
		s.FlipInterval = defaults.FlipInterval
	}
	if s.JitterSeconds < 0 {
		return fmt.Errorf("jitter_seconds must not be negative, got %d", s.JitterSeconds)
	}
	if s.JitterSeconds >= s.FlipInterval {
		return fmt.Errorf("jitter_seconds (%d) must be smaller than flip_interval (%d)",
			s.JitterSeconds, s.FlipInterval)
	}
	switch s.FlipPolicy {
	case FlipForward, FlipAlternate:
	case "":
		s.FlipPolicy = FlipForward
	default:
		return fmt.Errorf("unknown flip_policy %q", s.FlipPolicy)
	}
	if s.Answer.BaseURL == "" {
		s.Answer.BaseURL = defaults.Answer.BaseURL
	}
	if s.Answer.Model == "" {
		s.Answer.Model = defaults.Answer.Model
	}
	if s.StorageStatePath == "" {
		s.StorageStatePath = defaults.StorageStatePath
	}
	return nil
}
