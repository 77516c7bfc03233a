package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads settings from the YAML file at path, applying defaults for a
// missing file and migrating a legacy config.json sitting next to it exactly
// once. The returned Settings are validated.
func Load(path string) (Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// No YAML file yet. A legacy config.json from the Python-era bot may
		// still exist; migrate it into the new schema and persist the result.
		legacyPath := filepath.Join(filepath.Dir(path), "config.json")
		migrated, found, migErr := migrateLegacy(legacyPath)
		if migErr != nil {
			return Settings{}, migErr
		}
		if found {
			settings = migrated
			if err := Save(path, settings); err != nil {
				return Settings{}, fmt.Errorf("failed to persist migrated settings: %w", err)
			}
		}
	default:
		return Settings{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	settings.Version = CurrentVersion
	return settings, nil
}

// Save writes settings to path as YAML using a temp-file-and-rename so a
// crash never leaves a truncated file behind.
func Save(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp settings file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp settings file: %w", err)
	}
	return nil
}

// legacyConfig mirrors the loosely-typed config.json of the original bot.
type legacyConfig struct {
	Username             string `json:"username"`
	Password             string `json:"password"`
	Headless             bool   `json:"headless"`
	PageFlipInterval     int    `json:"page_flip_interval"`
	AutoAnswerQuestions  *bool  `json:"auto_answer_questions"`
	PreferredBookTitle   string `json:"preferred_book_title"`
	ScreenshotOnQuestion *bool  `json:"screenshot_on_question"`
	OpenRouterAPIKey     string `json:"openrouter_api_key"`
	OpenRouterModel      string `json:"openrouter_model"`
	OpenRouterAPIURL     string `json:"openrouter_api_url"`
}

// migrateLegacy maps a legacy config.json onto the current schema. The second
// return value reports whether a legacy file was found.
func migrateLegacy(path string) (Settings, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("failed to read legacy config: %w", err)
	}

	var legacy legacyConfig
	if err := json.Unmarshal(data, &legacy); err != nil {
		return Settings{}, false, fmt.Errorf("failed to parse legacy config %s: %w", path, err)
	}

	settings := Defaults()
	settings.Username = legacy.Username
	settings.Password = legacy.Password
	settings.Headless = legacy.Headless
	if legacy.PageFlipInterval > 0 {
		settings.FlipInterval = legacy.PageFlipInterval
	}
	if legacy.AutoAnswerQuestions != nil {
		settings.AutoAnswer = *legacy.AutoAnswerQuestions
	}
	if legacy.ScreenshotOnQuestion != nil {
		settings.ScreenshotOnQuestion = *legacy.ScreenshotOnQuestion
	}
	settings.PreferredBookTitle = legacy.PreferredBookTitle
	settings.Answer.APIKey = legacy.OpenRouterAPIKey
	if legacy.OpenRouterModel != "" {
		settings.Answer.Model = legacy.OpenRouterModel
	}
	if legacy.OpenRouterAPIURL != "" {
		// The legacy key held the full completions URL; the new schema keeps
		// only the API root.
		settings.Answer.BaseURL = strings.TrimSuffix(legacy.OpenRouterAPIURL, "/chat/completions")
	}

	return settings, true, nil
}
