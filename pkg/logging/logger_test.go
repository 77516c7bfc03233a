package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points the package at a temporary log directory and resets
// the global run state.
func setupTestDir(t *testing.T) {
	t.Helper()

	tempDir := t.TempDir()

	origLogDir := logDir
	origInitErr := initErr
	origInitOnce := initOnce
	origRunID := runID
	origRunIDOnce := runIDOnce

	logDir = tempDir
	initErr = nil
	initOnce = sync.Once{}
	initOnce.Do(func() {}) // mark initialized so logDir is not re-resolved
	runID = ""
	runIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir = origLogDir
		initErr = origInitErr
		initOnce = origInitOnce
		runID = origRunID
		runIDOnce = origRunIDOnce
	})
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("controller")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.component != "controller" {
		t.Errorf("Expected component 'controller', got %q", logger.component)
	}
	if logger.RunID() == "" {
		t.Error("Expected non-empty run ID")
	}
	if !strings.HasSuffix(logger.LogPath(), ".log") {
		t.Errorf("Expected .log file, got %q", logger.LogPath())
	}
}

func TestLoggerWritesLevels(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("navigator")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infof("selected book %q", "The Lighthouse Keeper")
	logger.Warnf("flip strategy %d failed", 2)
	logger.Errorf("exit button missing")
	logger.Debugf("frame count: %d", 3)
	logger.Close()

	data, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"[navigator] [INFO] selected book \"The Lighthouse Keeper\"",
		"[navigator] [WARN] flip strategy 2 failed",
		"[navigator] [ERROR] exit button missing",
		"[navigator] [DEBUG] frame count: 3",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Log file missing entry %q\nGot:\n%s", want, content)
		}
	}
}

func TestLoggersShareRunFile(t *testing.T) {
	setupTestDir(t)

	a, err := NewLogger("session")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer a.Close()

	b, err := NewLogger("question")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer b.Close()

	if a.LogPath() != b.LogPath() {
		t.Errorf("Expected shared log file, got %q and %q", a.LogPath(), b.LogPath())
	}
	if a.RunID() != b.RunID() {
		t.Errorf("Expected shared run ID, got %q and %q", a.RunID(), b.RunID())
	}
}

func TestFallbackLogger(t *testing.T) {
	logger := newFallbackLogger("browser", os.ErrPermission)
	defer logger.Close()

	if logger.file != nil {
		t.Error("Fallback logger should not have a file")
	}
	if logger.LogPath() != "" {
		t.Errorf("Fallback logger should have empty path, got %q", logger.LogPath())
	}
	// Must not panic.
	logger.Infof("still logging")
}

func TestDirectory(t *testing.T) {
	setupTestDir(t)

	dir, err := Directory()
	if err != nil {
		t.Fatalf("Directory() error: %v", err)
	}
	if _, err := os.Stat(filepath.Clean(dir)); err != nil {
		t.Errorf("Log directory not usable: %v", err)
	}
}
