// Package status carries session progress outward to the dashboard.
//
// The session controller owns its counters and pushes copies through the
// Reporter interface; readers (the dashboard) only ever see snapshots. This
// replaces the ad hoc shared stats map of earlier bot versions with one
// explicit hand-off point.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/ifung-0/lightsail-auto/pkg/logging"
)

// State is the externally visible run state.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
)

// Snapshot is a point-in-time copy of session progress.
type Snapshot struct {
	State             State     `json:"status"`
	Book              string    `json:"book"`
	PagesRead         int       `json:"pages_read"`
	TotalFlips        int       `json:"total_flips"`
	QuestionsDetected int       `json:"questions_detected"`
	QuestionsAnswered int       `json:"questions_answered"`
	BooksCompleted    int       `json:"books_completed"`
	NoProgressFlips   int       `json:"no_progress_flips"`
	StartedAt         time.Time `json:"started_at"`
	Duration          string    `json:"session_duration"`
}

// Level tags a log entry for the dashboard.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Entry is one timestamped dashboard log line.
type Entry struct {
	Time    string `json:"time"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Reporter receives progress updates and log lines from the controller.
type Reporter interface {
	Update(snap Snapshot)
	Log(level Level, message string)
}

// maxEntries bounds the rolling log kept for the dashboard.
const maxEntries = 50

// Hub is the concrete Reporter backing the dashboard. It keeps the latest
// snapshot and a bounded rolling log, and mirrors log lines to the run's
// file logger when one is attached.
type Hub struct {
	mu      sync.RWMutex
	snap    Snapshot
	entries []Entry
	logger  *logging.Logger
}

// NewHub creates a Hub. logger may be nil.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		snap:   Snapshot{State: StateStarting},
		logger: logger,
	}
}

// Update stores the latest snapshot, deriving the duration field.
func (h *Hub) Update(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !snap.StartedAt.IsZero() {
		snap.Duration = formatDuration(time.Since(snap.StartedAt))
	}
	h.snap = snap
}

// Log appends an entry to the rolling log.
func (h *Hub) Log(level Level, message string) {
	h.mu.Lock()
	h.entries = append(h.entries, Entry{
		Time:    time.Now().Format("15:04:05"),
		Level:   level,
		Message: message,
	})
	if len(h.entries) > maxEntries {
		h.entries = h.entries[len(h.entries)-maxEntries:]
	}
	h.mu.Unlock()

	if h.logger != nil {
		switch level {
		case LevelWarning:
			h.logger.Warnf("%s", message)
		case LevelError:
			h.logger.Errorf("%s", message)
		default:
			h.logger.Infof("%s", message)
		}
	}
}

// Snapshot returns a copy of the latest snapshot.
func (h *Hub) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snap := h.snap
	if !snap.StartedAt.IsZero() {
		snap.Duration = formatDuration(time.Since(snap.StartedAt))
	}
	return snap
}

// Entries returns a copy of the rolling log, oldest first.
func (h *Hub) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	minutes := total / 60
	seconds := total % 60
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm %ds", minutes/60, minutes%60, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
