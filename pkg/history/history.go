// Package history persists finished-session summaries to a local SQLite
// database so runs can be reviewed after the fact from the dashboard.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ifung-0/lightsail-auto/pkg/status"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                 TEXT PRIMARY KEY,
	started_at         TEXT NOT NULL,
	ended_at           TEXT NOT NULL,
	book               TEXT NOT NULL,
	pages_read         INTEGER NOT NULL,
	total_flips        INTEGER NOT NULL,
	questions_detected INTEGER NOT NULL,
	questions_answered INTEGER NOT NULL,
	books_completed    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions (started_at);
`

// Session is one recorded run.
type Session struct {
	ID                string    `json:"id"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at"`
	Book              string    `json:"book"`
	PagesRead         int       `json:"pages_read"`
	TotalFlips        int       `json:"total_flips"`
	QuestionsDetected int       `json:"questions_detected"`
	QuestionsAnswered int       `json:"questions_answered"`
	BooksCompleted    int       `json:"books_completed"`
}

// Store is a session-history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores the final summary of a run.
func (s *Store) Record(ctx context.Context, snap status.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
			(id, started_at, ended_at, book, pages_read, total_flips,
			 questions_detected, questions_answered, books_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		snap.StartedAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		snap.Book,
		snap.PagesRead,
		snap.TotalFlips,
		snap.QuestionsDetected,
		snap.QuestionsAnswered,
		snap.BooksCompleted,
	)
	if err != nil {
		return fmt.Errorf("recording session: %w", err)
	}
	return nil
}

// List returns the most recent sessions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, book, pages_read, total_flips,
		       questions_detected, questions_answered, books_completed
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var started, ended string
		if err := rows.Scan(&sess.ID, &started, &ended, &sess.Book,
			&sess.PagesRead, &sess.TotalFlips, &sess.QuestionsDetected,
			&sess.QuestionsAnswered, &sess.BooksCompleted); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sess.StartedAt, _ = time.Parse(time.RFC3339, started)
		sess.EndedAt, _ = time.Parse(time.RFC3339, ended)
		out = append(out, sess)
	}
	return out, rows.Err()
}
