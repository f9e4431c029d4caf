// Package sqlite persists refinement-pass transcripts in a local SQLite
// database.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/draftwire/llmstream/internal/domain"
)

// PassRecord is one stored refinement pass.
type PassRecord struct {
	ID           string    `db:"id"`
	RunID        string    `db:"run_id"`
	Pass         int       `db:"pass"`
	Model        string    `db:"model"`
	Content      string    `db:"content"`
	InputTokens  int       `db:"input_tokens"`
	OutputTokens int       `db:"output_tokens"`
	CreatedAt    time.Time `db:"created_at"`
}

// Store is a SQLite-backed transcript store.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS passes (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		pass INTEGER NOT NULL,
		model TEXT NOT NULL,
		content TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_passes_run ON passes(run_id, pass)`)
	return err
}

// RecordPass stores one pass transcript. It implements refine.Recorder.
func (s *Store) RecordPass(ctx context.Context, runID string, pass int, model string, artifact *domain.ResponseArtifact) error {
	rec := PassRecord{
		ID:        fmt.Sprintf("%s/%d", runID, pass),
		RunID:     runID,
		Pass:      pass,
		Model:     model,
		Content:   artifact.FullText,
		CreatedAt: time.Now().UTC(),
	}
	if artifact.Usage != nil {
		rec.InputTokens = artifact.Usage.InputTokens
		rec.OutputTokens = artifact.Usage.OutputTokens
	}

	_, err := s.db.NamedExecContext(ctx, `INSERT OR REPLACE INTO passes
		(id, run_id, pass, model, content, input_tokens, output_tokens, created_at)
		VALUES (:id, :run_id, :pass, :model, :content, :input_tokens, :output_tokens, :created_at)`,
		rec)
	if err != nil {
		return fmt.Errorf("failed to store pass: %w", err)
	}
	return nil
}

// Passes returns the stored passes for a run, in pass order.
func (s *Store) Passes(ctx context.Context, runID string) ([]PassRecord, error) {
	var out []PassRecord
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM passes WHERE run_id = ? ORDER BY pass`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load passes: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
