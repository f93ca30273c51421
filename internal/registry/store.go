// Package registry records completed preprocessing runs in PostgreSQL so
// downstream training jobs can find which artifacts were built from which
// settings.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/postgres"
)

// Schema creates the runs table if it does not exist.
const Schema = `CREATE TABLE IF NOT EXISTS prepro_runs (
    run_id          TEXT PRIMARY KEY,
    variant         TEXT NOT NULL,
    min_word_count  INTEGER NOT NULL,
    max_length      INTEGER NOT NULL,
    vocab_size      INTEGER NOT NULL,
    unk_count       BIGINT NOT NULL,
    image_count     INTEGER NOT NULL,
    splits          JSONB NOT NULL,
    dictionary_path TEXT NOT NULL,
    caption_path    TEXT NOT NULL,
    started_at      TIMESTAMPTZ NOT NULL,
    finished_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Run describes one completed preprocessing run.
type Run struct {
	RunID          string
	Variant        string
	MinWordCount   int
	MaxLength      int
	VocabSize      int
	UnkCount       int
	ImageCount     int
	Splits         map[string]int
	DictionaryPath string
	CaptionPath    string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Store persists runs in PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a run store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("run-registry"),
	}
}

// EnsureSchema creates the runs table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating prepro_runs table: %w", err)
	}
	return nil
}

// RecordRun inserts run, replacing any earlier row with the same id.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	splits, err := json.Marshal(run.Splits)
	if err != nil {
		return fmt.Errorf("marshaling splits: %w", err)
	}
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO prepro_runs (run_id, variant, min_word_count, max_length, vocab_size,
			unk_count, image_count, splits, dictionary_path, caption_path, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id) DO UPDATE SET
			vocab_size = EXCLUDED.vocab_size,
			unk_count = EXCLUDED.unk_count,
			image_count = EXCLUDED.image_count,
			splits = EXCLUDED.splits,
			finished_at = EXCLUDED.finished_at`,
			run.RunID, run.Variant, run.MinWordCount, run.MaxLength, run.VocabSize,
			run.UnkCount, run.ImageCount, splits, run.DictionaryPath, run.CaptionPath,
			run.StartedAt.UTC(), run.FinishedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.RunID, err)
	}
	s.logger.Info("run recorded", "run_id", run.RunID, "vocab_size", run.VocabSize)
	return nil
}

// LatestRun loads the most recently finished run for variant. It returns
// nil, nil when none exists.
func (s *Store) LatestRun(ctx context.Context, variant string) (*Run, error) {
	var run Run
	var splits []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT run_id, variant, min_word_count, max_length, vocab_size, unk_count, image_count,
			splits, dictionary_path, caption_path, started_at, finished_at
		FROM prepro_runs WHERE variant = $1 ORDER BY finished_at DESC LIMIT 1`,
		variant,
	).Scan(&run.RunID, &run.Variant, &run.MinWordCount, &run.MaxLength, &run.VocabSize,
		&run.UnkCount, &run.ImageCount, &splits, &run.DictionaryPath, &run.CaptionPath,
		&run.StartedAt, &run.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	if err := json.Unmarshal(splits, &run.Splits); err != nil {
		return nil, fmt.Errorf("unmarshaling splits: %w", err)
	}
	return &run, nil
}
