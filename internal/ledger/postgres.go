package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists turn statistics in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS turn_stats (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			transcript_chars INTEGER NOT NULL,
			reply_chars INTEGER NOT NULL,
			audio_samples INTEGER NOT NULL,
			stt_millis BIGINT NOT NULL,
			brain_millis BIGINT NOT NULL,
			tts_millis BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turn_stats_created ON turn_stats (created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) RecordTurn(ctx context.Context, stat TurnStat) error {
	if stat.ID == "" {
		stat.ID = uuid.NewString()
	}
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO turn_stats (id, session_id, outcome, transcript_chars, reply_chars, audio_samples, stt_millis, brain_millis, tts_millis, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		stat.ID,
		stat.SessionID,
		string(stat.Outcome),
		stat.TranscriptChars,
		stat.ReplyChars,
		stat.AudioSamples,
		stat.STTMillis,
		stat.BrainMillis,
		stat.TTSMillis,
		stat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]TurnStat, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, outcome, transcript_chars, reply_chars, audio_samples, stt_millis, brain_millis, tts_millis, created_at
		 FROM turn_stats ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	var out []TurnStat
	for rows.Next() {
		var stat TurnStat
		var outcome string
		if err := rows.Scan(&stat.ID, &stat.SessionID, &outcome, &stat.TranscriptChars, &stat.ReplyChars,
			&stat.AudioSamples, &stat.STTMillis, &stat.BrainMillis, &stat.TTSMillis, &stat.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn stat: %w", err)
		}
		stat.Outcome = Outcome(outcome)
		out = append(out, stat)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
