package ledger

import (
	"context"
	"time"
)

// Outcome classifies how a turn completed.
type Outcome string

const (
	// OutcomeAnswered means the full pipeline produced a reply.
	OutcomeAnswered Outcome = "answered"
	// OutcomeEmpty means the transcript was empty and no reply was produced.
	OutcomeEmpty Outcome = "empty"
	// OutcomeDegraded means at least one provider failed and a fallback
	// result was served.
	OutcomeDegraded Outcome = "degraded"
)

// TurnStat records per-turn operational statistics. Conversation content is
// deliberately never stored; only sizes, timings, and outcomes are.
type TurnStat struct {
	ID              string
	SessionID       string
	Outcome         Outcome
	TranscriptChars int
	ReplyChars      int
	AudioSamples    int
	STTMillis       int64
	BrainMillis     int64
	TTSMillis       int64
	CreatedAt       time.Time
}

// Store persists turn statistics.
type Store interface {
	RecordTurn(ctx context.Context, stat TurnStat) error
	Recent(ctx context.Context, limit int) ([]TurnStat, error)
	Close() error
}
