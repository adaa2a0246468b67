package stt

import "context"

// standIn keeps the pipeline exercisable when no real STT backend is
// configured. It acknowledges receipt with a fixed placeholder transcript.
type standIn struct{}

func (standIn) Name() string { return "standin" }

func (standIn) Transcribe(_ context.Context, samples []float32, _ int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	return "[Mock transcription - install whisper for real STT]", nil
}
