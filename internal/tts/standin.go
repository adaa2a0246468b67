package tts

import "context"

// standIn keeps the response cycle complete when no real TTS backend is
// configured: every utterance renders as half a second of silence.
type standIn struct {
	sampleRate int
}

func (s standIn) Name() string { return "standin" }

func (s standIn) Synthesize(_ context.Context, _ string) ([]float32, error) {
	return Silence(s.sampleRate), nil
}
