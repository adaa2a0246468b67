// Package tts renders assistant text as audio. A Synthesizer wraps one
// concrete strategy (picked at startup) and contains every failure: callers
// always get playable samples back, falling back to a short silence.
package tts

import (
	"context"
	"fmt"
	"time"
)

// Strategy is one way of synthesizing mono float32 samples from text.
// Implementations produce audio at the sample rate they were built with.
type Strategy interface {
	Name() string
	Synthesize(ctx context.Context, text string) ([]float32, error)
}

// Config selects and parameterizes the synthesis strategy.
type Config struct {
	// Provider is one of auto, elevenlabs, deepgram, standin. Auto picks
	// the best available strategy in that order.
	Provider string

	SampleRate int

	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	DeepgramAPIKey string
	DeepgramModel  string

	CallTimeout time.Duration

	// OnError observes contained strategy failures. Optional.
	OnError func(strategy string, err error)
}

// Synthesizer is the text-to-speech facade used by the relay pipeline.
type Synthesizer struct {
	strategy   Strategy
	sampleRate int
	timeout    time.Duration
	onError    func(strategy string, err error)
}

// New builds a Synthesizer from configuration. With provider "auto" it ranks
// elevenlabs over deepgram over the stand-in; naming a provider explicitly
// fails fast when that provider cannot be constructed.
func New(cfg Config) (*Synthesizer, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	var (
		strategy Strategy
		err      error
	)
	switch cfg.Provider {
	case "", "auto":
		strategy = pickAuto(cfg)
	case "elevenlabs":
		strategy, err = newElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID, cfg.SampleRate)
	case "deepgram":
		strategy, err = newDeepgramSpeak(cfg.DeepgramAPIKey, cfg.DeepgramModel, cfg.SampleRate)
	case "standin":
		strategy = standIn{sampleRate: cfg.SampleRate}
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewFromStrategy(strategy, cfg.SampleRate, cfg.CallTimeout, cfg.OnError), nil
}

// NewFromStrategy wires an explicit strategy instance; used by tests and by
// callers that construct strategies themselves.
func NewFromStrategy(s Strategy, sampleRate int, timeout time.Duration, onError func(strategy string, err error)) *Synthesizer {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Synthesizer{strategy: s, sampleRate: sampleRate, timeout: timeout, onError: onError}
}

func pickAuto(cfg Config) Strategy {
	if s, err := newElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID, cfg.SampleRate); err == nil {
		return s
	}
	if s, err := newDeepgramSpeak(cfg.DeepgramAPIKey, cfg.DeepgramModel, cfg.SampleRate); err == nil {
		return s
	}
	return standIn{sampleRate: cfg.SampleRate}
}

// StrategyName reports which strategy the facade selected.
func (s *Synthesizer) StrategyName() string {
	return s.strategy.Name()
}

// SampleRate reports the output rate of the synthesized audio.
func (s *Synthesizer) SampleRate() int {
	return s.sampleRate
}

// Speak runs the configured strategy under the per-call timeout. Any failure
// is contained: the caller gets a short silence instead of an error so the
// response cycle still completes.
func (s *Synthesizer) Speak(ctx context.Context, text string) []float32 {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	samples, err := s.strategy.Synthesize(callCtx, text)
	if err != nil {
		if s.onError != nil {
			s.onError(s.strategy.Name(), err)
		}
		return Silence(s.sampleRate)
	}
	return samples
}

// Silence returns half a second of silence at the given rate, the degraded
// stand-in for unavailable synthesis.
func Silence(sampleRate int) []float32 {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	return make([]float32, sampleRate/2)
}
