// Package stt turns a captured utterance into text. A Transcriber wraps one
// concrete strategy (picked at startup) and contains every failure: callers
// always get a transcript string back, possibly empty, never an error.
package stt

import (
	"context"
	"fmt"
	"time"
)

// Strategy is one way of producing a transcript from mono float32 samples.
type Strategy interface {
	Name() string
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// Config selects and parameterizes the transcription strategy.
type Config struct {
	// Provider is one of auto, deepgram, whisper, standin. Auto picks the
	// best available strategy in that order.
	Provider string

	DeepgramAPIKey string
	DeepgramModel  string

	WhisperCLI       string
	WhisperModelPath string
	WhisperLanguage  string
	WhisperThreads   int

	CallTimeout time.Duration

	// OnError observes contained strategy failures. Optional.
	OnError func(strategy string, err error)
}

// Transcriber is the speech-to-text facade used by the relay pipeline.
type Transcriber struct {
	strategy Strategy
	timeout  time.Duration
	onError  func(strategy string, err error)
}

// New builds a Transcriber from configuration. With provider "auto" it ranks
// deepgram over the local whisper CLI over the stand-in; naming a provider
// explicitly fails fast when that provider cannot be constructed.
func New(cfg Config) (*Transcriber, error) {
	var (
		strategy Strategy
		err      error
	)
	switch cfg.Provider {
	case "", "auto":
		strategy = pickAuto(cfg)
	case "deepgram":
		strategy, err = newDeepgram(cfg.DeepgramAPIKey, cfg.DeepgramModel)
	case "whisper":
		strategy, err = newWhisperCLI(cfg.WhisperCLI, cfg.WhisperModelPath, cfg.WhisperLanguage, cfg.WhisperThreads)
	case "standin":
		strategy = standIn{}
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewFromStrategy(strategy, cfg.CallTimeout, cfg.OnError), nil
}

// NewFromStrategy wires an explicit strategy instance; used by tests and by
// callers that construct strategies themselves.
func NewFromStrategy(s Strategy, timeout time.Duration, onError func(strategy string, err error)) *Transcriber {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Transcriber{strategy: s, timeout: timeout, onError: onError}
}

func pickAuto(cfg Config) Strategy {
	if s, err := newDeepgram(cfg.DeepgramAPIKey, cfg.DeepgramModel); err == nil {
		return s
	}
	if s, err := newWhisperCLI(cfg.WhisperCLI, cfg.WhisperModelPath, cfg.WhisperLanguage, cfg.WhisperThreads); err == nil {
		return s
	}
	return standIn{}
}

// StrategyName reports which strategy the facade selected.
func (t *Transcriber) StrategyName() string {
	return t.strategy.Name()
}

// Transcribe runs the configured strategy under the per-call timeout. Any
// failure is contained: the caller sees an empty transcript, and the relay
// treats that as an empty utterance.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) string {
	if len(samples) == 0 {
		return ""
	}
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	text, err := t.strategy.Transcribe(callCtx, samples, sampleRate)
	if err != nil {
		if t.onError != nil {
			t.onError(t.strategy.Name(), err)
		}
		return ""
	}
	return text
}
