// Package brain produces the assistant's reply for a transcribed utterance.
// A Responder wraps one concrete strategy (picked at startup) and contains
// every failure: callers always get reply text back, falling back to a fixed
// apology when the backend cannot answer.
package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/antoniostano/clawvoice/internal/convo"
)

// DegradedReply is returned when the configured strategy fails.
const DegradedReply = "Sorry, I had trouble processing that. Could you try again?"

// Strategy is one way of generating a reply from the user's message and the
// recent conversation window. The window excludes the message itself.
type Strategy interface {
	Name() string
	Respond(ctx context.Context, message string, window []convo.Turn) (string, error)
}

// Config selects and parameterizes the response strategy.
type Config struct {
	// Provider is one of auto, gemini, http, standin. Auto picks the best
	// available strategy in that order.
	Provider string

	SystemPrompt string

	GeminiAPIKey string
	GeminiModel  string

	HTTPURL    string
	HTTPAPIKey string
	HTTPModel  string

	CallTimeout time.Duration

	// OnError observes contained strategy failures. Optional.
	OnError func(strategy string, err error)
}

// Responder is the conversational facade used by the relay pipeline.
type Responder struct {
	strategy Strategy
	timeout  time.Duration
	onError  func(strategy string, err error)
}

// New builds a Responder from configuration. With provider "auto" it ranks
// gemini over a generic OpenAI-compatible HTTP backend over the echo
// stand-in; naming a provider explicitly fails fast when that provider
// cannot be constructed.
func New(ctx context.Context, cfg Config) (*Responder, error) {
	var (
		strategy Strategy
		err      error
	)
	switch cfg.Provider {
	case "", "auto":
		strategy = pickAuto(ctx, cfg)
	case "gemini":
		strategy, err = newGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.SystemPrompt)
	case "http":
		strategy, err = newHTTPBackend(cfg.HTTPURL, cfg.HTTPAPIKey, cfg.HTTPModel, cfg.SystemPrompt)
	case "standin":
		strategy = standIn{}
	default:
		return nil, fmt.Errorf("unknown brain provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewFromStrategy(strategy, cfg.CallTimeout, cfg.OnError), nil
}

// NewFromStrategy wires an explicit strategy instance; used by tests and by
// callers that construct strategies themselves.
func NewFromStrategy(s Strategy, timeout time.Duration, onError func(strategy string, err error)) *Responder {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Responder{strategy: s, timeout: timeout, onError: onError}
}

func pickAuto(ctx context.Context, cfg Config) Strategy {
	if s, err := newGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.SystemPrompt); err == nil {
		return s
	}
	if s, err := newHTTPBackend(cfg.HTTPURL, cfg.HTTPAPIKey, cfg.HTTPModel, cfg.SystemPrompt); err == nil {
		return s
	}
	return standIn{}
}

// StrategyName reports which strategy the facade selected.
func (r *Responder) StrategyName() string {
	return r.strategy.Name()
}

// Respond runs the configured strategy under the per-call timeout. Any
// failure is contained: the caller gets the fixed degraded reply, which
// still flows through synthesis like a normal answer.
func (r *Responder) Respond(ctx context.Context, message string, window []convo.Turn) string {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.strategy.Respond(callCtx, message, window)
	if err != nil {
		if r.onError != nil {
			r.onError(r.strategy.Name(), err)
		}
		return DegradedReply
	}
	return reply
}
