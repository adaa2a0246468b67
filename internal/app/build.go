// Package app assembles the service: provider facades, session registry,
// orchestrator, and HTTP surface, all driven by config.
package app

import (
	"context"
	"fmt"

	"github.com/antoniostano/clawvoice/internal/brain"
	"github.com/antoniostano/clawvoice/internal/config"
	"github.com/antoniostano/clawvoice/internal/httpapi"
	"github.com/antoniostano/clawvoice/internal/ledger"
	"github.com/antoniostano/clawvoice/internal/observability"
	"github.com/antoniostano/clawvoice/internal/relay"
	"github.com/antoniostano/clawvoice/internal/session"
	"github.com/antoniostano/clawvoice/internal/stt"
	"github.com/antoniostano/clawvoice/internal/tts"
	"github.com/antoniostano/clawvoice/internal/vad"
)

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Sessions     *session.Manager
	Orchestrator *relay.Orchestrator
	Metrics      *observability.Metrics

	// Cleanup releases external resources (DB pool) on shutdown.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := ledger.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("ledger store init failed: %w", err)
	}

	providerErr := func(capability string) func(strategy string, err error) {
		return func(strategy string, _ error) {
			metrics.ProviderErrors.WithLabelValues(capability, strategy).Inc()
		}
	}

	transcriber, err := stt.New(stt.Config{
		Provider:         cfg.STTProvider,
		DeepgramAPIKey:   cfg.DeepgramAPIKey,
		DeepgramModel:    cfg.DeepgramSTTModel,
		WhisperCLI:       cfg.LocalWhisperCLI,
		WhisperModelPath: cfg.LocalWhisperModelPath,
		WhisperLanguage:  cfg.LocalWhisperLanguage,
		WhisperThreads:   cfg.LocalWhisperThreads,
		CallTimeout:      cfg.STTCallTimeout,
		OnError:          providerErr("stt"),
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("stt init failed: %w", err)
	}

	synthesizer, err := tts.New(tts.Config{
		Provider:          cfg.TTSProvider,
		SampleRate:        cfg.OutputSampleRate,
		ElevenLabsAPIKey:  cfg.ElevenLabsAPIKey,
		ElevenLabsBaseURL: cfg.ElevenLabsBaseURL,
		ElevenLabsVoiceID: cfg.ElevenLabsTTSVoice,
		ElevenLabsModelID: cfg.ElevenLabsTTSModel,
		DeepgramAPIKey:    cfg.DeepgramAPIKey,
		DeepgramModel:     cfg.DeepgramTTSModel,
		CallTimeout:       cfg.TTSCallTimeout,
		OnError:           providerErr("tts"),
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("tts init failed: %w", err)
	}

	responder, err := brain.New(ctx, brain.Config{
		Provider:     cfg.BrainProvider,
		SystemPrompt: cfg.SystemPrompt,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		HTTPURL:      cfg.BrainHTTPURL,
		HTTPAPIKey:   cfg.BrainHTTPAPIKey,
		HTTPModel:    cfg.BrainHTTPModel,
		CallTimeout:  cfg.BrainCallTimeout,
		OnError:      providerErr("brain"),
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("brain init failed: %w", err)
	}

	detector := vad.NewEnergy(cfg.VADEnergyThreshold)

	metrics.RecordStrategy("stt", transcriber.StrategyName())
	metrics.RecordStrategy("tts", synthesizer.StrategyName())
	metrics.RecordStrategy("brain", responder.StrategyName())
	metrics.RecordStrategy("vad", detector.Name())

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	orchestrator, err := relay.NewOrchestrator(relay.Options{
		STT:              transcriber,
		TTS:              synthesizer,
		Brain:            responder,
		VAD:              detector,
		Sessions:         sessions,
		Ledger:           store,
		Metrics:          metrics,
		InputSampleRate:  cfg.InputSampleRate,
		OutputSampleRate: cfg.OutputSampleRate,
		HistoryWindow:    cfg.HistoryWindow,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("orchestrator init failed: %w", err)
	}

	api := httpapi.New(cfg, sessions, orchestrator, store, metrics)

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		Metrics:      metrics,
		Cleanup:      store.Close,
	}, nil
}
