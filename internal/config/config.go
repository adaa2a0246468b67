package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultSystemPrompt = "You are a helpful voice assistant. Keep responses concise and conversational. Aim for 1-2 sentences unless more detail is needed."

// Config contains all runtime settings for the voice relay service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	InputSampleRate  int
	OutputSampleRate int

	HistoryWindow int
	SystemPrompt  string

	STTProvider   string
	TTSProvider   string
	BrainProvider string

	STTCallTimeout   time.Duration
	TTSCallTimeout   time.Duration
	BrainCallTimeout time.Duration

	DeepgramAPIKey   string
	DeepgramSTTModel string
	DeepgramTTSModel string

	LocalWhisperCLI       string
	LocalWhisperModelPath string
	LocalWhisperLanguage  string
	LocalWhisperThreads   int

	ElevenLabsAPIKey   string
	ElevenLabsBaseURL  string
	ElevenLabsTTSVoice string
	ElevenLabsTTSModel string

	GeminiAPIKey string
	GeminiModel  string

	BrainHTTPURL    string
	BrainHTTPAPIKey string
	BrainHTTPModel  string

	VADEnergyThreshold float64

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "clawvoice"),
		AllowAnyOrigin:   false,
		InputSampleRate:  16000,
		OutputSampleRate: 24000,
		HistoryWindow:    10,
		SystemPrompt:     envOrDefault("CONVO_SYSTEM_PROMPT", defaultSystemPrompt),
		STTProvider:      envOrDefault("STT_PROVIDER", "auto"),
		TTSProvider:      envOrDefault("TTS_PROVIDER", "auto"),
		BrainProvider:    envOrDefault("BRAIN_PROVIDER", "auto"),
		DeepgramAPIKey:   envTrimmed("DEEPGRAM_API_KEY"),
		DeepgramSTTModel: envOrDefault("DEEPGRAM_STT_MODEL", "nova-3"),
		DeepgramTTSModel: envOrDefault("DEEPGRAM_TTS_MODEL", "aura-asteria-en"),
		LocalWhisperCLI:  envOrDefault("LOCAL_WHISPER_CLI", "whisper-cli"),
		// Default to a fast model suitable for interactive transcription.
		LocalWhisperModelPath: envOrDefault("LOCAL_WHISPER_MODEL_PATH", ".models/whisper/ggml-base.bin"),
		LocalWhisperLanguage:  envOrDefault("LOCAL_WHISPER_LANGUAGE", "en"),
		// 0 means "auto" (picked based on CPU count).
		LocalWhisperThreads: 0,
		ElevenLabsAPIKey:    envTrimmed("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL:   envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		// Default to a warm premade voice.
		ElevenLabsTTSVoice: envOrDefault("ELEVENLABS_TTS_VOICE_ID", "cgSgspJ2msm6clMCkdW9"),
		ElevenLabsTTSModel: envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_multilingual_v2"),
		GeminiAPIKey:       envTrimmed("GEMINI_API_KEY"),
		GeminiModel:        envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		BrainHTTPURL:       envTrimmed("BRAIN_HTTP_URL"),
		BrainHTTPAPIKey:    envTrimmed("BRAIN_HTTP_API_KEY"),
		BrainHTTPModel:     envOrDefault("BRAIN_HTTP_MODEL", "gpt-4o-mini"),
		VADEnergyThreshold: 0.01,
		DatabaseURL:        envTrimmed("DATABASE_URL"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
		STTCallTimeout:           15 * time.Second,
		TTSCallTimeout:           15 * time.Second,
		BrainCallTimeout:         20 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.InputSampleRate, err = intFromEnv("AUDIO_INPUT_SAMPLE_RATE", cfg.InputSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.OutputSampleRate, err = intFromEnv("AUDIO_OUTPUT_SAMPLE_RATE", cfg.OutputSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("CONVO_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.LocalWhisperThreads, err = intFromEnv("LOCAL_WHISPER_THREADS", cfg.LocalWhisperThreads)
	if err != nil {
		return Config{}, err
	}
	cfg.STTCallTimeout, err = durationFromEnv("STT_CALL_TIMEOUT", cfg.STTCallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSCallTimeout, err = durationFromEnv("TTS_CALL_TIMEOUT", cfg.TTSCallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainCallTimeout, err = durationFromEnv("BRAIN_CALL_TIMEOUT", cfg.BrainCallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.VADEnergyThreshold, err = floatFromEnv("VAD_ENERGY_THRESHOLD", cfg.VADEnergyThreshold)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.InputSampleRate <= 0 {
		return Config{}, fmt.Errorf("AUDIO_INPUT_SAMPLE_RATE must be positive")
	}
	if cfg.OutputSampleRate <= 0 {
		return Config{}, fmt.Errorf("AUDIO_OUTPUT_SAMPLE_RATE must be positive")
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("CONVO_HISTORY_WINDOW must be positive")
	}
	if cfg.LocalWhisperThreads < 0 {
		return Config{}, fmt.Errorf("LOCAL_WHISPER_THREADS must be >= 0")
	}
	if cfg.VADEnergyThreshold < 0 {
		return Config{}, fmt.Errorf("VAD_ENERGY_THRESHOLD must be >= 0")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
