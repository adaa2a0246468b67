package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antoniostano/clawvoice/internal/audio"
)

// elevenLabs synthesizes speech through the ElevenLabs REST endpoint,
// requesting raw PCM at the configured rate so no resampling is needed.
type elevenLabs struct {
	apiKey     string
	baseURL    string
	voiceID    string
	modelID    string
	sampleRate int
	client     *http.Client
}

func newElevenLabs(apiKey, baseURL, voiceID, modelID string, sampleRate int) (*elevenLabs, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("ELEVENLABS_TTS_VOICE_ID is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "eleven_multilingual_v2"
	}
	switch sampleRate {
	case 16000, 22050, 24000, 44100:
	default:
		return nil, fmt.Errorf("elevenlabs cannot emit pcm at %d Hz", sampleRate)
	}
	return &elevenLabs{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		voiceID:    voiceID,
		modelID:    modelID,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (e *elevenLabs) Name() string { return "elevenlabs" }

func (e *elevenLabs) Synthesize(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": e.modelID,
	})
	if err != nil {
		return nil, err
	}

	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(e.voiceID) +
		"?output_format=pcm_" + strconv.Itoa(e.sampleRate)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("elevenlabs HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read elevenlabs audio: %w", err)
	}
	return audio.PCM16LEToFloat32(pcm), nil
}
