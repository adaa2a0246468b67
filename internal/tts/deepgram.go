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

const deepgramSpeakURL = "https://api.deepgram.com/v1/speak"

// deepgramSpeak synthesizes speech through the Deepgram Aura REST endpoint,
// requesting linear16 at the configured rate.
type deepgramSpeak struct {
	apiKey     string
	model      string
	sampleRate int
	client     *http.Client
}

func newDeepgramSpeak(apiKey, model string, sampleRate int) (*deepgramSpeak, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "aura-asteria-en"
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}
	return &deepgramSpeak{
		apiKey:     apiKey,
		model:      model,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (d *deepgramSpeak) Name() string { return "deepgram" }

func (d *deepgramSpeak) Synthesize(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	speakURL, _ := url.Parse(deepgramSpeakURL)
	q := speakURL.Query()
	q.Set("model", d.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(d.sampleRate))
	q.Set("container", "none")
	speakURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speakURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram speak request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("deepgram speak HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read deepgram audio: %w", err)
	}
	return audio.PCM16LEToFloat32(pcm), nil
}
