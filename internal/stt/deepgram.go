package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/clawvoice/internal/audio"
)

const deepgramListenURL = "wss://api.deepgram.com/v1/listen"

// deepgramTranscriber performs one-shot transcription over the Deepgram
// streaming endpoint: send the whole utterance, close the stream, collect
// the finalized results.
type deepgramTranscriber struct {
	apiKey string
	model  string
}

func newDeepgram(apiKey, model string) (*deepgramTranscriber, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "nova-3"
	}
	return &deepgramTranscriber{apiKey: apiKey, model: model}, nil
}

func (d *deepgramTranscriber) Name() string { return "deepgram" }

func (d *deepgramTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	listenURL, _ := url.Parse(deepgramListenURL)
	q := listenURL.Query()
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("channels", "1")
	q.Set("model", d.model)
	q.Set("smart_format", "true")
	listenURL.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + d.apiKey}})
	if err != nil {
		return "", fmt.Errorf("dial deepgram: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	pcm := audio.Float32ToPCM16LE(samples)
	// 100ms chunks keep individual frames well under message size limits.
	chunk := sampleRate * 2 / 10
	if chunk <= 0 {
		chunk = len(pcm)
	}
	for off := 0; off < len(pcm); off += chunk {
		end := off + chunk
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[off:end]); err != nil {
			return "", fmt.Errorf("send audio to deepgram: %w", err)
		}
	}
	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return "", fmt.Errorf("close deepgram stream: %w", err)
	}

	var parts []string
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if len(parts) > 0 || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return "", fmt.Errorf("read deepgram response: %w", err)
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &envelope); err != nil {
			continue
		}
		switch api.TypeResponse(envelope.Type) {
		case api.TypeMessageResponse:
			var result api.MessageResponse
			if err := json.Unmarshal(msg, &result); err != nil {
				continue
			}
			if !result.IsFinal || len(result.Channel.Alternatives) == 0 {
				continue
			}
			if text := strings.TrimSpace(result.Channel.Alternatives[0].Transcript); text != "" {
				parts = append(parts, text)
			}
		case api.TypeMetadataResponse:
			// Metadata is the last message after CloseStream drains.
			return strings.Join(parts, " "), nil
		}
	}
	return strings.Join(parts, " "), nil
}
