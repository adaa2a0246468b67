package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antoniostano/clawvoice/internal/convo"
)

// httpBackend talks to any OpenAI-compatible chat completions endpoint,
// which covers local runtimes like Ollama and llama.cpp as well as hosted
// gateways.
type httpBackend struct {
	url          string
	apiKey       string
	model        string
	systemPrompt string
	client       *http.Client
}

func newHTTPBackend(rawURL, apiKey, model, systemPrompt string) (*httpBackend, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("BRAIN_HTTP_URL is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &httpBackend{
		url:          strings.TrimRight(rawURL, "/") + "/v1/chat/completions",
		apiKey:       strings.TrimSpace(apiKey),
		model:        model,
		systemPrompt: systemPrompt,
		client:       &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (h *httpBackend) Name() string { return "http" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *httpBackend) Respond(ctx context.Context, message string, window []convo.Turn) (string, error) {
	messages := make([]chatMessage, 0, len(window)+2)
	if h.systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: h.systemPrompt})
	}
	for _, turn := range window {
		messages = append(messages, chatMessage{Role: string(turn.Role), Content: turn.Text})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	body, err := json.Marshal(map[string]any{
		"model":       h.model,
		"messages":    messages,
		"max_tokens":  150,
		"temperature": 0.7,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("chat completions HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat completions response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completions returned no choices")
	}
	reply := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("chat completions returned empty content")
	}
	return reply, nil
}
