package brain

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/antoniostano/clawvoice/internal/convo"
)

// gemini generates replies through the Gemini API, mapping the conversation
// window onto alternating user/model contents.
type gemini struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

func newGemini(ctx context.Context, apiKey, model, systemPrompt string) (*gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &gemini{client: client, model: model, systemPrompt: systemPrompt}, nil
}

func (g *gemini) Name() string { return "gemini" }

// geminiContents maps the history window onto alternating user/model
// contents, with the current message appended as the final user content.
func geminiContents(message string, window []convo.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(window)+1)
	for _, turn := range window {
		var role genai.Role = genai.RoleUser
		if turn.Role == convo.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}

func (g *gemini) Respond(ctx context.Context, message string, window []convo.Turn) (string, error) {
	contents := geminiContents(message, window)

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: 150,
		Temperature:     genai.Ptr[float32](0.7),
	}
	if g.systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(g.systemPrompt, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return reply, nil
}
