package brain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/antoniostano/clawvoice/internal/convo"
)

type fakeStrategy struct {
	name  string
	reply string
	err   error

	gotMessage string
	gotWindow  []convo.Turn
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Respond(_ context.Context, message string, window []convo.Turn) (string, error) {
	f.gotMessage = message
	f.gotWindow = window
	return f.reply, f.err
}

func TestRespondPassesThrough(t *testing.T) {
	fake := &fakeStrategy{name: "fake", reply: "hello back"}
	r := NewFromStrategy(fake, time.Second, nil)

	window := []convo.Turn{{Role: convo.RoleUser, Text: "earlier"}}
	got := r.Respond(context.Background(), "hello", window)
	if got != "hello back" {
		t.Fatalf("Respond() = %q, want %q", got, "hello back")
	}
	if fake.gotMessage != "hello" || len(fake.gotWindow) != 1 {
		t.Fatalf("strategy saw message=%q window=%d", fake.gotMessage, len(fake.gotWindow))
	}
}

func TestRespondContainsFailuresWithApology(t *testing.T) {
	fake := &fakeStrategy{name: "fake", err: errors.New("backend down")}

	var reportedStrategy string
	r := NewFromStrategy(fake, time.Second, func(strategy string, err error) {
		reportedStrategy = strategy
	})

	got := r.Respond(context.Background(), "hello", nil)
	if got != DegradedReply {
		t.Fatalf("Respond() = %q, want degraded reply", got)
	}
	if reportedStrategy != "fake" {
		t.Fatalf("error hook saw strategy %q, want fake", reportedStrategy)
	}
}

func TestStandInEchoes(t *testing.T) {
	r, err := New(context.Background(), Config{Provider: "standin"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got := r.Respond(context.Background(), "testing one two", nil)
	if got != "I heard you say: testing one two" {
		t.Fatalf("Respond() = %q", got)
	}
}

func TestHTTPBackendRespond(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want Bearer secret", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// system prompt + one window turn + the new message
		if len(req.Messages) != 3 {
			t.Errorf("got %d messages, want 3", len(req.Messages))
		}
		if req.Messages[0].Role != "system" {
			t.Errorf("first message role = %q, want system", req.Messages[0].Role)
		}
		if last := req.Messages[len(req.Messages)-1]; last.Role != "user" || last.Content != "hello" {
			t.Errorf("last message = %+v, want user hello", last)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hi there"}},
			},
		})
	}))
	defer srv.Close()

	backend, err := newHTTPBackend(srv.URL, "secret", "test-model", "be brief")
	if err != nil {
		t.Fatalf("newHTTPBackend() error = %v", err)
	}
	got, err := backend.Respond(context.Background(), "hello",
		[]convo.Turn{{Role: convo.RoleAssistant, Text: "earlier reply"}})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if got != "hi there" {
		t.Fatalf("Respond() = %q, want %q", got, "hi there")
	}
}

func TestHTTPBackendRejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	backend, err := newHTTPBackend(srv.URL, "", "", "")
	if err != nil {
		t.Fatalf("newHTTPBackend() error = %v", err)
	}
	if _, err := backend.Respond(context.Background(), "hello", nil); err == nil {
		t.Fatalf("Respond() should fail on empty choices")
	}
}

func TestGeminiContentsRoleMapping(t *testing.T) {
	window := []convo.Turn{
		{Role: convo.RoleUser, Text: "first question"},
		{Role: convo.RoleAssistant, Text: "first answer"},
	}
	contents := geminiContents("second question", window)
	if len(contents) != 3 {
		t.Fatalf("got %d contents, want 3", len(contents))
	}
	if contents[0].Role != genai.RoleUser || contents[1].Role != genai.RoleModel {
		t.Fatalf("window roles = %q/%q, want user/model", contents[0].Role, contents[1].Role)
	}
	last := contents[2]
	if last.Role != genai.RoleUser {
		t.Fatalf("final role = %q, want user", last.Role)
	}
	if len(last.Parts) != 1 || last.Parts[0].Text != "second question" {
		t.Fatalf("final content = %+v, want the new message", last)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "bogus"}); err == nil {
		t.Fatalf("New() should reject unknown provider")
	}
}
