package tts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/antoniostano/clawvoice/internal/audio"
)

type fakeStrategy struct {
	name    string
	samples []float32
	err     error

	gotText string
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Synthesize(_ context.Context, text string) ([]float32, error) {
	f.gotText = text
	return f.samples, f.err
}

func TestSpeakPassesThrough(t *testing.T) {
	fake := &fakeStrategy{name: "fake", samples: []float32{0.1, 0.2, 0.3}}
	syn := NewFromStrategy(fake, 24000, time.Second, nil)

	got := syn.Speak(context.Background(), "hello")
	if len(got) != 3 {
		t.Fatalf("Speak() returned %d samples, want 3", len(got))
	}
	if fake.gotText != "hello" {
		t.Fatalf("strategy saw text %q, want %q", fake.gotText, "hello")
	}
	if syn.SampleRate() != 24000 {
		t.Fatalf("SampleRate() = %d, want 24000", syn.SampleRate())
	}
}

func TestSpeakContainsFailuresWithSilence(t *testing.T) {
	fake := &fakeStrategy{name: "fake", err: errors.New("backend down")}

	var reportedStrategy string
	syn := NewFromStrategy(fake, 24000, time.Second, func(strategy string, err error) {
		reportedStrategy = strategy
	})

	got := syn.Speak(context.Background(), "hello")
	if len(got) != 12000 {
		t.Fatalf("degraded Speak() returned %d samples, want 12000", len(got))
	}
	for i, s := range got {
		if s != 0 {
			t.Fatalf("degraded sample %d = %v, want 0", i, s)
		}
	}
	if reportedStrategy != "fake" {
		t.Fatalf("error hook saw strategy %q, want fake", reportedStrategy)
	}
}

func TestSilenceScalesWithRate(t *testing.T) {
	if got := len(Silence(16000)); got != 8000 {
		t.Fatalf("Silence(16000) has %d samples, want 8000", got)
	}
}

func TestStandInProducesSilence(t *testing.T) {
	syn, err := New(Config{Provider: "standin", SampleRate: 24000})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if syn.StrategyName() != "standin" {
		t.Fatalf("StrategyName() = %q, want standin", syn.StrategyName())
	}
	got := syn.Speak(context.Background(), "anything")
	if len(got) != 12000 {
		t.Fatalf("stand-in returned %d samples, want 12000", len(got))
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	pcm := audio.Float32ToPCM16LE([]float32{0.25, -0.25, 0.5})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing xi-api-key header")
		}
		if got := r.URL.Query().Get("output_format"); got != "pcm_24000" {
			t.Errorf("output_format = %q, want pcm_24000", got)
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			t.Errorf("request body should carry the text payload")
		}
		w.Write(pcm)
	}))
	defer srv.Close()

	strategy, err := newElevenLabs("test-key", srv.URL, "voice-1", "", 24000)
	if err != nil {
		t.Fatalf("newElevenLabs() error = %v", err)
	}
	got, err := strategy.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Synthesize() returned %d samples, want 3", len(got))
	}
}

func TestElevenLabsRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	strategy, err := newElevenLabs("test-key", srv.URL, "voice-1", "", 24000)
	if err != nil {
		t.Fatalf("newElevenLabs() error = %v", err)
	}
	if _, err := strategy.Synthesize(context.Background(), "hi"); err == nil {
		t.Fatalf("Synthesize() should surface non-200 responses")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "bogus"}); err == nil {
		t.Fatalf("New() should reject unknown provider")
	}
}
