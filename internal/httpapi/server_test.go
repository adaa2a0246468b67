package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/clawvoice/internal/config"
	"github.com/antoniostano/clawvoice/internal/ledger"
	"github.com/antoniostano/clawvoice/internal/observability"
	"github.com/antoniostano/clawvoice/internal/protocol"
	"github.com/antoniostano/clawvoice/internal/session"
)

// scriptedOrchestrator answers control events with fixed responses so the
// transport layer can be tested without real providers.
type scriptedOrchestrator struct{}

func (scriptedOrchestrator) RunConnection(ctx context.Context, _ *session.Session, inbound <-chan any, outbound chan<- any) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			switch msg.(type) {
			case protocol.Ping:
				outbound <- protocol.Pong{Type: protocol.TypePong}
			case protocol.StartListening:
				outbound <- protocol.ListeningStarted{Type: protocol.TypeListeningStarted}
			case protocol.StopListening:
				outbound <- protocol.Transcript{Type: protocol.TypeTranscript, Text: "scripted", Final: true}
				outbound <- protocol.ListeningStopped{Type: protocol.TypeListeningStopped}
			}
		}
	}
}

func (scriptedOrchestrator) PreviewSpeech(_ context.Context, _ string) ([]float32, int) {
	return []float32{0, 0.5, -0.5}, 24000
}

func newTestServer(t *testing.T, namespace string, orch Orchestrator) *httptest.Server {
	t.Helper()
	cfg := config.Config{SessionInactivityTimeout: 2 * time.Minute}
	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	metrics := observability.NewMetrics(namespace)
	srv := New(cfg, sessions, orch, ledger.NewInMemoryStore(), metrics)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, "test_httpapi_health", scriptedOrchestrator{})

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", res.StatusCode)
	}

	ready, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	defer ready.Body.Close()
	if ready.StatusCode != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", ready.StatusCode)
	}
}

func TestReadyWithoutOrchestrator(t *testing.T) {
	ts := newTestServer(t, "test_httpapi_not_ready", nil)

	res, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", res.StatusCode)
	}
}

func TestIndexServesClient(t *testing.T) {
	ts := newTestServer(t, "test_httpapi_index", scriptedOrchestrator{})

	res, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "clawvoice") {
		t.Fatalf("index body missing expected content")
	}
}

func TestPreviewTTSReturnsWAV(t *testing.T) {
	ts := newTestServer(t, "test_httpapi_preview", scriptedOrchestrator{})

	body, _ := json.Marshal(map[string]string{"text": "hello"})
	res, err := http.Post(ts.URL+"/v1/tts/preview", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/tts/preview error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("preview status = %d, want 200", res.StatusCode)
	}
	if got := res.Header.Get("Content-Type"); got != "audio/wav" {
		t.Fatalf("Content-Type = %q, want audio/wav", got)
	}
	wav, _ := io.ReadAll(res.Body)
	if len(wav) != 44+3*2 {
		t.Fatalf("wav length = %d, want header plus 3 pcm16 samples", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("response is not a WAV container")
	}
}

func TestPreviewTTSRejectsEmptyText(t *testing.T) {
	ts := newTestServer(t, "test_httpapi_preview_empty", scriptedOrchestrator{})

	body, _ := json.Marshal(map[string]string{"text": "   "})
	res, err := http.Post(ts.URL+"/v1/tts/preview", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/tts/preview error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("preview status = %d, want 400", res.StatusCode)
	}
}

func TestRecentTurnsEndpoint(t *testing.T) {
	cfg := config.Config{SessionInactivityTimeout: 2 * time.Minute}
	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	metrics := observability.NewMetrics("test_httpapi_turns")
	store := ledger.NewInMemoryStore()
	_ = store.RecordTurn(context.Background(), ledger.TurnStat{SessionID: "s1", Outcome: ledger.OutcomeAnswered})

	srv := New(cfg, sessions, scriptedOrchestrator{}, store, metrics)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/turns/recent?limit=5")
	if err != nil {
		t.Fatalf("GET /v1/turns/recent error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("recent turns status = %d, want 200", res.StatusCode)
	}
	var payload struct {
		Turns []map[string]any `json:"turns"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Turns) != 1 || payload.Turns[0]["outcome"] != "answered" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	bad, err := http.Get(ts.URL + "/v1/turns/recent?limit=nope")
	if err != nil {
		t.Fatalf("GET with bad limit error = %v", err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", bad.StatusCode)
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s error = %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket event: %v", err)
	}
	return msg
}

func TestWebsocketPingPong(t *testing.T) {
	ts := newTestServer(t, "test_httpapi_ws_ping", scriptedOrchestrator{})
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if msg := readEvent(t, conn); msg["type"] != "pong" {
		t.Fatalf("got %v, want pong", msg)
	}
}

func TestWebsocketListenCycle(t *testing.T) {
	ts := newTestServer(t, "test_httpapi_ws_cycle", scriptedOrchestrator{})
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(map[string]string{"type": "start_listening"}); err != nil {
		t.Fatalf("write start_listening: %v", err)
	}
	if msg := readEvent(t, conn); msg["type"] != "listening_started" {
		t.Fatalf("got %v, want listening_started", msg)
	}

	if err := conn.WriteJSON(map[string]string{"type": "stop_listening"}); err != nil {
		t.Fatalf("write stop_listening: %v", err)
	}
	if msg := readEvent(t, conn); msg["type"] != "transcript" {
		t.Fatalf("got %v, want transcript", msg)
	}
	if msg := readEvent(t, conn); msg["type"] != "listening_stopped" {
		t.Fatalf("got %v, want listening_stopped", msg)
	}
}

func TestWebsocketDropsUnknownEvents(t *testing.T) {
	ts := newTestServer(t, "test_httpapi_ws_unknown", scriptedOrchestrator{})
	conn := dialWS(t, ts)

	// An unsupported event type gets no reply; the connection stays usable.
	if err := conn.WriteJSON(map[string]string{"type": "definitely_not_a_thing"}); err != nil {
		t.Fatalf("write unknown event: %v", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if msg := readEvent(t, conn); msg["type"] != "pong" {
		t.Fatalf("got %v, want pong after dropped event", msg)
	}
}
