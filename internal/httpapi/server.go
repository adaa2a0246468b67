package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/clawvoice/internal/audio"
	"github.com/antoniostano/clawvoice/internal/config"
	"github.com/antoniostano/clawvoice/internal/ledger"
	"github.com/antoniostano/clawvoice/internal/observability"
	"github.com/antoniostano/clawvoice/internal/protocol"
	"github.com/antoniostano/clawvoice/internal/session"
)

type Orchestrator interface {
	RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error
	PreviewSpeech(ctx context.Context, text string) ([]float32, int)
}

type Server struct {
	cfg          config.Config
	sessions     *session.Manager
	orchestrator Orchestrator
	store        ledger.Store
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
	static       http.Handler
}

func New(cfg config.Config, sessions *session.Manager, orchestrator Orchestrator, store ledger.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		sessions:     sessions,
		orchestrator: orchestrator,
		store:        store,
		metrics:      metrics,
		static:       newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot drive a mic session if
				// the relay is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/ws", s.handleVoiceWS)
	r.Post("/v1/tts/preview", s.handlePreviewTTS)
	r.Get("/v1/turns/recent", s.handleRecentTurns)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	r.URL.Path = "/"
	s.static.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.orchestrator == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "orchestrator not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// handleVoiceWS upgrades the connection and creates a session that lives
// exactly as long as the socket. One goroutine runs the state machine, one
// owns all websocket writes.
func (s *Server) handleVoiceWS(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "orchestrator not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess := s.sessions.Create(r.RemoteAddr)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer func() {
		_, _ = s.sessions.End(sess.ID)
		s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
		s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Let the janitor tear this connection down when the session expires;
	// closing the socket unblocks the read loop immediately.
	_ = s.sessions.BindCancel(sess.ID, func() {
		cancel()
		_ = conn.Close()
	})

	inbound := make(chan any, 256)
	outbound := make(chan any, 256)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		_ = s.orchestrator.RunConnection(ctx, sess, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(8 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			// Unknown and malformed events are dropped without a reply;
			// only the counter records that anything arrived at all.
			s.metrics.WSMessages.WithLabelValues("inbound", "dropped").Inc()
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
}

// handlePreviewTTS synthesizes arbitrary text and returns it as a WAV file,
// for checking voice configuration without opening a session.
func (s *Server) handlePreviewTTS(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "orchestrator not configured")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	samples, rate := s.orchestrator.PreviewSpeech(r.Context(), req.Text)
	wav := audio.EncodeWAVPCM16LE(audio.Float32ToPCM16LE(samples), rate)
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}

func (s *Server) handleRecentTurns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	stats, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ledger_error", err.Error())
		return
	}
	out := make([]map[string]any, 0, len(stats))
	for _, st := range stats {
		out = append(out, map[string]any{
			"id":               st.ID,
			"session_id":       st.SessionID,
			"outcome":          string(st.Outcome),
			"transcript_chars": st.TranscriptChars,
			"reply_chars":      st.ReplyChars,
			"audio_samples":    st.AudioSamples,
			"stt_millis":       st.STTMillis,
			"brain_millis":     st.BrainMillis,
			"tts_millis":       st.TTSMillis,
			"created_at":       st.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"turns": out})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.StartListening:
		return m.Type, true
	case protocol.StopListening:
		return m.Type, true
	case protocol.Audio:
		return m.Type, true
	case protocol.Ping:
		return m.Type, true
	case protocol.ListeningStarted:
		return m.Type, true
	case protocol.ListeningStopped:
		return m.Type, true
	case protocol.Transcript:
		return m.Type, true
	case protocol.ResponseText:
		return m.Type, true
	case protocol.AudioResponse:
		return m.Type, true
	case protocol.Pong:
		return m.Type, true
	default:
		return "", false
	}
}
