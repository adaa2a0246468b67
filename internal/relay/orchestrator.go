// Package relay drives the voice turn cycle for each websocket connection:
// buffer audio while listening, then transcribe, respond, and synthesize in
// strict order when the client stops the utterance.
package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antoniostano/clawvoice/internal/audio"
	"github.com/antoniostano/clawvoice/internal/brain"
	"github.com/antoniostano/clawvoice/internal/convo"
	"github.com/antoniostano/clawvoice/internal/ledger"
	"github.com/antoniostano/clawvoice/internal/observability"
	"github.com/antoniostano/clawvoice/internal/protocol"
	"github.com/antoniostano/clawvoice/internal/session"
	"github.com/antoniostano/clawvoice/internal/stt"
	"github.com/antoniostano/clawvoice/internal/tts"
	"github.com/antoniostano/clawvoice/internal/vad"
)

// Options carries the collaborators for an Orchestrator. All provider
// facades are injected; the orchestrator never constructs them itself.
type Options struct {
	STT      *stt.Transcriber
	TTS      *tts.Synthesizer
	Brain    *brain.Responder
	VAD      vad.Detector
	Sessions *session.Manager
	Ledger   ledger.Store
	Metrics  *observability.Metrics

	InputSampleRate  int
	OutputSampleRate int
	HistoryWindow    int
}

// Orchestrator owns the per-connection state machine. One goroutine per
// connection calls RunConnection; events for a session are processed
// strictly in arrival order, so a turn can never overlap with another turn
// of the same session.
type Orchestrator struct {
	stt      *stt.Transcriber
	tts      *tts.Synthesizer
	brain    *brain.Responder
	vad      vad.Detector
	sessions *session.Manager
	ledger   ledger.Store
	metrics  *observability.Metrics

	inputRate     int
	outputRate    int
	historyWindow int
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.STT == nil || opts.TTS == nil || opts.Brain == nil {
		return nil, fmt.Errorf("relay: STT, TTS, and Brain facades are required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("relay: session manager is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("relay: ledger store is required")
	}
	if opts.Metrics == nil {
		return nil, fmt.Errorf("relay: metrics are required")
	}
	if opts.VAD == nil {
		opts.VAD = vad.NewEnergy(0)
	}
	if opts.InputSampleRate <= 0 {
		opts.InputSampleRate = 16000
	}
	if opts.OutputSampleRate <= 0 {
		opts.OutputSampleRate = 24000
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 10
	}
	return &Orchestrator{
		stt:           opts.STT,
		tts:           opts.TTS,
		brain:         opts.Brain,
		vad:           opts.VAD,
		sessions:      opts.Sessions,
		ledger:        opts.Ledger,
		metrics:       opts.Metrics,
		inputRate:     opts.InputSampleRate,
		outputRate:    opts.OutputSampleRate,
		historyWindow: opts.HistoryWindow,
	}, nil
}

// STTStrategy reports the transcription strategy selected at startup.
func (o *Orchestrator) STTStrategy() string { return o.stt.StrategyName() }

// TTSStrategy reports the synthesis strategy selected at startup.
func (o *Orchestrator) TTSStrategy() string { return o.tts.StrategyName() }

// BrainStrategy reports the conversational strategy selected at startup.
func (o *Orchestrator) BrainStrategy() string { return o.brain.StrategyName() }

// RunConnection consumes parsed client events from inbound and produces
// protocol messages on outbound until inbound closes or ctx is canceled.
// The caller owns both channels and the outbound writer.
func (o *Orchestrator) RunConnection(ctx context.Context, sess *session.Session, inbound <-chan any, outbound chan<- any) error {
	listening := false
	var chunks [][]float32
	history := convo.NewHistory()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			_ = o.sessions.Touch(sess.ID)

			switch m := msg.(type) {
			case protocol.StartListening:
				// Re-entering Listening always discards prior buffered audio.
				listening = true
				chunks = nil
				o.metrics.SessionEvents.WithLabelValues("start_listening").Inc()
				if err := send(ctx, outbound, protocol.ListeningStarted{Type: protocol.TypeListeningStarted}); err != nil {
					return err
				}

			case protocol.Audio:
				if !listening {
					o.metrics.SessionEvents.WithLabelValues("audio_discarded").Inc()
					continue
				}
				samples, err := audio.DecodeFloat32LE(m.Data)
				if err != nil {
					// Malformed payloads are dropped without ending the session.
					o.metrics.SessionEvents.WithLabelValues("audio_malformed").Inc()
					continue
				}
				chunks = append(chunks, samples)
				if o.vad.IsSpeech(samples) {
					o.metrics.SessionEvents.WithLabelValues("vad_speech").Inc()
				} else {
					o.metrics.SessionEvents.WithLabelValues("vad_silence").Inc()
				}

			case protocol.StopListening:
				if !listening {
					o.metrics.SessionEvents.WithLabelValues("stop_ignored").Inc()
					continue
				}
				listening = false
				o.metrics.SessionEvents.WithLabelValues("stop_listening").Inc()
				if err := o.runTurn(ctx, sess, history, chunks, outbound); err != nil {
					return err
				}
				chunks = nil
				if err := send(ctx, outbound, protocol.ListeningStopped{Type: protocol.TypeListeningStopped}); err != nil {
					return err
				}

			case protocol.Ping:
				if err := send(ctx, outbound, protocol.Pong{Type: protocol.TypePong}); err != nil {
					return err
				}
			}
		}
	}
}

// runTurn executes one utterance pipeline and emits transcript,
// response_text, and audio_response in that order. Provider failures are
// contained inside the facades, so the only errors here are cancellation.
func (o *Orchestrator) runTurn(ctx context.Context, sess *session.Session, history *convo.History, chunks [][]float32, outbound chan<- any) error {
	stat := ledger.TurnStat{SessionID: sess.ID, Outcome: ledger.OutcomeEmpty}

	var transcript string
	samples := audio.Concat(chunks)
	if len(samples) > 0 {
		sttStart := time.Now()
		transcript = o.stt.Transcribe(ctx, samples, o.inputRate)
		stat.STTMillis = time.Since(sttStart).Milliseconds()
		o.metrics.ObserveStage("stt", time.Since(sttStart))
	}
	stat.TranscriptChars = len(transcript)

	if err := send(ctx, outbound, protocol.Transcript{
		Type:  protocol.TypeTranscript,
		Text:  transcript,
		Final: true,
	}); err != nil {
		return err
	}

	if strings.TrimSpace(transcript) != "" {
		// The window excludes the current message; strategies append it
		// themselves as the final user content.
		brainStart := time.Now()
		reply := o.brain.Respond(ctx, transcript, history.Window(o.historyWindow))
		stat.BrainMillis = time.Since(brainStart).Milliseconds()
		o.metrics.ObserveStage("brain", time.Since(brainStart))

		history.Append(convo.RoleUser, transcript)
		history.Append(convo.RoleAssistant, reply)
		stat.ReplyChars = len(reply)
		stat.Outcome = ledger.OutcomeAnswered
		if reply == brain.DegradedReply {
			stat.Outcome = ledger.OutcomeDegraded
		}

		if err := send(ctx, outbound, protocol.ResponseText{
			Type: protocol.TypeResponseText,
			Text: reply,
		}); err != nil {
			return err
		}

		ttsStart := time.Now()
		speech := o.tts.Speak(ctx, reply)
		stat.TTSMillis = time.Since(ttsStart).Milliseconds()
		o.metrics.ObserveStage("tts", time.Since(ttsStart))
		stat.AudioSamples = len(speech)

		if err := send(ctx, outbound, protocol.AudioResponse{
			Type:       protocol.TypeAudioResponse,
			Data:       audio.EncodeFloat32LE(speech),
			SampleRate: o.tts.SampleRate(),
			Text:       reply,
		}); err != nil {
			return err
		}
	}

	_ = o.sessions.CompleteTurn(sess.ID)
	o.metrics.Turns.WithLabelValues(string(stat.Outcome)).Inc()
	if err := o.ledger.RecordTurn(ctx, stat); err != nil {
		o.metrics.SessionEvents.WithLabelValues("ledger_error").Inc()
	}
	return nil
}

// PreviewSpeech synthesizes text outside any session, for the HTTP preview
// endpoint. It shares the synthesis facade and its containment semantics.
func (o *Orchestrator) PreviewSpeech(ctx context.Context, text string) ([]float32, int) {
	return o.tts.Speak(ctx, text), o.tts.SampleRate()
}

func send(ctx context.Context, outbound chan<- any, msg any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case outbound <- msg:
		return nil
	}
}
