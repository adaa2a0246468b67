package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeStartListening MessageType = "start_listening"
	TypeStopListening  MessageType = "stop_listening"
	TypeAudio          MessageType = "audio"
	TypePing           MessageType = "ping"

	TypeListeningStarted MessageType = "listening_started"
	TypeListeningStopped MessageType = "listening_stopped"
	TypeTranscript       MessageType = "transcript"
	TypeResponseText     MessageType = "response_text"
	TypeAudioResponse    MessageType = "audio_response"
	TypePong             MessageType = "pong"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// StartListening arms the session: the audio accumulator is cleared and
// subsequent Audio frames are buffered until StopListening.
type StartListening struct {
	Type MessageType `json:"type"`
}

// StopListening marks the utterance boundary and triggers one pipeline run.
type StopListening struct {
	Type MessageType `json:"type"`
}

// Audio carries one chunk of microphone samples, base64 of 32-bit float
// little-endian PCM at the configured input sample rate.
type Audio struct {
	Type MessageType `json:"type"`
	Data string      `json:"data"`
}

type Ping struct {
	Type MessageType `json:"type"`
}

type ListeningStarted struct {
	Type MessageType `json:"type"`
}

type ListeningStopped struct {
	Type MessageType `json:"type"`
}

// Transcript is emitted exactly once per utterance, even when the decoded
// text is empty.
type Transcript struct {
	Type  MessageType `json:"type"`
	Text  string      `json:"text"`
	Final bool        `json:"final"`
}

type ResponseText struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// AudioResponse carries the synthesized reply. SampleRate is always set so
// clients never hardcode the synthesis rate.
type AudioResponse struct {
	Type       MessageType `json:"type"`
	Data       string      `json:"data"`
	SampleRate int         `json:"sample_rate"`
	Text       string      `json:"text"`
}

type Pong struct {
	Type MessageType `json:"type"`
}

// ParseClientMessage decodes one inbound event. Unknown types and malformed
// payloads come back as errors; the relay drops them without responding
// (fail-open, see the relay package).
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeStartListening:
		return StartListening{Type: env.Type}, nil
	case TypeStopListening:
		return StopListening{Type: env.Type}, nil
	case TypeAudio:
		var msg Audio
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Data == "" {
			return nil, errors.New("invalid audio: missing data")
		}
		return msg, nil
	case TypePing:
		return Ping{Type: env.Type}, nil
	default:
		return nil, ErrUnsupportedType
	}
}
