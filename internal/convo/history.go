package convo

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in the conversation history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// History holds the ordered turn sequence for one session. Storage is
// unbounded; the conversational backend only ever sees a recency window.
// A History is owned by a single session goroutine and needs no locking.
type History struct {
	turns []Turn
}

func NewHistory() *History {
	return &History{}
}

// Append records a turn. Turns arrive in strict user-then-assistant
// alternation from the relay pipeline; Append itself does not enforce that.
func (h *History) Append(role Role, text string) {
	h.turns = append(h.turns, Turn{Role: role, Text: text})
}

// Window returns the most recent n turns in original order. The returned
// slice is a copy; mutating it does not affect the history.
func (h *History) Window(n int) []Turn {
	if n <= 0 || n > len(h.turns) {
		n = len(h.turns)
	}
	out := make([]Turn, n)
	copy(out, h.turns[len(h.turns)-n:])
	return out
}

// Len reports the number of stored turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Clear resets the history to empty. Idempotent.
func (h *History) Clear() {
	h.turns = nil
}
