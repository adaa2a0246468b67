package brain

import (
	"context"
	"fmt"

	"github.com/antoniostano/clawvoice/internal/convo"
)

// standIn echoes the user's words back, keeping the full turn cycle
// exercisable without any conversational backend.
type standIn struct{}

func (standIn) Name() string { return "standin" }

func (standIn) Respond(_ context.Context, message string, _ []convo.Turn) (string, error) {
	return fmt.Sprintf("I heard you say: %s", message), nil
}
