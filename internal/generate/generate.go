// Package generate defines the collaborator contracts the engine consumes
// to produce utterances: director narration, actor willingness signals, and
// actor turns. The language-model layer behind these contracts is external;
// this package only fixes the call shapes and supplies a scripted
// implementation plus an OpenAI-compatible HTTP adapter.
package generate

import (
	"context"

	"github.com/louisbranch/roundtable/internal/intent"
	"github.com/louisbranch/roundtable/internal/troupe"
)

// Utterance is a director production: text plus optional structured routing
// metadata. Metadata, when present, overrides text classification.
type Utterance struct {
	Text string
	Meta *intent.Metadata
}

// DirectorInput carries the prompt and rendered context window for a
// director turn.
type DirectorInput struct {
	Prompt string
	Window string
}

// DirectorProvider produces director utterances.
type DirectorProvider interface {
	GenerateDirectorTurn(ctx context.Context, input DirectorInput) (Utterance, error)
}

// IntentInput carries everything an actor needs to report willingness.
type IntentInput struct {
	Actor        troupe.Entry
	DirectorText string
	Window       string
}

// IntentProvider produces an actor's willingness signal for an open prompt.
// Implementations must honor the context deadline; callers treat overruns
// as a declined signal.
type IntentProvider interface {
	GenerateIntent(ctx context.Context, input IntentInput) (intent.Signal, error)
}

// TurnInput carries the context an actor needs to take a full turn.
type TurnInput struct {
	Actor  troupe.Entry
	Window string
}

// TurnProvider produces a full turn for an automated actor. It is also used
// to synthesize fallback turns when an externally-driven actor misses its
// submission deadline.
type TurnProvider interface {
	GenerateTurn(ctx context.Context, input TurnInput) (string, error)
}
