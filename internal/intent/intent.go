// Package intent classifies director utterances into control modes and
// defines the willingness signal actors report before an open prompt.
package intent

import "fmt"

// Mode describes how responders are chosen for a director utterance.
type Mode int

const (
	// ModeUnspecified represents an invalid mode value.
	ModeUnspecified Mode = iota
	// ModeDirected addresses a single named actor.
	ModeDirected
	// ModeOpen invites any actor to respond, ordered by priority.
	ModeOpen
	// ModeInitiative starts or continues a combat episode with a fixed
	// initiative order.
	ModeInitiative
)

// String returns the mode's display name.
func (m Mode) String() string {
	switch m {
	case ModeDirected:
		return "DIRECTED"
	case ModeOpen:
		return "OPEN"
	case ModeInitiative:
		return "INITIATIVE"
	default:
		return fmt.Sprintf("UNSPECIFIED(%d)", int(m))
	}
}

// IsValid reports whether the mode is supported.
func (m Mode) IsValid() bool {
	switch m {
	case ModeDirected, ModeOpen, ModeInitiative:
		return true
	default:
		return false
	}
}

// Context tags describing the narrative register of an utterance.
const (
	ContextExploration = "exploration"
	ContextCombat      = "combat"
	ContextDialogue    = "dialogue"
)

// Metadata is structured routing information a director collaborator may
// attach to an utterance. When present it overrides text classification.
type Metadata struct {
	Mode     Mode
	TargetID string // actor identity; meaningful for ModeDirected
}

// Intent is the transient classification of a director utterance. It is
// derived fresh each cycle and never persisted.
type Intent struct {
	Mode     Mode
	TargetID string // present iff Mode is ModeDirected
	Context  string
}

// Signal is an actor's self-reported willingness to act on an open prompt.
// It is consumed by the scheduler and discarded after ordering.
type Signal struct {
	ActorID       string
	WantsToAct    bool
	Relevance     int // 0-10
	Justification string
}

// ClampRelevance bounds a relevance value to the 0-10 scale.
func ClampRelevance(value int) int {
	if value < 0 {
		return 0
	}
	if value > 10 {
		return 10
	}
	return value
}
