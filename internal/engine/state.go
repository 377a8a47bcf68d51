package engine

import "fmt"

// State identifies where the engine is within a cycle.
type State int

const (
	// StateAwaitingDirector waits for the director's opening utterance.
	StateAwaitingDirector State = iota
	// StateClassifying derives the director intent for the cycle.
	StateClassifying
	// StateCollectingResponders gathers willingness signals (open mode only).
	StateCollectingResponders
	// StateOrdering resolves the responder order for the cycle.
	StateOrdering
	// StateResponderActing iterates the ordered responders.
	StateResponderActing
	// StateDirectorReacting interjects a director reaction mid-iteration.
	StateDirectorReacting
	// StateCycleComplete settles recency bookkeeping before the next cycle.
	StateCycleComplete
	// StateSessionEnded is terminal; a new engine is needed to restart.
	StateSessionEnded
)

// String returns the state's display name.
func (s State) String() string {
	switch s {
	case StateAwaitingDirector:
		return "AWAITING_DIRECTOR"
	case StateClassifying:
		return "CLASSIFYING"
	case StateCollectingResponders:
		return "COLLECTING_RESPONDERS"
	case StateOrdering:
		return "ORDERING"
	case StateResponderActing:
		return "RESPONDER_ACTING"
	case StateDirectorReacting:
		return "DIRECTOR_REACTING"
	case StateCycleComplete:
		return "CYCLE_COMPLETE"
	case StateSessionEnded:
		return "SESSION_ENDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}
