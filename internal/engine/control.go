package engine

import (
	"fmt"

	"github.com/louisbranch/roundtable/internal/troupe"
)

// Stop cancels the session. The engine observes the signal between states
// and transitions to the terminal state without finishing the in-flight
// responder iteration. Stop is idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Pause suspends cycle progression at the next state boundary. Pausing an
// already-paused engine is a no-op.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return
	}
	e.paused = true
	e.resumeCh = make(chan struct{})
}

// Resume releases a paused engine.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		return
	}
	e.paused = false
	close(e.resumeCh)
}

// SubmitExternalTurn resolves a pending externally-driven actor's turn. It
// fails with ErrNoPendingTurn when the engine is not waiting on that actor.
// An accepted submission is delivered even when it races the turn deadline.
func (e *Engine) SubmitExternalTurn(actorID, text string) error {
	e.mu.Lock()
	ch, ok := e.pending[actorID]
	if ok {
		delete(e.pending, actorID)
		// Buffered; delivering under the lock lets the deadline path
		// treat a claimed slot as a completed submission.
		ch <- text
	}
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPendingTurn, actorID)
	}
	return nil
}

// ExcludeActor removes an actor from eligibility (for example,
// incapacitated) until included again. The registry entry is untouched.
func (e *Engine) ExcludeActor(actorID string) error {
	if _, err := e.deps.Registry.Entry(actorID); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.excluded[actorID] = struct{}{}
	return nil
}

// IncludeActor restores an excluded actor's eligibility.
func (e *Engine) IncludeActor(actorID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.excluded, actorID)
}

// EndEpisode closes the current combat episode, discarding any cached
// initiative order. The next initiative intent rolls fresh.
func (e *Engine) EndEpisode() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initiative = nil
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Cycle returns the number of completed cycles.
func (e *Engine) Cycle() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycle
}

// Eligible returns the actors currently eligible to respond, in
// registration order.
func (e *Engine) Eligible() []troupe.Entry {
	roster := e.deps.Registry.Snapshot()
	out := make([]troupe.Entry, 0, len(roster))
	for _, actorID := range e.eligibleIDs() {
		out = append(out, roster[actorID])
	}
	return out
}
