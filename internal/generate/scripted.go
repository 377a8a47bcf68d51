package generate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/louisbranch/roundtable/internal/intent"
)

// ErrScriptExhausted indicates a scripted provider ran out of lines.
var ErrScriptExhausted = errors.New("script exhausted")

// ScriptedDirector replays a fixed sequence of director utterances. Once the
// script runs out it fails, which the engine treats as the director becoming
// unavailable; this gives scripted sessions a natural stopping point.
type ScriptedDirector struct {
	mu         sync.Mutex
	utterances []Utterance
	next       int
}

// NewScriptedDirector creates a director that replays the given utterances.
func NewScriptedDirector(utterances []Utterance) *ScriptedDirector {
	return &ScriptedDirector{utterances: utterances}
}

// GenerateDirectorTurn returns the next scripted utterance.
func (d *ScriptedDirector) GenerateDirectorTurn(_ context.Context, _ DirectorInput) (Utterance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.next >= len(d.utterances) {
		return Utterance{}, fmt.Errorf("director script: %w", ErrScriptExhausted)
	}
	utterance := d.utterances[d.next]
	d.next++
	return utterance, nil
}

// ScriptedTroupe replays per-actor turn lines and serves fixed willingness
// signals. Actors without scripted lines improvise a placeholder turn.
type ScriptedTroupe struct {
	mu      sync.Mutex
	turns   map[string][]string
	cursor  map[string]int
	signals map[string]intent.Signal
}

// NewScriptedTroupe creates a troupe provider from per-actor turn scripts
// and willingness signals, both keyed by actor ID.
func NewScriptedTroupe(turns map[string][]string, signals map[string]intent.Signal) *ScriptedTroupe {
	return &ScriptedTroupe{
		turns:   turns,
		cursor:  make(map[string]int),
		signals: signals,
	}
}

// GenerateIntent returns the actor's fixed signal, or an eager default when
// none was scripted.
func (s *ScriptedTroupe) GenerateIntent(_ context.Context, input IntentInput) (intent.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if signal, ok := s.signals[input.Actor.ID]; ok {
		signal.ActorID = input.Actor.ID
		signal.Relevance = intent.ClampRelevance(signal.Relevance)
		return signal, nil
	}
	return intent.Signal{
		ActorID:       input.Actor.ID,
		WantsToAct:    true,
		Relevance:     5,
		Justification: "no scripted signal",
	}, nil
}

// GenerateTurn returns the actor's next scripted line, or a placeholder once
// the script runs out.
func (s *ScriptedTroupe) GenerateTurn(_ context.Context, input TurnInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.turns[input.Actor.ID]
	index := s.cursor[input.Actor.ID]
	if index >= len(lines) {
		return fmt.Sprintf("%s waits and watches.", input.Actor.Name), nil
	}
	s.cursor[input.Actor.ID] = index + 1
	return lines[index], nil
}
