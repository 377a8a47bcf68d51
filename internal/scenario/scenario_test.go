package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/roundtable/internal/generate"
	"github.com/louisbranch/roundtable/internal/intent"
	"github.com/louisbranch/roundtable/internal/troupe"
)

const sampleScenario = `
name: goblin-ambush
director:
  name: DM
  initial_prompt: Open the session at the cave mouth.
  continuation_prompt: Continue the scene.
  script:
    - text: The cave mouth yawns before you.
    - text: Thorin, you hear skittering.
      mode: directed
      target: thorin
    - text: Roll for initiative!
      mode: initiative
actors:
  - id: thorin
    name: Thorin
    aliases: [thorin son of thrain]
    profile: a gruff dwarf fighter
    capability: automated
    script:
      - Thorin hefts his axe.
    signal:
      wants_to_act: true
      relevance: 7
      justification: the dwarf smells goblins
  - id: mira
    name: Mira
    capability: external
scheduler:
  relevance_weight: 0.6
  recency_weight: 0.2
  variety_weight: 0.2
  recency_horizon: 8
engine:
  max_cycles: 3
  window_size: 10
  extra_combatants: [goblin-1]
  external_turn_timeout: 45s
  seed: 1234
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleScenario))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.Name != "goblin-ambush" {
		t.Errorf("Name = %q, want goblin-ambush", s.Name)
	}
	if len(s.Actors) != 2 {
		t.Fatalf("got %d actors, want 2", len(s.Actors))
	}
	if len(s.Director.Script) != 3 {
		t.Fatalf("got %d director lines, want 3", len(s.Director.Script))
	}
	if got := time.Duration(s.Engine.ExternalTurnTimeout); got != 45*time.Second {
		t.Errorf("ExternalTurnTimeout = %v, want 45s", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "no actors",
			yaml:    "name: empty\n",
			wantErr: ErrNoActors,
		},
		{
			name:    "missing actor id",
			yaml:    "actors:\n  - name: Ghost\n",
			wantErr: troupe.ErrEmptyActorID,
		},
		{
			name:    "bad capability",
			yaml:    "actors:\n  - id: x\n    capability: psychic\n",
			wantErr: ErrUnknownCapability,
		},
		{
			name:    "bad script mode",
			yaml:    "director:\n  script:\n    - text: hi\n      mode: sideways\nactors:\n  - id: x\n",
			wantErr: ErrUnknownMode,
		},
		{
			name:    "directed script line targets unknown actor",
			yaml:    "director:\n  script:\n    - text: Your move.\n      mode: directed\n      target: ghost\nactors:\n  - id: aria\n",
			wantErr: troupe.ErrUnknownActor,
		},
		{
			name:    "directed script line missing target",
			yaml:    "director:\n  script:\n    - text: Your move.\n      mode: directed\nactors:\n  - id: aria\n",
			wantErr: troupe.ErrUnknownActor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte("actors: [")); err == nil {
		t.Error("Parse() error = nil for malformed yaml")
	}
}

func TestRegistry(t *testing.T) {
	s, err := Parse([]byte(sampleScenario))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	registry, err := s.Registry()
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}
	if registry.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", registry.Len())
	}

	thorin, err := registry.Entry("thorin")
	if err != nil {
		t.Fatalf("Entry(thorin) error = %v", err)
	}
	if thorin.Capability != troupe.CapabilityAutomated {
		t.Errorf("thorin capability = %v, want automated", thorin.Capability)
	}
	if len(thorin.Aliases) != 1 || thorin.Aliases[0] != "thorin son of thrain" {
		t.Errorf("thorin aliases = %v", thorin.Aliases)
	}

	mira, err := registry.Entry("mira")
	if err != nil {
		t.Fatalf("Entry(mira) error = %v", err)
	}
	if mira.Capability != troupe.CapabilityExternal {
		t.Errorf("mira capability = %v, want external", mira.Capability)
	}
}

func TestEngineConfig(t *testing.T) {
	s, err := Parse([]byte(sampleScenario))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg := s.EngineConfig()
	if cfg.DirectorName != "DM" {
		t.Errorf("DirectorName = %q, want DM", cfg.DirectorName)
	}
	if cfg.MaxCycles != 3 || cfg.WindowSize != 10 {
		t.Errorf("MaxCycles=%d WindowSize=%d, want 3 and 10", cfg.MaxCycles, cfg.WindowSize)
	}
	if cfg.ExternalTurnTimeout != 45*time.Second {
		t.Errorf("ExternalTurnTimeout = %v, want 45s", cfg.ExternalTurnTimeout)
	}
	if cfg.Schedule.Weights.Relevance != 0.6 {
		t.Errorf("relevance weight = %v, want 0.6", cfg.Schedule.Weights.Relevance)
	}
	if cfg.Schedule.RecencyHorizon != 8 {
		t.Errorf("recency horizon = %d, want 8", cfg.Schedule.RecencyHorizon)
	}
	if len(cfg.ExtraCombatants) != 1 || cfg.ExtraCombatants[0] != "goblin-1" {
		t.Errorf("ExtraCombatants = %v", cfg.ExtraCombatants)
	}
	if cfg.BaseSeed != 1234 {
		t.Errorf("BaseSeed = %d, want 1234", cfg.BaseSeed)
	}
}

func TestScriptedProviders(t *testing.T) {
	s, err := Parse([]byte(sampleScenario))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !s.HasDirectorScript() {
		t.Fatal("HasDirectorScript() = false, want true")
	}

	ctx := context.Background()

	director := s.ScriptedDirector()
	first, err := director.GenerateDirectorTurn(ctx, generate.DirectorInput{})
	if err != nil {
		t.Fatalf("GenerateDirectorTurn() error = %v", err)
	}
	if first.Meta != nil {
		t.Errorf("first line meta = %+v, want nil", first.Meta)
	}

	second, err := director.GenerateDirectorTurn(ctx, generate.DirectorInput{})
	if err != nil {
		t.Fatalf("GenerateDirectorTurn() error = %v", err)
	}
	if second.Meta == nil || second.Meta.Mode != intent.ModeDirected || second.Meta.TargetID != "thorin" {
		t.Errorf("second line meta = %+v, want directed at thorin", second.Meta)
	}

	troupeProv := s.ScriptedTroupe()
	signal, err := troupeProv.GenerateIntent(ctx, generate.IntentInput{
		Actor: troupe.Entry{ID: "thorin", Name: "Thorin"},
	})
	if err != nil {
		t.Fatalf("GenerateIntent() error = %v", err)
	}
	if !signal.WantsToAct || signal.Relevance != 7 {
		t.Errorf("thorin signal = %+v, want wants=true relevance=7", signal)
	}
}
