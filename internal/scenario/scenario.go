// Package scenario loads YAML session definitions: the actor roster, the
// director prompts, scheduler tuning, and optional scripts for offline runs.
// A scenario is the single input cmd/session needs to wire a whole session.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/roundtable/internal/engine"
	"github.com/louisbranch/roundtable/internal/generate"
	"github.com/louisbranch/roundtable/internal/intent"
	"github.com/louisbranch/roundtable/internal/schedule"
	"github.com/louisbranch/roundtable/internal/troupe"
)

var (
	// ErrNoActors indicates a scenario without any roster entries.
	ErrNoActors = errors.New("scenario requires at least one actor")
	// ErrUnknownCapability indicates an unrecognized actor capability.
	ErrUnknownCapability = errors.New("unknown actor capability")
	// ErrUnknownMode indicates an unrecognized script mode tag.
	ErrUnknownMode = errors.New("unknown script mode")
)

// Duration wraps time.Duration with YAML decoding from strings like "30s".
type Duration time.Duration

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Scenario is a full session definition.
type Scenario struct {
	Name     string       `yaml:"name"`
	Director DirectorSpec `yaml:"director"`
	Actors   []ActorSpec  `yaml:"actors"`
	Schedule ScheduleSpec `yaml:"scheduler"`
	Engine   EngineSpec   `yaml:"engine"`
}

// DirectorSpec configures the director side of a session. A non-empty
// Script makes the session replayable offline.
type DirectorSpec struct {
	Name               string     `yaml:"name"`
	InitialPrompt      string     `yaml:"initial_prompt"`
	ContinuationPrompt string     `yaml:"continuation_prompt"`
	Script             []LineSpec `yaml:"script"`
}

// LineSpec is one scripted director utterance with optional routing.
type LineSpec struct {
	Text   string `yaml:"text"`
	Mode   string `yaml:"mode"`   // directed | open | initiative
	Target string `yaml:"target"` // actor id; directed only
}

// ActorSpec is one roster entry.
type ActorSpec struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Aliases    []string    `yaml:"aliases"`
	Profile    string      `yaml:"profile"`
	Capability string      `yaml:"capability"` // automated | external
	Script     []string    `yaml:"script"`
	Signal     *SignalSpec `yaml:"signal"`
}

// SignalSpec is a fixed willingness signal for scripted runs.
type SignalSpec struct {
	WantsToAct    bool   `yaml:"wants_to_act"`
	Relevance     int    `yaml:"relevance"`
	Justification string `yaml:"justification"`
}

// ScheduleSpec tunes responder ordering. Zero values take the defaults.
type ScheduleSpec struct {
	RelevanceWeight float64 `yaml:"relevance_weight"`
	RecencyWeight   float64 `yaml:"recency_weight"`
	VarietyWeight   float64 `yaml:"variety_weight"`
	RecencyHorizon  uint64  `yaml:"recency_horizon"`
	VarietyPenalty  float64 `yaml:"variety_penalty"`
}

// EngineSpec tunes the cycle loop. Zero values take the defaults.
type EngineSpec struct {
	MaxCycles            int      `yaml:"max_cycles"`
	WindowSize           int      `yaml:"window_size"`
	InitiativeTriggers   []string `yaml:"initiative_triggers"`
	ExtraCombatants      []string `yaml:"extra_combatants"`
	IntentTimeout        Duration `yaml:"intent_timeout"`
	AutomatedTurnTimeout Duration `yaml:"automated_turn_timeout"`
	ExternalTurnTimeout  Duration `yaml:"external_turn_timeout"`
	DirectorTimeout      Duration `yaml:"director_timeout"`
	// Seed pins the session's base seed for reproducible replays. When
	// absent the command draws a fresh one.
	Seed *int64 `yaml:"seed"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if len(s.Actors) == 0 {
		return ErrNoActors
	}
	ids := make(map[string]struct{}, len(s.Actors))
	for _, actor := range s.Actors {
		if strings.TrimSpace(actor.ID) == "" {
			return troupe.ErrEmptyActorID
		}
		if _, err := parseCapability(actor.Capability); err != nil {
			return fmt.Errorf("actor %s: %w", actor.ID, err)
		}
		ids[actor.ID] = struct{}{}
	}
	for i, line := range s.Director.Script {
		mode, err := parseMode(line.Mode)
		if err != nil {
			return fmt.Errorf("director script line %d: %w", i+1, err)
		}
		if mode != intent.ModeDirected {
			continue
		}
		if _, ok := ids[line.Target]; !ok {
			return fmt.Errorf("director script line %d: %w: %q", i+1, troupe.ErrUnknownActor, line.Target)
		}
	}
	return nil
}

func parseCapability(raw string) (troupe.Capability, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "automated":
		return troupe.CapabilityAutomated, nil
	case "external":
		return troupe.CapabilityExternal, nil
	default:
		return troupe.CapabilityUnspecified, fmt.Errorf("%w: %q", ErrUnknownCapability, raw)
	}
}

func parseMode(raw string) (intent.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return intent.ModeUnspecified, nil
	case "directed":
		return intent.ModeDirected, nil
	case "open":
		return intent.ModeOpen, nil
	case "initiative":
		return intent.ModeInitiative, nil
	default:
		return intent.ModeUnspecified, fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

// Registry builds the actor registry from the roster.
func (s *Scenario) Registry() (*troupe.Registry, error) {
	registry := troupe.NewRegistry()
	for _, actor := range s.Actors {
		capability, err := parseCapability(actor.Capability)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(troupe.Entry{
			ID:         actor.ID,
			Name:       actor.Name,
			Aliases:    actor.Aliases,
			Profile:    actor.Profile,
			Capability: capability,
		}); err != nil {
			return nil, fmt.Errorf("register %s: %w", actor.ID, err)
		}
	}
	return registry, nil
}

// EngineConfig maps the scenario onto an engine configuration.
func (s *Scenario) EngineConfig() engine.Config {
	var baseSeed int64
	if s.Engine.Seed != nil {
		baseSeed = *s.Engine.Seed
	}
	return engine.Config{
		BaseSeed:             baseSeed,
		DirectorName:         s.Director.Name,
		InitialPrompt:        s.Director.InitialPrompt,
		ContinuationPrompt:   s.Director.ContinuationPrompt,
		MaxCycles:            s.Engine.MaxCycles,
		WindowSize:           s.Engine.WindowSize,
		InitiativeTriggers:   s.Engine.InitiativeTriggers,
		ExtraCombatants:      s.Engine.ExtraCombatants,
		IntentTimeout:        time.Duration(s.Engine.IntentTimeout),
		AutomatedTurnTimeout: time.Duration(s.Engine.AutomatedTurnTimeout),
		ExternalTurnTimeout:  time.Duration(s.Engine.ExternalTurnTimeout),
		DirectorTimeout:      time.Duration(s.Engine.DirectorTimeout),
		Schedule: schedule.Config{
			Weights: schedule.Weights{
				Relevance: s.Schedule.RelevanceWeight,
				Recency:   s.Schedule.RecencyWeight,
				Variety:   s.Schedule.VarietyWeight,
			},
			RecencyHorizon: s.Schedule.RecencyHorizon,
			VarietyPenalty: s.Schedule.VarietyPenalty,
		},
	}
}

// HasDirectorScript reports whether the scenario carries scripted director
// lines and can run without an external model.
func (s *Scenario) HasDirectorScript() bool {
	return len(s.Director.Script) > 0
}

// ScriptedDirector builds the scripted director from the scenario. Call only
// when HasDirectorScript reports true.
func (s *Scenario) ScriptedDirector() *generate.ScriptedDirector {
	utterances := make([]generate.Utterance, len(s.Director.Script))
	for i, line := range s.Director.Script {
		utterance := generate.Utterance{Text: line.Text}
		if mode, err := parseMode(line.Mode); err == nil && mode.IsValid() {
			utterance.Meta = &intent.Metadata{Mode: mode, TargetID: line.Target}
		}
		utterances[i] = utterance
	}
	return generate.NewScriptedDirector(utterances)
}

// ScriptedTroupe builds the scripted actor provider from per-actor scripts
// and fixed signals.
func (s *Scenario) ScriptedTroupe() *generate.ScriptedTroupe {
	turns := make(map[string][]string)
	signals := make(map[string]intent.Signal)
	for _, actor := range s.Actors {
		if len(actor.Script) > 0 {
			turns[actor.ID] = actor.Script
		}
		if actor.Signal != nil {
			signals[actor.ID] = intent.Signal{
				WantsToAct:    actor.Signal.WantsToAct,
				Relevance:     actor.Signal.Relevance,
				Justification: actor.Signal.Justification,
			}
		}
	}
	return generate.NewScriptedTroupe(turns, signals)
}
