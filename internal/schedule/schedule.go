// Package schedule orders willing responders for an open prompt.
//
// Ordering is a pure function of the collected signals, the registry's
// recency state, and a seeded tie-breaker; given the same inputs and seed it
// always produces the same order.
package schedule

import (
	"math/rand"
	"slices"
	"strings"

	"github.com/louisbranch/roundtable/internal/intent"
	"github.com/louisbranch/roundtable/internal/troupe"
)

// Weights control the relative contribution of each scoring term.
type Weights struct {
	Relevance float64
	Recency   float64
	Variety   float64
}

// DefaultWeights returns the standard 50/30/20 split.
func DefaultWeights() Weights {
	return Weights{Relevance: 0.5, Recency: 0.3, Variety: 0.2}
}

const (
	// DefaultRecencyHorizon is the sequence distance at which the recency
	// bonus saturates.
	DefaultRecencyHorizon = 12
	// DefaultVarietyPenalty is the variety bonus for an actor that led one
	// of the last two cycles. Leading again stays possible, just costlier.
	DefaultVarietyPenalty = 0.25
)

// Config tunes the scheduler.
type Config struct {
	Weights        Weights
	RecencyHorizon uint64
	VarietyPenalty float64
}

func (c Config) withDefaults() Config {
	zero := Weights{}
	if c.Weights == zero {
		c.Weights = DefaultWeights()
	}
	if c.RecencyHorizon == 0 {
		c.RecencyHorizon = DefaultRecencyHorizon
	}
	if c.VarietyPenalty <= 0 {
		c.VarietyPenalty = DefaultVarietyPenalty
	}
	return c
}

// Input describes one ordering decision.
type Input struct {
	// Signals holds each eligible actor's willingness signal.
	Signals map[string]intent.Signal
	// Roster is the registry snapshot used for recency scoring.
	Roster map[string]troupe.Entry
	// Eligible lists the actor identities that may respond this cycle.
	Eligible []string
	// CurrentSeq is the sequence number of the director utterance that
	// opened the cycle.
	CurrentSeq uint64
	// RecentLeads holds the actors that occupied the first responder slot
	// in the last two cycles, most recent last.
	RecentLeads []string
	// Seed drives tie-breaking and the fallback draw. Deriving it from
	// CurrentSeq makes orderings reproducible.
	Seed int64
}

// Ranked is one scheduled responder.
type Ranked struct {
	ActorID string
	Score   float64
	// Fallback marks the single responder drawn when nobody volunteered.
	Fallback bool
}

// Order returns willing responders by priority score, descending. When no
// eligible actor wants to act, it returns a single uniformly-drawn fallback
// responder so the cycle never stalls with an empty order.
func Order(cfg Config, input Input) []Ranked {
	cfg = cfg.withDefaults()
	if len(input.Eligible) == 0 {
		return nil
	}

	eligible := slices.Clone(input.Eligible)
	slices.Sort(eligible)
	rng := rand.New(rand.NewSource(input.Seed))

	var ranked []Ranked
	tiebreak := make(map[string]float64, len(eligible))
	for _, actorID := range eligible {
		// Draw for every candidate in sorted order so the consumed
		// randomness does not depend on who volunteered.
		tiebreak[actorID] = rng.Float64()

		signal, ok := input.Signals[actorID]
		if !ok || !signal.WantsToAct {
			continue
		}
		ranked = append(ranked, Ranked{
			ActorID: actorID,
			Score:   score(cfg, signal, input, actorID),
		})
	}

	if len(ranked) == 0 {
		return []Ranked{{ActorID: eligible[rng.Intn(len(eligible))], Fallback: true}}
	}

	slices.SortFunc(ranked, func(a, b Ranked) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		switch {
		case tiebreak[a.ActorID] > tiebreak[b.ActorID]:
			return -1
		case tiebreak[a.ActorID] < tiebreak[b.ActorID]:
			return 1
		}
		return strings.Compare(a.ActorID, b.ActorID)
	})
	return ranked
}

func score(cfg Config, signal intent.Signal, input Input, actorID string) float64 {
	relevance := float64(intent.ClampRelevance(signal.Relevance)) / 10.0

	entry := input.Roster[actorID]
	recency := 1.0
	if entry.HasActed {
		gap := input.CurrentSeq - entry.LastTurnSeq
		recency = float64(gap) / float64(cfg.RecencyHorizon)
		if recency > 1.0 {
			recency = 1.0
		}
	}

	variety := 1.0
	if slices.Contains(lastTwo(input.RecentLeads), actorID) {
		variety = cfg.VarietyPenalty
	}

	return cfg.Weights.Relevance*relevance + cfg.Weights.Recency*recency + cfg.Weights.Variety*variety
}

func lastTwo(leads []string) []string {
	if len(leads) <= 2 {
		return leads
	}
	return leads[len(leads)-2:]
}
