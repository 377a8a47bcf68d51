package collect

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/louisbranch/roundtable/internal/generate"
	"github.com/louisbranch/roundtable/internal/intent"
	"github.com/louisbranch/roundtable/internal/troupe"
)

type fakeIntentProvider struct {
	signals map[string]intent.Signal
	errs    map[string]error
	delays  map[string]time.Duration
	calls   atomic.Int64
}

func (p *fakeIntentProvider) GenerateIntent(ctx context.Context, input generate.IntentInput) (intent.Signal, error) {
	p.calls.Add(1)
	if delay, ok := p.delays[input.Actor.ID]; ok {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return intent.Signal{}, ctx.Err()
		}
	}
	if err, ok := p.errs[input.Actor.ID]; ok {
		return intent.Signal{}, err
	}
	return p.signals[input.Actor.ID], nil
}

func actors(ids ...string) []troupe.Entry {
	out := make([]troupe.Entry, len(ids))
	for i, id := range ids {
		out[i] = troupe.Entry{ID: id, Name: id, Capability: troupe.CapabilityAutomated}
	}
	return out
}

func TestCollectGathersAllSignals(t *testing.T) {
	provider := &fakeIntentProvider{
		signals: map[string]intent.Signal{
			"thorin": {WantsToAct: true, Relevance: 8, Justification: "knows stonework"},
			"mira":   {WantsToAct: false, Relevance: 2, Justification: "hangs back"},
		},
	}
	collector := NewCollector(provider, time.Second)

	got := collector.Collect(context.Background(), Input{
		DirectorText: "The wall bears runes.",
		Actors:       actors("thorin", "mira"),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(got))
	}
	if !got["thorin"].WantsToAct || got["thorin"].Relevance != 8 {
		t.Fatalf("unexpected thorin signal %+v", got["thorin"])
	}
	if got["thorin"].ActorID != "thorin" {
		t.Fatalf("collector must stamp actor id, got %q", got["thorin"].ActorID)
	}
	if got["mira"].WantsToAct {
		t.Fatalf("unexpected mira signal %+v", got["mira"])
	}
}

func TestCollectSynthesizesDeclinedOnError(t *testing.T) {
	provider := &fakeIntentProvider{
		signals: map[string]intent.Signal{
			"mira": {WantsToAct: true, Relevance: 6},
		},
		errs: map[string]error{
			"thorin": errors.New("model unavailable"),
		},
	}
	collector := NewCollector(provider, time.Second)

	got := collector.Collect(context.Background(), Input{Actors: actors("thorin", "mira")})
	if got["thorin"].WantsToAct || got["thorin"].Relevance != 0 {
		t.Fatalf("expected declined fallback for thorin, got %+v", got["thorin"])
	}
	// One actor's failure never aborts collection for others.
	if !got["mira"].WantsToAct {
		t.Fatalf("expected mira signal to survive, got %+v", got["mira"])
	}
}

func TestCollectTimesOutSlowActor(t *testing.T) {
	provider := &fakeIntentProvider{
		signals: map[string]intent.Signal{
			"thorin": {WantsToAct: true, Relevance: 9},
			"mira":   {WantsToAct: true, Relevance: 4},
		},
		delays: map[string]time.Duration{
			"mira": 500 * time.Millisecond,
		},
	}
	collector := NewCollector(provider, 30*time.Millisecond)

	start := time.Now()
	got := collector.Collect(context.Background(), Input{Actors: actors("thorin", "mira")})
	elapsed := time.Since(start)

	if got["mira"].WantsToAct || got["mira"].Relevance != 0 {
		t.Fatalf("expected timed-out mira to decline, got %+v", got["mira"])
	}
	if !got["thorin"].WantsToAct {
		t.Fatalf("expected thorin signal, got %+v", got["thorin"])
	}
	if elapsed > 300*time.Millisecond {
		t.Fatalf("collection waited past the deadline: %v", elapsed)
	}
	// No retry within the cycle.
	if calls := provider.calls.Load(); calls != 2 {
		t.Fatalf("expected 2 provider calls, got %d", calls)
	}
}

func TestCollectClampsRelevance(t *testing.T) {
	provider := &fakeIntentProvider{
		signals: map[string]intent.Signal{
			"thorin": {WantsToAct: true, Relevance: 42},
		},
	}
	collector := NewCollector(provider, time.Second)

	got := collector.Collect(context.Background(), Input{Actors: actors("thorin")})
	if got["thorin"].Relevance != 10 {
		t.Fatalf("expected clamped relevance 10, got %d", got["thorin"].Relevance)
	}
}

func TestCollectEmptyActorList(t *testing.T) {
	collector := NewCollector(&fakeIntentProvider{}, time.Second)

	got := collector.Collect(context.Background(), Input{})
	if len(got) != 0 {
		t.Fatalf("expected no signals, got %d", len(got))
	}
}
