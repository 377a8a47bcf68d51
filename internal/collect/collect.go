// Package collect gathers actor willingness signals for an open prompt.
//
// All eligible actors are queried concurrently under a shared deadline.
// An actor that errors, times out, or reports garbage is folded into a
// declined signal rather than failing the collection; one slow actor never
// holds up the rest of the table.
package collect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/roundtable/internal/generate"
	"github.com/louisbranch/roundtable/internal/intent"
	"github.com/louisbranch/roundtable/internal/troupe"
)

// DefaultTimeout bounds a single actor's intent generation.
const DefaultTimeout = 5 * time.Second

// Collector solicits willingness signals from eligible actors.
type Collector struct {
	provider generate.IntentProvider
	timeout  time.Duration
}

// NewCollector creates a collector. A non-positive timeout falls back to
// DefaultTimeout.
func NewCollector(provider generate.IntentProvider, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Collector{provider: provider, timeout: timeout}
}

// Input describes one collection round.
type Input struct {
	DirectorText string
	Window       string
	Actors       []troupe.Entry
}

// Collect queries every actor concurrently and returns a signal per actor.
// Failures and timeouts yield synthesized declined signals; the result
// always contains exactly one entry per input actor.
func (c *Collector) Collect(ctx context.Context, input Input) map[string]intent.Signal {
	signals := make([]intent.Signal, len(input.Actors))

	g, gctx := errgroup.WithContext(ctx)
	for i, actor := range input.Actors {
		g.Go(func() error {
			signals[i] = c.collectOne(gctx, actor, input)
			return nil
		})
	}
	// Goroutines never return errors; failures become declined signals.
	_ = g.Wait()

	out := make(map[string]intent.Signal, len(signals))
	for _, signal := range signals {
		out[signal.ActorID] = signal
	}
	return out
}

func (c *Collector) collectOne(ctx context.Context, actor troupe.Entry, input Input) intent.Signal {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	signal, err := c.provider.GenerateIntent(callCtx, generate.IntentInput{
		Actor:        actor,
		DirectorText: input.DirectorText,
		Window:       input.Window,
	})
	if err != nil {
		return declined(actor.ID, err)
	}
	signal.ActorID = actor.ID
	signal.Relevance = intent.ClampRelevance(signal.Relevance)
	return signal
}

func declined(actorID string, err error) intent.Signal {
	reason := "intent generation failed"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		reason = "intent generation timed out"
	}
	return intent.Signal{
		ActorID:       actorID,
		WantsToAct:    false,
		Relevance:     0,
		Justification: fmt.Sprintf("%s: %v", reason, err),
	}
}
