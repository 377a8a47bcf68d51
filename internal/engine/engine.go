package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/roundtable/internal/chronicle"
	"github.com/louisbranch/roundtable/internal/collect"
	"github.com/louisbranch/roundtable/internal/dice"
	"github.com/louisbranch/roundtable/internal/generate"
	"github.com/louisbranch/roundtable/internal/intent"
	"github.com/louisbranch/roundtable/internal/platform/timeouts"
	"github.com/louisbranch/roundtable/internal/schedule"
	"github.com/louisbranch/roundtable/internal/troupe"
)

const (
	// DefaultMaxCycles bounds a session that is never stopped explicitly.
	DefaultMaxCycles = 50
	// DefaultWindowSize is the number of records rendered into collaborator
	// context windows.
	DefaultWindowSize = 20

	systemSpeaker   = "system"
	defaultDirector = "director"
)

// Config tunes a session.
type Config struct {
	// DirectorName is the speaker identity used for director records.
	DirectorName string
	// InitialPrompt seeds the director's first utterance.
	InitialPrompt string
	// ContinuationPrompt drives every subsequent director utterance.
	ContinuationPrompt string
	// MaxCycles ends the session after this many completed cycles.
	MaxCycles int
	// WindowSize bounds the context window handed to collaborators.
	WindowSize int
	// InitiativeTriggers overrides the phrases that open a combat episode.
	InitiativeTriggers []string
	// ExtraCombatants are opaque initiative slots beyond registered actors,
	// such as monsters the director controls through narration.
	ExtraCombatants []string
	// BaseSeed offsets every per-record seed. Rolls and tie-breaks stay a
	// pure function of (BaseSeed, sequence number), so a pinned seed makes
	// a whole session replayable.
	BaseSeed int64
	// Schedule tunes responder ordering.
	Schedule schedule.Config

	IntentTimeout        time.Duration
	AutomatedTurnTimeout time.Duration
	ExternalTurnTimeout  time.Duration
	DirectorTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.DirectorName == "" {
		c.DirectorName = defaultDirector
	}
	if c.MaxCycles <= 0 {
		c.MaxCycles = DefaultMaxCycles
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.IntentTimeout <= 0 {
		c.IntentTimeout = timeouts.IntentCollection
	}
	if c.AutomatedTurnTimeout <= 0 {
		c.AutomatedTurnTimeout = timeouts.AutomatedTurn
	}
	if c.ExternalTurnTimeout <= 0 {
		c.ExternalTurnTimeout = timeouts.ExternalTurn
	}
	if c.DirectorTimeout <= 0 {
		c.DirectorTimeout = timeouts.DirectorTurn
	}
	return c
}

// Deps are the collaborators a session needs. All fields are required.
type Deps struct {
	Log      *chronicle.Log
	Registry *troupe.Registry
	Director generate.DirectorProvider
	Intent   generate.IntentProvider
	Turns    generate.TurnProvider
}

// directorTurn is an appended director record plus its transient routing
// metadata, which is never persisted.
type directorTurn struct {
	rec  chronicle.Record
	meta *intent.Metadata
}

// Engine runs the session cycle.
type Engine struct {
	cfg        Config
	deps       Deps
	classifier *intent.Classifier
	collector  *collect.Collector
	tracer     trace.Tracer

	// newBackOff builds the director retry policy; injectable for tests.
	newBackOff func() backoff.BackOff

	mu          sync.Mutex
	state       State
	cycle       int
	running     bool
	paused      bool
	resumeCh    chan struct{}
	recentLeads []string
	initiative  []string
	excluded    map[string]struct{}
	pending     map[string]chan string
	carryover   *directorTurn

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates an engine. Every dependency must be set.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Log == nil {
		return nil, errors.New("chronicle log is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("actor registry is required")
	}
	if deps.Director == nil {
		return nil, errors.New("director provider is required")
	}
	if deps.Intent == nil {
		return nil, errors.New("intent provider is required")
	}
	if deps.Turns == nil {
		return nil, errors.New("turn provider is required")
	}

	cfg = cfg.withDefaults()
	return &Engine{
		cfg:        cfg,
		deps:       deps,
		classifier: intent.NewClassifier(cfg.InitiativeTriggers),
		collector:  collect.NewCollector(deps.Intent, cfg.IntentTimeout),
		tracer:     otel.Tracer("github.com/louisbranch/roundtable/internal/engine"),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		excluded:   make(map[string]struct{}),
		pending:    make(map[string]chan string),
		stopCh:     make(chan struct{}),
	}, nil
}

// Run drives cycles until a stop condition and blocks until the session
// ends. It returns nil for expected endings (explicit stop, max cycles) and
// an error for fatal ones (director unavailable, log persistence failure).
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running || e.state == StateSessionEnded {
		e.mu.Unlock()
		return ErrSessionEnded
	}
	e.running = true
	e.mu.Unlock()

	err := e.loop(ctx)
	e.endSession(ctx)
	if errors.Is(err, ErrSessionStopped) {
		return nil
	}
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	for e.Cycle() < e.cfg.MaxCycles {
		if err := e.checkpoint(ctx); err != nil {
			return err
		}
		if err := e.runCycle(ctx); err != nil {
			return err
		}
		e.mu.Lock()
		e.cycle++
		e.mu.Unlock()
	}
	return nil
}

func (e *Engine) runCycle(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "engine.cycle",
		trace.WithAttributes(attribute.Int("cycle", e.Cycle())))
	defer span.End()

	e.setState(span, StateAwaitingDirector)

	turn := e.takeCarryover()
	if turn == nil {
		prompt := e.cfg.ContinuationPrompt
		if e.Cycle() == 0 {
			prompt = e.cfg.InitialPrompt
		}
		utterance, err := e.directorUtterance(ctx, prompt)
		if err != nil {
			return err
		}
		rec, err := e.deps.Log.Append(ctx, chronicle.AppendInput{
			Speaker: e.cfg.DirectorName,
			Text:    utterance.Text,
			Kind:    chronicle.KindDirector,
		})
		if err != nil {
			return fmt.Errorf("append director record: %w", err)
		}
		turn = &directorTurn{rec: rec, meta: utterance.Meta}
	}

	e.setState(span, StateClassifying)
	classified := e.classifier.Classify(turn.rec.Text, turn.meta, e.aliases())
	span.SetAttributes(attribute.String("mode", classified.Mode.String()))

	eligible := e.eligibleIDs()
	roster := e.deps.Registry.Snapshot()

	var order []string
	switch classified.Mode {
	case intent.ModeDirected:
		e.setState(span, StateOrdering)
		if slices.Contains(eligible, classified.TargetID) {
			order = []string{classified.TargetID}
		} else {
			note := fmt.Sprintf("directed prompt went unanswered: %q is not an eligible actor", classified.TargetID)
			if err := e.systemNote(ctx, note, nil); err != nil {
				return err
			}
		}
	case intent.ModeInitiative:
		e.setState(span, StateOrdering)
		var err error
		order, err = e.initiativeOrder(ctx, eligible, turn.rec.Seq)
		if err != nil {
			return err
		}
	default:
		e.setState(span, StateCollectingResponders)
		if err := e.checkpoint(ctx); err != nil {
			return err
		}
		actors := make([]troupe.Entry, 0, len(eligible))
		for _, actorID := range eligible {
			actors = append(actors, roster[actorID])
		}
		signals := e.collector.Collect(ctx, collect.Input{
			DirectorText: turn.rec.Text,
			Window:       e.deps.Log.Window(e.cfg.WindowSize),
			Actors:       actors,
		})

		e.setState(span, StateOrdering)
		ranked := schedule.Order(e.cfg.Schedule, schedule.Input{
			Signals:     signals,
			Roster:      roster,
			Eligible:    eligible,
			CurrentSeq:  turn.rec.Seq,
			RecentLeads: e.leads(),
			Seed:        e.seedFor(turn.rec.Seq),
		})
		for _, r := range ranked {
			order = append(order, r.ActorID)
		}
	}

	e.setState(span, StateResponderActing)
	acted, err := e.actResponders(ctx, span, order)
	if err != nil {
		return err
	}

	e.setState(span, StateCycleComplete)
	for _, actorID := range eligible {
		if _, ok := acted[actorID]; ok {
			continue
		}
		if markErr := e.deps.Registry.MarkSilent(actorID); markErr != nil {
			log.Printf("engine: mark silent %s: %v", actorID, markErr)
		}
	}
	return nil
}

// actResponders iterates the ordered responders. A single actor's failure is
// absorbed as a system note; log-append failures and director-reaction
// failures propagate.
func (e *Engine) actResponders(ctx context.Context, span trace.Span, order []string) (map[string]struct{}, error) {
	acted := make(map[string]struct{}, len(order))
	leadRecorded := false

	for _, actorID := range order {
		if err := e.checkpoint(ctx); err != nil {
			return acted, err
		}

		entry, err := e.deps.Registry.Entry(actorID)
		if err != nil {
			return acted, fmt.Errorf("resolve responder: %w", err)
		}

		text, synthesized, err := e.takeTurn(ctx, entry)
		if err != nil {
			if errors.Is(err, ErrSessionStopped) {
				return acted, err
			}
			invocationErr := &ActorInvocationError{ActorID: actorID, Err: err}
			if noteErr := e.systemNote(ctx, fmt.Sprintf("turn skipped: %v", invocationErr), nil); noteErr != nil {
				return acted, noteErr
			}
			continue
		}
		if synthesized {
			note := fmt.Sprintf("%s did not submit a turn within %s; a fallback turn was synthesized",
				entry.Name, e.cfg.ExternalTurnTimeout)
			if noteErr := e.systemNote(ctx, note, nil); noteErr != nil {
				return acted, noteErr
			}
		}

		rec, err := e.deps.Log.Append(ctx, chronicle.AppendInput{
			Speaker: entry.Name,
			Text:    text,
			Kind:    chronicle.KindActor,
		})
		if err != nil {
			return acted, fmt.Errorf("append actor record: %w", err)
		}
		if markErr := e.deps.Registry.MarkActed(actorID, rec.Seq); markErr != nil {
			log.Printf("engine: mark acted %s: %v", actorID, markErr)
		}
		acted[actorID] = struct{}{}
		if !leadRecorded {
			e.recordLead(actorID)
			leadRecorded = true
		}

		reopened, err := e.maybeReact(ctx, span, rec)
		if err != nil {
			return acted, err
		}
		if reopened {
			// The reaction opens a fresh cycle; remaining responders are
			// settled as silent by the cycle-complete sweep.
			return acted, nil
		}
	}
	return acted, nil
}

// maybeReact interjects a director reaction when the just-posted turn embeds
// a dice expression. The roll is resolved first and recorded as a system
// note so the director reacts to the outcome, not the request.
func (e *Engine) maybeReact(ctx context.Context, span trace.Span, rec chronicle.Record) (bool, error) {
	notation, ok := dice.FindNotation(rec.Text)
	if !ok {
		return false, nil
	}

	e.setState(span, StateDirectorReacting)

	if result, err := dice.RollNotation(notation, e.seedFor(rec.Seq)); err == nil {
		if noteErr := e.systemNote(ctx, fmt.Sprintf("%s rolls %s", rec.Speaker, result), result); noteErr != nil {
			return false, noteErr
		}
	}

	utterance, err := e.directorUtterance(ctx, e.cfg.ContinuationPrompt)
	if err != nil {
		return false, err
	}
	reaction, err := e.deps.Log.Append(ctx, chronicle.AppendInput{
		Speaker: e.cfg.DirectorName,
		Text:    utterance.Text,
		Kind:    chronicle.KindDirector,
	})
	if err != nil {
		return false, fmt.Errorf("append director reaction: %w", err)
	}

	if utterance.Meta != nil && utterance.Meta.Mode.IsValid() {
		e.setCarryover(&directorTurn{rec: reaction, meta: utterance.Meta})
		return true, nil
	}

	e.setState(span, StateResponderActing)
	return false, nil
}

// directorUtterance invokes the director with a retry-once policy. The
// director is load-bearing; exhausting the retry ends the session.
func (e *Engine) directorUtterance(ctx context.Context, prompt string) (generate.Utterance, error) {
	window := e.deps.Log.Window(e.cfg.WindowSize)
	operation := func() (generate.Utterance, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.DirectorTimeout)
		defer cancel()
		return e.deps.Director.GenerateDirectorTurn(callCtx, generate.DirectorInput{
			Prompt: prompt,
			Window: window,
		})
	}

	utterance, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(e.newBackOff()),
		backoff.WithMaxTries(2),
	)
	if err != nil {
		return generate.Utterance{}, fmt.Errorf("%w: %w", ErrDirectorUnavailable, err)
	}
	return utterance, nil
}

// takeTurn produces one responder turn. Externally-driven actors block on an
// out-of-band submission; missing the deadline synthesizes a stand-in turn
// through the automated provider. A stop while waiting surfaces as
// ErrSessionStopped, never as a synthesized turn.
func (e *Engine) takeTurn(ctx context.Context, entry troupe.Entry) (text string, synthesized bool, err error) {
	window := e.deps.Log.Window(e.cfg.WindowSize)

	if entry.Capability == troupe.CapabilityExternal {
		submitted, ok, err := e.awaitExternal(ctx, entry.ID)
		if err != nil {
			return "", false, err
		}
		if ok {
			return submitted, false, nil
		}
		text, err := e.generateTurn(ctx, entry, window)
		return text, true, err
	}

	text, err = e.generateTurn(ctx, entry, window)
	return text, false, err
}

func (e *Engine) generateTurn(ctx context.Context, entry troupe.Entry, window string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.AutomatedTurnTimeout)
	defer cancel()
	return e.deps.Turns.GenerateTurn(callCtx, generate.TurnInput{Actor: entry, Window: window})
}

// awaitExternal parks a pending submission slot for the actor and waits for
// SubmitExternalTurn to resolve it before the external-turn deadline. A
// deadline overrun returns ok=false with a nil error so the caller can
// synthesize a fallback; stop and cancellation return ErrSessionStopped.
func (e *Engine) awaitExternal(ctx context.Context, actorID string) (string, bool, error) {
	ch := make(chan string, 1)
	e.mu.Lock()
	e.pending[actorID] = ch
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.pending, actorID)
		e.mu.Unlock()
	}()

	timer := time.NewTimer(e.cfg.ExternalTurnTimeout)
	defer timer.Stop()

	select {
	case text := <-ch:
		return text, true, nil
	case <-timer.C:
		// A submitter that won the pending lookup as the deadline fired
		// has already queued its text; claim the slot and drain it.
		e.mu.Lock()
		_, unclaimed := e.pending[actorID]
		delete(e.pending, actorID)
		e.mu.Unlock()
		if !unclaimed {
			return <-ch, true, nil
		}
		return "", false, nil
	case <-ctx.Done():
		return "", false, fmt.Errorf("%w: %v", ErrSessionStopped, ctx.Err())
	case <-e.stopCh:
		return "", false, ErrSessionStopped
	}
}

// initiativeOrder returns the responder order for a combat episode. The
// ranking is rolled once per episode and cached; actors that become eligible
// later are appended to the end, never inserted.
func (e *Engine) initiativeOrder(ctx context.Context, eligible []string, seq uint64) ([]string, error) {
	e.mu.Lock()
	cached := slices.Clone(e.initiative)
	e.mu.Unlock()

	if cached == nil {
		participants := slices.Clone(eligible)
		participants = append(participants, e.cfg.ExtraCombatants...)
		entries := dice.RollInitiative(participants, e.seedFor(seq))
		cached = make([]string, len(entries))
		for i, entry := range entries {
			cached[i] = entry.Participant
		}
		if err := e.systemNote(ctx, initiativeSummary(entries), entries); err != nil {
			return nil, err
		}
	} else {
		for _, actorID := range eligible {
			if !slices.Contains(cached, actorID) {
				cached = append(cached, actorID)
			}
		}
	}

	e.mu.Lock()
	e.initiative = cached
	e.mu.Unlock()

	// Opaque combatant slots stay in the cached order but only registered,
	// eligible actors take turns.
	var order []string
	for _, participant := range cached {
		if slices.Contains(eligible, participant) {
			order = append(order, participant)
		}
	}
	return order, nil
}

func initiativeSummary(entries []dice.InitiativeEntry) string {
	parts := make([]string, len(entries))
	for i, entry := range entries {
		parts[i] = fmt.Sprintf("%s (%d)", entry.Participant, entry.Roll)
	}
	return "initiative order: " + strings.Join(parts, ", ")
}

func (e *Engine) systemNote(ctx context.Context, text string, payload any) error {
	_, err := e.deps.Log.Append(ctx, chronicle.AppendInput{
		Speaker: systemSpeaker,
		Text:    text,
		Kind:    chronicle.KindSystem,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("append system note: %w", err)
	}
	return nil
}

// endSession appends the summary note and seals the terminal state. The
// append is best-effort; the session is over either way.
func (e *Engine) endSession(ctx context.Context) {
	note := fmt.Sprintf("session ended after %d cycles", e.Cycle())
	if _, err := e.deps.Log.Append(context.WithoutCancel(ctx), chronicle.AppendInput{
		Speaker: systemSpeaker,
		Text:    note,
		Kind:    chronicle.KindSystem,
	}); err != nil {
		log.Printf("engine: append session summary: %v", err)
	}
	e.setState(nil, StateSessionEnded)
}

// checkpoint is the cancellation and pause gate between states.
func (e *Engine) checkpoint(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrSessionStopped, ctx.Err())
		case <-e.stopCh:
			return ErrSessionStopped
		default:
		}

		e.mu.Lock()
		if !e.paused {
			e.mu.Unlock()
			return nil
		}
		resume := e.resumeCh
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrSessionStopped, ctx.Err())
		case <-e.stopCh:
			return ErrSessionStopped
		case <-resume:
		}
	}
}

func (e *Engine) setState(span trace.Span, s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	if span != nil {
		span.AddEvent(s.String())
	}
}

func (e *Engine) aliases() []intent.Alias {
	var aliases []intent.Alias
	for actorID, entry := range e.deps.Registry.Snapshot() {
		aliases = append(aliases, intent.Alias{Token: entry.Name, ActorID: actorID})
		for _, token := range entry.Aliases {
			aliases = append(aliases, intent.Alias{Token: token, ActorID: actorID})
		}
	}
	return aliases
}

// eligibleIDs returns registration-ordered actor identities minus exclusions.
func (e *Engine) eligibleIDs() []string {
	ids := e.deps.Registry.IDs()

	e.mu.Lock()
	defer e.mu.Unlock()

	out := ids[:0]
	for _, actorID := range ids {
		if _, ok := e.excluded[actorID]; ok {
			continue
		}
		out = append(out, actorID)
	}
	return out
}

// seedFor derives the deterministic seed for a record's rolls and tie-breaks.
func (e *Engine) seedFor(seq uint64) int64 {
	return e.cfg.BaseSeed + int64(seq)
}

func (e *Engine) recordLead(actorID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recentLeads = append(e.recentLeads, actorID)
	if len(e.recentLeads) > 2 {
		e.recentLeads = e.recentLeads[len(e.recentLeads)-2:]
	}
}

func (e *Engine) leads() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.recentLeads)
}

func (e *Engine) takeCarryover() *directorTurn {
	e.mu.Lock()
	defer e.mu.Unlock()
	turn := e.carryover
	e.carryover = nil
	return turn
}

func (e *Engine) setCarryover(turn *directorTurn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.carryover = turn
}
