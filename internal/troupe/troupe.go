// Package troupe tracks the actors known to a session: who they are, how
// they are driven, and how recently they acted.
package troupe

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Capability describes how an actor's turns are produced.
type Capability int

const (
	// CapabilityUnspecified represents an invalid capability value.
	CapabilityUnspecified Capability = iota
	// CapabilityAutomated indicates turns are produced by a generation
	// collaborator without human input.
	CapabilityAutomated
	// CapabilityExternal indicates turns arrive from an out-of-band
	// submission, typically a human at a keyboard.
	CapabilityExternal
)

// IsValid reports whether the capability is supported.
func (c Capability) IsValid() bool {
	return c == CapabilityAutomated || c == CapabilityExternal
}

var (
	// ErrUnknownActor indicates a referenced actor is not registered.
	ErrUnknownActor = errors.New("unknown actor")
	// ErrDuplicateActor indicates an actor ID is already registered.
	ErrDuplicateActor = errors.New("actor already registered")
	// ErrEmptyActorID indicates a missing actor ID.
	ErrEmptyActorID = errors.New("actor id is required")
	// ErrInvalidCapability indicates an unsupported capability value.
	ErrInvalidCapability = errors.New("invalid actor capability")
)

// Entry holds a registered actor's identity and recency state.
type Entry struct {
	ID         string
	Name       string
	Aliases    []string
	Profile    string
	Capability Capability

	// LastTurnSeq is the journal sequence number of the actor's most
	// recent turn; meaningful only when HasActed is true.
	LastTurnSeq uint64
	HasActed    bool

	// ConsecutiveSilence counts cycle outcomes since the actor last acted.
	ConsecutiveSilence int
}

// Registry maps actor identities to entries. Mutations are serialized;
// snapshots are safe for concurrent readers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an actor. The entry's recency fields are reset regardless of
// input.
func (r *Registry) Register(entry Entry) error {
	entry.ID = strings.TrimSpace(entry.ID)
	if entry.ID == "" {
		return ErrEmptyActorID
	}
	if !entry.Capability.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidCapability, entry.Capability)
	}
	if entry.Name == "" {
		entry.Name = entry.ID
	}
	entry.LastTurnSeq = 0
	entry.HasActed = false
	entry.ConsecutiveSilence = 0

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateActor, entry.ID)
	}
	r.entries[entry.ID] = entry
	r.order = append(r.order, entry.ID)
	return nil
}

// MarkActed records that the actor completed a turn at the given sequence
// number and resets its consecutive-silence count.
func (r *Registry) MarkActed(actorID string, seq uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[actorID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActor, actorID)
	}
	entry.LastTurnSeq = seq
	entry.HasActed = true
	entry.ConsecutiveSilence = 0
	r.entries[actorID] = entry
	return nil
}

// MarkSilent records a cycle outcome in which the actor did not act. The
// last-turn sequence is left untouched.
func (r *Registry) MarkSilent(actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[actorID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActor, actorID)
	}
	entry.ConsecutiveSilence++
	r.entries[actorID] = entry
	return nil
}

// Entry returns the entry for an actor.
func (r *Registry) Entry(actorID string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[actorID]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownActor, actorID)
	}
	return entry, nil
}

// Snapshot returns a copy of all entries keyed by actor ID.
func (r *Registry) Snapshot() map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Entry, len(r.entries))
	for actorID, entry := range r.entries {
		out[actorID] = entry
	}
	return out
}

// IDs returns actor identities in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered actors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
