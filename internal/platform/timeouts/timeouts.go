// Package timeouts defines shared timeout constants used across the engine.
// Centralizing these values prevents drift between components and makes the
// durations discoverable.
package timeouts

import "time"

// IntentCollection caps how long the responder collector waits for a single
// actor's willingness signal before synthesizing a declined one.
const IntentCollection = 5 * time.Second

// AutomatedTurn caps the time allowed for an automated actor to produce a
// full turn.
const AutomatedTurn = 30 * time.Second

// ExternalTurn caps how long the engine waits for an externally-driven
// actor's submission before synthesizing a fallback turn.
const ExternalTurn = 120 * time.Second

// DirectorTurn caps the time allowed for a single director utterance.
const DirectorTurn = 30 * time.Second

// Shutdown limits how long telemetry flushing may take during graceful
// shutdown.
const Shutdown = 5 * time.Second
