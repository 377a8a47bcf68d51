package chronicle

import (
	"encoding/json"
	"time"
)

// Kind identifies the type of a record.
type Kind string

const (
	// KindDirector records an utterance by the session director.
	KindDirector Kind = "DIRECTOR"
	// KindActor records a turn taken by an actor.
	KindActor Kind = "ACTOR"
	// KindSystem records an engine-generated note, such as a skipped turn
	// or a dice result.
	KindSystem Kind = "SYSTEM"
)

// IsValid reports whether the record kind is supported.
func (k Kind) IsValid() bool {
	switch k {
	case KindDirector, KindActor, KindSystem:
		return true
	default:
		return false
	}
}

// Record captures a single immutable entry in the session log.
type Record struct {
	Seq         uint64
	Speaker     string
	Text        string
	Timestamp   time.Time
	Kind        Kind
	PayloadJSON json.RawMessage // optional structured payload, e.g. a roll result
}
