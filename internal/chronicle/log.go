package chronicle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidKind indicates an unsupported record kind.
	ErrInvalidKind = errors.New("invalid record kind")
	// ErrEmptySpeaker indicates a missing speaker identity.
	ErrEmptySpeaker = errors.New("speaker is required")
)

// Store persists appended records. A nil store keeps the log memory-only.
type Store interface {
	AppendRecord(ctx context.Context, rec Record) error
}

// Log is the append-only session record. Appends are serialized; a store
// failure aborts the append so persisted and in-memory views never diverge.
type Log struct {
	mu      sync.RWMutex
	records []Record
	subs    map[*Subscription]struct{}
	store   Store
	now     func() time.Time
}

// NewLog creates an empty log. The store is optional; pass nil for a
// memory-only log.
func NewLog(store Store) *Log {
	return &Log{
		subs:  make(map[*Subscription]struct{}),
		store: store,
		now:   time.Now,
	}
}

// AppendInput describes the input for appending a record.
type AppendInput struct {
	Speaker string
	Text    string
	Kind    Kind
	Payload any // optional; marshaled to JSON when present
}

// Append assigns the next sequence number, persists the record when a store
// is configured, and broadcasts it to subscribers. Sequence numbers are
// strictly increasing and gap-free across concurrent callers.
func (l *Log) Append(ctx context.Context, input AppendInput) (Record, error) {
	if strings.TrimSpace(input.Speaker) == "" {
		return Record{}, ErrEmptySpeaker
	}
	if !input.Kind.IsValid() {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidKind, input.Kind)
	}

	var payloadJSON json.RawMessage
	if input.Payload != nil {
		encoded, err := json.Marshal(input.Payload)
		if err != nil {
			return Record{}, fmt.Errorf("marshal record payload: %w", err)
		}
		payloadJSON = encoded
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Seq:         uint64(len(l.records)) + 1,
		Speaker:     input.Speaker,
		Text:        input.Text,
		Timestamp:   l.now().UTC(),
		Kind:        input.Kind,
		PayloadJSON: payloadJSON,
	}

	if l.store != nil {
		if err := l.store.AppendRecord(ctx, rec); err != nil {
			return Record{}, fmt.Errorf("persist record: %w", err)
		}
	}

	l.records = append(l.records, rec)
	for sub := range l.subs {
		sub.push(rec)
	}
	return rec, nil
}

// Len returns the number of appended records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// LastSeq returns the sequence number of the most recent record, or zero
// when the log is empty.
func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.records))
}

// Recent returns up to n of the most recent records, oldest first.
func (l *Log) Recent(n int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	start := len(l.records) - n
	if start < 0 {
		start = 0
	}
	out := make([]Record, len(l.records)-start)
	copy(out, l.records[start:])
	return out
}

// History returns a restartable sequence over all records appended before
// each iteration begins. Records appended mid-iteration are not observed.
func (l *Log) History() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		l.mu.RLock()
		snapshot := l.records
		l.mu.RUnlock()

		for _, rec := range snapshot {
			if !yield(rec) {
				return
			}
		}
	}
}

// Window renders the last n records as prompt context, one "[speaker]: text"
// line per record, oldest first. The result is a deterministic function of
// the log prefix.
func (l *Log) Window(n int) string {
	recent := l.Recent(n)
	lines := make([]string, len(recent))
	for i, rec := range recent {
		lines[i] = fmt.Sprintf("[%s]: %s", rec.Speaker, rec.Text)
	}
	return strings.Join(lines, "\n")
}
