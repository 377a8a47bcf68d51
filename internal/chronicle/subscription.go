package chronicle

import (
	"context"
	"errors"
	"sync"
)

// ErrSubscriptionClosed indicates the subscription was cancelled and its
// queue fully drained.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Subscription receives appended records in append order, exactly once.
// Delivery is queued so a slow consumer never blocks the log's writer.
type Subscription struct {
	mu     sync.Mutex
	queue  []Record
	ready  chan struct{}
	closed bool
}

// Subscribe attaches a new subscription. Records appended after Subscribe
// returns are delivered with no gaps.
func (l *Log) Subscribe() *Subscription {
	sub := &Subscription{ready: make(chan struct{}, 1)}
	l.mu.Lock()
	l.subs[sub] = struct{}{}
	l.mu.Unlock()
	return sub
}

// Unsubscribe detaches the subscription. Records already queued remain
// readable; Next returns ErrSubscriptionClosed once the queue drains.
func (l *Log) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	l.mu.Lock()
	delete(l.subs, sub)
	l.mu.Unlock()
	sub.close()
}

func (s *Subscription) push(rec Record) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, rec)
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Next blocks until a record is available, the subscription is closed, or
// the context is done.
func (s *Subscription) Next(ctx context.Context) (Record, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			rec := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return rec, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return Record{}, ErrSubscriptionClosed
		}

		select {
		case <-s.ready:
		case <-ctx.Done():
			return Record{}, ctx.Err()
		}
	}
}
