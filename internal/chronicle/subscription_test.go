package chronicle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSubscriberReceivesRecordsInAppendOrder(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	sub := log.Subscribe()
	defer log.Unsubscribe(sub)

	const total = 10
	for i := 0; i < total; i++ {
		if _, err := log.Append(ctx, AppendInput{Speaker: "DM", Text: fmt.Sprintf("line %d", i), Kind: KindDirector}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	for i := 1; i <= total; i++ {
		rec, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if rec.Seq != uint64(i) {
			t.Fatalf("expected seq %d, got %d", i, rec.Seq)
		}
	}
}

func TestSubscriberDoesNotSeeRecordsBeforeAttach(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	if _, err := log.Append(ctx, AppendInput{Speaker: "DM", Text: "before", Kind: KindDirector}); err != nil {
		t.Fatalf("append: %v", err)
	}

	sub := log.Subscribe()
	defer log.Unsubscribe(sub)

	if _, err := log.Append(ctx, AppendInput{Speaker: "DM", Text: "after", Kind: KindDirector}); err != nil {
		t.Fatalf("append: %v", err)
	}

	rec, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if rec.Text != "after" {
		t.Fatalf("expected first delivered record %q, got %q", "after", rec.Text)
	}
}

func TestNextHonorsContextCancellation(t *testing.T) {
	log := NewLog(nil)
	sub := log.Subscribe()
	defer log.Unsubscribe(sub)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := sub.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestUnsubscribeDrainsThenCloses(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	sub := log.Subscribe()
	if _, err := log.Append(ctx, AppendInput{Speaker: "DM", Text: "queued", Kind: KindDirector}); err != nil {
		t.Fatalf("append: %v", err)
	}
	log.Unsubscribe(sub)

	rec, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("expected queued record after unsubscribe, got %v", err)
	}
	if rec.Text != "queued" {
		t.Fatalf("expected queued record, got %q", rec.Text)
	}
	if _, err := sub.Next(ctx); !errors.Is(err, ErrSubscriptionClosed) {
		t.Fatalf("expected ErrSubscriptionClosed, got %v", err)
	}
}

func TestSlowSubscriberDoesNotBlockAppends(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	sub := log.Subscribe()
	defer log.Unsubscribe(sub)

	// Nothing reads sub while appending; appends must still complete.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if _, err := log.Append(ctx, AppendInput{Speaker: "DM", Text: "x", Kind: KindDirector}); err != nil {
				t.Errorf("append: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("appends blocked on unread subscriber")
	}

	for i := 1; i <= 100; i++ {
		rec, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if rec.Seq != uint64(i) {
			t.Fatalf("expected seq %d, got %d", i, rec.Seq)
		}
	}
}
