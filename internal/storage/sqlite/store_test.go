package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/roundtable/internal/chronicle"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("   "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestAppendAndGetRecord(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := chronicle.Record{
		Seq:         1,
		Speaker:     "DM",
		Text:        "You stand at the gates.",
		Timestamp:   time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		Kind:        chronicle.KindDirector,
		PayloadJSON: []byte(`{"context":"exploration"}`),
	}
	if err := store.AppendRecord(ctx, want); err != nil {
		t.Fatalf("append record: %v", err)
	}

	got, err := store.GetRecord(ctx, 1)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if got.Speaker != want.Speaker || got.Text != want.Text || got.Kind != want.Kind {
		t.Fatalf("record mismatch: got %+v, want %+v", got, want)
	}
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("timestamp mismatch: got %v, want %v", got.Timestamp, want.Timestamp)
	}
	if string(got.PayloadJSON) != string(want.PayloadJSON) {
		t.Fatalf("payload mismatch: got %s, want %s", got.PayloadJSON, want.PayloadJSON)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetRecord(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendRejectsDuplicateSeq(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := chronicle.Record{Seq: 1, Speaker: "DM", Text: "x", Timestamp: time.Now(), Kind: chronicle.KindDirector}
	if err := store.AppendRecord(ctx, rec); err != nil {
		t.Fatalf("append record: %v", err)
	}
	if err := store.AppendRecord(ctx, rec); err == nil {
		t.Fatal("expected duplicate seq to fail")
	}
}

func TestListRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for seq := uint64(1); seq <= 5; seq++ {
		rec := chronicle.Record{Seq: seq, Speaker: "DM", Text: "x", Timestamp: time.Now(), Kind: chronicle.KindDirector}
		if err := store.AppendRecord(ctx, rec); err != nil {
			t.Fatalf("append record %d: %v", seq, err)
		}
	}

	records, err := store.ListRecords(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Seq != 3 || records[1].Seq != 4 {
		t.Fatalf("expected seqs [3 4], got [%d %d]", records[0].Seq, records[1].Seq)
	}

	all, err := store.ListRecords(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list all records: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 records, got %d", len(all))
	}
}

func TestStoreBacksChronicleLog(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	log := chronicle.NewLog(store)
	for i := 0; i < 3; i++ {
		if _, err := log.Append(ctx, chronicle.AppendInput{Speaker: "DM", Text: "line", Kind: chronicle.KindDirector}); err != nil {
			t.Fatalf("append via log: %v", err)
		}
	}

	records, err := store.ListRecords(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 persisted records, got %d", len(records))
	}
}
