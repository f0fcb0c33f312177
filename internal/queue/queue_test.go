package queue

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/MapleGroveLabs/moodnest/internal/checkin"
)

type sequentialIDs struct {
	next int
}

func (s *sequentialIDs) NewID() (string, error) {
	s.next++
	return fmt.Sprintf("client-%03d", s.next), nil
}

func mustQueue(t *testing.T, store Store) *Queue {
	t.Helper()
	q, err := New(Config{
		Store:      store,
		IDProvider: &sequentialIDs{},
		Clock:      func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("unexpected queue construction error: %v", err)
	}
	return q
}

func mustRecord(t *testing.T, note string) checkin.Record {
	t.Helper()
	record, err := checkin.NewRecord(checkin.EmotionSad, note, "", "2024-01-01T10:00:00Z")
	if err != nil {
		t.Fatalf("unexpected record error: %v", err)
	}
	return record
}

func TestEnqueuePreservesOrder(t *testing.T) {
	q := mustQueue(t, NewMemoryStore(0))

	first, err := q.Enqueue(mustRecord(t, "first"))
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	second, err := q.Enqueue(mustRecord(t, "second"))
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	entries := q.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ClientID != first.ClientID || entries[1].ClientID != second.ClientID {
		t.Fatalf("entries out of enqueue order: %q then %q", entries[0].ClientID, entries[1].ClientID)
	}
	if entries[0].Payload.Note != "first" {
		t.Fatalf("payload mismatch: %q", entries[0].Payload.Note)
	}
	if entries[0].Timestamp != 1700000000 {
		t.Fatalf("unexpected enqueue timestamp: %d", entries[0].Timestamp)
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue", "pending.json")
	store, err := NewFileStore(FileStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}

	q := mustQueue(t, store)
	entry, err := q.Enqueue(mustRecord(t, "persisted"))
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	reopened := mustQueue(t, store)
	entries := reopened.List()
	if len(entries) != 1 {
		t.Fatalf("expected entry to survive reopen, got %d entries", len(entries))
	}
	if entries[0].ClientID != entry.ClientID {
		t.Fatalf("client id changed across reopen")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	q := mustQueue(t, NewMemoryStore(0))
	entry, err := q.Enqueue(mustRecord(t, "to remove"))
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	q.Remove(entry.ClientID)
	if got := q.Len(); got != 0 {
		t.Fatalf("expected empty queue, got %d", got)
	}

	// Removing an absent id must be a no-op, not an error.
	q.Remove(entry.ClientID)
	q.Remove("never-existed")
	if got := q.Len(); got != 0 {
		t.Fatalf("expected queue to stay empty, got %d", got)
	}
}

func TestCorruptedStoreReadsAsEmpty(t *testing.T) {
	store := NewMemoryStore(0)
	if err := store.Save([]byte("{not json at all")); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	q := mustQueue(t, store)
	if entries := q.List(); len(entries) != 0 {
		t.Fatalf("expected corrupt blob to read as empty, got %d entries", len(entries))
	}

	// The queue must stay usable afterwards.
	if _, err := q.Enqueue(mustRecord(t, "fresh")); err != nil {
		t.Fatalf("unexpected enqueue error after corruption: %v", err)
	}
	if got := q.Len(); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
}

func TestAbsentStoreReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-written.json")
	store, err := NewFileStore(FileStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	q := mustQueue(t, store)
	if entries := q.List(); len(entries) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(entries))
	}
}

func TestCapacityEvictsOldestFirst(t *testing.T) {
	// Room for roughly two serialized entries.
	store := NewMemoryStore(400)
	q := mustQueue(t, store)

	first, err := q.Enqueue(mustRecord(t, "oldest"))
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	if _, err := q.Enqueue(mustRecord(t, "middle")); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	newest, err := q.Enqueue(mustRecord(t, "newest"))
	if err != nil {
		t.Fatalf("expected newest entry to be kept, got error: %v", err)
	}

	entries := q.List()
	if len(entries) == 0 {
		t.Fatalf("queue should not be empty after eviction")
	}
	last := entries[len(entries)-1]
	if last.ClientID != newest.ClientID {
		t.Fatalf("newest entry missing after eviction")
	}
	for _, entry := range entries {
		if entry.ClientID == first.ClientID && len(entries) < 3 {
			t.Fatalf("oldest entry should have been evicted first")
		}
	}
}

func TestEnqueueFailsWhenSingleEntryExceedsCapacity(t *testing.T) {
	store := NewMemoryStore(16)
	q := mustQueue(t, store)

	_, err := q.Enqueue(mustRecord(t, "will not fit anywhere"))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestFileStoreRejectsOversizedBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	store, err := NewFileStore(FileStoreConfig{Path: path, MaxBytes: 8})
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	if err := store.Save([]byte("0123456789")); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}
