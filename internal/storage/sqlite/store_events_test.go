package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cardsdown/cardsdown/internal/event"
	"github.com/cardsdown/cardsdown/internal/room"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	registry := event.NewRegistry()
	if err := room.RegisterEvents(registry); err != nil {
		t.Fatalf("RegisterEvents() error = %v", err)
	}
	store, err := Open(filepath.Join(t.TempDir(), "events.db"), registry)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func appendTestEvent(t *testing.T, store *Store, roomID string, name event.Name) event.Event {
	t.Helper()
	evt, err := store.Append(context.Background(), event.Event{
		CommandID: "cmd-1",
		RoomID:    roomID,
		Name:      name,
		Payload:   []byte(`{"storyId":"s1"}`),
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	return evt
}

func TestAppendAssignsSequencePerRoom(t *testing.T) {
	store := openTestStore(t)

	first := appendTestEvent(t, store, "room-1", event.NameStoryAdded)
	second := appendTestEvent(t, store, "room-1", event.NameStorySelected)
	other := appendTestEvent(t, store, "room-2", event.NameStoryAdded)

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seqs = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if other.Seq != 1 {
		t.Fatalf("other room seq = %d, want 1", other.Seq)
	}
}

func TestAppendSetsTimestamp(t *testing.T) {
	store := openTestStore(t)

	evt := appendTestEvent(t, store, "room-1", event.NameStoryAdded)
	if evt.Timestamp.IsZero() {
		t.Fatal("Timestamp is zero after append")
	}
}

func TestAppendRejectsEphemeralEvents(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Append(context.Background(), event.Event{
		CommandID: "cmd-1",
		RoomID:    "room-1",
		Name:      event.NameCommandRejected,
		Payload:   []byte(`{"reason":"nope"}`),
	}); err == nil {
		t.Fatal("Append() error = nil, want ephemeral rejection")
	}
}

func TestAppendRejectsUnknownEvents(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Append(context.Background(), event.Event{
		CommandID: "cmd-1",
		RoomID:    "room-1",
		Name:      "bogus",
		Payload:   []byte(`{}`),
	}); err == nil {
		t.Fatal("Append() error = nil, want unknown event rejection")
	}
}

func TestAppendBatchAssignsSequences(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	appended, err := store.AppendBatch(ctx, []event.Event{
		{CommandID: "cmd-1", RoomID: "room-1", Name: event.NameStoryAdded, Payload: []byte(`{"storyId":"s1"}`)},
		{CommandID: "cmd-1", RoomID: "room-1", Name: event.NameStorySelected, Payload: []byte(`{"storyId":"s1"}`)},
	})
	if err != nil {
		t.Fatalf("AppendBatch() error = %v", err)
	}
	if len(appended) != 2 || appended[0].Seq != 1 || appended[1].Seq != 2 {
		t.Fatalf("AppendBatch() = %+v, want seqs 1 and 2", appended)
	}
}

func TestAppendBatchAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.AppendBatch(ctx, []event.Event{
		{CommandID: "cmd-1", RoomID: "room-1", Name: event.NameStoryAdded, Payload: []byte(`{"storyId":"s1"}`)},
		{CommandID: "cmd-1", RoomID: "room-1", Name: event.NameCommandRejected, Payload: []byte(`{"reason":"nope"}`)},
	})
	if err == nil {
		t.Fatal("AppendBatch() error = nil, want ephemeral rejection")
	}

	seq, err := store.LatestSeq(ctx, "room-1")
	if err != nil {
		t.Fatalf("LatestSeq() error = %v", err)
	}
	if seq != 0 {
		t.Fatalf("LatestSeq() = %d, want 0, a failed batch must journal nothing", seq)
	}
}

func TestListEventsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	stamped, err := store.Append(ctx, event.Event{
		CommandID: "cmd-1",
		RoomID:    "room-1",
		Name:      event.NameStoryEstimateGiven,
		Payload:   []byte(`{"storyId":"s1","userId":"alice","value":5}`),
		Timestamp: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	appendTestEvent(t, store, "room-1", event.NameStoryRevealed)

	events, err := store.ListEvents(ctx, "room-1", 0, 0)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	got := events[0]
	if got.Name != event.NameStoryEstimateGiven || got.CommandID != "cmd-1" {
		t.Errorf("events[0] = %+v, want storyEstimateGiven from cmd-1", got)
	}
	if !got.Timestamp.Equal(stamped.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, stamped.Timestamp)
	}
	if string(got.Payload) != `{"storyId":"s1","userId":"alice","value":5}` {
		t.Errorf("payload = %s", got.Payload)
	}
}

func TestListEventsAfterSeqAndLimit(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		appendTestEvent(t, store, "room-1", event.NameStorySelected)
	}

	events, err := store.ListEvents(ctx, "room-1", 1, 0)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 || events[0].Seq != 2 {
		t.Fatalf("ListEvents(afterSeq=1) = %+v, want seqs 2 and 3", events)
	}

	limited, err := store.ListEvents(ctx, "room-1", 0, 1)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(limited) != 1 || limited[0].Seq != 1 {
		t.Fatalf("ListEvents(limit=1) = %+v, want seq 1 only", limited)
	}
}

func TestLatestSeq(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	seq, err := store.LatestSeq(ctx, "room-1")
	if err != nil {
		t.Fatalf("LatestSeq() error = %v", err)
	}
	if seq != 0 {
		t.Fatalf("LatestSeq() = %d, want 0", seq)
	}

	appendTestEvent(t, store, "room-1", event.NameStoryAdded)
	appendTestEvent(t, store, "room-1", event.NameStorySelected)

	seq, err = store.LatestSeq(ctx, "room-1")
	if err != nil {
		t.Fatalf("LatestSeq() error = %v", err)
	}
	if seq != 2 {
		t.Fatalf("LatestSeq() = %d, want 2", seq)
	}
}
