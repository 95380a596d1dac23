package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardsdown/cardsdown/internal/room"
	"github.com/cardsdown/cardsdown/internal/storage"
)

func TestHousekeepingMarksThenDeletes(t *testing.T) {
	ctx := context.Background()
	p := testProcessor(t)

	stale := room.New("stale", testNow.Add(-48*time.Hour))
	fresh := room.New("fresh", testNow)
	for _, state := range []room.State{stale, fresh} {
		if err := p.Rooms.Put(ctx, state); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	result, err := p.Housekeeping(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Housekeeping() error = %v", err)
	}
	if len(result.Marked) != 1 || result.Marked[0] != "stale" {
		t.Fatalf("Marked = %v, want [stale]", result.Marked)
	}
	if len(result.Deleted) != 0 {
		t.Fatalf("Deleted = %v, want none", result.Deleted)
	}

	marked, err := p.Rooms.Get(ctx, "stale")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !marked.MarkedForDeletion {
		t.Fatal("stale room is not marked for deletion")
	}

	result, err = p.Housekeeping(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Housekeeping() error = %v", err)
	}
	if len(result.Deleted) != 1 || result.Deleted[0] != "stale" {
		t.Fatalf("Deleted = %v, want [stale]", result.Deleted)
	}
	if _, err := p.Rooms.Get(ctx, "stale"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := p.Rooms.Get(ctx, "fresh"); err != nil {
		t.Fatalf("fresh room gone: %v", err)
	}
}

func TestHousekeepingSkipsActiveRooms(t *testing.T) {
	ctx := context.Background()
	p := testProcessor(t)

	state := room.New("active", testNow.Add(-time.Hour))
	if err := p.Rooms.Put(ctx, state); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	result, err := p.Housekeeping(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Housekeeping() error = %v", err)
	}
	if len(result.Marked) != 0 || len(result.Deleted) != 0 {
		t.Fatalf("result = %+v, want no action", result)
	}
}
