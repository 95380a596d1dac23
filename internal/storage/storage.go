// Package storage defines the persistence boundaries for rooms and their
// event journals.
package storage

import (
	"context"
	"errors"

	"github.com/cardsdown/cardsdown/internal/event"
	"github.com/cardsdown/cardsdown/internal/room"
)

// ErrNotFound indicates a requested persistence record is missing. Callers
// use this to differentiate between legitimate "no such room" states and
// transport or data corruption failures.
var ErrNotFound = errors.New("record not found")

// RoomStore owns the materialized room state read by queries and rehydrated
// by the command processor.
type RoomStore interface {
	// Put stores the full room state under its id.
	Put(ctx context.Context, state room.State) error
	// Get fetches a room by id. Returns ErrNotFound when the room is absent.
	Get(ctx context.Context, roomID string) (room.State, error)
	// List returns all stored rooms in unspecified order.
	List(ctx context.Context) ([]room.State, error)
	// Delete removes a room. Deleting an absent room is not an error.
	Delete(ctx context.Context, roomID string) error
}

// EventJournal owns the append-only event stream per room; it is the source
// of truth for state reconstruction.
type EventJournal interface {
	// Append atomically appends an event and returns it with its sequence
	// number set. Sequences start at 1 per room with no gaps.
	Append(ctx context.Context, evt event.Event) (event.Event, error)
	// AppendBatch appends events in order as one atomic unit: either every
	// event is journaled with its sequence set, or none is. An empty batch
	// is a no-op.
	AppendBatch(ctx context.Context, events []event.Event) ([]event.Event, error)
	// ListEvents returns events for a room with seq greater than afterSeq,
	// ordered by seq ascending. A limit of 0 means no limit.
	ListEvents(ctx context.Context, roomID string, afterSeq uint64, limit int) ([]event.Event, error)
	// LatestSeq returns the highest sequence number for a room, 0 when the
	// room has no events.
	LatestSeq(ctx context.Context, roomID string) (uint64, error)
}
