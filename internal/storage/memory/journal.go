package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cardsdown/cardsdown/internal/event"
)

// Journal is an in-memory event journal safe for concurrent use.
type Journal struct {
	mu       sync.RWMutex
	registry *event.Registry
	streams  map[string][]event.Event
}

// NewJournal creates an empty journal. Events are validated against the
// registry before append.
func NewJournal(registry *event.Registry) *Journal {
	return &Journal{registry: registry, streams: make(map[string][]event.Event)}
}

// Append atomically appends an event and returns it with its sequence set.
func (j *Journal) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	appended, err := j.AppendBatch(ctx, []event.Event{evt})
	if err != nil {
		return event.Event{}, err
	}
	return appended[0], nil
}

// AppendBatch appends events in order as one atomic unit: every event is
// validated before any stream is touched, so either the whole batch is
// journaled or none of it is.
func (j *Journal) AppendBatch(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	batch := make([]event.Event, len(events))
	for i, evt := range events {
		validated, err := j.registry.ValidateForAppend(evt)
		if err != nil {
			return nil, err
		}
		if def, ok := j.registry.Definition(validated.Name); ok && def.Ephemeral {
			return nil, fmt.Errorf("ephemeral event cannot be journaled: %s", validated.Name)
		}
		if validated.Timestamp.IsZero() {
			validated.Timestamp = time.Now().UTC()
		}
		batch[i] = validated
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range batch {
		stream := j.streams[batch[i].RoomID]
		batch[i].Seq = uint64(len(stream)) + 1
		j.streams[batch[i].RoomID] = append(stream, batch[i])
	}
	return batch, nil
}

// ListEvents returns events with seq greater than afterSeq, ordered by seq
// ascending. A limit of 0 means no limit.
func (j *Journal) ListEvents(ctx context.Context, roomID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	var events []event.Event
	for _, evt := range j.streams[roomID] {
		if evt.Seq <= afterSeq {
			continue
		}
		events = append(events, evt)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

// LatestSeq returns the highest sequence number for a room.
func (j *Journal) LatestSeq(ctx context.Context, roomID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return uint64(len(j.streams[roomID])), nil
}
