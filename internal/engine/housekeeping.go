package engine

import (
	"context"
	"fmt"
	"time"
)

// HousekeepingResult reports what a sweep did.
type HousekeepingResult struct {
	Marked  []string
	Deleted []string
}

// Housekeeping sweeps stored rooms: rooms inactive for longer than ttl are
// marked for deletion, and rooms already marked are deleted. A marked room
// therefore survives one extra sweep interval; command activity in between
// clears the mark.
func (p *Processor) Housekeeping(ctx context.Context, ttl time.Duration) (HousekeepingResult, error) {
	if err := p.check(); err != nil {
		return HousekeepingResult{}, err
	}

	rooms, err := p.Rooms.List(ctx)
	if err != nil {
		return HousekeepingResult{}, fmt.Errorf("list rooms: %w", err)
	}

	var result HousekeepingResult
	cutoff := p.now().Add(-ttl)
	for _, state := range rooms {
		if !state.LastActivity.Before(cutoff) {
			continue
		}
		unlock := p.lockRoom(state.ID)
		current, err := p.Rooms.Get(ctx, state.ID)
		if err != nil {
			unlock()
			continue
		}
		// Re-check under the lock; a command may have landed since List.
		if !current.LastActivity.Before(cutoff) {
			unlock()
			continue
		}
		if current.MarkedForDeletion {
			if err := p.Rooms.Delete(ctx, current.ID); err != nil {
				unlock()
				return result, fmt.Errorf("delete room: %w", err)
			}
			result.Deleted = append(result.Deleted, current.ID)
			p.logf("msg=room_deleted room=%s", current.ID)
			unlock()
			continue
		}
		current.MarkedForDeletion = true
		if err := p.Rooms.Put(ctx, current); err != nil {
			unlock()
			return result, fmt.Errorf("store room: %w", err)
		}
		result.Marked = append(result.Marked, current.ID)
		p.logf("msg=room_marked_for_deletion room=%s", current.ID)
		unlock()
	}

	return result, nil
}
