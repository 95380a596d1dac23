// Package pending tracks commands a client has issued but not yet seen
// resolved by an event. Queries drive optimistic UI affordances such as
// waiting indicators on estimation cards.
package pending

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cardsdown/cardsdown/internal/command"
	"github.com/cardsdown/cardsdown/internal/event"
	"github.com/cardsdown/cardsdown/internal/room"
)

// DefaultTimeout is how long a command stays pending before it is assumed
// lost and dropped.
const DefaultTimeout = 2 * time.Second

type entry struct {
	name         command.Name
	payload      json.RawMessage
	registeredAt time.Time
}

// Tracker tracks in-flight commands for one client. Safe for concurrent use.
// Every query returns a concrete answer; an empty tracker is never an error.
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	timeout time.Duration
	pending map[string]entry
}

// NewTracker creates a tracker with the given clock. A zero timeout falls
// back to DefaultTimeout.
func NewTracker(now func() time.Time, timeout time.Duration) *Tracker {
	if now == nil {
		now = time.Now
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{now: now, timeout: timeout, pending: make(map[string]entry)}
}

// Register records a command as pending until an event with its command id
// arrives or the timeout elapses.
func (t *Tracker) Register(cmd command.Command) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	t.pending[cmd.ID] = entry{
		name:         cmd.Name,
		payload:      append(json.RawMessage(nil), cmd.Payload...),
		registeredAt: t.now(),
	}
}

// ResolveEvent resolves the pending command the event answers, if any. Both
// regular events and commandRejected carry the originating command id.
func (t *Tracker) ResolveEvent(evt event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, evt.CommandID)
}

// IsCardWaiting reports whether the card with the given value is waiting for
// a backend answer: either a pending giveStoryEstimate for that value, or a
// pending clearStoryEstimate while the client's own estimate is that value.
func (t *Tracker) IsCardWaiting(value float64, ownEstimate *float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	for _, pending := range t.pending {
		switch pending.name {
		case command.NameGiveStoryEstimate:
			var payload room.GiveStoryEstimatePayload
			if err := json.Unmarshal(pending.payload, &payload); err != nil || payload.Value == nil {
				continue
			}
			if *payload.Value == value {
				return true
			}
		case command.NameClearStoryEstimate:
			if ownEstimate != nil && *ownEstimate == value {
				return true
			}
		}
	}
	return false
}

// IsStoryWaiting reports whether the story has a pending selectStory or
// trashStory command.
func (t *Tracker) IsStoryWaiting(storyID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	for _, pending := range t.pending {
		switch pending.name {
		case command.NameSelectStory, command.NameTrashStory:
			if payloadStoryID(pending.payload) == storyID {
				return true
			}
		}
	}
	return false
}

// IsStoryEditFormWaiting reports whether the story has a pending changeStory
// command.
func (t *Tracker) IsStoryEditFormWaiting(storyID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	for _, pending := range t.pending {
		if pending.name != command.NameChangeStory {
			continue
		}
		if payloadStoryID(pending.payload) == storyID {
			return true
		}
	}
	return false
}

// SettlingStories returns the payloads of pending settleEstimation commands,
// story id and provisional value both, so a client can render the value it is
// waiting on. The result is never nil.
func (t *Tracker) SettlingStories() []room.SettleEstimationPayload {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	settling := make([]room.SettleEstimationPayload, 0)
	for _, pending := range t.pending {
		if pending.name != command.NameSettleEstimation {
			continue
		}
		var payload room.SettleEstimationPayload
		if err := json.Unmarshal(pending.payload, &payload); err != nil || payload.StoryID == "" {
			continue
		}
		settling = append(settling, payload)
	}
	return settling
}

// prune drops entries older than the timeout. Callers hold the lock.
func (t *Tracker) prune() {
	cutoff := t.now().Add(-t.timeout)
	for id, pending := range t.pending {
		if pending.registeredAt.Before(cutoff) {
			delete(t.pending, id)
		}
	}
}

func payloadStoryID(payload json.RawMessage) string {
	var probe struct {
		StoryID string `json:"storyId"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return probe.StoryID
}
