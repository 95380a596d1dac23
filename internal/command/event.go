package command

import (
	"time"

	"github.com/cardsdown/cardsdown/internal/event"
)

// NewEvent builds an event.Event by copying the shared envelope fields from a
// command. Callers supply the event name, payload, and timestamp. This
// eliminates per-decider boilerplate and ensures that new envelope fields are
// automatically forwarded.
func NewEvent(cmd Command, name event.Name, payload []byte, now time.Time) event.Event {
	return event.Event{
		CommandID: cmd.ID,
		RoomID:    cmd.RoomID,
		Name:      name,
		Payload:   payload,
		Timestamp: now,
	}
}
