// Package event defines the event envelope and the registry that validates
// events before they are appended to a room's journal.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrRoomIDRequired indicates a missing room id.
	ErrRoomIDRequired = errors.New("room id is required")
	// ErrNameRequired indicates a missing event name.
	ErrNameRequired = errors.New("event name is required")
	// ErrNameUnknown indicates an unregistered event name.
	ErrNameUnknown = errors.New("event name is not registered")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
)

// Name identifies the event name string.
type Name string

// Event names produced by room commands.
const (
	NameStorySelected          Name = "storySelected"
	NameStoryEstimateGiven     Name = "storyEstimateGiven"
	NameStoryEstimateCleared   Name = "storyEstimateCleared"
	NameStoryRevealed          Name = "storyRevealed"
	NameEstimationRoundStarted Name = "estimationRoundStarted"
	NameConsensusAchieved      Name = "consensusAchieved"
	NameStoryTrashed           Name = "storyTrashed"
	NameStoryChanged           Name = "storyChanged"
	NameStoryAdded             Name = "storyAdded"
	NameImportFailed           Name = "importFailed"
	NameCommandRejected        Name = "commandRejected"
)

// Event is the envelope broadcast to room subscribers. One command may yield
// zero, one, or many events; their order is significant and preserved by the
// journal sequence.
type Event struct {
	CommandID string          `json:"commandId"`
	RoomID    string          `json:"roomId"`
	Name      Name            `json:"name"`
	Payload   json.RawMessage `json:"payload"`

	// Seq is the event sequence number within the room (starts at 1).
	// Assigned by the journal on append; zero for ephemeral events.
	Seq uint64 `json:"-"`
	// Timestamp is when the event was produced.
	Timestamp time.Time `json:"-"`
}

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for an event name.
type Definition struct {
	Name            Name
	ValidatePayload PayloadValidator
	// Ephemeral marks events that are delivered to the issuing client only
	// and never appended to the journal or broadcast.
	Ephemeral bool
}

// Registry stores event definitions and validates events before append.
type Registry struct {
	definitions map[Name]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Name]Definition)}
}

// Register adds a new event definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Name = Name(strings.TrimSpace(string(def.Name)))
	if def.Name == "" {
		return ErrNameRequired
	}
	if r.definitions == nil {
		r.definitions = make(map[Name]Definition)
	}
	if _, exists := r.definitions[def.Name]; exists {
		return fmt.Errorf("event name already registered: %s", def.Name)
	}
	r.definitions[def.Name] = def
	return nil
}

// ValidateForAppend validates and normalizes an event before it is appended
// to the journal.
func (r *Registry) ValidateForAppend(evt Event) (Event, error) {
	evt.RoomID = strings.TrimSpace(evt.RoomID)
	if evt.RoomID == "" {
		return Event{}, ErrRoomIDRequired
	}
	evt.Name = Name(strings.TrimSpace(string(evt.Name)))
	if evt.Name == "" {
		return Event{}, ErrNameRequired
	}
	def, ok := r.definitions[evt.Name]
	if !ok {
		return Event{}, ErrNameUnknown
	}
	if len(evt.Payload) == 0 {
		evt.Payload = []byte("{}")
	}
	if !json.Valid(evt.Payload) {
		return Event{}, ErrPayloadInvalid
	}
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(evt.Payload); err != nil {
			return Event{}, fmt.Errorf("payload invalid: %w", err)
		}
	}
	return evt, nil
}

// Definition returns the event definition for a given name.
func (r *Registry) Definition(name Name) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[Name(strings.TrimSpace(string(name)))]
	return def, ok
}

// ListDefinitions returns a stable, sorted snapshot of registered definitions.
func (r *Registry) ListDefinitions() []Definition {
	if r == nil || len(r.definitions) == 0 {
		return nil
	}
	definitions := make([]Definition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return string(definitions[i].Name) < string(definitions[j].Name)
	})
	return definitions
}
