// Package command defines the command envelope and validation entry points.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrIDRequired indicates a missing command id.
	ErrIDRequired = errors.New("command id is required")
	// ErrRoomIDRequired indicates a missing room id.
	ErrRoomIDRequired = errors.New("room id is required")
	// ErrNameRequired indicates a missing command name.
	ErrNameRequired = errors.New("command name is required")
	// ErrNameUnknown indicates an unregistered command name.
	ErrNameUnknown = errors.New("command name is not registered")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
)

// Name identifies the command name string.
type Name string

// Command names recognized by the room decider.
const (
	NameSelectStory        Name = "selectStory"
	NameGiveStoryEstimate  Name = "giveStoryEstimate"
	NameClearStoryEstimate Name = "clearStoryEstimate"
	NameReveal             Name = "reveal"
	NameNewEstimationRound Name = "newEstimationRound"
	NameSettleEstimation   Name = "settleEstimation"
	NameTrashStory         Name = "trashStory"
	NameChangeStory        Name = "changeStory"
	NameImportStories      Name = "importStories"
)

// Command captures the canonical command envelope. Commands are immutable
// once issued; the id is client-generated and globally unique.
type Command struct {
	ID      string          `json:"id"`
	RoomID  string          `json:"roomId"`
	Name    Name            `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// FormatError reports a request-shape violation detected before any handler
// runs. It is surfaced to the issuing client as a synchronous failure and
// never becomes a domain event.
type FormatError struct {
	// Field is a JSON-pointer-like path to the offending field, e.g.
	// "/payload/data".
	Field  string
	Reason string
}

// Error satisfies the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("Format validation failed (%s) in %s", e.Reason, e.Field)
}

// NewFormatError builds a FormatError for the given payload field.
func NewFormatError(field, reason string) *FormatError {
	return &FormatError{Field: field, Reason: reason}
}

// PayloadValidator validates a payload JSON document. Implementations return
// a *FormatError for schema violations.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for a command name.
type Definition struct {
	Name            Name
	ValidatePayload PayloadValidator
}

// Registry stores command definitions and validates commands.
type Registry struct {
	definitions map[Name]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Name]Definition)}
}

// Register adds a new command definition to the registry.
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
		return fmt.Errorf("command name already registered: %s", def.Name)
	}
	r.definitions[def.Name] = def
	return nil
}

// ValidateForDecision validates and normalizes a command before decision
// handling. Schema violations fail the whole call; they are never turned
// into events.
func (r *Registry) ValidateForDecision(cmd Command) (Command, error) {
	cmd.ID = strings.TrimSpace(cmd.ID)
	if cmd.ID == "" {
		return Command{}, ErrIDRequired
	}
	cmd.RoomID = strings.TrimSpace(cmd.RoomID)
	if cmd.RoomID == "" {
		return Command{}, ErrRoomIDRequired
	}
	cmd.Name = Name(strings.TrimSpace(string(cmd.Name)))
	if cmd.Name == "" {
		return Command{}, ErrNameRequired
	}
	def, ok := r.definitions[cmd.Name]
	if !ok {
		return Command{}, ErrNameUnknown
	}
	if len(cmd.Payload) == 0 {
		cmd.Payload = []byte("{}")
	}
	if !json.Valid(cmd.Payload) {
		return Command{}, ErrPayloadInvalid
	}
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(cmd.Payload); err != nil {
			return Command{}, err
		}
	}
	return cmd, nil
}

// Definition returns the command definition for a given name.
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
