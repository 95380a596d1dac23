package room

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/cardsdown/cardsdown/internal/command"
	"github.com/cardsdown/cardsdown/internal/event"
)

func testCommandRegistry(t *testing.T) *command.Registry {
	t.Helper()
	registry := command.NewRegistry()
	if err := RegisterCommands(registry); err != nil {
		t.Fatalf("RegisterCommands() error = %v", err)
	}
	return registry
}

func validate(t *testing.T, registry *command.Registry, name command.Name, payload string) error {
	t.Helper()
	_, err := registry.ValidateForDecision(command.Command{
		ID:      "cmd-1",
		RoomID:  "room-1",
		Name:    name,
		Payload: json.RawMessage(payload),
	})
	return err
}

func requireFormatError(t *testing.T, err error, field string) {
	t.Helper()
	var formatErr *command.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("error = %v, want *command.FormatError", err)
	}
	if formatErr.Field != field {
		t.Fatalf("field = %s, want %s", formatErr.Field, field)
	}
}

func TestRegisterCommandsCoversAllNames(t *testing.T) {
	registry := testCommandRegistry(t)
	if got := len(registry.ListDefinitions()); got != 9 {
		t.Fatalf("len(definitions) = %d, want 9", got)
	}
}

func TestValidateStoryIDRequired(t *testing.T) {
	registry := testCommandRegistry(t)

	for _, name := range []command.Name{
		command.NameSelectStory,
		command.NameReveal,
		command.NameNewEstimationRound,
		command.NameTrashStory,
	} {
		requireFormatError(t, validate(t, registry, name, `{}`), "/payload/storyId")
	}
}

func TestValidateGiveStoryEstimate(t *testing.T) {
	registry := testCommandRegistry(t)

	requireFormatError(t, validate(t, registry, command.NameGiveStoryEstimate, `{}`), "/payload/value")
	if err := validate(t, registry, command.NameGiveStoryEstimate, `{"value":0}`); err != nil {
		t.Fatalf("value 0 rejected: %v", err)
	}
	if err := validate(t, registry, command.NameGiveStoryEstimate, `{"value":-2}`); err != nil {
		t.Fatalf("question card rejected: %v", err)
	}
}

func TestValidateSettleEstimation(t *testing.T) {
	registry := testCommandRegistry(t)

	requireFormatError(t, validate(t, registry, command.NameSettleEstimation, `{"storyId":"s1"}`), "/payload/value")
	requireFormatError(t, validate(t, registry, command.NameSettleEstimation, `{"value":5}`), "/payload/storyId")
}

func TestValidateChangeStory(t *testing.T) {
	registry := testCommandRegistry(t)

	requireFormatError(t, validate(t, registry, command.NameChangeStory, `{"storyId":"s1","title":""}`), "/payload/title")

	longTitle := strings.Repeat("x", MaxStoryTitleLength+1)
	payload, _ := json.Marshal(map[string]string{"storyId": "s1", "title": longTitle})
	requireFormatError(t, validate(t, registry, command.NameChangeStory, string(payload)), "/payload/title")

	longDescription := strings.Repeat("x", MaxStoryDescriptionLength+1)
	payload, _ = json.Marshal(map[string]string{"storyId": "s1", "title": "ok", "description": longDescription})
	requireFormatError(t, validate(t, registry, command.NameChangeStory, string(payload)), "/payload/description")

	if err := validate(t, registry, command.NameChangeStory, `{"storyId":"s1","title":"ok"}`); err != nil {
		t.Fatalf("valid changeStory rejected: %v", err)
	}
}

func TestValidateChangeStoryMessageShape(t *testing.T) {
	registry := testCommandRegistry(t)

	err := validate(t, registry, command.NameChangeStory, `{"storyId":"s1","title":""}`)
	if err == nil {
		t.Fatal("error = nil, want format error")
	}
	want := "Format validation failed (is required) in /payload/title"
	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestValidateImportStories(t *testing.T) {
	registry := testCommandRegistry(t)

	requireFormatError(t, validate(t, registry, command.NameImportStories, `{"data":"data:text/plain;base64,Zm9v"}`), "/payload/data")
	if err := validate(t, registry, command.NameImportStories, `{"data":"data:text/csv;base64,Zm9v"}`); err != nil {
		t.Fatalf("valid data url rejected: %v", err)
	}
}

func TestRegisterEvents(t *testing.T) {
	registry := event.NewRegistry()
	if err := RegisterEvents(registry); err != nil {
		t.Fatalf("RegisterEvents() error = %v", err)
	}
	if got := len(registry.ListDefinitions()); got != 11 {
		t.Fatalf("len(definitions) = %d, want 11", got)
	}
	def, ok := registry.Definition(event.NameCommandRejected)
	if !ok || !def.Ephemeral {
		t.Fatalf("commandRejected definition = %+v, %v, want ephemeral", def, ok)
	}
	for _, name := range FoldHandledNames() {
		def, ok := registry.Definition(name)
		if !ok {
			t.Fatalf("fold-handled event %s is not registered", name)
		}
		if def.Ephemeral {
			t.Fatalf("fold-handled event %s must not be ephemeral", name)
		}
	}
}
