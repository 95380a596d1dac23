package event

import (
	"errors"
	"testing"
)

func TestRegister_RejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Name: NameStorySelected}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(Definition{Name: NameStorySelected}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestValidateForAppend_RequiresRoomID(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Name: NameStorySelected}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := registry.ValidateForAppend(Event{Name: NameStorySelected})
	if !errors.Is(err, ErrRoomIDRequired) {
		t.Fatalf("err = %v, want %v", err, ErrRoomIDRequired)
	}
}

func TestValidateForAppend_RejectsUnknownName(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.ValidateForAppend(Event{RoomID: "room-1", Name: Name("nope")})
	if !errors.Is(err, ErrNameUnknown) {
		t.Fatalf("err = %v, want %v", err, ErrNameUnknown)
	}
}

func TestValidateForAppend_DefaultsEmptyPayload(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Name: NameStoryRevealed}); err != nil {
		t.Fatalf("register: %v", err)
	}

	validated, err := registry.ValidateForAppend(Event{RoomID: "room-1", Name: NameStoryRevealed})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if string(validated.Payload) != "{}" {
		t.Fatalf("payload = %s, want {}", validated.Payload)
	}
}

func TestValidateForAppend_RejectsMalformedPayload(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Name: NameStoryRevealed}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := registry.ValidateForAppend(Event{
		RoomID:  "room-1",
		Name:    NameStoryRevealed,
		Payload: []byte(`{"broken`),
	})
	if !errors.Is(err, ErrPayloadInvalid) {
		t.Fatalf("err = %v, want %v", err, ErrPayloadInvalid)
	}
}
