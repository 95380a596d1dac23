package room

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/cardsdown/cardsdown/internal/command"
	"github.com/cardsdown/cardsdown/internal/event"
)

const (
	// MaxStoryTitleLength bounds story titles, import truncation included.
	MaxStoryTitleLength = 100
	// MaxStoryDescriptionLength bounds story descriptions.
	MaxStoryDescriptionLength = 2000
	// dataURLPrefix is the only accepted encoding for importStories payloads.
	dataURLPrefix = "data:text/csv;base64,"
)

// RegisterCommands registers every room command and its payload schema.
func RegisterCommands(registry *command.Registry) error {
	definitions := []command.Definition{
		{Name: command.NameSelectStory, ValidatePayload: validateSelectStory},
		{Name: command.NameGiveStoryEstimate, ValidatePayload: validateGiveStoryEstimate},
		{Name: command.NameClearStoryEstimate},
		{Name: command.NameReveal, ValidatePayload: validateReveal},
		{Name: command.NameNewEstimationRound, ValidatePayload: validateNewEstimationRound},
		{Name: command.NameSettleEstimation, ValidatePayload: validateSettleEstimation},
		{Name: command.NameTrashStory, ValidatePayload: validateTrashStory},
		{Name: command.NameChangeStory, ValidatePayload: validateChangeStory},
		{Name: command.NameImportStories, ValidatePayload: validateImportStories},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEvents registers every room event. Event payloads are produced by
// the decider, so validation is limited to well-formedness checks.
func RegisterEvents(registry *event.Registry) error {
	definitions := []event.Definition{
		{Name: event.NameStorySelected},
		{Name: event.NameStoryEstimateGiven},
		{Name: event.NameStoryEstimateCleared},
		{Name: event.NameStoryRevealed},
		{Name: event.NameEstimationRoundStarted},
		{Name: event.NameConsensusAchieved},
		{Name: event.NameStoryTrashed},
		{Name: event.NameStoryChanged},
		{Name: event.NameStoryAdded},
		{Name: event.NameImportFailed},
		{Name: event.NameCommandRejected, Ephemeral: true},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func validateSelectStory(raw json.RawMessage) error {
	var payload SelectStoryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return command.NewFormatError("/payload", "must be an object")
	}
	return requireStoryID(payload.StoryID)
}

func validateGiveStoryEstimate(raw json.RawMessage) error {
	var payload GiveStoryEstimatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return command.NewFormatError("/payload", "must be an object")
	}
	if payload.Value == nil {
		return command.NewFormatError("/payload/value", "is required")
	}
	return nil
}

func validateReveal(raw json.RawMessage) error {
	var payload RevealPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return command.NewFormatError("/payload", "must be an object")
	}
	return requireStoryID(payload.StoryID)
}

func validateNewEstimationRound(raw json.RawMessage) error {
	var payload NewEstimationRoundPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return command.NewFormatError("/payload", "must be an object")
	}
	return requireStoryID(payload.StoryID)
}

func validateSettleEstimation(raw json.RawMessage) error {
	var payload SettleEstimationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return command.NewFormatError("/payload", "must be an object")
	}
	if err := requireStoryID(payload.StoryID); err != nil {
		return err
	}
	if payload.Value == nil {
		return command.NewFormatError("/payload/value", "is required")
	}
	return nil
}

func validateTrashStory(raw json.RawMessage) error {
	var payload TrashStoryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return command.NewFormatError("/payload", "must be an object")
	}
	return requireStoryID(payload.StoryID)
}

func validateChangeStory(raw json.RawMessage) error {
	var payload ChangeStoryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return command.NewFormatError("/payload", "must be an object")
	}
	if err := requireStoryID(payload.StoryID); err != nil {
		return err
	}
	if strings.TrimSpace(payload.Title) == "" {
		return command.NewFormatError("/payload/title", "is required")
	}
	if utf8.RuneCountInString(payload.Title) > MaxStoryTitleLength {
		return command.NewFormatError("/payload/title", "must not exceed 100 characters")
	}
	if utf8.RuneCountInString(payload.Description) > MaxStoryDescriptionLength {
		return command.NewFormatError("/payload/description", "must not exceed 2000 characters")
	}
	return nil
}

func validateImportStories(raw json.RawMessage) error {
	var payload ImportStoriesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return command.NewFormatError("/payload", "must be an object")
	}
	if !strings.HasPrefix(payload.Data, dataURLPrefix) {
		return command.NewFormatError("/payload/data", "must be a valid text/csv data url")
	}
	return nil
}

func requireStoryID(storyID string) error {
	if strings.TrimSpace(storyID) == "" {
		return command.NewFormatError("/payload/storyId", "is required")
	}
	return nil
}
