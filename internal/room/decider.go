package room

import (
	"encoding/json"
	"time"

	"github.com/cardsdown/cardsdown/internal/command"
	"github.com/cardsdown/cardsdown/internal/event"
	"github.com/cardsdown/cardsdown/internal/importer"
)

// Rejection codes for room commands.
const (
	RejectStoryNotFound        = "STORY_NOT_FOUND"
	RejectStoryTrashed         = "STORY_TRASHED"
	RejectStoryNotSelected     = "STORY_NOT_SELECTED"
	RejectNoStorySelected      = "NO_STORY_SELECTED"
	RejectStoryAlreadyRevealed = "STORY_ALREADY_REVEALED"
	RejectStoryNotRevealed     = "STORY_NOT_REVEALED"
	RejectUserUnknown          = "USER_UNKNOWN"
	RejectUserExcluded         = "USER_EXCLUDED"
	RejectNoEstimationToClear  = "NO_ESTIMATION_TO_CLEAR"
	RejectValueNotEstimated    = "VALUE_NOT_ESTIMATED"
	RejectPayloadInvalid       = "PAYLOAD_INVALID"
)

// Import failure messages surfaced via importFailed events.
const (
	importFailedNoStories   = "No Stories in payload"
	importFailedParsePrefix = "Could not parse to stories "
)

// StoryParser parses importStories data urls into stories.
type StoryParser interface {
	Parse(dataURL string) ([]importer.Story, error)
}

// Decider turns validated room commands into decisions. Decide is pure apart
// from the injected clock, id generator, and story parser.
type Decider struct {
	now    func() time.Time
	newID  func() string
	parser StoryParser
}

// NewDecider creates a decider with the given clock, id generator, and parser.
func NewDecider(now func() time.Time, newID func() string, parser StoryParser) *Decider {
	return &Decider{now: now, newID: newID, parser: parser}
}

// Decide evaluates a command against the current room state. userID is the
// authenticated issuer; decisions never mutate state.
func (d *Decider) Decide(state State, cmd command.Command, userID string) command.Decision {
	switch cmd.Name {
	case command.NameSelectStory:
		return d.decideSelectStory(state, cmd)
	case command.NameGiveStoryEstimate:
		return d.decideGiveStoryEstimate(state, cmd, userID)
	case command.NameClearStoryEstimate:
		return d.decideClearStoryEstimate(state, cmd, userID)
	case command.NameReveal:
		return d.decideReveal(state, cmd)
	case command.NameNewEstimationRound:
		return d.decideNewEstimationRound(state, cmd)
	case command.NameSettleEstimation:
		return d.decideSettleEstimation(state, cmd)
	case command.NameTrashStory:
		return d.decideTrashStory(state, cmd)
	case command.NameChangeStory:
		return d.decideChangeStory(state, cmd)
	case command.NameImportStories:
		return d.decideImportStories(state, cmd)
	}
	return command.Reject(command.Rejection{
		Code:    "COMMAND_UNKNOWN",
		Message: "command is not handled by the room decider",
	})
}

func (d *Decider) decideSelectStory(state State, cmd command.Command) command.Decision {
	var payload SelectStoryPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return rejectPayload()
	}
	story, ok := state.StoryByID(payload.StoryID)
	if !ok {
		return rejectStoryNotFound(payload.StoryID)
	}
	if story.Trashed {
		return rejectStoryTrashed(story.ID)
	}
	return command.Accept(d.event(cmd, event.NameStorySelected, StorySelectedPayload{StoryID: story.ID}))
}

func (d *Decider) decideGiveStoryEstimate(state State, cmd command.Command, userID string) command.Decision {
	var payload GiveStoryEstimatePayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil || payload.Value == nil {
		return rejectPayload()
	}
	story, ok := state.SelectedStory()
	if !ok {
		return rejectNoStorySelected()
	}
	if story.Revealed {
		return rejectStoryAlreadyRevealed(story.ID)
	}
	user, ok := state.UserByID(userID)
	if !ok {
		return rejectUserUnknown(userID)
	}
	if user.Excluded {
		return rejectUserExcluded(userID)
	}

	value := *payload.Value
	events := []event.Event{
		d.event(cmd, event.NameStoryEstimateGiven, StoryEstimateGivenPayload{
			StoryID: story.ID,
			UserID:  userID,
			Value:   value,
		}),
	}

	// Project the estimate onto a clone to check the auto reveal condition
	// without touching the live aggregate.
	projected := story.clone()
	projected.Estimations[userID] = value
	if state.AutoReveal && state.activeUsersEstimated(projected) {
		events = append(events, d.event(cmd, event.NameStoryRevealed, StoryRevealedPayload{StoryID: story.ID}))
		projected.Revealed = true
		if consensus, achieved := state.Consensus(projected); achieved {
			events = append(events, d.event(cmd, event.NameConsensusAchieved, ConsensusAchievedPayload{
				StoryID: story.ID,
				Value:   consensus,
			}))
		}
	}
	return command.Accept(events...)
}

func (d *Decider) decideClearStoryEstimate(state State, cmd command.Command, userID string) command.Decision {
	story, ok := state.SelectedStory()
	if !ok {
		return rejectNoStorySelected()
	}
	if story.Revealed {
		return rejectStoryAlreadyRevealed(story.ID)
	}
	user, ok := state.UserByID(userID)
	if !ok {
		return rejectUserUnknown(userID)
	}
	if user.Excluded {
		return rejectUserExcluded(userID)
	}
	if _, estimated := story.Estimations[userID]; !estimated {
		return command.Reject(command.Rejection{
			Code:    RejectNoEstimationToClear,
			Message: "user has no estimation on the selected story",
		})
	}
	return command.Accept(d.event(cmd, event.NameStoryEstimateCleared, StoryEstimateClearedPayload{
		StoryID: story.ID,
		UserID:  userID,
	}))
}

func (d *Decider) decideReveal(state State, cmd command.Command) command.Decision {
	var payload RevealPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return rejectPayload()
	}
	story, ok := state.StoryByID(payload.StoryID)
	if !ok {
		return rejectStoryNotFound(payload.StoryID)
	}
	if story.ID != state.SelectedStoryID {
		return rejectStoryNotSelected(story.ID)
	}
	if story.Revealed {
		return rejectStoryAlreadyRevealed(story.ID)
	}

	events := []event.Event{
		d.event(cmd, event.NameStoryRevealed, StoryRevealedPayload{StoryID: story.ID}),
	}
	projected := story.clone()
	projected.Revealed = true
	if consensus, achieved := state.Consensus(projected); achieved {
		events = append(events, d.event(cmd, event.NameConsensusAchieved, ConsensusAchievedPayload{
			StoryID: story.ID,
			Value:   consensus,
		}))
	}
	return command.Accept(events...)
}

func (d *Decider) decideNewEstimationRound(state State, cmd command.Command) command.Decision {
	var payload NewEstimationRoundPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return rejectPayload()
	}
	story, ok := state.StoryByID(payload.StoryID)
	if !ok {
		return rejectStoryNotFound(payload.StoryID)
	}
	if story.ID != state.SelectedStoryID {
		return rejectStoryNotSelected(story.ID)
	}
	return command.Accept(d.event(cmd, event.NameEstimationRoundStarted, EstimationRoundStartedPayload{StoryID: story.ID}))
}

func (d *Decider) decideSettleEstimation(state State, cmd command.Command) command.Decision {
	var payload SettleEstimationPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil || payload.Value == nil {
		return rejectPayload()
	}
	story, ok := state.StoryByID(payload.StoryID)
	if !ok {
		return rejectStoryNotFound(payload.StoryID)
	}
	if story.ID != state.SelectedStoryID {
		return rejectStoryNotSelected(story.ID)
	}
	if !story.Revealed {
		return command.Reject(command.Rejection{
			Code:    RejectStoryNotRevealed,
			Message: "estimation can only be settled on a revealed story",
		})
	}
	value := *payload.Value
	if !estimationOccurs(story, value) {
		return command.Reject(command.Rejection{
			Code:    RejectValueNotEstimated,
			Message: "settled value must be one of the given estimations",
		})
	}
	return command.Accept(d.event(cmd, event.NameConsensusAchieved, ConsensusAchievedPayload{
		StoryID: story.ID,
		Value:   value,
		Settled: true,
	}))
}

func (d *Decider) decideTrashStory(state State, cmd command.Command) command.Decision {
	var payload TrashStoryPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return rejectPayload()
	}
	story, ok := state.StoryByID(payload.StoryID)
	if !ok {
		return rejectStoryNotFound(payload.StoryID)
	}
	if story.Trashed {
		return rejectStoryTrashed(story.ID)
	}
	return command.Accept(d.event(cmd, event.NameStoryTrashed, StoryTrashedPayload{StoryID: story.ID}))
}

func (d *Decider) decideChangeStory(state State, cmd command.Command) command.Decision {
	var payload ChangeStoryPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return rejectPayload()
	}
	story, ok := state.StoryByID(payload.StoryID)
	if !ok {
		return rejectStoryNotFound(payload.StoryID)
	}
	if story.Trashed {
		return rejectStoryTrashed(story.ID)
	}
	return command.Accept(d.event(cmd, event.NameStoryChanged, StoryChangedPayload{
		StoryID:     story.ID,
		Title:       payload.Title,
		Description: payload.Description,
	}))
}

func (d *Decider) decideImportStories(state State, cmd command.Command) command.Decision {
	var payload ImportStoriesPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return rejectPayload()
	}
	stories, err := d.parser.Parse(payload.Data)
	if err != nil {
		return command.Accept(d.event(cmd, event.NameImportFailed, ImportFailedPayload{
			Message: importFailedParsePrefix + err.Error(),
		}))
	}
	if len(stories) == 0 {
		return command.Accept(d.event(cmd, event.NameImportFailed, ImportFailedPayload{
			Message: importFailedNoStories,
		}))
	}

	var events []event.Event
	firstStoryID := ""
	for _, story := range stories {
		storyID := d.newID()
		if firstStoryID == "" {
			firstStoryID = storyID
		}
		events = append(events, d.event(cmd, event.NameStoryAdded, StoryAddedPayload{
			StoryID:     storyID,
			Title:       story.Title,
			Description: story.Description,
			Key:         story.Key,
			Estimations: map[string]float64{},
		}))
		if story.Consensus != nil {
			events = append(events, d.event(cmd, event.NameConsensusAchieved, ConsensusAchievedPayload{
				StoryID: storyID,
				Value:   *story.Consensus,
				Settled: true,
			}))
		}
	}
	if state.SelectedStoryID == "" {
		events = append(events, d.event(cmd, event.NameStorySelected, StorySelectedPayload{StoryID: firstStoryID}))
	}
	return command.Accept(events...)
}

func (d *Decider) event(cmd command.Command, name event.Name, payload any) event.Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Payload structs are plain data; marshaling them cannot fail.
		raw = []byte("{}")
	}
	return command.NewEvent(cmd, name, raw, d.now())
}

func estimationOccurs(story Story, value float64) bool {
	for _, estimate := range story.Estimations {
		if estimate == value {
			return true
		}
	}
	return false
}

func rejectPayload() command.Decision {
	return command.Reject(command.Rejection{
		Code:    RejectPayloadInvalid,
		Message: "payload does not match the command schema",
	})
}

func rejectStoryNotFound(storyID string) command.Decision {
	return command.Reject(command.Rejection{
		Code:    RejectStoryNotFound,
		Message: "story not found: " + storyID,
	})
}

func rejectStoryTrashed(storyID string) command.Decision {
	return command.Reject(command.Rejection{
		Code:    RejectStoryTrashed,
		Message: "story is trashed: " + storyID,
	})
}

func rejectStoryNotSelected(storyID string) command.Decision {
	return command.Reject(command.Rejection{
		Code:    RejectStoryNotSelected,
		Message: "story is not the selected story: " + storyID,
	})
}

func rejectNoStorySelected() command.Decision {
	return command.Reject(command.Rejection{
		Code:    RejectNoStorySelected,
		Message: "no story is selected",
	})
}

func rejectStoryAlreadyRevealed(storyID string) command.Decision {
	return command.Reject(command.Rejection{
		Code:    RejectStoryAlreadyRevealed,
		Message: "story is already revealed: " + storyID,
	})
}

func rejectUserUnknown(userID string) command.Decision {
	return command.Reject(command.Rejection{
		Code:    RejectUserUnknown,
		Message: "user is not part of the room: " + userID,
	})
}

func rejectUserExcluded(userID string) command.Decision {
	return command.Reject(command.Rejection{
		Code:    RejectUserExcluded,
		Message: "excluded users cannot estimate: " + userID,
	})
}
