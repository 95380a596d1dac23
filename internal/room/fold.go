package room

import (
	"encoding/json"
	"fmt"

	"github.com/cardsdown/cardsdown/internal/event"
)

// Fold applies one event onto the room state and returns the new state. The
// input state is never mutated. Events reaching the fold were produced by the
// decider, so a reference to a missing story indicates a corrupted journal
// and is reported as an error.
func Fold(state State, evt event.Event) (State, error) {
	next := state.Clone()
	if !evt.Timestamp.IsZero() {
		next.LastActivity = evt.Timestamp
	}

	switch evt.Name {
	case event.NameStorySelected:
		var payload StorySelectedPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return State{}, foldPayloadError(evt, err)
		}
		if _, ok := next.StoryByID(payload.StoryID); !ok {
			return State{}, foldStoryError(evt, payload.StoryID)
		}
		next.SelectedStoryID = payload.StoryID

	case event.NameStoryEstimateGiven:
		var payload StoryEstimateGivenPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return State{}, foldPayloadError(evt, err)
		}
		i := next.storyIndex(payload.StoryID)
		if i < 0 {
			return State{}, foldStoryError(evt, payload.StoryID)
		}
		if next.Stories[i].Estimations == nil {
			next.Stories[i].Estimations = make(map[string]float64)
		}
		next.Stories[i].Estimations[payload.UserID] = payload.Value

	case event.NameStoryEstimateCleared:
		var payload StoryEstimateClearedPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return State{}, foldPayloadError(evt, err)
		}
		i := next.storyIndex(payload.StoryID)
		if i < 0 {
			return State{}, foldStoryError(evt, payload.StoryID)
		}
		delete(next.Stories[i].Estimations, payload.UserID)

	case event.NameStoryRevealed:
		var payload StoryRevealedPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return State{}, foldPayloadError(evt, err)
		}
		i := next.storyIndex(payload.StoryID)
		if i < 0 {
			return State{}, foldStoryError(evt, payload.StoryID)
		}
		next.Stories[i].Revealed = true

	case event.NameEstimationRoundStarted:
		var payload EstimationRoundStartedPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return State{}, foldPayloadError(evt, err)
		}
		i := next.storyIndex(payload.StoryID)
		if i < 0 {
			return State{}, foldStoryError(evt, payload.StoryID)
		}
		next.Stories[i].Estimations = make(map[string]float64)
		next.Stories[i].Revealed = false
		next.Stories[i].Consensus = nil

	case event.NameConsensusAchieved:
		var payload ConsensusAchievedPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return State{}, foldPayloadError(evt, err)
		}
		i := next.storyIndex(payload.StoryID)
		if i < 0 {
			return State{}, foldStoryError(evt, payload.StoryID)
		}
		value := payload.Value
		next.Stories[i].Consensus = &value

	case event.NameStoryTrashed:
		var payload StoryTrashedPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return State{}, foldPayloadError(evt, err)
		}
		i := next.storyIndex(payload.StoryID)
		if i < 0 {
			return State{}, foldStoryError(evt, payload.StoryID)
		}
		next.Stories[i].Trashed = true
		if next.SelectedStoryID == payload.StoryID {
			next.SelectedStoryID = ""
		}

	case event.NameStoryChanged:
		var payload StoryChangedPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return State{}, foldPayloadError(evt, err)
		}
		i := next.storyIndex(payload.StoryID)
		if i < 0 {
			return State{}, foldStoryError(evt, payload.StoryID)
		}
		next.Stories[i].Title = payload.Title
		next.Stories[i].Description = payload.Description

	case event.NameStoryAdded:
		var payload StoryAddedPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return State{}, foldPayloadError(evt, err)
		}
		estimations := payload.Estimations
		if estimations == nil {
			estimations = make(map[string]float64)
		}
		next.Stories = append(next.Stories, Story{
			ID:          payload.StoryID,
			Title:       payload.Title,
			Description: payload.Description,
			Key:         payload.Key,
			Estimations: estimations,
		})

	case event.NameImportFailed:
		// Carries no state change; only bumps the activity timestamp.

	default:
		return State{}, fmt.Errorf("event not handled by room fold: %s", evt.Name)
	}

	return next, nil
}

// FoldHandledNames lists the event names the room fold applies. Ephemeral
// events are absent; they are never journaled or folded.
func FoldHandledNames() []event.Name {
	return []event.Name{
		event.NameStorySelected,
		event.NameStoryEstimateGiven,
		event.NameStoryEstimateCleared,
		event.NameStoryRevealed,
		event.NameEstimationRoundStarted,
		event.NameConsensusAchieved,
		event.NameStoryTrashed,
		event.NameStoryChanged,
		event.NameStoryAdded,
		event.NameImportFailed,
	}
}

func (s State) storyIndex(storyID string) int {
	for i := range s.Stories {
		if s.Stories[i].ID == storyID {
			return i
		}
	}
	return -1
}

func foldPayloadError(evt event.Event, err error) error {
	return fmt.Errorf("fold %s: decode payload: %w", evt.Name, err)
}

func foldStoryError(evt event.Event, storyID string) error {
	return fmt.Errorf("fold %s: story not found: %s", evt.Name, storyID)
}
