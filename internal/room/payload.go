package room

// Command payloads.

// SelectStoryPayload captures the payload for selectStory commands.
type SelectStoryPayload struct {
	StoryID string `json:"storyId"`
}

// GiveStoryEstimatePayload captures the payload for giveStoryEstimate
// commands. Value is a pointer so a missing field can be told apart from an
// estimate of zero during schema validation.
type GiveStoryEstimatePayload struct {
	Value *float64 `json:"value"`
}

// ClearStoryEstimatePayload captures the payload for clearStoryEstimate
// commands. The command carries no fields; the estimate cleared is the
// issuing user's estimate on the selected story.
type ClearStoryEstimatePayload struct{}

// RevealPayload captures the payload for reveal commands.
type RevealPayload struct {
	StoryID string `json:"storyId"`
}

// NewEstimationRoundPayload captures the payload for newEstimationRound
// commands.
type NewEstimationRoundPayload struct {
	StoryID string `json:"storyId"`
}

// SettleEstimationPayload captures the payload for settleEstimation commands.
type SettleEstimationPayload struct {
	StoryID string   `json:"storyId"`
	Value   *float64 `json:"value"`
}

// TrashStoryPayload captures the payload for trashStory commands.
type TrashStoryPayload struct {
	StoryID string `json:"storyId"`
}

// ChangeStoryPayload captures the payload for changeStory commands.
type ChangeStoryPayload struct {
	StoryID     string `json:"storyId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ImportStoriesPayload captures the payload for importStories commands. Data
// is a base64 text/csv data url.
type ImportStoriesPayload struct {
	Data string `json:"data"`
}

// Event payloads.

// StorySelectedPayload captures the payload for storySelected events.
type StorySelectedPayload struct {
	StoryID string `json:"storyId"`
}

// StoryEstimateGivenPayload captures the payload for storyEstimateGiven
// events.
type StoryEstimateGivenPayload struct {
	StoryID string  `json:"storyId"`
	UserID  string  `json:"userId"`
	Value   float64 `json:"value"`
}

// StoryEstimateClearedPayload captures the payload for storyEstimateCleared
// events.
type StoryEstimateClearedPayload struct {
	StoryID string `json:"storyId"`
	UserID  string `json:"userId"`
}

// StoryRevealedPayload captures the payload for storyRevealed events.
type StoryRevealedPayload struct {
	StoryID string `json:"storyId"`
}

// EstimationRoundStartedPayload captures the payload for
// estimationRoundStarted events.
type EstimationRoundStartedPayload struct {
	StoryID string `json:"storyId"`
}

// ConsensusAchievedPayload captures the payload for consensusAchieved events.
// Settled marks a manual override via settleEstimation.
type ConsensusAchievedPayload struct {
	StoryID string  `json:"storyId"`
	Value   float64 `json:"value"`
	Settled bool    `json:"settled"`
}

// StoryTrashedPayload captures the payload for storyTrashed events.
type StoryTrashedPayload struct {
	StoryID string `json:"storyId"`
}

// StoryChangedPayload captures the payload for storyChanged events.
type StoryChangedPayload struct {
	StoryID     string `json:"storyId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// StoryAddedPayload captures the payload for storyAdded events. Estimations
// is always present, never null.
type StoryAddedPayload struct {
	StoryID     string             `json:"storyId"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Key         string             `json:"key,omitempty"`
	Estimations map[string]float64 `json:"estimations"`
}

// ImportFailedPayload captures the payload for importFailed events.
type ImportFailedPayload struct {
	Message string `json:"message"`
}

// CommandRejectedPayload captures the payload for commandRejected events.
// The event is addressed to the issuing client only.
type CommandRejectedPayload struct {
	Reason string `json:"reason"`
}
