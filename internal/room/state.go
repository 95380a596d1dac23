package room

import "time"

// User is a participant in a room. Excluded users observe but cannot
// estimate; disconnected users keep their seat until housekeeping runs.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Excluded     bool   `json:"excluded"`
	Disconnected bool   `json:"disconnected"`
}

// Story is a unit of work being estimated. Stories are never physically
// deleted; trashed stories are retained but excluded from active selection.
type Story struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Key is an optional external reference, e.g. an issue tracker key.
	Key string `json:"key,omitempty"`
	// Estimations maps user id to the estimated card value.
	Estimations map[string]float64 `json:"estimations"`
	Revealed    bool               `json:"revealed"`
	// Consensus is recorded once achieved and survives later reveal/hide
	// cycles. Nil means no consensus has been recorded.
	Consensus *float64 `json:"consensus,omitempty"`
	Trashed   bool     `json:"trashed"`
}

// State is the full in-memory representation of one room.
type State struct {
	ID string `json:"id"`
	// Users is ordered by insertion; ids are unique.
	Users []User `json:"users"`
	// Stories is ordered by creation.
	Stories []Story `json:"stories"`
	// SelectedStoryID references at most one existing story; empty means no
	// story is selected.
	SelectedStoryID string `json:"selectedStoryId,omitempty"`
	// CardConfig is the set of valid estimation cards for this room.
	CardConfig []CardConfig `json:"cardConfig"`
	// AutoReveal reveals the selected story as soon as every active user has
	// estimated.
	AutoReveal        bool      `json:"autoReveal"`
	Created           time.Time `json:"created"`
	LastActivity      time.Time `json:"lastActivity"`
	MarkedForDeletion bool      `json:"markedForDeletion"`
}

// New creates an empty room with the default card deck.
func New(roomID string, now time.Time) State {
	return State{
		ID:           roomID,
		CardConfig:   DefaultCardConfig(),
		AutoReveal:   true,
		Created:      now,
		LastActivity: now,
	}
}

// UserByID returns the user with the given id.
func (s State) UserByID(userID string) (User, bool) {
	for _, user := range s.Users {
		if user.ID == userID {
			return user, true
		}
	}
	return User{}, false
}

// StoryByID returns the story with the given id.
func (s State) StoryByID(storyID string) (Story, bool) {
	for _, story := range s.Stories {
		if story.ID == storyID {
			return story, true
		}
	}
	return Story{}, false
}

// SelectedStory returns the currently selected story.
func (s State) SelectedStory() (Story, bool) {
	if s.SelectedStoryID == "" {
		return Story{}, false
	}
	return s.StoryByID(s.SelectedStoryID)
}

// AddUser appends a user, replacing any existing user with the same id.
func (s *State) AddUser(user User) {
	for i := range s.Users {
		if s.Users[i].ID == user.ID {
			s.Users[i] = user
			return
		}
	}
	s.Users = append(s.Users, user)
}

// Clone returns a deep copy of the state. Folds operate on clones so a failed
// command never leaves a partially mutated aggregate behind.
func (s State) Clone() State {
	clone := s
	clone.Users = append([]User(nil), s.Users...)
	clone.Stories = make([]Story, len(s.Stories))
	for i, story := range s.Stories {
		clone.Stories[i] = story.clone()
	}
	clone.CardConfig = append([]CardConfig(nil), s.CardConfig...)
	return clone
}

func (st Story) clone() Story {
	clone := st
	clone.Estimations = make(map[string]float64, len(st.Estimations))
	for userID, value := range st.Estimations {
		clone.Estimations[userID] = value
	}
	if st.Consensus != nil {
		value := *st.Consensus
		clone.Consensus = &value
	}
	return clone
}
