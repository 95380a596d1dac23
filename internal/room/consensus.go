package room

// Consensus computes the consensus value for a story: the story must be
// revealed, at least one active (non-excluded) user must have estimated, and
// all active users who estimated must agree on the same card value.
// Estimations from users that left the room or are excluded do not count.
func (s State) Consensus(story Story) (float64, bool) {
	if !story.Revealed {
		return 0, false
	}
	var value float64
	counted := 0
	for userID, estimate := range story.Estimations {
		user, ok := s.UserByID(userID)
		if !ok || user.Excluded {
			continue
		}
		if counted > 0 && estimate != value {
			return 0, false
		}
		value = estimate
		counted++
	}
	if counted == 0 {
		return 0, false
	}
	return value, true
}

// HasConsensus reports whether a consensus value has been recorded for the
// story. The recorded value survives later reveal/hide cycles.
func (st Story) HasConsensus() bool {
	return st.Consensus != nil
}

// FindNextStoryToEstimate returns the first non-trashed, non-selected story
// without a recorded consensus, in story order. Used to offer a "next story"
// action after reveal.
func (s State) FindNextStoryToEstimate() (Story, bool) {
	for _, story := range s.Stories {
		if story.Trashed || story.ID == s.SelectedStoryID || story.HasConsensus() {
			continue
		}
		return story, true
	}
	return Story{}, false
}

// activeUsersEstimated reports whether every active user has an estimation on
// the story. Active means present, not excluded, and not disconnected. False
// when there are no active users at all.
func (s State) activeUsersEstimated(story Story) bool {
	active := 0
	for _, user := range s.Users {
		if user.Excluded || user.Disconnected {
			continue
		}
		active++
		if _, estimated := story.Estimations[user.ID]; !estimated {
			return false
		}
	}
	return active > 0
}
