package pending

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cardsdown/cardsdown/internal/command"
	"github.com/cardsdown/cardsdown/internal/event"
	"github.com/cardsdown/cardsdown/internal/room"
)

var trackerNow = time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func floatPtr(v float64) *float64 { return &v }

func register(t *testing.T, tracker *Tracker, id string, name command.Name, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	tracker.Register(command.Command{ID: id, RoomID: "room-1", Name: name, Payload: raw})
}

func TestEmptyTrackerAnswersConcretely(t *testing.T) {
	tracker := NewTracker(func() time.Time { return trackerNow }, 0)

	if tracker.IsCardWaiting(5, nil) {
		t.Error("IsCardWaiting() = true on empty tracker")
	}
	if tracker.IsStoryWaiting("s1") {
		t.Error("IsStoryWaiting() = true on empty tracker")
	}
	if tracker.IsStoryEditFormWaiting("s1") {
		t.Error("IsStoryEditFormWaiting() = true on empty tracker")
	}
	settling := tracker.SettlingStories()
	if settling == nil {
		t.Fatal("SettlingStories() = nil, want empty slice")
	}
	if len(settling) != 0 {
		t.Errorf("SettlingStories() = %v, want empty", settling)
	}
}

func TestIsCardWaitingForEstimate(t *testing.T) {
	tracker := NewTracker(func() time.Time { return trackerNow }, 0)
	register(t, tracker, "cmd-1", command.NameGiveStoryEstimate, room.GiveStoryEstimatePayload{Value: floatPtr(5)})

	if !tracker.IsCardWaiting(5, nil) {
		t.Error("IsCardWaiting(5) = false, want true")
	}
	if tracker.IsCardWaiting(8, nil) {
		t.Error("IsCardWaiting(8) = true, want false")
	}
}

func TestIsCardWaitingForClear(t *testing.T) {
	tracker := NewTracker(func() time.Time { return trackerNow }, 0)
	register(t, tracker, "cmd-1", command.NameClearStoryEstimate, struct{}{})

	if !tracker.IsCardWaiting(5, floatPtr(5)) {
		t.Error("IsCardWaiting(own=5) = false, want true")
	}
	if tracker.IsCardWaiting(5, floatPtr(8)) {
		t.Error("IsCardWaiting(own=8) = true, want false")
	}
	if tracker.IsCardWaiting(5, nil) {
		t.Error("IsCardWaiting(own=nil) = true, want false")
	}
}

func TestIsStoryWaiting(t *testing.T) {
	tracker := NewTracker(func() time.Time { return trackerNow }, 0)
	register(t, tracker, "cmd-1", command.NameSelectStory, room.SelectStoryPayload{StoryID: "s1"})
	register(t, tracker, "cmd-2", command.NameTrashStory, room.TrashStoryPayload{StoryID: "s2"})

	if !tracker.IsStoryWaiting("s1") || !tracker.IsStoryWaiting("s2") {
		t.Error("IsStoryWaiting() = false for pending stories")
	}
	if tracker.IsStoryWaiting("s3") {
		t.Error("IsStoryWaiting(s3) = true, want false")
	}
}

func TestIsStoryEditFormWaiting(t *testing.T) {
	tracker := NewTracker(func() time.Time { return trackerNow }, 0)
	register(t, tracker, "cmd-1", command.NameChangeStory, room.ChangeStoryPayload{StoryID: "s1", Title: "t"})

	if !tracker.IsStoryEditFormWaiting("s1") {
		t.Error("IsStoryEditFormWaiting(s1) = false, want true")
	}
	if tracker.IsStoryWaiting("s1") {
		t.Error("IsStoryWaiting(s1) = true for changeStory, want false")
	}
}

func TestSettlingStories(t *testing.T) {
	tracker := NewTracker(func() time.Time { return trackerNow }, 0)
	register(t, tracker, "cmd-1", command.NameSettleEstimation, room.SettleEstimationPayload{StoryID: "s1", Value: floatPtr(5)})
	register(t, tracker, "cmd-2", command.NameSettleEstimation, room.SettleEstimationPayload{StoryID: "s2", Value: floatPtr(8)})

	settling := tracker.SettlingStories()
	if len(settling) != 2 {
		t.Fatalf("SettlingStories() = %v, want two payloads", settling)
	}
	values := map[string]float64{}
	for _, payload := range settling {
		if payload.Value == nil {
			t.Fatalf("SettlingStories() payload for %s has nil value", payload.StoryID)
		}
		values[payload.StoryID] = *payload.Value
	}
	if values["s1"] != 5 || values["s2"] != 8 {
		t.Errorf("settling values = %v, want s1:5 and s2:8", values)
	}
}

func TestResolveEvent(t *testing.T) {
	tracker := NewTracker(func() time.Time { return trackerNow }, 0)
	register(t, tracker, "cmd-1", command.NameGiveStoryEstimate, room.GiveStoryEstimatePayload{Value: floatPtr(5)})

	tracker.ResolveEvent(event.Event{CommandID: "cmd-1", Name: event.NameStoryEstimateGiven})
	if tracker.IsCardWaiting(5, nil) {
		t.Error("IsCardWaiting() = true after resolving event")
	}
}

func TestResolveEventByRejection(t *testing.T) {
	tracker := NewTracker(func() time.Time { return trackerNow }, 0)
	register(t, tracker, "cmd-1", command.NameSelectStory, room.SelectStoryPayload{StoryID: "s1"})

	tracker.ResolveEvent(event.Event{CommandID: "cmd-1", Name: event.NameCommandRejected})
	if tracker.IsStoryWaiting("s1") {
		t.Error("IsStoryWaiting() = true after commandRejected")
	}
}

func TestTimeoutPruning(t *testing.T) {
	clock := &fakeClock{now: trackerNow}
	tracker := NewTracker(clock.Now, time.Second)
	register(t, tracker, "cmd-1", command.NameGiveStoryEstimate, room.GiveStoryEstimatePayload{Value: floatPtr(5)})

	clock.now = trackerNow.Add(500 * time.Millisecond)
	if !tracker.IsCardWaiting(5, nil) {
		t.Error("IsCardWaiting() = false before timeout")
	}

	clock.now = trackerNow.Add(2 * time.Second)
	if tracker.IsCardWaiting(5, nil) {
		t.Error("IsCardWaiting() = true after timeout")
	}
}
