// Package rest serves the read-only HTTP endpoints: service status and room
// export. It reads room state directly from storage and never invokes the
// command processor.
package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/cardsdown/cardsdown/internal/room"
	"github.com/cardsdown/cardsdown/internal/storage"
)

// Handler serves status and export endpoints.
type Handler struct {
	Rooms     storage.RoomStore
	StartedAt time.Time
	Now       func() time.Time
	Logger    *log.Logger
}

// Register mounts the read-only routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("GET /api/room/{roomId}", h.handleRoomExport)
}

type statusResponse struct {
	RoomCount int          `json:"roomCount"`
	Uptime    int64        `json:"uptime"`
	Rooms     []statusRoom `json:"rooms"`
}

// statusRoom is deliberately anonymous: no room ids, usernames, or story
// titles leave the service through the status endpoint.
type statusRoom struct {
	UserCount             int       `json:"userCount"`
	UserCountDisconnected int       `json:"userCountDisconnected"`
	StoryCount            int       `json:"storyCount"`
	Created               time.Time `json:"created"`
	LastActivity          time.Time `json:"lastActivity"`
	MarkedForDeletion     bool      `json:"markedForDeletion"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Rooms.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	response := statusResponse{
		RoomCount: len(rooms),
		Uptime:    int64(h.now().Sub(h.StartedAt).Seconds()),
		Rooms:     make([]statusRoom, 0, len(rooms)),
	}
	for _, state := range rooms {
		disconnected := 0
		for _, user := range state.Users {
			if user.Disconnected {
				disconnected++
			}
		}
		response.Rooms = append(response.Rooms, statusRoom{
			UserCount:             len(state.Users),
			UserCountDisconnected: disconnected,
			StoryCount:            len(state.Stories),
			Created:               state.Created,
			LastActivity:          state.LastActivity,
			MarkedForDeletion:     state.MarkedForDeletion,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

type exportResponse struct {
	RoomID     string        `json:"roomId"`
	ExportedAt time.Time     `json:"exportedAt"`
	Stories    []exportStory `json:"stories"`
}

type exportStory struct {
	Title       string             `json:"title"`
	Key         string             `json:"key,omitempty"`
	Description string             `json:"description,omitempty"`
	Estimations []exportEstimation `json:"estimations"`
	Consensus   *float64           `json:"consensus,omitempty"`
}

type exportEstimation struct {
	Username string  `json:"username"`
	Value    float64 `json:"value"`
}

func (h *Handler) handleRoomExport(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	state, err := h.Rooms.Get(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "room not found"})
			return
		}
		h.fail(w, err)
		return
	}

	response := exportResponse{
		RoomID:     state.ID,
		ExportedAt: h.now(),
		Stories:    make([]exportStory, 0, len(state.Stories)),
	}
	for _, story := range state.Stories {
		if story.Trashed {
			continue
		}
		response.Stories = append(response.Stories, exportStoryFromState(state, story))
	}
	writeJSON(w, http.StatusOK, response)
}

func exportStoryFromState(state room.State, story room.Story) exportStory {
	export := exportStory{
		Title:       story.Title,
		Key:         story.Key,
		Description: story.Description,
		Estimations: make([]exportEstimation, 0, len(story.Estimations)),
		Consensus:   story.Consensus,
	}
	for _, user := range state.Users {
		value, estimated := story.Estimations[user.ID]
		if !estimated {
			continue
		}
		username := user.Username
		if username == "" {
			username = user.ID
		}
		export.Estimations = append(export.Estimations, exportEstimation{Username: username, Value: value})
	}
	return export
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if h.Logger != nil {
		h.Logger.Printf("msg=rest_error err=%q", err)
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
