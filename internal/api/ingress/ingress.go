// Package ingress accepts commands over HTTP and hands them to the command
// processor. It is a thin transport adapter: validation, decisions, and
// persistence all live behind the processor.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/cardsdown/cardsdown/internal/command"
	"github.com/cardsdown/cardsdown/internal/engine"
	"github.com/cardsdown/cardsdown/internal/event"
	"github.com/cardsdown/cardsdown/internal/room"
	"github.com/cardsdown/cardsdown/internal/storage"
)

// UserIDHeader carries the issuing user's id. A session layer normally sets
// this after authentication.
const UserIDHeader = "X-User-Id"

// Processor executes commands and administrative room operations.
type Processor interface {
	Process(ctx context.Context, cmd command.Command, userID string) (engine.Result, error)
	CreateRoom(ctx context.Context, roomID string) (room.State, error)
	JoinUser(ctx context.Context, roomID string, user room.User) (room.State, error)
}

// Handler serves the command ingress routes.
type Handler struct {
	Processor Processor
	Logger    *log.Logger
}

// Register mounts the ingress routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/command", h.handleCommand)
	mux.HandleFunc("POST /api/room/{roomId}", h.handleCreateRoom)
	mux.HandleFunc("POST /api/room/{roomId}/user", h.handleJoinUser)
}

type commandResponse struct {
	Events []event.Event `json:"events"`
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "X-User-Id header is required"})
		return
	}

	var cmd command.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "request body must be a command"})
		return
	}

	result, err := h.Processor.Process(r.Context(), cmd, userID)
	if err != nil {
		var formatErr *command.FormatError
		if errors.As(err, &formatErr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": formatErr.Error()})
			return
		}
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{Events: result.Events})
}

func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	state, err := h.Processor.CreateRoom(r.Context(), r.PathValue("roomId"))
	if err != nil {
		if errors.Is(err, engine.ErrRoomExists) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "room already exists"})
			return
		}
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

type joinRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Excluded bool   `json:"excluded"`
}

func (h *Handler) handleJoinUser(w http.ResponseWriter, r *http.Request) {
	var join joinRequest
	if err := json.NewDecoder(r.Body).Decode(&join); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "request body must be a user"})
		return
	}
	if strings.TrimSpace(join.ID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "user id is required"})
		return
	}

	state, err := h.Processor.JoinUser(r.Context(), r.PathValue("roomId"), room.User{
		ID:       join.ID,
		Username: join.Username,
		Excluded: join.Excluded,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "room not found"})
			return
		}
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func isValidationError(err error) bool {
	return errors.Is(err, command.ErrIDRequired) ||
		errors.Is(err, command.ErrRoomIDRequired) ||
		errors.Is(err, command.ErrNameRequired) ||
		errors.Is(err, command.ErrNameUnknown) ||
		errors.Is(err, command.ErrPayloadInvalid)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if h.Logger != nil {
		h.Logger.Printf("msg=ingress_error err=%q", err)
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
