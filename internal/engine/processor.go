package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardsdown/cardsdown/internal/command"
	"github.com/cardsdown/cardsdown/internal/event"
	"github.com/cardsdown/cardsdown/internal/room"
	"github.com/cardsdown/cardsdown/internal/storage"
)

var (
	// ErrCommandRegistryRequired indicates a missing command registry.
	ErrCommandRegistryRequired = errors.New("command registry is required")
	// ErrEventRegistryRequired indicates a missing event registry.
	ErrEventRegistryRequired = errors.New("event registry is required")
	// ErrDeciderRequired indicates a missing decider.
	ErrDeciderRequired = errors.New("decider is required")
	// ErrRoomStoreRequired indicates a missing room store.
	ErrRoomStoreRequired = errors.New("room store is required")
	// ErrJournalRequired indicates a missing event journal.
	ErrJournalRequired = errors.New("event journal is required")
	// ErrRoomExists indicates a room id collision on creation.
	ErrRoomExists = errors.New("room already exists")
)

// RejectRoomNotFound is the rejection code for commands against unknown rooms.
const RejectRoomNotFound = "ROOM_NOT_FOUND"

// Decider returns a decision for a command against room state.
type Decider interface {
	Decide(state room.State, cmd command.Command, userID string) command.Decision
}

// Processor executes commands against rooms. Commands for the same room are
// serialized; commands for different rooms run concurrently.
type Processor struct {
	Commands *command.Registry
	Events   *event.Registry
	Decider  Decider
	Rooms    storage.RoomStore
	Journal  storage.EventJournal
	Now      func() time.Time
	Logger   *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Result captures execution outcomes: the events produced (ephemeral ones
// included) and the room state after they were applied.
type Result struct {
	Events []event.Event
	Room   room.State
}

// Process validates and executes one command. Schema violations fail the
// call; domain rejections succeed and surface as an ephemeral commandRejected
// event addressed to the issuing client.
func (p *Processor) Process(ctx context.Context, cmd command.Command, userID string) (Result, error) {
	if err := p.check(); err != nil {
		return Result{}, err
	}

	validated, err := p.Commands.ValidateForDecision(cmd)
	if err != nil {
		return Result{}, err
	}
	cmd = validated

	ctx, span := p.tracer().Start(ctx, "engine.Process", trace.WithAttributes(
		attribute.String("command.name", string(cmd.Name)),
		attribute.String("room.id", cmd.RoomID),
	))
	defer span.End()

	unlock := p.lockRoom(cmd.RoomID)
	defer unlock()

	state, err := p.Rooms.Get(ctx, cmd.RoomID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return p.rejected(cmd, state, command.Rejection{
				Code:    RejectRoomNotFound,
				Message: "room not found: " + cmd.RoomID,
			})
		}
		return Result{}, fmt.Errorf("load room: %w", err)
	}

	decision := p.Decider.Decide(state, cmd, userID)
	if len(decision.Rejections) > 0 {
		p.logf("msg=command_rejected room=%s command=%s code=%s", cmd.RoomID, cmd.Name, decision.Rejections[0].Code)
		return p.rejected(cmd, state, decision.Rejections...)
	}

	// Stage the journaled events and append them as one batch so a failure
	// leaves no partial command in the journal.
	resultEvents := make([]event.Event, len(decision.Events))
	staged := make([]event.Event, 0, len(decision.Events))
	stagedAt := make([]int, 0, len(decision.Events))
	for i, evt := range decision.Events {
		if def, ok := p.Events.Definition(evt.Name); ok && def.Ephemeral {
			vetted, err := p.Events.ValidateForAppend(evt)
			if err != nil {
				return Result{}, fmt.Errorf("validate event: %w", err)
			}
			resultEvents[i] = vetted
			continue
		}
		staged = append(staged, evt)
		stagedAt = append(stagedAt, i)
	}
	appended, err := p.Journal.AppendBatch(ctx, staged)
	if err != nil {
		return Result{}, fmt.Errorf("append events: %w", err)
	}
	for i, evt := range appended {
		state, err = room.Fold(state, evt)
		if err != nil {
			return Result{}, fmt.Errorf("fold event: %w", err)
		}
		resultEvents[stagedAt[i]] = evt
	}
	result := Result{Events: resultEvents}

	// Fresh activity revokes a pending deletion mark.
	state.MarkedForDeletion = false
	if err := p.Rooms.Put(ctx, state); err != nil {
		return Result{}, fmt.Errorf("store room: %w", err)
	}
	result.Room = state

	p.logf("msg=command_processed room=%s command=%s events=%d", cmd.RoomID, cmd.Name, len(result.Events))
	return result, nil
}

// CreateRoom creates and stores an empty room. An empty id is rejected.
func (p *Processor) CreateRoom(ctx context.Context, roomID string) (room.State, error) {
	if err := p.check(); err != nil {
		return room.State{}, err
	}
	if strings.TrimSpace(roomID) == "" {
		return room.State{}, fmt.Errorf("room id is required")
	}

	unlock := p.lockRoom(roomID)
	defer unlock()

	if _, err := p.Rooms.Get(ctx, roomID); err == nil {
		return room.State{}, ErrRoomExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return room.State{}, fmt.Errorf("load room: %w", err)
	}

	state := room.New(roomID, p.now())
	if err := p.Rooms.Put(ctx, state); err != nil {
		return room.State{}, fmt.Errorf("store room: %w", err)
	}
	p.logf("msg=room_created room=%s", roomID)
	return state, nil
}

// JoinUser adds a user to a room, replacing any user with the same id, and
// bumps the room's activity timestamp.
func (p *Processor) JoinUser(ctx context.Context, roomID string, user room.User) (room.State, error) {
	if err := p.check(); err != nil {
		return room.State{}, err
	}

	unlock := p.lockRoom(roomID)
	defer unlock()

	state, err := p.Rooms.Get(ctx, roomID)
	if err != nil {
		return room.State{}, err
	}
	state.AddUser(user)
	state.LastActivity = p.now()
	state.MarkedForDeletion = false
	if err := p.Rooms.Put(ctx, state); err != nil {
		return room.State{}, fmt.Errorf("store room: %w", err)
	}
	return state, nil
}

// rejected turns domain rejections into a single ephemeral commandRejected
// event. The room state is left untouched.
func (p *Processor) rejected(cmd command.Command, state room.State, rejections ...command.Rejection) (Result, error) {
	reasons := make([]string, 0, len(rejections))
	for _, rejection := range rejections {
		reasons = append(reasons, rejection.Message)
	}
	payload, err := json.Marshal(room.CommandRejectedPayload{Reason: strings.Join(reasons, "; ")})
	if err != nil {
		return Result{}, fmt.Errorf("marshal rejection: %w", err)
	}
	evt := command.NewEvent(cmd, event.NameCommandRejected, payload, p.now())
	vetted, err := p.Events.ValidateForAppend(evt)
	if err != nil {
		return Result{}, fmt.Errorf("validate rejection event: %w", err)
	}
	return Result{Events: []event.Event{vetted}, Room: state}, nil
}

func (p *Processor) check() error {
	switch {
	case p == nil, p.Commands == nil:
		return ErrCommandRegistryRequired
	case p.Events == nil:
		return ErrEventRegistryRequired
	case p.Decider == nil:
		return ErrDeciderRequired
	case p.Rooms == nil:
		return ErrRoomStoreRequired
	case p.Journal == nil:
		return ErrJournalRequired
	}
	return nil
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (p *Processor) tracer() trace.Tracer {
	return otel.Tracer("cardsdown/engine")
}

func (p *Processor) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// lockRoom serializes command execution per room.
func (p *Processor) lockRoom(roomID string) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := p.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[roomID] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
