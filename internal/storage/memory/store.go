// Package memory provides in-memory storage implementations used by tests
// and single-process development setups.
package memory

import (
	"context"
	"sync"

	"github.com/cardsdown/cardsdown/internal/room"
	"github.com/cardsdown/cardsdown/internal/storage"
)

// Store is an in-memory room store safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]room.State
}

// NewStore creates an empty in-memory room store.
func NewStore() *Store {
	return &Store{rooms: make(map[string]room.State)}
}

// Put stores the full room state under its id.
func (s *Store) Put(ctx context.Context, state room.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[state.ID] = state.Clone()
	return nil
}

// Get fetches a room by id.
func (s *Store) Get(ctx context.Context, roomID string) (room.State, error) {
	if err := ctx.Err(); err != nil {
		return room.State{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.rooms[roomID]
	if !ok {
		return room.State{}, storage.ErrNotFound
	}
	return state.Clone(), nil
}

// List returns all stored rooms.
func (s *Store) List(ctx context.Context) ([]room.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]room.State, 0, len(s.rooms))
	for _, state := range s.rooms {
		rooms = append(rooms, state.Clone())
	}
	return rooms, nil
}

// Delete removes a room. Deleting an absent room is not an error.
func (s *Store) Delete(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}
