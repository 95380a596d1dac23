// Package bbolt provides a BoltDB-backed room store.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cardsdown/cardsdown/internal/room"
	"github.com/cardsdown/cardsdown/internal/storage"
)

const roomBucket = "rooms"

// Store provides a BoltDB-backed room store.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put persists a room record.
func (s *Store) Put(ctx context.Context, state room.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(state.ID) == "" {
		return fmt.Errorf("room id is required")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(roomBucket))
		if bucket == nil {
			return fmt.Errorf("room bucket is missing")
		}
		return bucket.Put(roomKey(state.ID), payload)
	})
}

// Get fetches a room record by id.
func (s *Store) Get(ctx context.Context, roomID string) (room.State, error) {
	if err := ctx.Err(); err != nil {
		return room.State{}, err
	}
	if s == nil || s.db == nil {
		return room.State{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(roomID) == "" {
		return room.State{}, fmt.Errorf("room id is required")
	}

	var state room.State
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(roomBucket))
		if bucket == nil {
			return fmt.Errorf("room bucket is missing")
		}
		payload := bucket.Get(roomKey(roomID))
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, &state); err != nil {
			return fmt.Errorf("unmarshal room: %w", err)
		}
		return nil
	})
	if err != nil {
		return room.State{}, err
	}

	return state, nil
}

// List returns all stored rooms.
func (s *Store) List(ctx context.Context) ([]room.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var rooms []room.State
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(roomBucket))
		if bucket == nil {
			return fmt.Errorf("room bucket is missing")
		}
		return bucket.ForEach(func(_, payload []byte) error {
			var state room.State
			if err := json.Unmarshal(payload, &state); err != nil {
				return fmt.Errorf("unmarshal room: %w", err)
			}
			rooms = append(rooms, state)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return rooms, nil
}

// Delete removes a room record. Deleting an absent room is not an error.
func (s *Store) Delete(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(roomID) == "" {
		return fmt.Errorf("room id is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(roomBucket))
		if bucket == nil {
			return fmt.Errorf("room bucket is missing")
		}
		return bucket.Delete(roomKey(roomID))
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(roomBucket))
		if err != nil {
			return fmt.Errorf("create room bucket: %w", err)
		}
		return nil
	})
}

func roomKey(id string) []byte {
	return []byte(id)
}
