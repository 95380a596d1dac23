package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cardsdown/cardsdown/internal/event"
)

// Append atomically appends an event and returns it with its sequence set.
// Sequences start at 1 per room with no gaps.
func (s *Store) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	appended, err := s.AppendBatch(ctx, []event.Event{evt})
	if err != nil {
		return event.Event{}, err
	}
	return appended[0], nil
}

// AppendBatch appends events in order inside a single transaction: either
// every event is journaled with its sequence set, or the transaction rolls
// back and none is.
func (s *Store) AppendBatch(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if len(events) == 0 {
		return nil, nil
	}

	batch := make([]event.Event, len(events))
	for i, evt := range events {
		validated, err := s.registry.ValidateForAppend(evt)
		if err != nil {
			return nil, err
		}
		if def, ok := s.registry.Definition(validated.Name); ok && def.Ephemeral {
			return nil, fmt.Errorf("ephemeral event cannot be journaled: %s", validated.Name)
		}
		if validated.Timestamp.IsZero() {
			validated.Timestamp = time.Now().UTC()
		}
		validated.Timestamp = validated.Timestamp.UTC().Truncate(time.Millisecond)
		batch[i] = validated
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i := range batch {
		if err := appendInTx(ctx, tx, &batch[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return batch, nil
}

func appendInTx(ctx context.Context, tx *sql.Tx, evt *event.Event) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO room_event_seq (room_id, next_seq) VALUES (?, 1)
		 ON CONFLICT (room_id) DO NOTHING`, evt.RoomID); err != nil {
		return fmt.Errorf("init event seq: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT next_seq FROM room_event_seq WHERE room_id = ?`, evt.RoomID).Scan(&seq); err != nil {
		return fmt.Errorf("get event seq: %w", err)
	}
	evt.Seq = uint64(seq)

	if _, err := tx.ExecContext(ctx,
		`UPDATE room_event_seq SET next_seq = next_seq + 1 WHERE room_id = ?`, evt.RoomID); err != nil {
		return fmt.Errorf("increment event seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO room_events (room_id, seq, command_id, name, payload, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		evt.RoomID, seq, evt.CommandID, string(evt.Name), string(evt.Payload), toMillis(evt.Timestamp)); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return nil
}

// ListEvents returns events with seq greater than afterSeq, ordered by seq
// ascending. A limit of 0 means no limit.
func (s *Store) ListEvents(ctx context.Context, roomID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `SELECT room_id, seq, command_id, name, payload, timestamp
		FROM room_events WHERE room_id = ? AND seq > ? ORDER BY seq ASC`
	args := []any{roomID, int64(afterSeq)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			evt       event.Event
			seq       int64
			name      string
			payload   string
			timestamp int64
		)
		if err := rows.Scan(&evt.RoomID, &seq, &evt.CommandID, &name, &payload, &timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.Name = event.Name(name)
		evt.Payload = []byte(payload)
		evt.Timestamp = fromMillis(timestamp)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// LatestSeq returns the highest sequence number for a room, 0 when the room
// has no events.
func (s *Store) LatestSeq(ctx context.Context, roomID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var seq int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM room_events WHERE room_id = ?`, roomID).Scan(&seq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	return uint64(seq), nil
}
