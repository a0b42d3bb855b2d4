package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/emberclash/internal/platform/errors"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
	"github.com/louisbranch/emberclash/internal/services/combat/storage"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// AppendEvent atomically appends an event and returns it with Seq and
// CreatedAt assigned from the per-session counters.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	appended, err := appendEventTx(ctx, tx, evt)
	if err != nil {
		return event.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit event append: %w", err)
	}
	return appended, nil
}

// appendEventTx assigns the per-session counters and inserts the event row
// on an already-open transaction.
func appendEventTx(ctx context.Context, tx *sql.Tx, evt event.Event) (event.Event, error) {
	if !evt.Type.IsValid() {
		return event.Event{}, apperrors.WithMetadata(apperrors.CodeUnknownEventType, "unknown event type",
			map[string]string{"type": string(evt.Type)})
	}
	if evt.ID == "" || evt.SessionID == "" {
		return event.Event{}, apperrors.New(apperrors.CodeValidation, "event id and session id are required")
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO combat_event_counters (session_id, next_seq, next_created)
VALUES (?, 1, 1)
ON CONFLICT (session_id) DO NOTHING`, evt.SessionID); err != nil {
		return event.Event{}, fmt.Errorf("init event counters: %w", err)
	}

	var seq, created int64
	row := tx.QueryRowContext(ctx,
		"SELECT next_seq, next_created FROM combat_event_counters WHERE session_id = ?",
		evt.SessionID)
	if err := row.Scan(&seq, &created); err != nil {
		return event.Event{}, fmt.Errorf("load event counters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE combat_event_counters
SET next_seq = next_seq + 1, next_created = next_created + 1
WHERE session_id = ?`, evt.SessionID); err != nil {
		return event.Event{}, fmt.Errorf("advance event counters: %w", err)
	}

	evt.Seq = uint64(seq)
	evt.CreatedAt = created
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	fromX, fromY := nullTile(evt.From)
	toX, toY := nullTile(evt.To)

	if _, err := tx.ExecContext(ctx, `
INSERT INTO combat_events (
    id, session_id, campaign_id, seq, turn_index, type,
    actor_id, target_id, amount, status_id,
    from_x, from_y, to_x, to_y,
    created_at, timestamp_ms, payload
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.SessionID, evt.CampaignID, int64(evt.Seq), evt.TurnIndex, string(evt.Type),
		evt.ActorID, evt.TargetID, evt.Amount, evt.StatusID,
		fromX, fromY, toX, toY,
		evt.CreatedAt, toMillis(evt.Timestamp), string(evt.PayloadJSON),
	); err != nil {
		if evt.Type == event.TypeRewardGranted && isConstraintError(err) {
			return event.Event{}, storage.ErrDuplicateRewardGrant
		}
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return evt, nil
}

// ListEvents returns session events with Seq greater than afterSeq in seq
// order, so cursor paging never skips a row regardless of how appenders
// assigned turn indexes. Presentation order is the caller's concern via
// event.Sort.
func (s *Store) ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, session_id, campaign_id, seq, turn_index, type,
       actor_id, target_id, amount, status_id,
       from_x, from_y, to_x, to_y,
       created_at, timestamp_ms, payload
FROM combat_events
WHERE session_id = ? AND seq > ?
ORDER BY seq
LIMIT ?`, sessionID, int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetLatestEventSeq returns the latest sequence for a session, 0 when empty.
func (s *Store) GetLatestEventSeq(ctx context.Context, sessionID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var latest int64
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM combat_events WHERE session_id = ?", sessionID)
	if err := row.Scan(&latest); err != nil {
		return 0, fmt.Errorf("latest event seq: %w", err)
	}
	return uint64(latest), nil
}

func scanEvent(rows *sql.Rows) (event.Event, error) {
	var evt event.Event
	var seq, createdAt, timestampMs int64
	var typ, payload string
	var fromX, fromY, toX, toY sql.NullInt64

	if err := rows.Scan(
		&evt.ID, &evt.SessionID, &evt.CampaignID, &seq, &evt.TurnIndex, &typ,
		&evt.ActorID, &evt.TargetID, &evt.Amount, &evt.StatusID,
		&fromX, &fromY, &toX, &toY,
		&createdAt, &timestampMs, &payload,
	); err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}

	evt.Seq = uint64(seq)
	evt.CreatedAt = createdAt
	evt.Type = event.Type(typ)
	evt.Timestamp = fromMillis(timestampMs)
	evt.From = tileFromNull(fromX, fromY)
	evt.To = tileFromNull(toX, toY)
	if payload != "" {
		evt.PayloadJSON = []byte(payload)
	}
	return evt, nil
}

func nullTile(tile *event.Tile) (sql.NullInt64, sql.NullInt64) {
	if tile == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(tile.X), Valid: true},
		sql.NullInt64{Int64: int64(tile.Y), Valid: true}
}

func tileFromNull(x, y sql.NullInt64) *event.Tile {
	if !x.Valid || !y.Valid {
		return nil
	}
	return &event.Tile{X: int(x.Int64), Y: int(y.Int64)}
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
