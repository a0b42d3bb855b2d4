package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

// PutSession upserts a combat session record.
func (s *Store) PutSession(ctx context.Context, record storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO combat_sessions (id, campaign_id, player_id, seed, encounter_type, status, started_at_ms, ended_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    campaign_id = excluded.campaign_id,
    player_id = excluded.player_id,
    seed = excluded.seed,
    encounter_type = excluded.encounter_type,
    status = excluded.status,
    started_at_ms = excluded.started_at_ms,
    ended_at_ms = excluded.ended_at_ms`,
		record.ID, record.CampaignID, record.PlayerID, int64(record.Seed),
		record.EncounterType, string(record.Status),
		toMillis(record.StartedAt), toNullMillis(record.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession loads a session scoped to a campaign, or storage.ErrNotFound.
func (s *Store) GetSession(ctx context.Context, campaignID, sessionID string) (storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionRecord{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, campaign_id, player_id, seed, encounter_type, status, started_at_ms, ended_at_ms
FROM combat_sessions
WHERE id = ? AND campaign_id = ?`, sessionID, campaignID)
	return scanSession(row)
}

// EndSession marks a session ended; the boolean reports whether the session
// transitioned on this call.
func (s *Store) EndSession(ctx context.Context, campaignID, sessionID string, endedAt time.Time) (storage.SessionRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionRecord{}, false, fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE combat_sessions
SET status = ?, ended_at_ms = ?
WHERE id = ? AND campaign_id = ? AND status != ?`,
		string(storage.SessionStatusEnded), toMillis(endedAt),
		sessionID, campaignID, string(storage.SessionStatusEnded))
	if err != nil {
		return storage.SessionRecord{}, false, fmt.Errorf("end session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.SessionRecord{}, false, fmt.Errorf("end session rows affected: %w", err)
	}

	record, err := s.GetSession(ctx, campaignID, sessionID)
	if err != nil {
		return storage.SessionRecord{}, false, err
	}
	return record, affected > 0, nil
}

func scanSession(row *sql.Row) (storage.SessionRecord, error) {
	var record storage.SessionRecord
	var seed, startedAtMs int64
	var status string
	var endedAtMs sql.NullInt64

	err := row.Scan(&record.ID, &record.CampaignID, &record.PlayerID, &seed,
		&record.EncounterType, &status, &startedAtMs, &endedAtMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("scan session: %w", err)
	}

	record.Seed = uint32(seed)
	record.Status = storage.SessionStatus(status)
	record.StartedAt = fromMillis(startedAtMs)
	record.EndedAt = fromNullMillis(endedAtMs)
	return record, nil
}
