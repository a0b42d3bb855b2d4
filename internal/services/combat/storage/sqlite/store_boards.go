package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

// GetActiveBoard returns the player's active board binding, or
// storage.ErrNotFound.
func (s *Store) GetActiveBoard(ctx context.Context, campaignID, playerID string) (storage.BoardBinding, error) {
	if err := ctx.Err(); err != nil {
		return storage.BoardBinding{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.BoardBinding{}, fmt.Errorf("storage is not configured")
	}

	var binding storage.BoardBinding
	var updatedAtMs int64
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT campaign_id, player_id, board_id, kind, session_id, updated_at_ms
FROM board_bindings
WHERE campaign_id = ? AND player_id = ?`, campaignID, playerID)
	err := row.Scan(&binding.CampaignID, &binding.PlayerID, &binding.BoardID,
		&binding.Kind, &binding.SessionID, &updatedAtMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.BoardBinding{}, storage.ErrNotFound
		}
		return storage.BoardBinding{}, fmt.Errorf("scan board binding: %w", err)
	}
	binding.UpdatedAt = fromMillis(updatedAtMs)
	return binding, nil
}

// PutBoardBinding upserts the player's board binding. Safe to race; the last
// upsert wins.
func (s *Store) PutBoardBinding(ctx context.Context, binding storage.BoardBinding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO board_bindings (campaign_id, player_id, board_id, kind, session_id, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (campaign_id, player_id) DO UPDATE SET
    board_id = excluded.board_id,
    kind = excluded.kind,
    session_id = excluded.session_id,
    updated_at_ms = excluded.updated_at_ms`,
		binding.CampaignID, binding.PlayerID, binding.BoardID,
		binding.Kind, binding.SessionID, toMillis(binding.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put board binding: %w", err)
	}
	return nil
}
