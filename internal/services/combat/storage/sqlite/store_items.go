package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

// PutItem inserts a granted loot item. Replays of the same item id are
// idempotent.
func (s *Store) PutItem(ctx context.Context, item storage.ItemRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO items (id, campaign_id, name, rarity, slot, power, stat_key, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
		item.ID, item.CampaignID, item.Name, item.Rarity, item.Slot,
		item.Power, item.StatKey, toMillis(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// AttachToInventory links an item to a player's campaign inventory.
func (s *Store) AttachToInventory(ctx context.Context, campaignID, playerID, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO inventory (campaign_id, player_id, item_id)
VALUES (?, ?, ?)
ON CONFLICT (campaign_id, player_id, item_id) DO NOTHING`,
		campaignID, playerID, itemID)
	if err != nil {
		return fmt.Errorf("attach to inventory: %w", err)
	}
	return nil
}

// AppendStoryEntry appends a narrative log record.
func (s *Store) AppendStoryEntry(ctx context.Context, entry storage.StoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO story_log (campaign_id, session_id, player_id, text, created_at_ms)
VALUES (?, ?, ?, ?, ?)`,
		entry.CampaignID, entry.SessionID, entry.PlayerID, entry.Text, toMillis(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("append story entry: %w", err)
	}
	return nil
}
