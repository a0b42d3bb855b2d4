package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

// GetActiveCharacter returns the active character snapshot and its equipped
// items for a player in a campaign, or storage.ErrNotFound.
func (s *Store) GetActiveCharacter(ctx context.Context, campaignID, playerID string) (storage.CharacterSnapshot, []combatant.EquipmentItem, error) {
	if err := ctx.Err(); err != nil {
		return storage.CharacterSnapshot{}, nil, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CharacterSnapshot{}, nil, fmt.Errorf("storage is not configured")
	}

	var snapshot storage.CharacterSnapshot
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT character_id, campaign_id, player_id, name, level, xp, xp_to_next, unspent_points,
       offense, defense, control, support, mobility, utility
FROM characters
WHERE campaign_id = ? AND player_id = ? AND active = 1
ORDER BY character_id
LIMIT 1`, campaignID, playerID)
	err := row.Scan(&snapshot.CharacterID, &snapshot.CampaignID, &snapshot.PlayerID,
		&snapshot.Name, &snapshot.Level, &snapshot.XP, &snapshot.XPToNext, &snapshot.UnspentPoints,
		&snapshot.Base.Offense, &snapshot.Base.Defense, &snapshot.Base.Control,
		&snapshot.Base.Support, &snapshot.Base.Mobility, &snapshot.Base.Utility)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.CharacterSnapshot{}, nil, storage.ErrNotFound
		}
		return storage.CharacterSnapshot{}, nil, fmt.Errorf("scan character: %w", err)
	}

	equipment, err := s.listEquipment(ctx, snapshot.CharacterID)
	if err != nil {
		return storage.CharacterSnapshot{}, nil, err
	}
	return snapshot, equipment, nil
}

func (s *Store) listEquipment(ctx context.Context, characterID string) ([]combatant.EquipmentItem, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT item_id, slot, modifiers
FROM character_equipment
WHERE character_id = ?
ORDER BY item_id`, characterID)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var equipment []combatant.EquipmentItem
	for rows.Next() {
		var item combatant.EquipmentItem
		var modifiers string
		if err := rows.Scan(&item.ID, &item.Slot, &modifiers); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		if modifiers != "" {
			if err := json.Unmarshal([]byte(modifiers), &item.Modifiers); err != nil {
				return nil, fmt.Errorf("decode modifiers for %s: %w", item.ID, err)
			}
		}
		equipment = append(equipment, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equipment: %w", err)
	}
	return equipment, nil
}

// UpdateProgression persists a character's post-reward level state and stat
// block.
func (s *Store) UpdateProgression(ctx context.Context, progression storage.Progression) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return updateProgression(ctx, s.sqlDB, progression)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateProgression(ctx context.Context, db execer, progression storage.Progression) error {
	result, err := db.ExecContext(ctx, `
UPDATE characters
SET level = ?, xp = ?, xp_to_next = ?, unspent_points = ?,
    offense = ?, defense = ?, control = ?, support = ?, mobility = ?, utility = ?
WHERE character_id = ? AND campaign_id = ?`,
		progression.Level, progression.XP, progression.XPToNext, progression.UnspentPoints,
		progression.Base.Offense, progression.Base.Defense, progression.Base.Control,
		progression.Base.Support, progression.Base.Mobility, progression.Base.Utility,
		progression.CharacterID, progression.CampaignID)
	if err != nil {
		return fmt.Errorf("update progression: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update progression rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutCharacter inserts or replaces a character row. Used at campaign setup
// and by tests to seed snapshots.
func (s *Store) PutCharacter(ctx context.Context, snapshot storage.CharacterSnapshot, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO characters (
    character_id, campaign_id, player_id, name, level, xp, xp_to_next, unspent_points,
    offense, defense, control, support, mobility, utility, active
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (character_id) DO UPDATE SET
    campaign_id = excluded.campaign_id,
    player_id = excluded.player_id,
    name = excluded.name,
    level = excluded.level,
    xp = excluded.xp,
    xp_to_next = excluded.xp_to_next,
    unspent_points = excluded.unspent_points,
    offense = excluded.offense,
    defense = excluded.defense,
    control = excluded.control,
    support = excluded.support,
    mobility = excluded.mobility,
    utility = excluded.utility,
    active = excluded.active`,
		snapshot.CharacterID, snapshot.CampaignID, snapshot.PlayerID, snapshot.Name,
		snapshot.Level, snapshot.XP, snapshot.XPToNext, snapshot.UnspentPoints,
		snapshot.Base.Offense, snapshot.Base.Defense, snapshot.Base.Control,
		snapshot.Base.Support, snapshot.Base.Mobility, snapshot.Base.Utility,
		boolToInt(active))
	if err != nil {
		return fmt.Errorf("put character: %w", err)
	}
	return nil
}

// PutEquipment inserts or replaces one equipped item for a character.
func (s *Store) PutEquipment(ctx context.Context, characterID string, item combatant.EquipmentItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	modifiers := ""
	if len(item.Modifiers) > 0 {
		data, err := json.Marshal(item.Modifiers)
		if err != nil {
			return fmt.Errorf("encode modifiers: %w", err)
		}
		modifiers = string(data)
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO character_equipment (character_id, item_id, slot, modifiers)
VALUES (?, ?, ?, ?)
ON CONFLICT (character_id, item_id) DO UPDATE SET
    slot = excluded.slot,
    modifiers = excluded.modifiers`,
		characterID, item.ID, item.Slot, modifiers)
	if err != nil {
		return fmt.Errorf("put equipment: %w", err)
	}
	return nil
}
