package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
)

// PutCombatants replaces the combatant roster for a session in one
// transaction.
func (s *Store) PutCombatants(ctx context.Context, sessionID string, combatants []combatant.Combatant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM combat_combatants WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("clear combatants: %w", err)
	}

	for _, c := range combatants {
		statuses, err := encodeJSON(c.Statuses)
		if err != nil {
			return fmt.Errorf("encode statuses for %s: %w", c.ID, err)
		}
		traits, err := encodeJSON(c.Traits)
		if err != nil {
			return fmt.Errorf("encode traits for %s: %w", c.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO combat_combatants (
    session_id, id, name, team,
    offense, defense, control, support, mobility, utility,
    hp, hp_max, power, power_max, armor, resist,
    initiative, alive, tile_x, tile_y, statuses, traits
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, c.ID, c.Name, string(c.Team),
			c.Stats.Offense, c.Stats.Defense, c.Stats.Control,
			c.Stats.Support, c.Stats.Mobility, c.Stats.Utility,
			c.HP, c.HPMax, c.Power, c.PowerMax, c.Armor, c.Resist,
			c.Initiative, boolToInt(c.Alive), c.X, c.Y, statuses, traits,
		); err != nil {
			return fmt.Errorf("insert combatant %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit combatants: %w", err)
	}
	return nil
}

// ListCombatants returns the roster for a session in insertion order.
func (s *Store) ListCombatants(ctx context.Context, sessionID string) ([]combatant.Combatant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, team,
       offense, defense, control, support, mobility, utility,
       hp, hp_max, power, power_max, armor, resist,
       initiative, alive, tile_x, tile_y, statuses, traits
FROM combat_combatants
WHERE session_id = ?
ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list combatants: %w", err)
	}
	defer rows.Close()

	var combatants []combatant.Combatant
	for rows.Next() {
		var c combatant.Combatant
		var team, statuses, traits string
		var alive int

		if err := rows.Scan(&c.ID, &c.Name, &team,
			&c.Stats.Offense, &c.Stats.Defense, &c.Stats.Control,
			&c.Stats.Support, &c.Stats.Mobility, &c.Stats.Utility,
			&c.HP, &c.HPMax, &c.Power, &c.PowerMax, &c.Armor, &c.Resist,
			&c.Initiative, &alive, &c.X, &c.Y, &statuses, &traits,
		); err != nil {
			return nil, fmt.Errorf("scan combatant: %w", err)
		}

		c.SessionID = sessionID
		c.Team = combatant.Team(team)
		c.Alive = alive != 0
		if statuses != "" {
			if err := json.Unmarshal([]byte(statuses), &c.Statuses); err != nil {
				return nil, fmt.Errorf("decode statuses for %s: %w", c.ID, err)
			}
		}
		if traits != "" {
			if err := json.Unmarshal([]byte(traits), &c.Traits); err != nil {
				return nil, fmt.Errorf("decode traits for %s: %w", c.ID, err)
			}
		}
		combatants = append(combatants, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate combatants: %w", err)
	}
	return combatants, nil
}

// SetAlive flips the alive flag on one combatant.
func (s *Store) SetAlive(ctx context.Context, sessionID, combatantID string, alive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"UPDATE combat_combatants SET alive = ? WHERE session_id = ? AND id = ?",
		boolToInt(alive), sessionID, combatantID)
	if err != nil {
		return fmt.Errorf("set alive: %w", err)
	}
	return nil
}

// encodeJSON marshals optional roster detail, mapping nil to the empty
// string so the column stays compact.
func encodeJSON(value any) (string, error) {
	switch typed := value.(type) {
	case []combatant.Status:
		if len(typed) == 0 {
			return "", nil
		}
	case *combatant.Traits:
		if typed == nil {
			return "", nil
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
