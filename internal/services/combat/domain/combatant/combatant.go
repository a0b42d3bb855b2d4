// Package combatant defines the participants of a combat session and the
// derivation of their stat blocks from character snapshots and equipment.
package combatant

import "sort"

// Team classifies which side a combatant fights for.
type Team string

const (
	// TeamPlayer marks a player-controlled combatant.
	TeamPlayer Team = "player"
	// TeamNPC marks an opposing non-player combatant.
	TeamNPC Team = "npc"
	// TeamSummon marks a player-allied summoned combatant.
	TeamSummon Team = "summon"
)

// Status is an active status effect on a combatant.
type Status struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	ExpiresTurn int    `json:"expires_turn"`
}

// Traits carries optional NPC personality weights used by narration.
type Traits struct {
	Aggression   int `json:"aggression"`
	Intelligence int `json:"intelligence"`
	Instinct     int `json:"instinct"`
}

// Combatant is one participant in a combat session.
//
// Combatants are created by the initializer and mutated only by logic that
// appends corresponding action events; they are never deleted, only marked
// not alive.
type Combatant struct {
	ID         string
	SessionID  string
	Name       string
	Team       Team
	X          int
	Y          int
	Stats      StatBlock
	HP         int
	HPMax      int
	Power      int
	PowerMax   int
	Armor      int
	Resist     int
	Statuses   []Status
	Initiative int
	Alive      bool
	Traits     *Traits
}

// TurnOrderEntry fixes one slot of the immutable turn order computed at
// session start.
type TurnOrderEntry struct {
	TurnIndex   int
	CombatantID string
}

// BuildTurnOrder sorts combatants by initiative descending, ties broken by
// name ascending, and assigns turn indexes by rank. The input slice is not
// modified.
func BuildTurnOrder(combatants []Combatant) []TurnOrderEntry {
	ranked := make([]Combatant, len(combatants))
	copy(ranked, combatants)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Initiative != ranked[j].Initiative {
			return ranked[i].Initiative > ranked[j].Initiative
		}
		return ranked[i].Name < ranked[j].Name
	})

	order := make([]TurnOrderEntry, len(ranked))
	for i, c := range ranked {
		order[i] = TurnOrderEntry{TurnIndex: i, CombatantID: c.ID}
	}
	return order
}
