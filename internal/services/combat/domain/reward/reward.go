// Package reward resolves end-of-combat rewards exactly once per player.
//
// Idempotency is enforced by inspecting the action-event ledger for a prior
// reward_granted event rather than by a separate lock: a caller that races
// and loses receives the winner's stored summary, never a duplicate grant.
package reward

import "github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"

// Loot rarities in ascending cumulative-threshold order.
const (
	RarityCommon    = "common"
	RarityMagical   = "magical"
	RarityUnique    = "unique"
	RarityLegendary = "legendary"
	RarityMythic    = "mythic"
	RarityUnhinged  = "unhinged"
)

// LootItem is one granted item.
type LootItem struct {
	ItemID  string `json:"item_id"`
	Name    string `json:"name"`
	Rarity  string `json:"rarity"`
	Slot    string `json:"slot"`
	Power   int    `json:"power"`
	StatKey string `json:"stat_key"`
}

// Outcome snapshots the battlefield state the reward was computed from.
type Outcome struct {
	DefeatedNPCs  int  `json:"defeated_npcs"`
	SurvivingNPCs int  `json:"surviving_npcs"`
	PlayerAlive   bool `json:"player_alive"`
}

// Summary is the full reward record for one (session, player) grant.
type Summary struct {
	XPGained    int        `json:"xp_gained"`
	LevelBefore int        `json:"level_before"`
	LevelAfter  int        `json:"level_after"`
	LevelUps    int        `json:"level_ups"`
	XPAfter     int        `json:"xp_after"`
	XPToNext    int        `json:"xp_to_next"`
	Loot        []LootItem `json:"loot"`
	Outcome     Outcome    `json:"outcome"`
	// LootFlagged marks a claim whose loot persistence silently produced
	// zero items: valid, but worth surfacing to the caller.
	LootFlagged bool `json:"loot_flagged,omitempty"`
}

// GrantedPayload is the payload stored on combat.reward_granted events.
type GrantedPayload struct {
	PlayerID string  `json:"player_id"`
	Summary  Summary `json:"summary"`
}

// Claimed is the response to a reward claim.
type Claimed struct {
	AlreadyGranted bool
	Rewards        Summary
}

const maxLevel = 99

// XPToNext returns the experience required to advance past a level.
func XPToNext(level int) int {
	return 140 + 110*level
}

// ComputeXPGain applies the reward formula to a battlefield outcome.
func ComputeXPGain(outcome Outcome) int {
	gain := 45 + 34*outcome.DefeatedNPCs
	if outcome.SurvivingNPCs == 0 {
		gain += 28
	}
	if outcome.PlayerAlive {
		gain += 18
	} else {
		gain -= 16
	}
	if gain < 12 {
		gain = 12
	}
	return gain
}

// Leveling is the result of pouring an xp gain into a character.
type Leveling struct {
	LevelBefore int
	LevelAfter  int
	LevelUps    int
	XPAfter     int
	XPToNext    int
}

// ApplyXP advances level state for an xp gain. Levels cap at 99; any
// remaining pool stays banked at the cap.
func ApplyXP(level, xp, xpToNext, gain int) Leveling {
	if xpToNext <= 0 {
		xpToNext = XPToNext(level)
	}

	result := Leveling{LevelBefore: level}
	pool := xp + gain
	for pool >= xpToNext && level < maxLevel {
		pool -= xpToNext
		level++
		result.LevelUps++
		xpToNext = XPToNext(level)
	}

	result.LevelAfter = level
	result.XPAfter = pool
	result.XPToNext = xpToNext
	return result
}

// GrowStats applies per-level stat growth across levelUps gained levels:
// offense/defense +1 per level, control/support +0.5 rounded down,
// mobility/utility +0.5 rounded up. Values clamp to [0,100].
func GrowStats(base combatant.StatBlock, levelUps int) combatant.StatBlock {
	if levelUps <= 0 {
		return base
	}
	grown := base
	grown.Offense = combatant.ClampStat(grown.Offense + levelUps)
	grown.Defense = combatant.ClampStat(grown.Defense + levelUps)
	grown.Control = combatant.ClampStat(grown.Control + levelUps/2)
	grown.Support = combatant.ClampStat(grown.Support + levelUps/2)
	grown.Mobility = combatant.ClampStat(grown.Mobility + (levelUps+1)/2)
	grown.Utility = combatant.ClampStat(grown.Utility + (levelUps+1)/2)
	return grown
}
