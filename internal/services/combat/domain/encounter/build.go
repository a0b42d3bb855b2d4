// Package encounter initializes combat sessions: derived stats, seeded
// enemy spawns, initiative ordering, and the replayable session prologue.
package encounter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/seedrand"
)

// initiativeRollRange bounds the seeded initiative roll added to mobility.
const initiativeRollRange = 26

// DeriveSeed derives a raw seed from the current wall-clock second and a
// prior board seed. Used when no explicit seed accompanies the request;
// uint32 wraparound is intentional.
func DeriveSeed(now time.Time, boardSeed uint32) uint32 {
	return uint32(now.Unix()) + boardSeed
}

// SeedKey renders a raw seed as the string key consumed by seedrand.
func SeedKey(seed uint32) string {
	return strconv.FormatUint(uint64(seed), 10)
}

// BuildInput carries everything the pure combatant build needs.
type BuildInput struct {
	Seed          uint32
	PlayerID      string
	EncounterType string
	Snapshot      Snapshot
	Equipment     []combatant.EquipmentItem
}

// Snapshot is the character state consumed at build time.
type Snapshot struct {
	CharacterID string
	Name        string
	Level       int
	Base        combatant.StatBlock
}

// BuildResult is the deterministic output of combatant generation.
type BuildResult struct {
	Combatants []combatant.Combatant
	TurnOrder  []combatant.TurnOrderEntry
}

// Build generates the full combatant set and turn order for a session.
//
// Build is a pure function of its input: the same seed, snapshot, and
// equipment produce an identical result on every evaluation, on any host.
func Build(input BuildInput) BuildResult {
	seedKey := SeedKey(input.Seed)

	player := buildPlayer(seedKey, input)
	enemies := buildEnemies(seedKey, input.EncounterType)

	combatants := make([]combatant.Combatant, 0, 1+len(enemies))
	combatants = append(combatants, player)
	combatants = append(combatants, enemies...)

	return BuildResult{
		Combatants: combatants,
		TurnOrder:  combatant.BuildTurnOrder(combatants),
	}
}

func buildPlayer(seedKey string, input BuildInput) combatant.Combatant {
	bonuses := combatant.SumEquipment(input.Equipment)
	stats := combatant.DeriveStats(input.Snapshot.Base, bonuses)

	hpMax := combatant.HPMax(input.Snapshot.Level, stats, bonuses.BonusHP)
	powerMax := combatant.PowerMax(input.Snapshot.Level, stats, bonuses.BonusPower)

	initiativeRoll := int(seedrand.StableInt(seedKey, "init:player:"+input.PlayerID) % initiativeRollRange)

	return combatant.Combatant{
		ID:         "pc-" + input.Snapshot.CharacterID,
		Name:       input.Snapshot.Name,
		Team:       combatant.TeamPlayer,
		X:          playerSpawnTile(seedKey).X,
		Y:          playerSpawnTile(seedKey).Y,
		Stats:      stats,
		HP:         hpMax,
		HPMax:      hpMax,
		Power:      powerMax,
		PowerMax:   powerMax,
		Armor:      bonuses.Armor + bonuses.ArmorPower,
		Resist:     bonuses.Resist,
		Initiative: combatant.ClampInitiative(stats.Mobility + initiativeRoll),
		Alive:      true,
	}
}

type tile struct {
	X int
	Y int
}

func playerSpawnTile(seedKey string) tile {
	return tile{
		X: 1 + int(seedrand.StableInt(seedKey, "spawn:player:x")%3),
		Y: 2 + int(seedrand.StableInt(seedKey, "spawn:player:y")%4),
	}
}

func enemySpawnTile(seedKey string, index int) tile {
	salt := "spawn:enemy:" + strconv.Itoa(index)
	return tile{
		X: 7 + int(seedrand.StableInt(seedKey, salt+":x")%4),
		Y: 1 + int(seedrand.StableInt(seedKey, salt+":y")%6),
	}
}

func buildEnemies(seedKey, encounterType string) []combatant.Combatant {
	count := 2 + int(seedrand.StableInt(seedKey, "enemy_count")%3)
	hp, power := enemyPools(encounterType)

	enemies := make([]combatant.Combatant, 0, count)
	for i := 0; i < count; i++ {
		enemies = append(enemies, buildEnemy(seedKey, encounterType, i, hp, power))
	}
	return enemies
}

func buildEnemy(seedKey, encounterType string, index, hp, power int) combatant.Combatant {
	indexKey := strconv.Itoa(index)
	base := 35 + int(seedrand.StableInt(seedKey, "enemy_base:"+indexKey)%25)

	var stats combatant.StatBlock
	for _, key := range combatant.StatKeys {
		jitter := int(seedrand.StableInt(seedKey, fmt.Sprintf("enemy:%d:%s", index, key))%21) - 10
		stats.Set(key, combatant.ClampStat(base+jitter))
	}

	initiativeRoll := int(seedrand.StableInt(seedKey, "init:enemy:"+indexKey) % initiativeRollRange)
	spawn := enemySpawnTile(seedKey, index)
	name, traits := enemyIdentity(seedKey, encounterType, index)

	return combatant.Combatant{
		ID:         fmt.Sprintf("npc-%s-%d", seedKey, index),
		Name:       name,
		Team:       combatant.TeamNPC,
		X:          spawn.X,
		Y:          spawn.Y,
		Stats:      stats,
		HP:         hp,
		HPMax:      hp,
		Power:      power,
		PowerMax:   power,
		Initiative: combatant.ClampInitiative(stats.Mobility + initiativeRoll),
		Alive:      true,
		Traits:     &traits,
	}
}
