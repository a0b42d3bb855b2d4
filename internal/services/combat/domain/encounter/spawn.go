package encounter

import (
	"strconv"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/seedrand"
)

// Encounter types recognized by spawn generation. Unknown types fall back
// to the default pools.
const (
	EncounterTypeSkirmish = "skirmish"
	EncounterTypeElite    = "elite"
	EncounterTypeSwarm    = "swarm"
)

const (
	defaultEnemyHP    = 100
	defaultEnemyPower = 0
)

// enemyPools returns the hp/power baseline for an encounter type.
func enemyPools(encounterType string) (hp, power int) {
	switch encounterType {
	case EncounterTypeElite:
		return 170, 40
	case EncounterTypeSwarm:
		return 55, 0
	default:
		return defaultEnemyHP, defaultEnemyPower
	}
}

var enemyNamePool = []string{
	"Ashen Marauder",
	"Bog Stalker",
	"Cinder Wretch",
	"Dune Reaver",
	"Gravebound Husk",
	"Hollow Sentinel",
	"Mire Goblin",
	"Rust Jackal",
	"Thorn Shaman",
	"Veilspine Lurker",
}

// enemyIdentity picks a display name and personality traits for one enemy.
// Every enemy after the first carries a roman numeral suffix, so duplicate
// pool picks stay distinct and the name-based initiative tie-break stays a
// total order.
func enemyIdentity(seedKey, encounterType string, index int) (string, combatant.Traits) {
	indexKey := strconv.Itoa(index)
	name, err := seedrand.Pick(enemyNamePool, seedKey, "enemy_name:"+indexKey)
	if err != nil {
		name = "Unknown Foe"
	}
	if index > 0 {
		name = name + " " + romanNumeral(index+1)
	}

	traits := combatant.Traits{
		Aggression:   int(seedrand.StableInt(seedKey, "trait:aggression:"+indexKey) % 101),
		Intelligence: int(seedrand.StableInt(seedKey, "trait:intelligence:"+indexKey) % 101),
		Instinct:     int(seedrand.StableInt(seedKey, "trait:instinct:"+indexKey) % 101),
	}
	if encounterType == EncounterTypeSwarm {
		traits.Instinct = combatant.ClampStat(traits.Instinct + 25)
	}
	return name, traits
}

func romanNumeral(value int) string {
	numerals := []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X"}
	if value < 1 || value > len(numerals) {
		return strconv.Itoa(value)
	}
	return numerals[value-1]
}
