package reward

import (
	"strconv"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/seedrand"
)

const (
	lootPowerMin = 4
	lootPowerMax = 500
)

// lootSlot ties an equipment slot to its canonical stat family.
type lootSlot struct {
	Slot    string
	StatKey string
}

// lootSlots is ordered; slot selection indexes into it with a seeded roll.
var lootSlots = []lootSlot{
	{Slot: "weapon", StatKey: combatant.StatOffense},
	{Slot: "chest", StatKey: combatant.StatDefense},
	{Slot: "helm", StatKey: combatant.StatUtility},
	{Slot: "gloves", StatKey: combatant.StatControl},
	{Slot: "boots", StatKey: combatant.StatMobility},
	{Slot: "ring", StatKey: combatant.StatSupport},
	{Slot: "amulet", StatKey: combatant.StatUtility},
}

var lootNounBySlot = map[string]string{
	"weapon": "Blade",
	"chest":  "Cuirass",
	"helm":   "Visor",
	"gloves": "Grips",
	"boots":  "Treads",
	"ring":   "Band",
	"amulet": "Pendant",
}

var lootPrefixesByRarity = map[string][]string{
	RarityCommon:    {"Worn", "Plain", "Sturdy", "Dusty"},
	RarityMagical:   {"Gleaming", "Humming", "Etched", "Warded"},
	RarityUnique:    {"Singular", "Oathbound", "Veiled", "Keen"},
	RarityLegendary: {"Storied", "Sovereign", "Dread", "Radiant"},
	RarityMythic:    {"Worldrend", "Eclipse", "Primeval", "Thundercrown"},
	RarityUnhinged:  {"Gibbering", "Impossible", "Screaming", "Backwards"},
}

// RollRarity maps a roll in [0, 1) onto the rarity ladder.
func RollRarity(roll float64) string {
	switch {
	case roll < 0.55:
		return RarityCommon
	case roll < 0.82:
		return RarityMagical
	case roll < 0.94:
		return RarityUnique
	case roll < 0.985:
		return RarityLegendary
	case roll < 0.998:
		return RarityMythic
	default:
		return RarityUnhinged
	}
}

// lootCount scales item drops with defeated enemies, bounded to [1, 3].
func lootCount(defeated int) int {
	count := (defeated + 1) / 2
	if count < 1 {
		count = 1
	}
	if count > 3 {
		count = 3
	}
	return count
}

// GenerateLoot produces the seeded loot drop for a claim. Item ids are left
// empty for the caller to assign; everything else is a pure function of the
// loot seed, so a replay regenerates the identical drop.
func GenerateLoot(lootSeed string, level, defeated int) []LootItem {
	count := lootCount(defeated)
	items := make([]LootItem, 0, count)
	for i := 0; i < count; i++ {
		indexKey := strconv.Itoa(i)
		rarity := RollRarity(seedrand.StableFloat(lootSeed, "rarity:"+indexKey))
		slot := lootSlots[int(seedrand.StableInt(lootSeed, "slot:"+indexKey)%uint32(len(lootSlots)))]

		power := level*5 + int(seedrand.StableFloat(lootSeed, "power:"+indexKey)*15)
		if power < lootPowerMin {
			power = lootPowerMin
		}
		if power > lootPowerMax {
			power = lootPowerMax
		}

		prefix, err := seedrand.Pick(lootPrefixesByRarity[rarity], lootSeed, "prefix:"+indexKey)
		if err != nil {
			prefix = "Unmarked"
		}

		items = append(items, LootItem{
			Name:    prefix + " " + lootNounBySlot[slot.Slot],
			Rarity:  rarity,
			Slot:    slot.Slot,
			Power:   power,
			StatKey: slot.StatKey,
		})
	}
	return items
}
