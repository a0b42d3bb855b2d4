package combatant

import "math"

// Stat keys used by equipment modifiers and loot stat families.
const (
	StatOffense  = "offense"
	StatDefense  = "defense"
	StatControl  = "control"
	StatSupport  = "support"
	StatMobility = "mobility"
	StatUtility  = "utility"
)

// StatKeys lists the six derived stat keys in canonical order.
var StatKeys = []string{StatOffense, StatDefense, StatControl, StatSupport, StatMobility, StatUtility}

// Bonus modifier keys recognized beyond the six stats. These accumulate
// additively and are never clamped to [0,100], only floored at zero.
const (
	ModifierWeaponPower = "weapon_power"
	ModifierArmorPower  = "armor_power"
	ModifierResist      = "resist"
	ModifierArmor       = "armor"
	ModifierBonusHP     = "bonus_hp"
	ModifierBonusPower  = "bonus_power"
)

// StatBlock holds the six derived stats, each clamped to [0,100].
type StatBlock struct {
	Offense  int `json:"offense"`
	Defense  int `json:"defense"`
	Control  int `json:"control"`
	Support  int `json:"support"`
	Mobility int `json:"mobility"`
	Utility  int `json:"utility"`
}

// Get returns the stat value for a canonical key, or 0 for unknown keys.
func (s StatBlock) Get(key string) int {
	switch key {
	case StatOffense:
		return s.Offense
	case StatDefense:
		return s.Defense
	case StatControl:
		return s.Control
	case StatSupport:
		return s.Support
	case StatMobility:
		return s.Mobility
	case StatUtility:
		return s.Utility
	default:
		return 0
	}
}

// Set assigns the stat value for a canonical key; unknown keys are ignored.
func (s *StatBlock) Set(key string, value int) {
	switch key {
	case StatOffense:
		s.Offense = value
	case StatDefense:
		s.Defense = value
	case StatControl:
		s.Control = value
	case StatSupport:
		s.Support = value
	case StatMobility:
		s.Mobility = value
	case StatUtility:
		s.Utility = value
	}
}

// Clamped returns a copy with every stat clamped to [0,100].
func (s StatBlock) Clamped() StatBlock {
	clamped := s
	for _, key := range StatKeys {
		clamped.Set(key, ClampStat(clamped.Get(key)))
	}
	return clamped
}

// ClampStat clamps a stat value to [0,100].
func ClampStat(value int) int {
	return clampInt(value, 0, 100)
}

// ClampInitiative clamps an initiative value to [0,999].
func ClampInitiative(value int) int {
	return clampInt(value, 0, 999)
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// EquipmentItem is one equipped item contributing named numeric modifiers.
type EquipmentItem struct {
	ID        string
	Name      string
	Slot      string
	Modifiers map[string]float64
}

// Bonuses accumulates equipment contributions: per-stat additions plus the
// unclamped weapon/armor bonus pools.
type Bonuses struct {
	Stats       StatBlock
	WeaponPower int
	ArmorPower  int
	Resist      int
	Armor       int
	BonusHP     int
	BonusPower  int
}

// SumEquipment sums modifiers per key across equipped items. Unknown keys
// and non-finite values are ignored. Bonus pools floor at zero.
func SumEquipment(items []EquipmentItem) Bonuses {
	totals := make(map[string]float64)
	for _, item := range items {
		for key, value := range item.Modifiers {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				continue
			}
			totals[key] += value
		}
	}

	var bonuses Bonuses
	for _, key := range StatKeys {
		bonuses.Stats.Set(key, int(totals[key]))
	}
	bonuses.WeaponPower = floorZero(int(totals[ModifierWeaponPower]))
	bonuses.ArmorPower = floorZero(int(totals[ModifierArmorPower]))
	bonuses.Resist = floorZero(int(totals[ModifierResist]))
	bonuses.Armor = floorZero(int(totals[ModifierArmor]))
	bonuses.BonusHP = floorZero(int(totals[ModifierBonusHP]))
	bonuses.BonusPower = floorZero(int(totals[ModifierBonusPower]))
	return bonuses
}

func floorZero(value int) int {
	if value < 0 {
		return 0
	}
	return value
}

// DeriveStats computes clamp(base + bonus, 0, 100) for each stat key.
func DeriveStats(base StatBlock, bonuses Bonuses) StatBlock {
	var derived StatBlock
	for _, key := range StatKeys {
		derived.Set(key, ClampStat(base.Get(key)+bonuses.Stats.Get(key)))
	}
	return derived
}

// HPMax computes the hit point pool for a level and derived stat block,
// including unclamped equipment bonuses. The result floors at 1.
func HPMax(level int, stats StatBlock, bonusHP int) int {
	hp := 80 + 6*level + 2*stats.Defense + stats.Support + bonusHP
	if hp < 1 {
		return 1
	}
	return hp
}

// PowerMax computes the power pool for a level and derived stat block,
// including unclamped equipment bonuses. The result floors at 0.
func PowerMax(level int, stats StatBlock, bonusPower int) int {
	power := 20 + 2*level + stats.Control + stats.Utility/2 + bonusPower
	if power < 0 {
		return 0
	}
	return power
}
