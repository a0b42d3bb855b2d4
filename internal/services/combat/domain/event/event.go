// Package event defines the append-only action-event ledger for combat
// sessions. The ledger is the single source of truth: no component may hold
// authoritative combat state that is not derivable by replaying it in order.
package event

import (
	"sort"
	"strings"
	"time"
)

// Type identifies the type of a combat action event.
type Type string

// Mechanical events appended during combat resolution.
const (
	// TypeDamage records damage dealt to a target.
	TypeDamage Type = "combat.damage"
	// TypeMoved records a combatant moving between tiles.
	TypeMoved Type = "combat.moved"
	// TypeMiss records an attack that failed to connect.
	TypeMiss Type = "combat.miss"
	// TypeHealed records hit points restored to a target.
	TypeHealed Type = "combat.healed"
	// TypePowerGained records power restored to a combatant.
	TypePowerGained Type = "combat.power_gained"
	// TypePowerDrained records power removed from a combatant.
	TypePowerDrained Type = "combat.power_drained"
	// TypeStatusApplied records a status effect landing on a target.
	TypeStatusApplied Type = "combat.status_applied"
	// TypeStatusTicked records periodic status damage or healing.
	TypeStatusTicked Type = "combat.status_ticked"
	// TypeStatusExpired records a status effect wearing off.
	TypeStatusExpired Type = "combat.status_expired"
	// TypeArmorShredded records armor reduction on a target.
	TypeArmorShredded Type = "combat.armor_shredded"
	// TypeDeath records a combatant being defeated.
	TypeDeath Type = "combat.death"
	// TypeSkillUsed records a skill activation.
	TypeSkillUsed Type = "combat.skill_used"
	// TypeItemUsed records an item consumption.
	TypeItemUsed Type = "combat.item_used"
)

// Session flow events.
const (
	// TypeRoundStarted records the start of a combat round.
	TypeRoundStarted Type = "combat.round_started"
	// TypeTurnStarted records a combatant's turn beginning.
	TypeTurnStarted Type = "combat.turn_started"
	// TypeTurnEnded records a combatant's turn ending.
	TypeTurnEnded Type = "combat.turn_ended"
	// TypeRewardGranted records the one-time end-of-combat reward grant for
	// a player. At most one exists per (session, player).
	TypeRewardGranted Type = "combat.reward_granted"
)

var knownTypes = map[Type]struct{}{
	TypeDamage:        {},
	TypeMoved:         {},
	TypeMiss:          {},
	TypeHealed:        {},
	TypePowerGained:   {},
	TypePowerDrained:  {},
	TypeStatusApplied: {},
	TypeStatusTicked:  {},
	TypeStatusExpired: {},
	TypeArmorShredded: {},
	TypeDeath:         {},
	TypeSkillUsed:     {},
	TypeItemUsed:      {},
	TypeRoundStarted:  {},
	TypeTurnStarted:   {},
	TypeTurnEnded:     {},
	TypeRewardGranted: {},
}

// IsValid reports whether the event type belongs to the closed variant set.
// Unknown types are rejected on append, never silently trusted.
func (t Type) IsValid() bool {
	_, ok := knownTypes[Type(strings.TrimSpace(string(t)))]
	return ok
}

// Tile is an integer board coordinate.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Event is one immutable record in the session's action ledger.
type Event struct {
	// ID is the unique event identifier.
	ID string
	// SessionID is the combat session this event belongs to.
	SessionID string
	// CampaignID scopes the session to a campaign.
	CampaignID string
	// Seq is the append sequence within the session (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// TurnIndex is the turn-order index the event occurred on; monotonic
	// non-decreasing per session.
	TurnIndex int
	// Type identifies the kind of event.
	Type Type
	// ActorID is the combatant that caused the event, when applicable.
	ActorID string
	// TargetID is the combatant affected by the event, when applicable.
	TargetID string
	// Amount is the signed magnitude (damage, healing, power delta).
	Amount int
	// StatusID names the status effect involved, when applicable.
	StatusID string
	// From and To are tile positions for movement events.
	From *Tile
	To   *Tile
	// CreatedAt is a per-session monotonic counter assigned by storage on
	// append. Together with ID it breaks any TurnIndex collision, making
	// the (TurnIndex, CreatedAt, ID) order total.
	CreatedAt int64
	// Timestamp is the wall-clock time the event was recorded. Informational
	// only; ordering never depends on it.
	Timestamp time.Time
	// PayloadJSON holds type-specific data as JSON.
	PayloadJSON []byte
}

// Less reports whether e sorts before other in the canonical total order
// (TurnIndex, CreatedAt, ID) ascending.
func (e Event) Less(other Event) bool {
	if e.TurnIndex != other.TurnIndex {
		return e.TurnIndex < other.TurnIndex
	}
	if e.CreatedAt != other.CreatedAt {
		return e.CreatedAt < other.CreatedAt
	}
	return e.ID < other.ID
}

// Sort orders events by the canonical total order in place.
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Less(events[j])
	})
}
