// Package effects defines the visual-effect descriptors emitted alongside
// narration and the paced queue observers drain them from.
package effects

import "github.com/louisbranch/emberclash/internal/services/combat/domain/event"

// Kind tags a visual-effect descriptor variant.
type Kind string

const (
	KindMoveTrail       Kind = "move-trail"
	KindAttackWindup    Kind = "attack-windup"
	KindHitImpact       Kind = "hit-impact"
	KindHealImpact      Kind = "heal-impact"
	KindMissIndicator   Kind = "miss-indicator"
	KindStatusApply     Kind = "status-apply"
	KindStatusApplyMany Kind = "status-apply-multi"
	KindStatusTick      Kind = "status-tick"
	KindBarrierGain     Kind = "barrier-gain"
	KindBarrierBreak    Kind = "barrier-break"
	KindDeathBurst      Kind = "death-burst"
	KindTurnStart       Kind = "turn-start"
	KindTurnEnd         Kind = "turn-end"
)

// Anchor locates an effect on the board: an entity, a tile, or both.
type Anchor struct {
	EntityID string      `json:"entity_id,omitempty"`
	Tile     *event.Tile `json:"tile,omitempty"`
}

// Descriptor is one renderable visual effect. SeedKey feeds any further
// randomized rendering detail on the client so replays stay identical.
type Descriptor struct {
	Kind      Kind     `json:"kind"`
	Anchor    Anchor   `json:"anchor"`
	Magnitude int      `json:"magnitude,omitempty"`
	Style     []string `json:"style,omitempty"`
	SeedKey   string   `json:"seed_key"`
}
