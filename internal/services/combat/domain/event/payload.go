package event

import "encoding/json"

// DamagePayload captures extra detail for combat.damage events.
type DamagePayload struct {
	SkillID string `json:"skill_id,omitempty"`
	Crit    bool   `json:"crit,omitempty"`
}

// MissPayload captures roll detail for combat.miss events. Roll and
// Threshold are optional; narration only reports them when both are present.
type MissPayload struct {
	Roll      *int `json:"roll,omitempty"`
	Threshold *int `json:"threshold,omitempty"`
}

// StatusAppliedPayload captures detail for combat.status_applied events.
type StatusAppliedPayload struct {
	StatusName  string `json:"status_name,omitempty"`
	ExpiresTurn int    `json:"expires_turn,omitempty"`
}

// SkillUsedPayload carries presentation metadata for combat.skill_used
// events. Narration synthesizes an evolved display name from these fields.
type SkillUsedPayload struct {
	BaseName   string `json:"base_name"`
	Rank       int    `json:"rank,omitempty"`
	Rarity     string `json:"rarity,omitempty"`
	Escalation int    `json:"escalation,omitempty"`
}

// ItemUsedPayload captures detail for combat.item_used events.
type ItemUsedPayload struct {
	ItemName string `json:"item_name,omitempty"`
}

// InitiativeEntry is one slot of the initiative snapshot recorded at round
// start.
type InitiativeEntry struct {
	CombatantID string `json:"combatant_id"`
	Name        string `json:"name"`
	Initiative  int    `json:"initiative"`
}

// RoundStartedPayload captures the payload for combat.round_started events.
type RoundStartedPayload struct {
	Round      int               `json:"round"`
	Initiative []InitiativeEntry `json:"initiative,omitempty"`
}

// TurnStartedPayload captures the payload for combat.turn_started events.
type TurnStartedPayload struct {
	ActorID string `json:"actor_id"`
}

// TurnEndedPayload captures the payload for combat.turn_ended events.
type TurnEndedPayload struct {
	ActorID string `json:"actor_id"`
}

// DecodePayload unmarshals an event payload into the provided struct.
// Unknown or extra fields in the stored JSON are ignored deliberately; the
// closed variant set above is the contract, not the raw bytes.
func DecodePayload(evt Event, target any) error {
	if len(evt.PayloadJSON) == 0 {
		return nil
	}
	return json.Unmarshal(evt.PayloadJSON, target)
}

// EncodePayload marshals a payload struct for storage on an event.
func EncodePayload(payload any) ([]byte, error) {
	return json.Marshal(payload)
}
