package narrative

import (
	"strconv"
	"strings"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/seedrand"
)

var rarityEpithets = map[string]string{
	"common":    "",
	"magical":   "Gleaming",
	"unique":    "Singular",
	"legendary": "Storied",
	"mythic":    "Worldrend",
	"unhinged":  "Impossible",
}

var spectacleTemplates = []string{
	"{actor} unleashes {skill}, and the air itself recoils!",
	"{skill} erupts from {actor} in a storm of light!",
	"With a roar, {actor} brings {skill} crashing down!",
	"{actor} channels {skill}; the ground shudders in answer!",
	"The battlefield bends around {actor}'s {skill}!",
}

// EvolvedSkillName synthesizes the display name for a skill from its
// presentation metadata. Pure function; the same metadata always yields the
// same name.
func EvolvedSkillName(payload event.SkillUsedPayload) string {
	parts := make([]string, 0, 4)
	if epithet := rarityEpithets[strings.ToLower(payload.Rarity)]; epithet != "" {
		parts = append(parts, epithet)
	}
	switch {
	case payload.Rank >= 9:
		parts = append(parts, "Apex")
	case payload.Rank >= 6:
		parts = append(parts, "Grand")
	case payload.Rank >= 3:
		parts = append(parts, "Greater")
	}
	parts = append(parts, payload.BaseName)
	if payload.Escalation > 0 {
		parts = append(parts, "+"+strconv.Itoa(payload.Escalation))
	}
	return strings.Join(parts, " ")
}

// skillLine renders the spectacle line for a skill_used record, keyed by the
// event id so replays phrase it identically.
func skillLine(seedKey string, rec record, variant int) string {
	base := int(seedrand.StableInt(seedKey, "skill:"+rec.eventID) % uint32(len(spectacleTemplates)))
	template := spectacleTemplates[(base+variant)%len(spectacleTemplates)]

	actor := rec.actorName
	if actor == "" {
		actor = "An unseen force"
	}
	name := "a nameless technique"
	if rec.skill != nil {
		name = EvolvedSkillName(*rec.skill)
	}
	replacer := strings.NewReplacer("{actor}", actor, "{skill}", name)
	return replacer.Replace(template)
}
