package narrative

import (
	"strings"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/seedrand"
)

var personalityPools = map[string][]string{
	"aggression": {
		"{actor} snarls, hungry for more blood.",
		"{actor} hammers forward without a flicker of caution.",
		"Rage rolls off {actor} in waves.",
	},
	"intelligence": {
		"{actor} studies the field, already three moves ahead.",
		"A cold calculation passes behind {actor}'s eyes.",
		"{actor} adjusts stance, probing for the weakest seam.",
	},
	"instinct": {
		"{actor} circles low, reading the fight by scent alone.",
		"Something feral keeps {actor} a half-step from every blow.",
		"{actor} reacts before the strike is even thrown.",
	},
}

// dominantTrait picks the strongest trait axis; ties resolve in the fixed
// order aggression, intelligence, instinct.
func dominantTrait(traits combatant.Traits) string {
	best, bestValue := "aggression", traits.Aggression
	if traits.Intelligence > bestValue {
		best, bestValue = "intelligence", traits.Intelligence
	}
	if traits.Instinct > bestValue {
		best = "instinct"
	}
	return best
}

// personalityLine renders a flavor line for the most recent trait-bearing
// actor, keyed by the triggering event id.
func personalityLine(seedKey string, rec record, traits combatant.Traits, variant int) string {
	pool := personalityPools[dominantTrait(traits)]
	base := int(seedrand.StableInt(seedKey, "personality:"+rec.eventID) % uint32(len(pool)))
	template := pool[(base+variant)%len(pool)]

	actor := rec.actorName
	if actor == "" {
		actor = "The enemy"
	}
	return strings.ReplaceAll(template, "{actor}", actor)
}
