package narrative

import (
	"strconv"
	"strings"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/seedrand"
)

// Template placeholders are substituted literally; a placeholder with no
// value renders as an empty string and the line is whitespace-collapsed.
var phrasePools = map[event.Type][]string{
	event.TypeDamage: {
		"{actor} tears into {target} for {total} damage{hitsuffix}.",
		"{actor} batters {target}, dealing {total}{hitsuffix}.",
		"{target} reels as {actor} carves away {total} health{hitsuffix}.",
		"{actor} lands punishment on {target} worth {total}{hitsuffix}.",
	},
	event.TypeMoved: {
		"{actor} darts to a new position.",
		"{actor} repositions across the field.",
		"{actor} slips through the chaos to better ground.",
	},
	event.TypeMiss: {
		"{actor} swings wide of {target}{rolldetail}.",
		"{target} slips away from {actor}'s strike{rolldetail}.",
		"{actor} lunges at {target} and finds only air{rolldetail}.",
	},
	event.TypeHealed: {
		"{target} knits closed for {total} health.",
		"Vitality floods back into {target}, restoring {total}.",
		"{target} steadies, recovering {total} health.",
	},
	event.TypePowerGained: {
		"{target} draws in {total} power.",
		"Energy surges through {target}, banking {total} power.",
	},
	event.TypePowerDrained: {
		"{total} power bleeds out of {target}.",
		"{target} feels {total} power torn away.",
	},
	event.TypeStatusApplied: {
		"{target} is wracked by {statuses}.",
		"{statuses} takes hold of {target}.",
		"{target} staggers under {statuses}.",
	},
	event.TypeStatusTicked: {
		"{statuses} gnaws at {target}.",
		"{target} suffers under lingering {statuses}.",
	},
	event.TypeStatusExpired: {
		"{statuses} releases its grip on {target}.",
		"{target} shakes off {statuses}.",
	},
	event.TypeArmorShredded: {
		"{target}'s guard splinters apart.",
		"Plating shears away from {target}.",
	},
	event.TypeDeath: {
		"{target} collapses, finished.",
		"The fight leaves {target} for good.",
		"{target} falls and does not rise.",
	},
	event.TypeItemUsed: {
		"{actor} cracks open a prized item.",
		"{actor} puts a carried item to desperate use.",
	},
}

// renderLine renders the variant-th phrasing of a group, wrapping around the
// pool. Returns false when the type has no narration.
func renderLine(g group, variant int) (string, bool) {
	pool, ok := phrasePools[g.rec.typ]
	if !ok || len(pool) == 0 {
		return "", false
	}
	template := pool[((variant%len(pool))+len(pool))%len(pool)]
	return fillTemplate(template, g), true
}

// poolSize reports how many phrasing variants exist for a group's type.
func poolSize(typ event.Type) int {
	return len(phrasePools[typ])
}

// variantBase deterministically picks the starting phrasing variant for a
// group so consecutive similar events rotate through the pool.
func variantBase(seedKey string, g group) int {
	return int(seedrand.StableInt(seedKey, "line:"+signature(g.rec)) % 1024)
}

func fillTemplate(template string, g group) string {
	actor := g.rec.actorName
	if actor == "" {
		actor = "An unseen force"
	}
	target := g.rec.targetName
	if target == "" {
		target = "the field"
	}

	hitSuffix := ""
	if g.hits > 1 {
		hitSuffix = " across " + strconv.Itoa(g.hits) + " hits"
	}

	rollDetail := ""
	if g.rec.roll != nil && g.rec.threshold != nil {
		rollDetail = " (" + strconv.Itoa(*g.rec.roll) + " vs " + strconv.Itoa(*g.rec.threshold) + ")"
	}

	statuses := g.rec.statusName
	if len(g.statuses) > 0 {
		statuses = joinStatuses(g.statuses)
	}
	if statuses == "" {
		statuses = "an unseen affliction"
	}

	total := g.total
	if total < 0 {
		total = -total
	}

	replacer := strings.NewReplacer(
		"{actor}", actor,
		"{target}", target,
		"{total}", strconv.Itoa(total),
		"{hitsuffix}", hitSuffix,
		"{rolldetail}", rollDetail,
		"{statuses}", statuses,
	)
	return strings.Join(strings.Fields(replacer.Replace(template)), " ")
}

func joinStatuses(statuses []string) string {
	switch len(statuses) {
	case 0:
		return ""
	case 1:
		return statuses[0]
	case 2:
		return statuses[0] + " and " + statuses[1]
	default:
		return strings.Join(statuses[:len(statuses)-1], ", ") + ", and " + statuses[len(statuses)-1]
	}
}
