// Package narrative projects the action-event ledger into narration lines
// and visual-effect descriptors for an observer.
//
// Projection is read-only and deterministic: given the same event sequence
// and the same history starting state, the output is identical on every
// evaluation, which lets any number of observers or replays run the
// projector independently with no shared simulation. It never fails
// outward; malformed payloads and missing names degrade to fallback labels.
package narrative

import (
	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/effects"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
)

const (
	// DefaultLineCount is the narration budget when none is requested.
	DefaultLineCount = 4
	// MaxLineCount caps the narration budget per projection.
	MaxLineCount = 8

	// FallbackLine is emitted when every candidate was rejected as
	// repetitive, so a projection over events never renders silence.
	FallbackLine = "The melee churns on, too chaotic to call."
)

// Input is one projection request.
type Input struct {
	// SeedKey scopes all seeded phrasing choices, typically the session
	// seed in decimal.
	SeedKey string
	// Events is the raw ledger slice to project. Order and duplicates are
	// tolerated; the pipeline normalizes both.
	Events []event.Event
	// Names maps combatant ids to display names. Missing entries degrade
	// to truncated id labels.
	Names map[string]string
	// Traits carries enemy personality metadata by combatant id.
	Traits map[string]combatant.Traits
	// History is the observer's anti-repetition state. Nil gets a fresh
	// buffer, making the projection self-contained.
	History *History
	// LineCount is the requested narration budget, defaulted and capped.
	LineCount int
}

// Output is the projected presentation batch.
type Output struct {
	Lines   []string
	Effects []effects.Descriptor
}

// Project runs the full presentation pipeline over a ledger slice.
func Project(input Input) Output {
	count := input.LineCount
	if count <= 0 {
		count = DefaultLineCount
	}
	if count > MaxLineCount {
		count = MaxLineCount
	}
	history := input.History
	if history == nil {
		history = NewHistory(maxHistoryLines / 2)
	}

	records := normalizeEvents(input.Events, input.Names)
	records = dedupe(records)
	sortRecords(records)
	records = suppressDead(records)
	groups := groupRecords(records)

	output := Output{Effects: buildEffects(input.SeedKey, groups)}

	hadCandidates := false
	for _, g := range groups {
		if len(output.Lines) >= count {
			break
		}
		line, ok := acceptLine(input.SeedKey, g, history)
		if poolSize(g.rec.typ) > 0 || g.rec.typ == event.TypeSkillUsed {
			hadCandidates = true
		}
		if ok {
			output.Lines = append(output.Lines, line)
		}
	}

	if line, ok := acceptPersonality(input, groups, history); ok && len(output.Lines) < count {
		output.Lines = append(output.Lines, line)
	}

	if len(output.Lines) == 0 && hadCandidates {
		output.Lines = append(output.Lines, FallbackLine)
	}
	return output
}

// acceptLine renders a group's line, rotating through phrasing variants
// until one clears the anti-repetition filter. Accepted lines are committed
// immediately so later candidates in the same batch cannot repeat them.
func acceptLine(seedKey string, g group, history *History) (string, bool) {
	if g.rec.typ == event.TypeSkillUsed {
		for variant := 0; variant < len(spectacleTemplates); variant++ {
			line := skillLine(seedKey, g.rec, variant)
			if !history.Rejects(line) {
				history.Commit(line)
				return line, true
			}
		}
		return "", false
	}

	variants := poolSize(g.rec.typ)
	if variants == 0 {
		return "", false
	}
	base := variantBase(seedKey, g)
	for attempt := 0; attempt < variants; attempt++ {
		line, ok := renderLine(g, base+attempt)
		if !ok {
			return "", false
		}
		if !history.Rejects(line) {
			history.Commit(line)
			return line, true
		}
	}
	return "", false
}

// acceptPersonality appends at most one flavor line for the most recent
// trait-bearing actor.
func acceptPersonality(input Input, groups []group, history *History) (string, bool) {
	if len(input.Traits) == 0 {
		return "", false
	}
	for i := len(groups) - 1; i >= 0; i-- {
		rec := groups[i].rec
		traits, ok := input.Traits[rec.actorID]
		if !ok {
			continue
		}
		pool := len(personalityPools[dominantTrait(traits)])
		for variant := 0; variant < pool; variant++ {
			line := personalityLine(input.SeedKey, rec, traits, variant)
			if !history.Rejects(line) {
				history.Commit(line)
				return line, true
			}
		}
		return "", false
	}
	return "", false
}

// heavyHitThreshold tags large damage bursts for weightier client renders.
const heavyHitThreshold = 30

func buildEffects(seedKey string, groups []group) []effects.Descriptor {
	descriptors := make([]effects.Descriptor, 0, len(groups))
	for _, g := range groups {
		rec := g.rec
		fxSeed := seedKey + "::fx::" + rec.eventID

		var descriptor effects.Descriptor
		switch rec.typ {
		case event.TypeMoved:
			descriptor = effects.Descriptor{
				Kind:      effects.KindMoveTrail,
				Anchor:    effects.Anchor{EntityID: rec.actorID, Tile: rec.to},
				Magnitude: tileDistance(rec.from, rec.to),
			}
		case event.TypeDamage:
			descriptor = effects.Descriptor{
				Kind:      effects.KindHitImpact,
				Anchor:    effects.Anchor{EntityID: rec.targetID},
				Magnitude: g.total,
			}
			if g.total >= heavyHitThreshold {
				descriptor.Style = []string{"heavy"}
			}
		case event.TypeMiss:
			descriptor = effects.Descriptor{
				Kind:   effects.KindMissIndicator,
				Anchor: effects.Anchor{EntityID: rec.targetID},
			}
		case event.TypeHealed:
			descriptor = effects.Descriptor{
				Kind:      effects.KindHealImpact,
				Anchor:    effects.Anchor{EntityID: rec.targetID},
				Magnitude: rec.amount,
			}
		case event.TypeSkillUsed:
			descriptor = effects.Descriptor{
				Kind:   effects.KindAttackWindup,
				Anchor: effects.Anchor{EntityID: rec.actorID},
			}
		case event.TypeStatusApplied:
			kind := effects.KindStatusApply
			if len(g.statuses) > 1 {
				kind = effects.KindStatusApplyMany
			}
			descriptor = effects.Descriptor{
				Kind:      kind,
				Anchor:    effects.Anchor{EntityID: rec.targetID},
				Magnitude: len(g.statuses),
				Style:     g.statuses,
			}
		case event.TypeStatusTicked:
			descriptor = effects.Descriptor{
				Kind:      effects.KindStatusTick,
				Anchor:    effects.Anchor{EntityID: rec.targetID},
				Magnitude: rec.amount,
			}
		case event.TypePowerGained:
			descriptor = effects.Descriptor{
				Kind:      effects.KindBarrierGain,
				Anchor:    effects.Anchor{EntityID: rec.targetID},
				Magnitude: rec.amount,
			}
		case event.TypeArmorShredded:
			descriptor = effects.Descriptor{
				Kind:      effects.KindBarrierBreak,
				Anchor:    effects.Anchor{EntityID: rec.targetID},
				Magnitude: rec.amount,
			}
		case event.TypeDeath:
			descriptor = effects.Descriptor{
				Kind:   effects.KindDeathBurst,
				Anchor: effects.Anchor{EntityID: rec.targetID},
			}
		case event.TypeTurnStarted:
			descriptor = effects.Descriptor{
				Kind:   effects.KindTurnStart,
				Anchor: effects.Anchor{EntityID: rec.actorID},
			}
		case event.TypeTurnEnded:
			descriptor = effects.Descriptor{
				Kind:   effects.KindTurnEnd,
				Anchor: effects.Anchor{EntityID: rec.actorID},
			}
		default:
			continue
		}

		descriptor.SeedKey = fxSeed
		descriptors = append(descriptors, descriptor)
	}
	return descriptors
}

func tileDistance(from, to *event.Tile) int {
	if from == nil || to == nil {
		return 0
	}
	dx, dy := to.X-from.X, to.Y-from.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
