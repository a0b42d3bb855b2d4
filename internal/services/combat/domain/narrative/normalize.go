package narrative

import (
	"fmt"
	"sort"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
)

// record is one normalized ledger event, ready for grouping and phrasing.
// Malformed payloads degrade to zero-valued fields rather than failing.
type record struct {
	eventID    string
	turn       int
	createdAt  int64
	typ        event.Type
	actorID    string
	targetID   string
	actorName  string
	targetName string
	amount     int
	statusID   string
	statusName string
	from       *event.Tile
	to         *event.Tile
	roll       *int
	threshold  *int
	skill      *event.SkillUsedPayload
}

// displayName resolves a combatant id to its display name, degrading to a
// truncated id label when the roster has no entry.
func displayName(names map[string]string, id string) string {
	if id == "" {
		return ""
	}
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	label := id
	if len(label) > 8 {
		label = label[:8]
	}
	return label
}

func normalizeEvents(events []event.Event, names map[string]string) []record {
	records := make([]record, 0, len(events))
	for _, evt := range events {
		rec := record{
			eventID:    evt.ID,
			turn:       evt.TurnIndex,
			createdAt:  evt.CreatedAt,
			typ:        evt.Type,
			actorID:    evt.ActorID,
			targetID:   evt.TargetID,
			actorName:  displayName(names, evt.ActorID),
			targetName: displayName(names, evt.TargetID),
			amount:     evt.Amount,
			statusID:   evt.StatusID,
			from:       evt.From,
			to:         evt.To,
		}

		switch evt.Type {
		case event.TypeMiss:
			var payload event.MissPayload
			if err := event.DecodePayload(evt, &payload); err == nil {
				rec.roll = payload.Roll
				rec.threshold = payload.Threshold
			}
		case event.TypeStatusApplied:
			var payload event.StatusAppliedPayload
			if err := event.DecodePayload(evt, &payload); err == nil && payload.StatusName != "" {
				rec.statusName = payload.StatusName
			}
		case event.TypeSkillUsed:
			var payload event.SkillUsedPayload
			if err := event.DecodePayload(evt, &payload); err == nil && payload.BaseName != "" {
				rec.skill = &payload
			}
		}
		if rec.statusName == "" {
			rec.statusName = rec.statusID
		}

		records = append(records, rec)
	}
	return records
}

// signature identifies an event for exact-duplicate suppression. Upstream
// at-least-once delivery can replay an event verbatim; the first occurrence
// wins.
func signature(rec record) string {
	to := ""
	if rec.to != nil {
		to = fmt.Sprintf("%d,%d", rec.to.X, rec.to.Y)
	}
	return fmt.Sprintf("%d|%s|%s|%s|%d|%s|%s",
		rec.turn, rec.typ, rec.actorID, rec.targetID, rec.amount, rec.statusID, to)
}

func dedupe(records []record) []record {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, rec := range records {
		sig := signature(rec)
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func sortRecords(records []record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].turn != records[j].turn {
			return records[i].turn < records[j].turn
		}
		return records[i].createdAt < records[j].createdAt
	})
}

// suppressDead drops non-death events acted by an entity that a prior death
// event already marked dead.
func suppressDead(records []record) []record {
	dead := make(map[string]struct{})
	out := records[:0:0]
	for _, rec := range records {
		if rec.typ == event.TypeDeath {
			if rec.targetID != "" {
				dead[rec.targetID] = struct{}{}
			}
			out = append(out, rec)
			continue
		}
		if _, gone := dead[rec.actorID]; gone && rec.actorID != "" {
			continue
		}
		out = append(out, rec)
	}
	return out
}
