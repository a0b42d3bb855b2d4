package narrative

import (
	"strconv"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
)

// maxGroupedStatusNames bounds how many status names one merged line lists.
const maxGroupedStatusNames = 3

// group is one narration unit: a merged damage burst, a merged status batch,
// or a single pass-through event.
type group struct {
	rec      record
	hits     int
	total    int
	statuses []string
}

// groupRecords merges damage events sharing (turn, actor, target) and
// status-applied events sharing (turn, target), preserving first-occurrence
// order. Everything else passes through one group per record.
func groupRecords(records []record) []group {
	groups := make([]group, 0, len(records))
	damageIndex := make(map[string]int)
	statusIndex := make(map[string]int)

	for _, rec := range records {
		switch rec.typ {
		case event.TypeDamage:
			key := damageKey(rec)
			if i, ok := damageIndex[key]; ok {
				groups[i].hits++
				groups[i].total += rec.amount
				continue
			}
			damageIndex[key] = len(groups)
			groups = append(groups, group{rec: rec, hits: 1, total: rec.amount})

		case event.TypeStatusApplied:
			key := statusKey(rec)
			if i, ok := statusIndex[key]; ok {
				if len(groups[i].statuses) < maxGroupedStatusNames {
					groups[i].statuses = appendStatus(groups[i].statuses, rec.statusName)
				}
				continue
			}
			statusIndex[key] = len(groups)
			groups = append(groups, group{rec: rec, statuses: appendStatus(nil, rec.statusName)})

		default:
			groups = append(groups, group{rec: rec, hits: 1, total: rec.amount})
		}
	}
	return groups
}

func damageKey(rec record) string {
	return strconv.Itoa(rec.turn) + "|" + rec.actorID + "|" + rec.targetID
}

func statusKey(rec record) string {
	return strconv.Itoa(rec.turn) + "|" + rec.targetID
}

func appendStatus(statuses []string, name string) []string {
	if name == "" {
		return statuses
	}
	for _, existing := range statuses {
		if existing == name {
			return statuses
		}
	}
	return append(statuses, name)
}
