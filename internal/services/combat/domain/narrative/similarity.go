package narrative

import "strings"

// normalizeText lowercases, strips everything but letters, digits, and
// spaces, and collapses runs of whitespace. Similarity checks and history
// bookkeeping always operate on normalized text.
func normalizeText(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '\n':
			if !lastSpace {
				builder.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(builder.String())
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(text) {
		set[token] = struct{}{}
	}
	return set
}

// tokenJaccard measures word-set overlap between two normalized lines.
func tokenJaccard(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func bigramSet(text string) map[string]int {
	compact := strings.ReplaceAll(text, " ", "")
	set := make(map[string]int)
	for i := 0; i+2 <= len(compact); i++ {
		set[compact[i:i+2]]++
	}
	return set
}

// bigramDice measures character-bigram overlap between two normalized lines.
func bigramDice(a, b string) float64 {
	setA, setB := bigramSet(a), bigramSet(b)
	totalA, totalB := 0, 0
	for _, count := range setA {
		totalA += count
	}
	for _, count := range setB {
		totalB += count
	}
	if totalA == 0 || totalB == 0 {
		return 0
	}
	shared := 0
	for bigram, countA := range setA {
		if countB, ok := setB[bigram]; ok {
			if countA < countB {
				shared += countA
			} else {
				shared += countB
			}
		}
	}
	return 2 * float64(shared) / float64(totalA+totalB)
}

// wordTrigrams returns every consecutive three-word fragment of a normalized
// line.
func wordTrigrams(text string) []string {
	words := strings.Fields(text)
	if len(words) < 3 {
		return nil
	}
	fragments := make([]string, 0, len(words)-2)
	for i := 0; i+3 <= len(words); i++ {
		fragments = append(fragments, strings.Join(words[i:i+3], " "))
	}
	return fragments
}
