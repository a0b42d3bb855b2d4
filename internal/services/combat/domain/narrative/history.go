package narrative

const (
	minHistoryLines = 8
	maxHistoryLines = 64
	maxFragments    = 512

	// DefaultSimilarityThreshold rejects candidate lines whose similarity
	// to any buffered line exceeds it.
	DefaultSimilarityThreshold = 0.76
	minSimilarityThreshold     = 0.55
	maxSimilarityThreshold     = 0.94

	// knownFragmentLimit rejects a candidate when this many of its word
	// trigrams were already emitted.
	knownFragmentLimit = 3
)

// History is the per-observer anti-repetition state: a bounded ring of
// recently emitted lines plus a bounded set of their word-trigram fragments.
// Each observer owns its own History, so projections never share mutable
// state.
type History struct {
	capacity  int
	threshold float64

	lines         []string
	fragments     map[string]struct{}
	fragmentOrder []string
}

// NewHistory creates a History holding the given number of lines, clamped
// to [8, 64].
func NewHistory(capacity int) *History {
	if capacity < minHistoryLines {
		capacity = minHistoryLines
	}
	if capacity > maxHistoryLines {
		capacity = maxHistoryLines
	}
	return &History{
		capacity:  capacity,
		threshold: DefaultSimilarityThreshold,
		fragments: make(map[string]struct{}),
	}
}

// SetThreshold overrides the similarity threshold, clamped to [0.55, 0.94].
func (h *History) SetThreshold(threshold float64) {
	if threshold < minSimilarityThreshold {
		threshold = minSimilarityThreshold
	}
	if threshold > maxSimilarityThreshold {
		threshold = maxSimilarityThreshold
	}
	h.threshold = threshold
}

// Rejects reports whether a candidate line repeats the buffered history:
// exact normalized match, similarity above the threshold against any
// buffered line, or too many already-known word-trigram fragments.
func (h *History) Rejects(line string) bool {
	normalized := normalizeText(line)
	if normalized == "" {
		return true
	}

	for _, prior := range h.lines {
		if prior == normalized {
			return true
		}
		if tokenJaccard(prior, normalized) > h.threshold {
			return true
		}
		if bigramDice(prior, normalized) > h.threshold {
			return true
		}
	}

	known := 0
	for _, fragment := range wordTrigrams(normalized) {
		if _, ok := h.fragments[fragment]; ok {
			known++
			if known >= knownFragmentLimit {
				return true
			}
		}
	}
	return false
}

// Commit records an accepted line and its fragments, evicting oldest first.
func (h *History) Commit(line string) {
	normalized := normalizeText(line)
	if normalized == "" {
		return
	}

	h.lines = append(h.lines, normalized)
	if len(h.lines) > h.capacity {
		h.lines = h.lines[len(h.lines)-h.capacity:]
	}

	for _, fragment := range wordTrigrams(normalized) {
		if _, ok := h.fragments[fragment]; ok {
			continue
		}
		h.fragments[fragment] = struct{}{}
		h.fragmentOrder = append(h.fragmentOrder, fragment)
	}
	for len(h.fragmentOrder) > maxFragments {
		delete(h.fragments, h.fragmentOrder[0])
		h.fragmentOrder = h.fragmentOrder[1:]
	}
}

// Len reports the number of buffered lines.
func (h *History) Len() int { return len(h.lines) }
