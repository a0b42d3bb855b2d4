package narrative

import (
	"fmt"
	"testing"
)

func TestHistoryRejectsExactRepeat(t *testing.T) {
	history := NewHistory(16)
	history.Commit("Orin tears into Bog Stalker for 12 damage.")

	if !history.Rejects("Orin tears into Bog Stalker for 12 damage.") {
		t.Fatal("exact repeat must be rejected")
	}
	if !history.Rejects("orin tears into bog stalker for 12 damage") {
		t.Fatal("repeat must be matched on normalized text")
	}
}

func TestHistoryRejectsNearDuplicate(t *testing.T) {
	history := NewHistory(16)
	history.SetThreshold(0.55)
	history.Commit("Orin tears into the Bog Stalker for twelve damage")

	if !history.Rejects("Orin tears into the Bog Stalker for ten damage") {
		t.Fatal("near duplicate above threshold must be rejected")
	}
	if history.Rejects("A completely different sentence about weather patterns") {
		t.Fatal("dissimilar line must pass")
	}
}

func TestHistoryRejectsKnownFragments(t *testing.T) {
	history := NewHistory(16)
	history.Commit("the hollow sentinel crashes through the stone gate")

	// Shares three word trigrams with the committed line but little else.
	if !history.Rejects("now the hollow sentinel crashes through every ward") {
		t.Fatal("line reusing three known trigrams must be rejected")
	}
}

func TestHistoryEvictsOldestLines(t *testing.T) {
	history := NewHistory(8)
	for i := 0; i < 20; i++ {
		history.Commit(fmt.Sprintf("unique line number %d with filler words", i))
	}
	if history.Len() != 8 {
		t.Fatalf("history length = %d, want capacity 8", history.Len())
	}
}

func TestHistoryClampsCapacityAndThreshold(t *testing.T) {
	if got := NewHistory(1); got.capacity != minHistoryLines {
		t.Fatalf("capacity = %d, want clamp to %d", got.capacity, minHistoryLines)
	}
	if got := NewHistory(1000); got.capacity != maxHistoryLines {
		t.Fatalf("capacity = %d, want clamp to %d", got.capacity, maxHistoryLines)
	}

	history := NewHistory(8)
	history.SetThreshold(0.1)
	if history.threshold != minSimilarityThreshold {
		t.Fatalf("threshold = %v, want clamp to %v", history.threshold, minSimilarityThreshold)
	}
	history.SetThreshold(0.99)
	if history.threshold != maxSimilarityThreshold {
		t.Fatalf("threshold = %v, want clamp to %v", history.threshold, maxSimilarityThreshold)
	}
}
