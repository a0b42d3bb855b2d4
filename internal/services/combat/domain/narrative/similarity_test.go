package narrative

import (
	"reflect"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Orin tears into Bog Stalker!", "orin tears into bog stalker"},
		{"  Multiple   spaces\tand CAPS  ", "multiple spaces and caps"},
		{"punctuation, (everywhere)...", "punctuation everywhere"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := normalizeText(tc.in); got != tc.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenJaccard(t *testing.T) {
	if got := tokenJaccard("a b c", "a b c"); got != 1 {
		t.Fatalf("identical lines jaccard = %v, want 1", got)
	}
	if got := tokenJaccard("a b c d", "c d e f"); got != 2.0/6.0 {
		t.Fatalf("jaccard = %v, want %v", got, 2.0/6.0)
	}
	if got := tokenJaccard("", "a b"); got != 0 {
		t.Fatalf("empty line jaccard = %v, want 0", got)
	}
}

func TestBigramDice(t *testing.T) {
	if got := bigramDice("night", "night"); got != 1 {
		t.Fatalf("identical dice = %v, want 1", got)
	}
	if got := bigramDice("night", "nacht"); got <= 0 || got >= 1 {
		t.Fatalf("partial overlap dice = %v, want (0,1)", got)
	}
	if got := bigramDice("ab", "cd"); got != 0 {
		t.Fatalf("disjoint dice = %v, want 0", got)
	}
}

func TestWordTrigrams(t *testing.T) {
	got := wordTrigrams("the quick brown fox jumps")
	want := []string{"the quick brown", "quick brown fox", "brown fox jumps"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("trigrams = %v, want %v", got, want)
	}
	if got := wordTrigrams("two words"); got != nil {
		t.Fatalf("short line trigrams = %v, want nil", got)
	}
}
