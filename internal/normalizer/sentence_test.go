package normalizer

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{""}},
		{"Hello. World", []string{"Hello.", "World"}},
		{"Hello! World? Yes.", []string{"Hello!", "World?", "Yes."}},
		{"One.   \n Two", []string{"One.", "Two"}},
		{"v1.2 is out", []string{"v1.2 is out"}},
		{"no terminator here", []string{"no terminator here"}},
		{"Trailing. ", []string{"Trailing.", ""}},
	}

	for _, tt := range tests {
		got := SplitSentences(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("SplitSentences(%q) = %q, want %q", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitSentences(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestRefineSentences_ShortSentenceNeverSplit(t *testing.T) {
	s := "Short, with, many, commas, but, under, the, limit."
	if got := RefineSentences(s); got != s {
		t.Errorf("got %q, want unchanged", got)
	}

	exact := strings.Repeat("a", 100) + "," + strings.Repeat("b", 49)
	if len([]rune(exact)) != 150 {
		t.Fatalf("test setup: length = %d", len([]rune(exact)))
	}
	if got := RefineSentences(exact); got != exact {
		t.Errorf("150-char sentence was split: %q", got)
	}
}

func TestRefineSentences_LongSentenceSplitAtComma(t *testing.T) {
	head := strings.Repeat("a", 120) + ","
	tail := strings.Repeat("b", 77) + "."
	s := head + " " + tail
	if len([]rune(s)) != 200 {
		t.Fatalf("test setup: length = %d", len([]rune(s)))
	}

	got := RefineSentences(s)
	want := head + " and " + tail
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRefineSentences_LastCommaBeforeLimit(t *testing.T) {
	s := strings.Repeat("a", 40) + ", " + strings.Repeat("b", 80) + ", " + strings.Repeat("c", 60) + ", end."
	got := RefineSentences(s)
	want := strings.Repeat("a", 40) + ", " + strings.Repeat("b", 80) + ", and " + strings.Repeat("c", 60) + ", end."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRefineSentences_LongWithoutComma(t *testing.T) {
	s := strings.Repeat("x", 151) + " tail, after limit."
	if got := RefineSentences(s); got != s {
		t.Errorf("sentence without early comma should be kept, got %q", got)
	}
}

func TestRefineSentences_EquationPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"This Formula is neat.", "Let's look at This Formula is neat."},
		{"the EQUATION holds.", "Let's look at the EQUATION holds."},
		{"Nothing special.", "Nothing special."},
	}
	for _, tt := range tests {
		if got := RefineSentences(tt.input); got != tt.want {
			t.Errorf("RefineSentences(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRefineSentences_PrefixBeforeLengthCheck(t *testing.T) {
	// 140 字符的句子加上前缀后超过 150，应当被拆分，且前缀只出现一次
	s := "formula " + strings.Repeat("a", 100) + ", " + strings.Repeat("b", 30)
	got := RefineSentences(s)

	if strings.Count(got, "Let's look at ") != 1 {
		t.Fatalf("prefix count != 1: %q", got)
	}
	if !strings.HasPrefix(got, "Let's look at formula ") {
		t.Errorf("missing prefix: %q", got)
	}
	if !strings.Contains(got, ", and "+strings.Repeat("b", 30)) {
		t.Errorf("expected split after prefixing: %q", got)
	}
}

func TestRefineSentences_OneSplitPerSentence(t *testing.T) {
	s := strings.Repeat("a", 150) + "," + strings.Repeat("b", 150) + "," + strings.Repeat("c", 10)
	got := RefineSentences(s)
	if strings.Count(got, " and ") != 1 {
		t.Errorf("expected exactly one split, got %q", got)
	}
}

func TestRefineSentences_TrimsAndRejoins(t *testing.T) {
	got := RefineSentences("  First.   Second!  Third?")
	want := "First. Second! Third?"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRefineSentences_CustomLimit(t *testing.T) {
	n := New(WithMaxSentence(10))
	got := n.RefineSentences("abc, defghijkl")
	want := "abc, and defghijkl"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
