package tts

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractSentence(t *testing.T) {
	tests := []struct {
		input     string
		sentence  string
		remaining string
		found     bool
	}{
		{"Hello. World", "Hello.", " World", true},
		{"Really? Yes", "Really?", " Yes", true},
		{"你好。世界", "你好。", "世界", true},
		{"line one\nline two", "line one\n", "line two", true},
		{"no terminator", "", "no terminator", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		s, r, f := extractSentence(tt.input)
		if s != tt.sentence || r != tt.remaining || f != tt.found {
			t.Errorf("extractSentence(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.input, s, r, f, tt.sentence, tt.remaining, tt.found)
		}
	}
}

func TestChunk_MergesShortSentences(t *testing.T) {
	got := Chunk("One. Two. Three.", 100)
	if len(got) != 1 || got[0] != "One. Two. Three." {
		t.Errorf("Chunk = %q", got)
	}
}

func TestChunk_RespectsLimit(t *testing.T) {
	text := strings.Repeat("This is a sentence. ", 20)
	chunks := Chunk(text, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 50 {
			t.Errorf("chunk %d has %d runes: %q", i, n, c)
		}
	}
	if joined := strings.Join(chunks, " "); joined != strings.TrimSpace(text) {
		t.Errorf("chunks lost text:\n%q\n%q", joined, strings.TrimSpace(text))
	}
}

func TestChunk_HardSplitsLongSentence(t *testing.T) {
	long := strings.Repeat("x", 25)
	chunks := Chunk(long, 10)
	want := []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}
	if len(chunks) != len(want) {
		t.Fatalf("Chunk = %q, want %q", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := Chunk("   ", 10); len(got) != 0 {
		t.Errorf("Chunk of blank text = %q", got)
	}
}
