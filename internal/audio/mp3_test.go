package audio

import (
	"testing"
)

func TestPeaksOf(t *testing.T) {
	samples := []float32{0.1, -0.9, 0.2, 0.3, -0.4, 0.0, 1.5, -0.2}
	got := peaksOf(samples, 4)
	want := []float32{0.9, 0.3, 0.4, 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if d := got[i] - want[i]; d > 1e-6 || d < -1e-6 {
			t.Errorf("bucket %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestPeaksOf_Edges(t *testing.T) {
	if got := peaksOf(nil, 10); len(got) != 0 {
		t.Errorf("empty input should give no peaks, got %v", got)
	}
	if got := peaksOf([]float32{0.5, 0.5}, 10); len(got) != 2 {
		t.Errorf("buckets should be capped at sample count, got %d", len(got))
	}
	many := make([]float32, 1000)
	if got := peaksOf(many, 0); len(got) != DefaultPeakBuckets {
		t.Errorf("default buckets = %d, want %d", len(got), DefaultPeakBuckets)
	}
}

func TestDuration_InvalidData(t *testing.T) {
	if _, err := Duration([]byte("not an mp3")); err == nil {
		t.Error("expected error for invalid MP3 data")
	}
	if _, err := Peaks(nil, 10); err == nil {
		t.Error("expected error for empty MP3 data")
	}
}
