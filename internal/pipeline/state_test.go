package pipeline

import "testing"

func TestNewTracker_InitialStepIsIdle(t *testing.T) {
	tr := NewTracker(nil)
	if tr.Current() != StepIdle {
		t.Fatalf("expected initial step Idle, got %s", tr.Current())
	}
}

func TestTracker_FullChain(t *testing.T) {
	var seen []Step
	tr := NewTracker(func(from, to Step) { seen = append(seen, to) })

	for _, s := range []Step{StepExtracting, StepUploading, StepNormalizing, StepSynthesizing, StepIdle} {
		if !tr.Transition(s) {
			t.Fatalf("transition to %s should be valid", s)
		}
	}
	if len(seen) != 5 {
		t.Errorf("onChange called %d times, want 5", len(seen))
	}
}

func TestTracker_InvalidTransitions(t *testing.T) {
	tests := []struct {
		from, to Step
	}{
		{StepIdle, StepIdle},
		{StepExtracting, StepNormalizing},
		{StepExtracting, StepSynthesizing},
		{StepUploading, StepSynthesizing},
		{StepUploading, StepExtracting},
		{StepNormalizing, StepUploading},
		{StepSynthesizing, StepExtracting},
		{StepSynthesizing, StepSynthesizing},
	}

	for _, tt := range tests {
		tr := NewTracker(nil)
		if tt.from != StepIdle {
			tr.Transition(tt.from)
		}
		if tr.Transition(tt.to) {
			t.Errorf("transition %s → %s should be invalid", tt.from, tt.to)
		}
		if tr.Current() != tt.from {
			t.Errorf("step should remain %s after invalid transition, got %s", tt.from, tr.Current())
		}
	}
}

func TestTracker_DirectStartFromIdle(t *testing.T) {
	for _, s := range []Step{StepNormalizing, StepSynthesizing} {
		tr := NewTracker(nil)
		if !tr.Transition(s) {
			t.Errorf("Idle → %s should be valid", s)
		}
	}
}

func TestTracker_Reset(t *testing.T) {
	calls := 0
	tr := NewTracker(func(from, to Step) { calls++ })
	tr.Transition(StepExtracting)
	tr.Reset()
	if tr.Current() != StepIdle {
		t.Errorf("expected Idle after Reset, got %s", tr.Current())
	}
	tr.Reset()
	if calls != 2 {
		t.Errorf("onChange called %d times, want 2", calls)
	}
}

func TestStep_String(t *testing.T) {
	if StepSynthesizing.String() != "Synthesizing" {
		t.Errorf("got %s", StepSynthesizing.String())
	}
	if Step(99).String() != "Unknown" {
		t.Errorf("got %s", Step(99).String())
	}
}
