package observability

import "testing"

func TestStageWindowSnapshot(t *testing.T) {
	w := NewStageWindow(8)
	w.Observe(StageGenerate, 500)
	w.Observe(StageGenerate, 700)
	w.Observe(StageGenerate, 900)

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != StageGenerate {
		t.Fatalf("Stage = %q, want %q", s.Stage, StageGenerate)
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
}

func TestStageWindowWrapsAround(t *testing.T) {
	w := NewStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe(StageTurn, float64(i))
	}
	snap := w.Snapshot()
	if len(snap.Stages) != 1 || snap.Stages[0].Samples != 4 {
		t.Fatalf("expected full 4-sample buffer, got %+v", snap.Stages)
	}
	if snap.Stages[0].LastMS != 9 {
		t.Fatalf("LastMS = %.2f, want 9", snap.Stages[0].LastMS)
	}
}

func TestStageWindowIgnoresInvalidSamples(t *testing.T) {
	w := NewStageWindow(4)
	w.Observe("", 5)
	w.Observe(StageTurn, -1)
	if snap := w.Snapshot(); len(snap.Stages) != 0 {
		t.Fatalf("invalid samples recorded: %+v", snap.Stages)
	}
}
