package droidshell

import "testing"

func TestStickFlags_UpdateFlags_RisingEdgeOnce(t *testing.T) {
	var s StickFlags
	b := DefaultAxisBindings()

	if n := s.UpdateFlags(b, []float32{0.5}, 0.9); n != 0 {
		t.Fatalf("0.5: expected no transition, got %d", n)
	}
	if n := s.UpdateFlags(b, []float32{0.95}, 0.9); n != 1 {
		t.Fatalf("0.95: expected one transition, got %d", n)
	}
	if !s.A.Get(DirRight) {
		t.Fatalf("expected A right set")
	}
	if n := s.UpdateFlags(b, []float32{0.92}, 0.9); n != 0 {
		t.Errorf("0.92: expected no transition, got %d", n)
	}
}

func TestStickFlags_UpdateFlags_EqualityHolds(t *testing.T) {
	var s StickFlags
	b := DefaultAxisBindings()

	s.UpdateFlags(b, []float32{-0.95}, 0.9)
	if !s.A.Get(DirLeft) {
		t.Fatalf("expected A left set")
	}

	// Exactly on the negative threshold nothing changes.
	if n := s.UpdateFlags(b, []float32{-0.9}, 0.9); n != 0 {
		t.Errorf("expected no transition at -0.9, got %d", n)
	}
	if !s.A.Get(DirLeft) {
		t.Errorf("left must stay set at the threshold")
	}

	if n := s.UpdateFlags(b, []float32{0}, 0.9); n != 1 {
		t.Errorf("expected release transition, got %d", n)
	}
}

func TestStickFlags_UpdateFlags_SkipsMissingAxes(t *testing.T) {
	var s StickFlags
	// Only two axes sampled: the right-stick bindings (3, 4) are skipped.
	n := s.UpdateFlags(DefaultAxisBindings(), []float32{1, 1}, 0.9)
	if n != 2 {
		t.Fatalf("expected 2 transitions, got %d", n)
	}
	if s.B.Snapshot() != [4]bool{} {
		t.Errorf("B must be untouched, got %v", s.B.Snapshot())
	}
	if s.A.Snapshot() != [4]bool{true, false, true, false} {
		t.Errorf("unexpected A %v", s.A.Snapshot())
	}
}

func TestStickFlags_CustomBinding(t *testing.T) {
	var s StickFlags
	// Vertical axis on group B with inverted directions.
	b := []AxisBinding{{AxisIndex: 0, Group: StickB, Positive: DirUp, Negative: DirDown}}

	s.UpdateFlags(b, []float32{1}, 0.9)
	if !s.B.Get(DirUp) || s.A.Get(DirRight) {
		t.Errorf("expected only B up, got A=%v B=%v", s.A.Snapshot(), s.B.Snapshot())
	}
}

func TestDirectionFlags_OutOfRange(t *testing.T) {
	var d DirectionFlags
	if d.Set(7, true) {
		t.Errorf("out of range set must report no change")
	}
	if d.Get(-1) || d.Get(4) {
		t.Errorf("out of range get must be false")
	}
}

func TestAxisBinding_Validate(t *testing.T) {
	bad := []AxisBinding{
		{AxisIndex: -1, Group: StickA, Positive: 0, Negative: 1},
		{AxisIndex: 0, Group: "c", Positive: 0, Negative: 1},
		{AxisIndex: 0, Group: StickA, Positive: 4, Negative: 1},
		{AxisIndex: 0, Group: StickA, Positive: 2, Negative: 2},
	}
	for i, b := range bad {
		if err := b.validate(); err == nil {
			t.Errorf("binding %d: expected error", i)
		}
	}
	for _, b := range DefaultAxisBindings() {
		if err := b.validate(); err != nil {
			t.Errorf("default binding invalid: %v", err)
		}
	}
}
