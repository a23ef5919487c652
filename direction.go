package droidshell

import (
	"fmt"
	"sync/atomic"
)

// Direction slots in a DirectionFlags vector.
const (
	DirRight = 0 // +X
	DirLeft  = 1 // -X
	DirDown  = 2 // +Y
	DirUp    = 3 // -Y

	numDirections = 4
)

// DefaultDeadzone is the analog magnitude a stick must cross to flip a flag.
const DefaultDeadzone = 0.9

// StickGroup names one of the two logical sticks.
type StickGroup string

const (
	StickA StickGroup = "a"
	StickB StickGroup = "b"
)

// DirectionFlags records which cardinal directions an analog stick currently
// signals. Written by the input goroutine, read by the stick pollers.
type DirectionFlags struct {
	flags [numDirections]atomic.Bool
}

// Get reports whether direction i is active. Out of range indexes are false.
func (d *DirectionFlags) Get(i int) bool {
	if i < 0 || i >= numDirections {
		return false
	}
	return d.flags[i].Load()
}

// Snapshot returns all four flags.
func (d *DirectionFlags) Snapshot() [4]bool {
	var out [4]bool
	for i := range out {
		out[i] = d.flags[i].Load()
	}
	return out
}

// Set forces direction i to v and reports whether it changed.
func (d *DirectionFlags) Set(i int, v bool) bool {
	if i < 0 || i >= numDirections {
		return false
	}
	return d.flags[i].CompareAndSwap(!v, v)
}

// Release clears every direction.
func (d *DirectionFlags) Release() {
	for i := range d.flags {
		d.flags[i].Store(false)
	}
}

// AxisBinding maps one joystick axis index onto a pair of direction slots.
// The index is the position of the axis among the device's joystick-class
// motion ranges, not the platform axis id.
type AxisBinding struct {
	AxisIndex int        `yaml:"axis_index"`
	Group     StickGroup `yaml:"group"`
	Positive  int        `yaml:"positive"`
	Negative  int        `yaml:"negative"`
}

// DefaultAxisBindings is left stick (0/1) to group A and right stick (3/4)
// to group B; axis 2 is a trigger on common pads.
func DefaultAxisBindings() []AxisBinding {
	return []AxisBinding{
		{AxisIndex: 0, Group: StickA, Positive: DirRight, Negative: DirLeft},
		{AxisIndex: 1, Group: StickA, Positive: DirDown, Negative: DirUp},
		{AxisIndex: 3, Group: StickB, Positive: DirRight, Negative: DirLeft},
		{AxisIndex: 4, Group: StickB, Positive: DirDown, Negative: DirUp},
	}
}

func (b AxisBinding) validate() error {
	if b.AxisIndex < 0 {
		return fmt.Errorf("axis_index must be >= 0, got %d", b.AxisIndex)
	}
	if b.Group != StickA && b.Group != StickB {
		return fmt.Errorf("group must be %q or %q, got %q", StickA, StickB, b.Group)
	}
	if b.Positive < 0 || b.Positive >= numDirections {
		return fmt.Errorf("positive direction out of range: %d", b.Positive)
	}
	if b.Negative < 0 || b.Negative >= numDirections {
		return fmt.Errorf("negative direction out of range: %d", b.Negative)
	}
	if b.Positive == b.Negative {
		return fmt.Errorf("positive and negative direction must differ (both %d)", b.Positive)
	}
	return nil
}

// StickFlags holds the direction vectors of both logical sticks.
type StickFlags struct {
	A DirectionFlags
	B DirectionFlags
}

// Group returns the vector for g, or nil for an unknown group.
func (s *StickFlags) Group(g StickGroup) *DirectionFlags {
	switch g {
	case StickA:
		return &s.A
	case StickB:
		return &s.B
	}
	return nil
}

// Release clears both vectors.
func (s *StickFlags) Release() {
	s.A.Release()
	s.B.Release()
}

// updateEdge applies the deadzone rule for one axis value: the positive slot
// is set above +t and cleared below +t, the negative slot is set below -t and
// cleared above -t. A value exactly on the threshold changes nothing.
// Returns the number of flags that changed.
func updateEdge(flags *DirectionFlags, b AxisBinding, v float32, t float32) int {
	n := 0
	if v > t {
		if flags.Set(b.Positive, true) {
			n++
		}
	} else if v < t {
		if flags.Set(b.Positive, false) {
			n++
		}
	}
	if v < -t {
		if flags.Set(b.Negative, true) {
			n++
		}
	} else if v > -t {
		if flags.Set(b.Negative, false) {
			n++
		}
	}
	return n
}

// UpdateFlags applies every binding against the sampled axis values and
// returns the number of transitions. Bindings whose axis index is beyond the
// sample are skipped.
func (s *StickFlags) UpdateFlags(bindings []AxisBinding, values []float32, threshold float32) int {
	n := 0
	for _, b := range bindings {
		if b.AxisIndex >= len(values) {
			continue
		}
		flags := s.Group(b.Group)
		if flags == nil {
			continue
		}
		n += updateEdge(flags, b, values[b.AxisIndex], threshold)
	}
	return n
}
