package droidshell

import "time"

// KeyEvent is a raw key callback as delivered by the platform.
type KeyEvent struct {
	DeviceID    int       `json:"device_id"`
	Code        int       `json:"code"`
	Action      int       `json:"action"`
	DownTime    time.Time `json:"down_time"`
	EventTime   time.Time `json:"event_time"`
	RepeatCount int       `json:"repeat_count"`
	MetaState   int       `json:"meta_state"`
	UnicodeChar int       `json:"unicode_char"`
	System      bool      `json:"system"`

	// Characters is set for an IME batch (action multiple, code unknown).
	Characters string `json:"characters,omitempty"`
}

// Elapsed returns how long the key has been held, in milliseconds.
func (e KeyEvent) Elapsed() int32 {
	if e.DownTime.IsZero() || e.EventTime.IsZero() {
		return 0
	}
	return int32(e.EventTime.Sub(e.DownTime) / time.Millisecond)
}

// MotionRange describes one axis reported by a device.
type MotionRange struct {
	Axis   int `json:"axis"`
	Source int `json:"source"`
}

// InputDevice is the descriptor of the device that produced an event.
type InputDevice struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Sources      int           `json:"sources"`
	MotionRanges []MotionRange `json:"motion_ranges,omitempty"`
}

// JoystickAxes returns the axis ids of the joystick-class ranges, in order.
func (d *InputDevice) JoystickAxes() []int {
	var axes []int
	for _, r := range d.MotionRanges {
		if r.Source&SourceClassJoystick != 0 {
			axes = append(axes, r.Axis)
		}
	}
	return axes
}

// MotionEvent is a raw touch, trackball or generic motion callback.
type MotionEvent struct {
	DeviceID int          `json:"device_id"`
	Device   *InputDevice `json:"device,omitempty"`

	Source      int       `json:"source"`
	Action      int       `json:"action"`
	X           float32   `json:"x"`
	Y           float32   `json:"y"`
	XPrecision  float32   `json:"x_precision"`
	YPrecision  float32   `json:"y_precision"`
	ButtonState int       `json:"button_state"`
	DownTime    time.Time `json:"down_time"`
	EventTime   time.Time `json:"event_time"`

	// Axes holds the current value per axis id.
	Axes map[int]float32 `json:"axes,omitempty"`

	// History holds batched samples older than the current one, oldest
	// first, each keyed by axis id.
	History []map[int]float32 `json:"history,omitempty"`
}

// ActionMasked returns the action without the pointer index.
func (e MotionEvent) ActionMasked() int {
	return e.Action & MotionActionMask
}

// PointerIndex returns the pointer index encoded in the action's upper byte.
func (e MotionEvent) PointerIndex() int {
	return (e.Action & MotionPointerIndexMask) >> MotionPointerIndexShift
}

// AxisValue returns the current value of axis, or 0 if it was not reported.
func (e MotionEvent) AxisValue(axis int) float32 {
	return e.Axes[axis]
}

// Elapsed returns the time since the gesture started, in milliseconds.
func (e MotionEvent) Elapsed() int32 {
	if e.DownTime.IsZero() || e.EventTime.IsZero() {
		return 0
	}
	return int32(e.EventTime.Sub(e.DownTime) / time.Millisecond)
}
