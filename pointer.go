package droidshell

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultRightButtonGuard is how long after a right-button release the
// platform may still deliver the BACK key it synthesizes for the click.
const DefaultRightButtonGuard = 250 * time.Millisecond

// PointerEmulator handles touch callbacks that come from a real pointing
// device rather than a finger.
type PointerEmulator interface {
	IsMouse(ev MotionEvent) bool
	OnMouseEvent(ev MotionEvent) bool

	// RightButtonGuard reports whether a right click is in progress or has
	// just finished, in which case the platform's BACK key must be ignored.
	RightButtonGuard() bool
}

// MouseHelper turns mouse motion and button state into pointer events.
type MouseHelper struct {
	out    Pusher
	guard  time.Duration
	logger *slog.Logger

	// now is swapped in tests.
	now func() time.Time

	mu          sync.Mutex
	buttons     int
	rmbHeld     bool
	rmbReleased time.Time
}

// NewMouseHelper creates a helper pushing to out. A zero guard uses
// DefaultRightButtonGuard.
func NewMouseHelper(out Pusher, guard time.Duration, logger *slog.Logger) *MouseHelper {
	if guard <= 0 {
		guard = DefaultRightButtonGuard
	}
	return &MouseHelper{
		out:    out,
		guard:  guard,
		logger: orDiscard(logger),
		now:    time.Now,
	}
}

// IsMouse reports whether ev comes from a mouse-class source or carries a
// pressed button.
func (m *MouseHelper) IsMouse(ev MotionEvent) bool {
	return ev.Source&SourceMouse == SourceMouse || ev.ButtonState != 0
}

var mouseButtons = []struct {
	mask int
	down Kind
	up   Kind
}{
	{ButtonPrimary, KindLMBDown, KindLMBUp},
	{ButtonSecondary, KindRMBDown, KindRMBUp},
	{ButtonTertiary, KindMMBDown, KindMMBUp},
}

// OnMouseEvent pushes a MOUSE_MOVE for the position followed by one button
// event per changed button.
func (m *MouseHelper) OnMouseEvent(ev MotionEvent) bool {
	x, y := int32(ev.X), int32(ev.Y)

	m.mu.Lock()
	prev := m.buttons
	m.buttons = ev.ButtonState
	changed := prev ^ ev.ButtonState
	if changed&ButtonSecondary != 0 {
		if ev.ButtonState&ButtonSecondary != 0 {
			m.rmbHeld = true
		} else {
			m.rmbHeld = false
			m.rmbReleased = m.now()
		}
	}
	m.mu.Unlock()

	m.out.Push(NewEvent(KindMouseMove, x, y))

	for _, b := range mouseButtons {
		if changed&b.mask == 0 {
			continue
		}
		kind := b.up
		if ev.ButtonState&b.mask != 0 {
			kind = b.down
		}
		m.logger.Debug("mouse button", "kind", kind, "x", x, "y", y)
		m.out.Push(NewEvent(kind, x, y))
	}
	return true
}

// RightButtonGuard implements PointerEmulator.
func (m *MouseHelper) RightButtonGuard() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rmbHeld {
		return true
	}
	if m.rmbReleased.IsZero() {
		return false
	}
	return m.now().Sub(m.rmbReleased) < m.guard
}
