package droidshell

import (
	"sync"
	"time"
)

// Gesture defaults, in pixels and milliseconds as the platform reports them.
const (
	DefaultTapTimeout       = 500 * time.Millisecond
	DefaultDoubleTapTimeout = 300 * time.Millisecond
	DefaultDoubleTapMinTime = 40 * time.Millisecond
	DefaultTouchSlop        = 8
	DefaultDoubleTapSlop    = 100
	DefaultMinFlingVelocity = 50
)

// GestureListener receives recognized single-pointer gestures.
type GestureListener interface {
	OnDown(ev MotionEvent) bool
	OnSingleTapUp(ev MotionEvent) bool
	OnScroll(down, move MotionEvent, dx, dy float32) bool
	OnFling(down, up MotionEvent, vx, vy float32) bool

	// OnDoubleTapEvent is called for the second DOWN of a double tap and
	// for every MOVE and UP that follows it within the same gesture.
	OnDoubleTapEvent(ev MotionEvent) bool
}

// GestureOptions tunes the recognizer.
type GestureOptions struct {
	TapTimeout       time.Duration
	DoubleTapTimeout time.Duration
	DoubleTapMinTime time.Duration
	TouchSlop        float32
	DoubleTapSlop    float32
	MinFlingVelocity float32 // pixels per second
}

// DefaultGestureOptions returns the stock platform thresholds.
func DefaultGestureOptions() GestureOptions {
	return GestureOptions{
		TapTimeout:       DefaultTapTimeout,
		DoubleTapTimeout: DefaultDoubleTapTimeout,
		DoubleTapMinTime: DefaultDoubleTapMinTime,
		TouchSlop:        DefaultTouchSlop,
		DoubleTapSlop:    DefaultDoubleTapSlop,
		MinFlingVelocity: DefaultMinFlingVelocity,
	}
}

func (o GestureOptions) withDefaults() GestureOptions {
	d := DefaultGestureOptions()
	if o.TapTimeout <= 0 {
		o.TapTimeout = d.TapTimeout
	}
	if o.DoubleTapTimeout <= 0 {
		o.DoubleTapTimeout = d.DoubleTapTimeout
	}
	if o.DoubleTapMinTime <= 0 {
		o.DoubleTapMinTime = d.DoubleTapMinTime
	}
	if o.TouchSlop <= 0 {
		o.TouchSlop = d.TouchSlop
	}
	if o.DoubleTapSlop <= 0 {
		o.DoubleTapSlop = d.DoubleTapSlop
	}
	if o.MinFlingVelocity <= 0 {
		o.MinFlingVelocity = d.MinFlingVelocity
	}
	return o
}

// GestureRecognizer is a single-pointer tap/double-tap/scroll/fling state
// machine. Long press is not recognized.
type GestureRecognizer struct {
	listener GestureListener
	opts     GestureOptions

	mu sync.Mutex

	down      MotionEvent
	hasDown   bool
	last      MotionEvent
	prevUp    MotionEvent
	prevTap   bool // the previous gesture ended as a tap
	inTap     bool // pointer has not left the touch-slop region
	doubleTap bool
}

// NewGestureRecognizer creates a recognizer reporting to l.
func NewGestureRecognizer(l GestureListener, opts GestureOptions) *GestureRecognizer {
	return &GestureRecognizer{
		listener: l,
		opts:     opts.withDefaults(),
	}
}

// OnTouchEvent feeds one single-pointer motion event and reports whether a
// listener consumed it.
func (g *GestureRecognizer) OnTouchEvent(ev MotionEvent) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch ev.ActionMasked() {
	case MotionActionDown:
		return g.onDown(ev)
	case MotionActionMove:
		return g.onMove(ev)
	case MotionActionUp:
		return g.onUp(ev)
	case MotionActionCancel:
		g.reset()
	}
	return false
}

func (g *GestureRecognizer) onDown(ev MotionEvent) bool {
	handled := false
	if g.isDoubleTap(ev) {
		g.doubleTap = true
		handled = g.listener.OnDoubleTapEvent(ev)
	}

	g.down = ev
	g.hasDown = true
	g.last = ev
	g.inTap = true

	if g.listener.OnDown(ev) {
		handled = true
	}
	return handled
}

func (g *GestureRecognizer) onMove(ev MotionEvent) bool {
	if !g.hasDown {
		return false
	}
	if g.doubleTap {
		g.last = ev
		return g.listener.OnDoubleTapEvent(ev)
	}

	dx := g.last.X - ev.X
	dy := g.last.Y - ev.Y
	handled := false

	if g.inTap {
		ox := ev.X - g.down.X
		oy := ev.Y - g.down.Y
		if ox*ox+oy*oy > g.opts.TouchSlop*g.opts.TouchSlop {
			handled = g.listener.OnScroll(g.down, ev, dx, dy)
			g.last = ev
			g.inTap = false
		}
		return handled
	}

	if abs32(dx) >= 1 || abs32(dy) >= 1 {
		handled = g.listener.OnScroll(g.down, ev, dx, dy)
		g.last = ev
	}
	return handled
}

func (g *GestureRecognizer) onUp(ev MotionEvent) bool {
	if !g.hasDown {
		return false
	}

	handled := false
	tapped := false
	switch {
	case g.doubleTap:
		handled = g.listener.OnDoubleTapEvent(ev)
	case g.inTap:
		if ev.EventTime.Sub(g.down.EventTime) <= g.opts.TapTimeout {
			handled = g.listener.OnSingleTapUp(ev)
			tapped = true
		}
	default:
		if vx, vy, ok := g.velocity(ev); ok {
			handled = g.listener.OnFling(g.down, ev, vx, vy)
		}
	}

	// The second tap of a double tap never starts a third.
	g.prevTap = tapped
	g.prevUp = ev
	g.hasDown = false
	g.doubleTap = false
	return handled
}

func (g *GestureRecognizer) isDoubleTap(second MotionEvent) bool {
	if !g.prevTap {
		return false
	}
	dt := second.EventTime.Sub(g.prevUp.EventTime)
	if dt < g.opts.DoubleTapMinTime || dt > g.opts.DoubleTapTimeout {
		return false
	}
	dx := second.X - g.down.X
	dy := second.Y - g.down.Y
	return dx*dx+dy*dy < g.opts.DoubleTapSlop*g.opts.DoubleTapSlop
}

// velocity is the speed of the last segment of the drag, in pixels per
// second. ok is false when the segment is too short or too slow to count.
func (g *GestureRecognizer) velocity(up MotionEvent) (vx, vy float32, ok bool) {
	dt := up.EventTime.Sub(g.last.EventTime).Seconds()
	if dt <= 0 {
		return 0, 0, false
	}
	vx = float32(float64(up.X-g.last.X) / dt)
	vy = float32(float64(up.Y-g.last.Y) / dt)
	limit := g.opts.MinFlingVelocity
	return vx, vy, abs32(vx) > limit || abs32(vy) > limit
}

func (g *GestureRecognizer) reset() {
	g.hasDown = false
	g.inTap = false
	g.doubleTap = false
	g.prevTap = false
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
