package droidshell

import (
	"log/slog"
	"sync"
	"time"
)

// Normalizer defaults.
const (
	DefaultLongPressTimeout = 500 * time.Millisecond
	DefaultTrackballScale   = 100
)

// SoftKeyboard is the on-screen keyboard service.
type SoftKeyboard interface {
	ToggleKeyboard()
}

// NormalizerOptions configures a Normalizer. Out is required; every other
// field has a usable zero value.
type NormalizerOptions struct {
	Out Pusher

	// Pointer handles mouse-class touches. When nil and Mouse is set, a
	// MouseHelper pushing through the normalizer is used.
	Pointer    PointerEmulator
	Mouse      bool
	MouseGuard time.Duration

	Keyboard SoftKeyboard
	Decoder  CharacterDecoder

	Devices  *DeviceRegistry
	Sticks   *StickFlags
	Bindings []AxisBinding
	Deadzone float32

	LongPressTimeout time.Duration
	TrackballScale   float32
	Gesture          GestureOptions

	Logger *slog.Logger
}

// ============================================================================
// Input Normalizer
// ============================================================================
// Converts raw platform callbacks into engine events. Key, touch and
// trackball callbacks push synchronously; joystick motion only updates the
// shared stick flags read by the emulator.
//
// After SendQuit the normalizer is closed: QUIT is the last event it pushes,
// whichever goroutine tries to push afterwards.
// ============================================================================

// Normalizer implements the platform input callbacks.
type Normalizer struct {
	out      Pusher
	pointer  PointerEmulator
	keyboard SoftKeyboard
	decoder  CharacterDecoder
	devices  *DeviceRegistry
	sticks   *StickFlags
	bindings []AxisBinding
	deadzone float32

	longPress time.Duration
	ballScale float32
	gestures  *GestureRecognizer
	logger    *slog.Logger

	gate   sync.RWMutex
	closed bool

	menuMu      sync.Mutex
	menuTimer   *time.Timer
	menuPending bool
	menuGen     uint64
}

// NewNormalizer creates a normalizer. It panics if opts.Out is nil.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	if opts.Out == nil {
		panic("droidshell: NewNormalizer with nil Out")
	}
	n := &Normalizer{
		out:       opts.Out,
		pointer:   opts.Pointer,
		keyboard:  opts.Keyboard,
		decoder:   opts.Decoder,
		devices:   opts.Devices,
		sticks:    opts.Sticks,
		bindings:  opts.Bindings,
		deadzone:  opts.Deadzone,
		longPress: opts.LongPressTimeout,
		ballScale: opts.TrackballScale,
		logger:    orDiscard(opts.Logger),
	}
	if n.decoder == nil {
		n.decoder = DefaultCharacterDecoder
	}
	if n.devices == nil {
		n.devices = NewDeviceRegistry(n.logger)
	}
	if n.sticks == nil {
		n.sticks = &StickFlags{}
	}
	if n.bindings == nil {
		n.bindings = DefaultAxisBindings()
	}
	if n.deadzone <= 0 {
		n.deadzone = DefaultDeadzone
	}
	if n.longPress <= 0 {
		n.longPress = DefaultLongPressTimeout
	}
	if n.ballScale == 0 {
		n.ballScale = DefaultTrackballScale
	}
	if n.pointer == nil && opts.Mouse {
		n.pointer = NewMouseHelper(PusherFunc(n.push), opts.MouseGuard, n.logger)
	}
	n.gestures = NewGestureRecognizer(n, opts.Gesture)

	// A vanished stick must not keep auto-repeating.
	n.devices.mu.Lock()
	n.devices.onRemove = func(int) { n.sticks.Release() }
	n.devices.mu.Unlock()

	return n
}

// Sticks returns the flag vectors written by OnGenericMotion.
func (n *Normalizer) Sticks() *StickFlags { return n.sticks }

// Devices returns the joystick device registry.
func (n *Normalizer) Devices() *DeviceRegistry { return n.devices }

func (n *Normalizer) push(ev Event) {
	n.gate.RLock()
	defer n.gate.RUnlock()
	if n.closed {
		n.logger.Debug("event dropped after quit", "event", ev)
		return
	}
	n.out.Push(ev)
}

// SendQuit pushes QUIT and closes the normalizer. Later calls do nothing.
func (n *Normalizer) SendQuit() {
	n.menuMu.Lock()
	n.cancelMenuLocked()
	n.menuMu.Unlock()

	n.gate.Lock()
	defer n.gate.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	n.out.Push(NewEvent(KindQuit))
	n.logger.Info("quit event sent")
}

// Closed reports whether SendQuit has been called.
func (n *Normalizer) Closed() bool {
	n.gate.RLock()
	defer n.gate.RUnlock()
	return n.closed
}

// GenerateKey synthesizes a bare key press or release and feeds it through
// OnKey, as if the platform had delivered it.
func (n *Normalizer) GenerateKey(code, action int) bool {
	n.logger.Debug("generated key", "code", code, "action", action)
	ev := KeyEvent{Code: code, Action: action}
	if code == KeyCodeSpace {
		ev.UnicodeChar = ' '
	}
	return n.OnKey(ev)
}

// OnKey handles a key callback and reports whether it was consumed.
func (n *Normalizer) OnKey(ev KeyEvent) bool {
	n.logger.Debug("key", "code", ev.Code, "action", ev.Action, "repeat", ev.RepeatCount)
	action := ev.Action

	switch ev.Code {
	case KeyCodeHover:
		return false
	case KeyCodeButton1:
		return n.GenerateKey(KeyCodeSpace, action)
	case KeyCodeButton2:
		n.push(NewEvent(KindDPad, int32(action), KeyCodeDPadCenter, ev.Elapsed(), int32(ev.RepeatCount)))
		return true
	case KeyCodeBack:
		// The down edge also arrives for a right click, so only the release
		// counts, and not even that while the click is settling.
		if action != KeyActionUp {
			return true
		}
		if n.pointer != nil && n.pointer.RightButtonGuard() {
			n.logger.Debug("back suppressed by right button guard")
			return true
		}
	}

	if ev.System {
		return n.onSystemKey(ev)
	}

	if action == KeyActionMultiple && ev.Code == KeyCodeUnknown {
		decoded := n.decoder.Decode(ev.DeviceID, ev.Characters)
		if decoded == nil {
			n.logger.Debug("undecodable character batch", "characters", ev.Characters)
			return true
		}
		for _, k := range decoded {
			n.push(NewEvent(KindKey, int32(k.Action), int32(k.Code),
				int32(k.UnicodeChar&CombiningAccentMask), int32(k.MetaState), int32(k.RepeatCount)))
		}
		return true
	}

	switch {
	case isDPadKey(ev.Code):
		n.push(NewEvent(KindDPad, int32(action), int32(ev.Code), ev.Elapsed(), int32(ev.RepeatCount)))
	case isGamepadKey(ev.Code):
		n.push(NewEvent(KindGamepad, int32(action), int32(ev.Code), ev.Elapsed(), int32(ev.RepeatCount)))
	default:
		n.push(NewEvent(KindKey, int32(action), int32(ev.Code),
			int32(ev.UnicodeChar&CombiningAccentMask), int32(ev.MetaState), int32(ev.RepeatCount)))
	}
	return true
}

func (n *Normalizer) onSystemKey(ev KeyEvent) bool {
	if !isAllowedSystemKey(ev.Code) {
		return false
	}
	if ev.RepeatCount > 0 {
		return false
	}
	if ev.Code == KeyCodeMenu && n.menuSwallows(ev.Action) {
		return true
	}
	n.push(NewEvent(KindSysKey, int32(ev.Action), int32(ev.Code)))
	return true
}

// menuSwallows runs the MENU long-press detector. A press arms the timer;
// if it fires before the release the keyboard is toggled and the release is
// swallowed, otherwise the release goes through.
func (n *Normalizer) menuSwallows(action int) bool {
	n.menuMu.Lock()
	defer n.menuMu.Unlock()

	fired := !n.menuPending
	n.cancelMenuLocked()

	if action == KeyActionDown {
		n.armMenuLocked()
		return true
	}
	return fired || action != KeyActionUp
}

func (n *Normalizer) armMenuLocked() {
	n.menuGen++
	gen := n.menuGen
	n.menuPending = true
	n.menuTimer = time.AfterFunc(n.longPress, func() {
		n.menuMu.Lock()
		if gen != n.menuGen || !n.menuPending {
			n.menuMu.Unlock()
			return
		}
		n.menuPending = false
		n.menuMu.Unlock()

		n.logger.Debug("menu long press")
		if n.keyboard != nil {
			n.keyboard.ToggleKeyboard()
		}
	})
}

func (n *Normalizer) cancelMenuLocked() {
	if n.menuTimer != nil {
		n.menuTimer.Stop()
		n.menuTimer = nil
	}
	n.menuPending = false
	n.menuGen++
}

// OnTouch handles a touch callback.
func (n *Normalizer) OnTouch(ev MotionEvent) bool {
	if n.pointer != nil && n.pointer.IsMouse(ev) {
		return n.pointer.OnMouseEvent(ev)
	}

	if pointer := ev.PointerIndex(); pointer > 0 {
		n.push(NewEvent(KindMulti, int32(pointer), int32(ev.ActionMasked()), int32(ev.X), int32(ev.Y)))
		return true
	}

	return n.gestures.OnTouchEvent(ev)
}

// OnTrackball pushes BALL with the relative motion scaled by the device
// precision.
func (n *Normalizer) OnTrackball(ev MotionEvent) bool {
	n.push(NewEvent(KindBall, int32(ev.Action),
		int32(ev.X*ev.XPrecision*n.ballScale),
		int32(ev.Y*ev.YPrecision*n.ballScale)))
	return true
}

// OnGenericMotion records joystick axes and updates the stick flags. It
// never pushes an event.
func (n *Normalizer) OnGenericMotion(ev MotionEvent) bool {
	if ev.Source&SourceClassJoystick == 0 || ev.Action != MotionActionMove {
		return true
	}

	st, ok := n.devices.Get(ev.DeviceID)
	if !ok {
		if ev.Device == nil {
			n.logger.Debug("joystick motion without device", "device_id", ev.DeviceID)
			return true
		}
		st = n.devices.LoadOrCreate(ev.Device)
	}

	n.devices.mu.Lock()
	st.Record(ev)
	values := st.Snapshot()
	n.devices.mu.Unlock()

	if changed := n.sticks.UpdateFlags(n.bindings, values, n.deadzone); changed > 0 {
		n.logger.Debug("stick flags changed",
			"device_id", ev.DeviceID, "a", n.sticks.A.Snapshot(), "b", n.sticks.B.Snapshot())
	}
	return true
}

// OnDown implements GestureListener.
func (n *Normalizer) OnDown(ev MotionEvent) bool {
	n.push(NewEvent(KindDown, int32(ev.X), int32(ev.Y)))
	return true
}

// OnSingleTapUp implements GestureListener.
func (n *Normalizer) OnSingleTapUp(ev MotionEvent) bool {
	n.push(NewEvent(KindTap, int32(ev.X), int32(ev.Y), ev.Elapsed()))
	return true
}

// OnScroll implements GestureListener.
func (n *Normalizer) OnScroll(down, move MotionEvent, _, _ float32) bool {
	n.push(NewEvent(KindScroll, int32(down.X), int32(down.Y), int32(move.X), int32(move.Y)))
	return true
}

// OnFling implements GestureListener. Flings are not forwarded.
func (n *Normalizer) OnFling(_, _ MotionEvent, _, _ float32) bool {
	return true
}

// OnDoubleTapEvent implements GestureListener.
func (n *Normalizer) OnDoubleTapEvent(ev MotionEvent) bool {
	n.push(NewEvent(KindDoubleTap, int32(ev.X), int32(ev.Y), int32(ev.Action)))
	return true
}
