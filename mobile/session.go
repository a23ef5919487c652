// Package mobile runs the shell inside a golang.org/x/mobile app: lifecycle
// stage crossings drive the shell, touch and key events are translated into
// platform input callbacks for the normalizer.
package mobile

import (
	"log/slog"
	"sort"
	"time"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/event/touch"

	"droidshell"
)

// Lifecycle is the part of the shell driven by stage crossings.
type Lifecycle interface {
	Create() error
	Resume() error
	Pause() error
	Destroy() error
}

// Input receives the translated callbacks.
type Input interface {
	OnKey(ev droidshell.KeyEvent) bool
	OnTouch(ev droidshell.MotionEvent) bool
}

// touchDeviceID is reported for every touch; x/mobile exposes a single
// screen.
const touchDeviceID = 0

// Session translates the event stream of one app into shell calls. It is
// used from the app's event goroutine only.
type Session struct {
	shell  Lifecycle
	input  Input
	logger *slog.Logger
	now    func() time.Time

	size    size.Event
	created bool

	// pointer index per active touch sequence
	pointers  map[touch.Sequence]int
	touchDown time.Time

	keyDown map[key.Code]time.Time
	repeats map[key.Code]int
}

// NewSession creates a session for shell, delivering input to in.
func NewSession(shell Lifecycle, in Input, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		shell:    shell,
		input:    in,
		logger:   logger.With("component", "mobile"),
		now:      time.Now,
		pointers: make(map[touch.Sequence]int),
		keyDown:  make(map[key.Code]time.Time),
		repeats:  make(map[key.Code]int),
	}
}

// Size returns the last reported window size.
func (s *Session) Size() size.Event { return s.size }

// Handle processes one app event. It reports true once the app has left
// the alive stage and the event loop should end.
func (s *Session) Handle(e any) (done bool) {
	switch e := e.(type) {
	case lifecycle.Event:
		return s.onLifecycle(e)
	case size.Event:
		s.size = e
		s.logger.Debug("window size", "width", e.WidthPx, "height", e.HeightPx)
	case touch.Event:
		s.onTouch(e)
	case key.Event:
		s.onKey(e)
	}
	return false
}

// ============================================================================
// Lifecycle
// ============================================================================
// alive on  -> Create
// focus on  -> Resume
// focus off -> Pause
// alive off -> Destroy
//
// One event may cross several stages (dead straight to focused on a cold
// start); the crossings are applied in the order above.
// ============================================================================

func (s *Session) onLifecycle(e lifecycle.Event) bool {
	s.logger.Debug("lifecycle", "from", e.From, "to", e.To)

	if e.Crosses(lifecycle.StageAlive) == lifecycle.CrossOn {
		if err := s.shell.Create(); err != nil {
			s.logger.Error("create failed", "error", err)
		} else {
			s.created = true
		}
	}

	switch e.Crosses(lifecycle.StageFocused) {
	case lifecycle.CrossOn:
		if s.created {
			if err := s.shell.Resume(); err != nil {
				s.logger.Warn("resume failed", "error", err)
			}
		}
	case lifecycle.CrossOff:
		if s.created {
			if err := s.shell.Pause(); err != nil {
				s.logger.Warn("pause failed", "error", err)
			}
		}
	}

	if e.Crosses(lifecycle.StageAlive) == lifecycle.CrossOff {
		if err := s.shell.Destroy(); err != nil {
			s.logger.Warn("destroy", "error", err)
		}
		s.created = false
		return true
	}
	return false
}

// ============================================================================
// Touch
// ============================================================================

// freePointer returns the lowest pointer index not held by a sequence.
func (s *Session) freePointer() int {
	used := make([]int, 0, len(s.pointers))
	for _, idx := range s.pointers {
		used = append(used, idx)
	}
	sort.Ints(used)
	free := 0
	for _, idx := range used {
		if idx != free {
			break
		}
		free++
	}
	return free
}

func (s *Session) onTouch(e touch.Event) {
	now := s.now()
	ev := droidshell.MotionEvent{
		DeviceID:   touchDeviceID,
		Source:     droidshell.SourceTouchscreen,
		X:          e.X,
		Y:          e.Y,
		XPrecision: 1,
		YPrecision: 1,
		EventTime:  now,
	}

	switch e.Type {
	case touch.TypeBegin:
		idx := s.freePointer()
		s.pointers[e.Sequence] = idx
		if len(s.pointers) == 1 {
			s.touchDown = now
			ev.Action = droidshell.MotionActionDown
		} else {
			ev.Action = droidshell.MotionActionPointerDown | idx<<droidshell.MotionPointerIndexShift
		}

	case touch.TypeMove:
		idx, ok := s.pointers[e.Sequence]
		if !ok || idx != 0 {
			// Secondary pointers only report their down and up edges.
			return
		}
		ev.Action = droidshell.MotionActionMove

	case touch.TypeEnd:
		idx, ok := s.pointers[e.Sequence]
		if !ok {
			return
		}
		delete(s.pointers, e.Sequence)
		if len(s.pointers) == 0 {
			ev.Action = droidshell.MotionActionUp
		} else {
			ev.Action = droidshell.MotionActionPointerUp | idx<<droidshell.MotionPointerIndexShift
		}

	default:
		return
	}

	ev.DownTime = s.touchDown
	s.input.OnTouch(ev)
}

// ============================================================================
// Keys
// ============================================================================

type mappedKey struct {
	code   int
	system bool
}

var namedKeys = map[key.Code]mappedKey{
	key.CodeReturnEnter:     {droidshell.KeyCodeEnter, false},
	key.CodeEscape:          {droidshell.KeyCodeBack, true},
	key.CodeDeleteBackspace: {droidshell.KeyCodeDel, false},
	key.CodeTab:             {droidshell.KeyCodeTab, false},
	key.CodeSpacebar:        {droidshell.KeyCodeSpace, false},
	key.CodeHyphenMinus:     {droidshell.KeyCodeMinus, false},
	key.CodeComma:           {droidshell.KeyCodeComma, false},
	key.CodeFullStop:        {droidshell.KeyCodePeriod, false},
	key.CodeRightArrow:      {droidshell.KeyCodeDPadRight, false},
	key.CodeLeftArrow:       {droidshell.KeyCodeDPadLeft, false},
	key.CodeDownArrow:       {droidshell.KeyCodeDPadDown, false},
	key.CodeUpArrow:         {droidshell.KeyCodeDPadUp, false},
	key.CodeVolumeUp:        {droidshell.KeyCodeVolumeUp, true},
	key.CodeVolumeDown:      {droidshell.KeyCodeVolumeDown, true},
}

// platformKey maps an x/mobile key code onto a platform key code.
func platformKey(c key.Code) (mappedKey, bool) {
	switch {
	case c >= key.CodeA && c <= key.CodeZ:
		return mappedKey{code: droidshell.KeyCodeA + int(c-key.CodeA)}, true
	case c >= key.Code1 && c <= key.Code9:
		return mappedKey{code: droidshell.KeyCode0 + 1 + int(c-key.Code1)}, true
	case c == key.Code0:
		return mappedKey{code: droidshell.KeyCode0}, true
	case c >= key.CodeF1 && c <= key.CodeF12:
		return mappedKey{code: droidshell.KeyCodeF1 + int(c-key.CodeF1)}, true
	}
	m, ok := namedKeys[c]
	return m, ok
}

func metaState(m key.Modifiers) int {
	meta := 0
	if m&key.ModShift != 0 {
		meta |= droidshell.MetaShiftOn
	}
	if m&key.ModAlt != 0 {
		meta |= droidshell.MetaAltOn
	}
	if m&key.ModControl != 0 {
		meta |= droidshell.MetaCtrlOn
	}
	if m&key.ModMeta != 0 {
		meta |= droidshell.MetaMetaOn
	}
	return meta
}

func (s *Session) onKey(e key.Event) {
	m, ok := platformKey(e.Code)
	if !ok {
		if e.Rune <= 0 || e.Direction == key.DirRelease {
			return
		}
		// Characters without a key code arrive as an IME batch.
		s.input.OnKey(droidshell.KeyEvent{
			Code:       droidshell.KeyCodeUnknown,
			Action:     droidshell.KeyActionMultiple,
			EventTime:  s.now(),
			Characters: string(e.Rune),
		})
		return
	}

	now := s.now()
	ev := droidshell.KeyEvent{
		Code:      m.code,
		EventTime: now,
		MetaState: metaState(e.Modifiers),
		System:    m.system,
	}
	if e.Rune > 0 {
		ev.UnicodeChar = int(e.Rune)
	}

	switch e.Direction {
	case key.DirPress:
		if down, held := s.keyDown[e.Code]; held {
			s.repeats[e.Code]++
			ev.DownTime = down
			ev.RepeatCount = s.repeats[e.Code]
		} else {
			s.keyDown[e.Code] = now
			s.repeats[e.Code] = 0
			ev.DownTime = now
		}
		ev.Action = droidshell.KeyActionDown
		s.input.OnKey(ev)

	case key.DirRelease:
		ev.DownTime = now
		if down, held := s.keyDown[e.Code]; held {
			ev.DownTime = down
		}
		delete(s.keyDown, e.Code)
		delete(s.repeats, e.Code)
		ev.Action = droidshell.KeyActionUp
		s.input.OnKey(ev)

	default:
		// No direction: a complete key stroke.
		ev.DownTime = now
		ev.Action = droidshell.KeyActionDown
		s.input.OnKey(ev)
		ev.Action = droidshell.KeyActionUp
		s.input.OnKey(ev)
	}
}
