package main

import (
	"time"

	"droidshell"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

func (ev inputEvent) time() time.Time {
	return time.Unix(ev.Sec, ev.Usec*int64(time.Microsecond))
}

// Linux input event types
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02
	EV_ABS = 0x03

	SYN_REPORT = 0
)

// Key event values
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Linux key codes (subset)
const (
	KEY_ESC        = 1
	KEY_1          = 2
	KEY_9          = 10
	KEY_0          = 11
	KEY_MINUS      = 12
	KEY_BACKSPACE  = 14
	KEY_TAB        = 15
	KEY_ENTER      = 28
	KEY_LEFTCTRL   = 29
	KEY_LEFTSHIFT  = 42
	KEY_COMMA      = 51
	KEY_DOT        = 52
	KEY_RIGHTSHIFT = 54
	KEY_LEFTALT    = 56
	KEY_SPACE      = 57
	KEY_F1         = 59
	KEY_HOME       = 102
	KEY_UP         = 103
	KEY_LEFT       = 105
	KEY_RIGHT      = 106
	KEY_DOWN       = 108
	KEY_VOLUMEDOWN = 114
	KEY_VOLUMEUP   = 115
	KEY_MENU       = 139
	KEY_BACK       = 158
	KEY_CAMERA     = 212
	KEY_SEARCH     = 217

	BTN_LEFT   = 0x110
	BTN_RIGHT  = 0x111
	BTN_MIDDLE = 0x112

	BTN_SOUTH  = 0x130
	BTN_EAST   = 0x131
	BTN_C      = 0x132
	BTN_NORTH  = 0x133
	BTN_WEST   = 0x134
	BTN_Z      = 0x135
	BTN_TL     = 0x136
	BTN_TR     = 0x137
	BTN_TL2    = 0x138
	BTN_TR2    = 0x139
	BTN_SELECT = 0x13a
	BTN_START  = 0x13b
	BTN_MODE   = 0x13c
	BTN_THUMBL = 0x13d
	BTN_THUMBR = 0x13e

	BTN_DPAD_UP    = 0x220
	BTN_DPAD_DOWN  = 0x221
	BTN_DPAD_LEFT  = 0x222
	BTN_DPAD_RIGHT = 0x223
)

// Linux relative and absolute axes (subset)
const (
	REL_X = 0x00
	REL_Y = 0x01

	ABS_X     = 0x00
	ABS_Y     = 0x01
	ABS_Z     = 0x02
	ABS_RX    = 0x03
	ABS_RY    = 0x04
	ABS_RZ    = 0x05
	ABS_HAT0X = 0x10
	ABS_HAT0Y = 0x11
)

// mappedKey is the platform code for a Linux key. System keys go through
// the normalizer's system-key filter.
type mappedKey struct {
	code   int
	system bool
}

var linuxKeys = buildKeyMap()

func buildKeyMap() map[uint16]mappedKey {
	m := map[uint16]mappedKey{
		KEY_ESC:        {droidshell.KeyCodeBack, true},
		KEY_BACK:       {droidshell.KeyCodeBack, true},
		KEY_MENU:       {droidshell.KeyCodeMenu, true},
		KEY_SEARCH:     {droidshell.KeyCodeSearch, true},
		KEY_CAMERA:     {droidshell.KeyCodeCamera, true},
		KEY_HOME:       {droidshell.KeyCodeHome, true},
		KEY_VOLUMEUP:   {droidshell.KeyCodeVolumeUp, true},
		KEY_VOLUMEDOWN: {droidshell.KeyCodeVolumeDown, true},

		KEY_0:         {droidshell.KeyCode0, false},
		KEY_MINUS:     {droidshell.KeyCodeMinus, false},
		KEY_BACKSPACE: {droidshell.KeyCodeDel, false},
		KEY_TAB:       {droidshell.KeyCodeTab, false},
		KEY_ENTER:     {droidshell.KeyCodeEnter, false},
		KEY_COMMA:     {droidshell.KeyCodeComma, false},
		KEY_DOT:       {droidshell.KeyCodePeriod, false},
		KEY_SPACE:     {droidshell.KeyCodeSpace, false},
		KEY_F1:        {droidshell.KeyCodeF1, false},

		KEY_UP:         {droidshell.KeyCodeDPadUp, false},
		KEY_DOWN:       {droidshell.KeyCodeDPadDown, false},
		KEY_LEFT:       {droidshell.KeyCodeDPadLeft, false},
		KEY_RIGHT:      {droidshell.KeyCodeDPadRight, false},
		BTN_DPAD_UP:    {droidshell.KeyCodeDPadUp, false},
		BTN_DPAD_DOWN:  {droidshell.KeyCodeDPadDown, false},
		BTN_DPAD_LEFT:  {droidshell.KeyCodeDPadLeft, false},
		BTN_DPAD_RIGHT: {droidshell.KeyCodeDPadRight, false},

		BTN_SOUTH:  {droidshell.KeyCodeButtonA, false},
		BTN_EAST:   {droidshell.KeyCodeButtonB, false},
		BTN_C:      {droidshell.KeyCodeButtonC, false},
		BTN_NORTH:  {droidshell.KeyCodeButtonX, false},
		BTN_WEST:   {droidshell.KeyCodeButtonY, false},
		BTN_Z:      {droidshell.KeyCodeButtonZ, false},
		BTN_TL:     {droidshell.KeyCodeButtonL1, false},
		BTN_TR:     {droidshell.KeyCodeButtonR1, false},
		BTN_TL2:    {droidshell.KeyCodeButtonL2, false},
		BTN_TR2:    {droidshell.KeyCodeButtonR2, false},
		BTN_SELECT: {droidshell.KeyCodeButtonSelect, false},
		BTN_START:  {droidshell.KeyCodeButtonStart, false},
		BTN_MODE:   {droidshell.KeyCodeButtonMode, false},
		BTN_THUMBL: {droidshell.KeyCodeButtonThumbL, false},
		BTN_THUMBR: {droidshell.KeyCodeButtonThumbR, false},
	}

	// KEY_1..KEY_9 are contiguous, as are the letter rows.
	for i := uint16(0); i < KEY_9-KEY_1+1; i++ {
		m[KEY_1+i] = mappedKey{droidshell.KeyCode0 + 1 + int(i), false}
	}
	rows := []struct {
		first uint16
		keys  string
	}{
		{16, "qwertyuiop"},
		{30, "asdfghjkl"},
		{44, "zxcvbnm"},
	}
	for _, row := range rows {
		for i, r := range row.keys {
			m[row.first+uint16(i)] = mappedKey{droidshell.KeyCodeA + int(r-'a'), false}
		}
	}
	return m
}

// unicodeFor returns the character a platform key produces, or 0.
func unicodeFor(code, meta int) int {
	switch {
	case code >= droidshell.KeyCodeA && code <= droidshell.KeyCodeZ:
		base := 'a'
		if meta&droidshell.MetaShiftOn != 0 {
			base = 'A'
		}
		return int(base) + code - droidshell.KeyCodeA
	case code >= droidshell.KeyCode0 && code <= droidshell.KeyCode9:
		return '0' + code - droidshell.KeyCode0
	case code == droidshell.KeyCodeSpace:
		return ' '
	}
	return 0
}

var linuxMouseButtons = map[uint16]int{
	BTN_LEFT:   droidshell.ButtonPrimary,
	BTN_RIGHT:  droidshell.ButtonSecondary,
	BTN_MIDDLE: droidshell.ButtonTertiary,
}

// joystickRanges is what every evdev device advertises: the axis index of
// a stick binding is the position in this list.
var joystickRanges = []struct {
	abs  uint16
	axis int
}{
	{ABS_X, droidshell.AxisX},
	{ABS_Y, droidshell.AxisY},
	{ABS_Z, droidshell.AxisZ},
	{ABS_RX, droidshell.AxisRX},
	{ABS_RY, droidshell.AxisRY},
	{ABS_RZ, droidshell.AxisRZ},
	{ABS_HAT0X, droidshell.AxisHatX},
	{ABS_HAT0Y, droidshell.AxisHatY},
}

// inputSink is the part of the normalizer the translator feeds.
type inputSink interface {
	OnKey(ev droidshell.KeyEvent) bool
	OnTouch(ev droidshell.MotionEvent) bool
	OnGenericMotion(ev droidshell.MotionEvent) bool
}

// ============================================================================
// evdev translation
// ============================================================================
// One evdevDevice per opened node. Key events are translated immediately;
// absolute and relative axes accumulate until SYN_REPORT and are then
// delivered as one generic motion (sticks) or one mouse motion.
// ============================================================================

type evdevDevice struct {
	info   *droidshell.InputDevice
	absMin int32
	absMax int32

	meta     int
	downTime map[int]time.Time
	repeats  map[int]int

	axes      map[int]float32
	axesDirty bool

	x, y       float32
	buttons    int
	mouseDirty bool
}

func newEvdevDevice(id int, name string, absMin, absMax int32) *evdevDevice {
	info := &droidshell.InputDevice{
		ID:      id,
		Name:    name,
		Sources: droidshell.SourceKeyboard | droidshell.SourceGamepad | droidshell.SourceJoystick | droidshell.SourceMouse,
	}
	for _, r := range joystickRanges {
		info.MotionRanges = append(info.MotionRanges, droidshell.MotionRange{Axis: r.axis, Source: droidshell.SourceJoystick})
	}
	return &evdevDevice{
		info:     info,
		absMin:   absMin,
		absMax:   absMax,
		downTime: make(map[int]time.Time),
		repeats:  make(map[int]int),
		axes:     make(map[int]float32),
	}
}

func (d *evdevDevice) handle(ev inputEvent, sink inputSink) {
	switch ev.Type {
	case EV_KEY:
		d.handleKey(ev, sink)
	case EV_REL:
		d.handleRel(ev)
	case EV_ABS:
		d.handleAbs(ev)
	case EV_SYN:
		if ev.Code == SYN_REPORT {
			d.flush(ev.time(), sink)
		}
	}
}

func (d *evdevDevice) handleKey(ev inputEvent, sink inputSink) {
	if mask, ok := linuxMouseButtons[ev.Code]; ok {
		if ev.Value == evValueRelease {
			d.buttons &^= mask
		} else {
			d.buttons |= mask
		}
		d.mouseDirty = true
		return
	}

	switch ev.Code {
	case KEY_LEFTSHIFT, KEY_RIGHTSHIFT:
		d.setMeta(droidshell.MetaShiftOn, ev.Value != evValueRelease)
		return
	case KEY_LEFTCTRL:
		d.setMeta(droidshell.MetaCtrlOn, ev.Value != evValueRelease)
		return
	case KEY_LEFTALT:
		d.setMeta(droidshell.MetaAltOn, ev.Value != evValueRelease)
		return
	}

	key, ok := linuxKeys[ev.Code]
	if !ok {
		return
	}

	now := ev.time()
	action := droidshell.KeyActionDown
	switch ev.Value {
	case evValuePress:
		d.downTime[key.code] = now
		d.repeats[key.code] = 0
	case evValueRepeat:
		d.repeats[key.code]++
	case evValueRelease:
		action = droidshell.KeyActionUp
	default:
		return
	}

	down, ok := d.downTime[key.code]
	if !ok {
		down = now
	}
	repeat := d.repeats[key.code]
	if action == droidshell.KeyActionUp {
		delete(d.downTime, key.code)
		delete(d.repeats, key.code)
		repeat = 0
	}

	sink.OnKey(droidshell.KeyEvent{
		DeviceID:    d.info.ID,
		Code:        key.code,
		Action:      action,
		DownTime:    down,
		EventTime:   now,
		RepeatCount: repeat,
		MetaState:   d.meta,
		UnicodeChar: unicodeFor(key.code, d.meta),
		System:      key.system,
	})
}

func (d *evdevDevice) setMeta(bit int, on bool) {
	if on {
		d.meta |= bit
	} else {
		d.meta &^= bit
	}
}

func (d *evdevDevice) handleRel(ev inputEvent) {
	switch ev.Code {
	case REL_X:
		d.x = max(d.x+float32(ev.Value), 0)
	case REL_Y:
		d.y = max(d.y+float32(ev.Value), 0)
	default:
		return
	}
	d.mouseDirty = true
}

func (d *evdevDevice) handleAbs(ev inputEvent) {
	for _, r := range joystickRanges {
		if r.abs != ev.Code {
			continue
		}
		if ev.Code == ABS_HAT0X || ev.Code == ABS_HAT0Y {
			d.axes[r.axis] = float32(ev.Value)
		} else {
			d.axes[r.axis] = normalizeAbs(ev.Value, d.absMin, d.absMax)
		}
		d.axesDirty = true
		return
	}
}

// normalizeAbs maps [min, max] onto [-1, 1].
func normalizeAbs(v, lo, hi int32) float32 {
	if hi <= lo {
		return 0
	}
	f := 2*(float64(v)-float64(lo))/(float64(hi)-float64(lo)) - 1
	return float32(min(max(f, -1), 1))
}

func (d *evdevDevice) flush(now time.Time, sink inputSink) {
	if d.axesDirty {
		d.axesDirty = false
		axes := make(map[int]float32, len(d.axes))
		for k, v := range d.axes {
			axes[k] = v
		}
		sink.OnGenericMotion(droidshell.MotionEvent{
			DeviceID:  d.info.ID,
			Device:    d.info,
			Source:    droidshell.SourceJoystick,
			Action:    droidshell.MotionActionMove,
			EventTime: now,
			Axes:      axes,
		})
	}

	if d.mouseDirty {
		d.mouseDirty = false
		sink.OnTouch(droidshell.MotionEvent{
			DeviceID:    d.info.ID,
			Device:      d.info,
			Source:      droidshell.SourceMouse,
			Action:      droidshell.MotionActionMove,
			X:           d.x,
			Y:           d.y,
			ButtonState: d.buttons,
			EventTime:   now,
		})
	}
}
