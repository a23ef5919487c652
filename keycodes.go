package droidshell

// Platform key codes (from android.view.KeyEvent)
const (
	KeyCodeUnknown    = 0
	KeyCodeHome       = 3
	KeyCodeBack       = 4
	KeyCode0          = 7
	KeyCode9          = 16
	KeyCodeDPadUp     = 19
	KeyCodeDPadDown   = 20
	KeyCodeDPadLeft   = 21
	KeyCodeDPadRight  = 22
	KeyCodeDPadCenter = 23
	KeyCodeVolumeUp   = 24
	KeyCodeVolumeDown = 25
	KeyCodeCamera     = 27
	KeyCodeA          = 29
	KeyCodeZ          = 54
	KeyCodeComma      = 55
	KeyCodePeriod     = 56
	KeyCodeTab        = 61
	KeyCodeSpace      = 62
	KeyCodeEnter      = 66
	KeyCodeDel        = 67
	KeyCodeMinus      = 69
	KeyCodeMenu       = 82
	KeyCodeSearch     = 84
	KeyCodeEscape     = 111

	KeyCodeButtonA      = 96
	KeyCodeButtonB      = 97
	KeyCodeButtonC      = 98
	KeyCodeButtonX      = 99
	KeyCodeButtonY      = 100
	KeyCodeButtonZ      = 101
	KeyCodeButtonL1     = 102
	KeyCodeButtonR1     = 103
	KeyCodeButtonL2     = 104
	KeyCodeButtonR2     = 105
	KeyCodeButtonThumbL = 106
	KeyCodeButtonThumbR = 107
	KeyCodeButtonStart  = 108
	KeyCodeButtonSelect = 109
	KeyCodeButtonMode   = 110

	KeyCodeF1 = 131

	// Generic auxiliary buttons 1 and 2, remapped to confirm and D-pad centre.
	KeyCodeButton1 = 188
	KeyCodeButton2 = 189

	// Undocumented code sent alongside hover enter/exit.
	KeyCodeHover = 238
)

// Key actions
const (
	KeyActionDown     = 0
	KeyActionUp       = 1
	KeyActionMultiple = 2
)

// Motion actions
const (
	MotionActionDown        = 0
	MotionActionUp          = 1
	MotionActionMove        = 2
	MotionActionCancel      = 3
	MotionActionPointerDown = 5
	MotionActionPointerUp   = 6
	MotionActionHoverMove   = 7

	MotionActionMask        = 0xff
	MotionPointerIndexMask  = 0xff00
	MotionPointerIndexShift = 8
)

// Input sources (from android.view.InputDevice)
const (
	SourceClassButton    = 0x00000001
	SourceClassPointer   = 0x00000002
	SourceClassTrackball = 0x00000004
	SourceClassPosition  = 0x00000008
	SourceClassJoystick  = 0x00000010

	SourceKeyboard    = 0x00000100 | SourceClassButton
	SourceDPad        = 0x00000200 | SourceClassButton
	SourceGamepad     = 0x00000400 | SourceClassButton
	SourceTouchscreen = 0x00001000 | SourceClassPointer
	SourceMouse       = 0x00002000 | SourceClassPointer
	SourceStylus      = 0x00004000 | SourceClassPointer
	SourceTrackball   = 0x00010000 | SourceClassTrackball
	SourceJoystick    = 0x01000000 | SourceClassJoystick
)

// Motion axes (from android.view.MotionEvent)
const (
	AxisX    = 0
	AxisY    = 1
	AxisZ    = 11
	AxisRX   = 12
	AxisRY   = 13
	AxisRZ   = 14
	AxisHatX = 15
	AxisHatY = 16
)

// Meta state bits
const (
	MetaShiftOn = 0x01
	MetaAltOn   = 0x02
	MetaCtrlOn  = 0x1000
	MetaMetaOn  = 0x10000
)

// Mouse button state bits
const (
	ButtonPrimary   = 0x01
	ButtonSecondary = 0x02
	ButtonTertiary  = 0x04
)

// CombiningAccentMask strips the combining-accent flag from a unicode char.
const CombiningAccentMask = 0x7fffffff

// isDPadKey reports whether code is one of the D-pad directions or centre.
func isDPadKey(code int) bool {
	switch code {
	case KeyCodeDPadUp, KeyCodeDPadDown, KeyCodeDPadLeft, KeyCodeDPadRight, KeyCodeDPadCenter:
		return true
	}
	return false
}

// isGamepadKey reports whether code is on the gamepad button allow-list.
func isGamepadKey(code int) bool {
	switch code {
	case KeyCodeButtonA, KeyCodeButtonB, KeyCodeButtonC,
		KeyCodeButtonX, KeyCodeButtonY, KeyCodeButtonZ,
		KeyCodeButtonL1, KeyCodeButtonR1, KeyCodeButtonL2, KeyCodeButtonR2,
		KeyCodeButtonThumbL, KeyCodeButtonThumbR,
		KeyCodeButtonStart, KeyCodeButtonSelect, KeyCodeButtonMode:
		return true
	}
	return false
}

// isAllowedSystemKey reports whether a system key is forwarded at all.
func isAllowedSystemKey(code int) bool {
	switch code {
	case KeyCodeBack, KeyCodeMenu, KeyCodeCamera, KeyCodeSearch:
		return true
	}
	return false
}
