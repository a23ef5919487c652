package droidshell

import (
	"unicode"
	"unicode/utf8"
)

// CharacterDecoder expands an IME character batch into individual key events.
// A nil result means the batch could not be decoded.
type CharacterDecoder interface {
	Decode(deviceID int, chars string) []KeyEvent
}

// CharacterDecoderFunc adapts a function to the CharacterDecoder interface.
type CharacterDecoderFunc func(deviceID int, chars string) []KeyEvent

// Decode calls f(deviceID, chars).
func (f CharacterDecoderFunc) Decode(deviceID int, chars string) []KeyEvent {
	return f(deviceID, chars)
}

// DefaultCharacterDecoder produces one synthesized key per rune. Letters,
// digits and space get their key code; anything else is sent as an unknown
// code carrying only its character. Invalid UTF-8 yields nil.
var DefaultCharacterDecoder CharacterDecoder = CharacterDecoderFunc(decodeCharacters)

func decodeCharacters(deviceID int, chars string) []KeyEvent {
	if chars == "" || !utf8.ValidString(chars) {
		return nil
	}

	out := make([]KeyEvent, 0, utf8.RuneCountInString(chars))
	for _, r := range chars {
		code, meta := keyCodeForRune(r)
		out = append(out, KeyEvent{
			DeviceID:    deviceID,
			Code:        code,
			Action:      KeyActionMultiple,
			MetaState:   meta,
			UnicodeChar: int(r),
		})
	}
	return out
}

func keyCodeForRune(r rune) (code int, meta int) {
	switch {
	case r >= 'a' && r <= 'z':
		return KeyCodeA + int(r-'a'), 0
	case r >= 'A' && r <= 'Z':
		return KeyCodeA + int(r-'A'), MetaShiftOn
	case r >= '0' && r <= '9':
		return KeyCode0 + int(r-'0'), 0
	case r == ' ':
		return KeyCodeSpace, 0
	case r == '\n':
		return KeyCodeEnter, 0
	case r == '\t':
		return KeyCodeTab, 0
	case r == ',':
		return KeyCodeComma, 0
	case r == '.':
		return KeyCodePeriod, 0
	case r == '-':
		return KeyCodeMinus, 0
	case unicode.IsUpper(r):
		return KeyCodeUnknown, MetaShiftOn
	}
	return KeyCodeUnknown, 0
}
