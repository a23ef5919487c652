// Package droidshell is the host shell of the engine: it turns raw platform
// input into the engine's tagged event protocol, emulates a D-pad from analog
// sticks and drives the engine through an explicit lifecycle.
package droidshell

import (
	"encoding/json"
	"fmt"
	"sync"
)

// ============================================================================
// Engine Event Protocol
// ============================================================================
// Every input the engine understands is one of a fixed set of tagged events
// carrying up to five integer arguments. The numeric values are part of the
// wire contract with the native side and must not be renumbered.
// ============================================================================

// Kind tags a normalized event.
type Kind int32

const (
	KindSysKey    Kind = 0
	KindKey       Kind = 1
	KindDPad      Kind = 2
	KindDown      Kind = 3
	KindScroll    Kind = 4
	KindTap       Kind = 5
	KindDoubleTap Kind = 6
	KindMulti     Kind = 7
	KindBall      Kind = 8
	KindLMBDown   Kind = 9
	KindLMBUp     Kind = 10
	KindRMBDown   Kind = 11
	KindRMBUp     Kind = 12
	KindMouseMove Kind = 13
	KindGamepad   Kind = 14
	KindJoystick  Kind = 15
	KindMMBDown   Kind = 16
	KindMMBUp     Kind = 17
	KindQuit      Kind = 0x1000
)

var kindNames = map[Kind]string{
	KindSysKey:    "sys_key",
	KindKey:       "key",
	KindDPad:      "dpad",
	KindDown:      "down",
	KindScroll:    "scroll",
	KindTap:       "tap",
	KindDoubleTap: "double_tap",
	KindMulti:     "multi",
	KindBall:      "ball",
	KindLMBDown:   "lmb_down",
	KindLMBUp:     "lmb_up",
	KindRMBDown:   "rmb_down",
	KindRMBUp:     "rmb_up",
	KindMouseMove: "mouse_move",
	KindGamepad:   "gamepad",
	KindJoystick:  "joystick",
	KindMMBDown:   "mmb_down",
	KindMMBUp:     "mmb_up",
	KindQuit:      "quit",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int32(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind: %q", s)
}

// Event is a normalized engine event. It is a value type; once pushed the
// normalizer keeps no reference to it.
type Event struct {
	Kind Kind
	Args [5]int32
}

// NewEvent builds an event from a kind and up to five arguments. Extra
// arguments are ignored, missing ones are zero.
func NewEvent(kind Kind, args ...int32) Event {
	ev := Event{Kind: kind}
	copy(ev.Args[:], args)
	return ev
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d, %d, %d, %d, %d)", e.Kind, e.Args[0], e.Args[1], e.Args[2], e.Args[3], e.Args[4])
}

// Pusher accepts normalized events. Push must not block and must be safe to
// call from any goroutine.
type Pusher interface {
	Push(ev Event)
}

// PusherFunc adapts a function to the Pusher interface.
type PusherFunc func(ev Event)

// Push calls f(ev).
func (f PusherFunc) Push(ev Event) { f(ev) }

// Tee returns a Pusher that forwards every event to each of pushers in order.
// Nil pushers are skipped.
func Tee(pushers ...Pusher) Pusher {
	out := make([]Pusher, 0, len(pushers))
	for _, p := range pushers {
		if p != nil {
			out = append(out, p)
		}
	}
	return PusherFunc(func(ev Event) {
		for _, p := range out {
			p.Push(ev)
		}
	})
}

// Recorder is a Pusher that keeps every event it receives, for tests that
// feed a normalizer from outside this package and inspect what it produced.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Push appends ev.
func (r *Recorder) Push(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope is the wire form used by the monitor and the IPC socket.
// The kind travels as its name so the frames stay readable in a terminal.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string   `json:"type"`
	Args [5]int32 `json:"args"`
}

// MarshalEvent serializes an Event into a JSON envelope
func MarshalEvent(ev Event) ([]byte, error) {
	if _, ok := kindNames[ev.Kind]; !ok {
		return nil, fmt.Errorf("unsupported event kind: %d", int32(ev.Kind))
	}
	return json.Marshal(EventEnvelope{Type: ev.Kind.String(), Args: ev.Args})
}

// UnmarshalEvent deserializes a JSON envelope into an Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	kind, err := ParseKind(env.Type)
	if err != nil {
		return Event{}, err
	}
	return Event{Kind: kind, Args: env.Args}, nil
}
