package droidshell

import (
	"strings"
	"testing"
)

func TestKind_WireValues(t *testing.T) {
	// The native side switches on these numbers.
	tests := map[Kind]int32{
		KindSysKey: 0, KindKey: 1, KindDPad: 2, KindDown: 3, KindScroll: 4,
		KindTap: 5, KindDoubleTap: 6, KindMulti: 7, KindBall: 8,
		KindLMBDown: 9, KindLMBUp: 10, KindRMBDown: 11, KindRMBUp: 12,
		KindMouseMove: 13, KindGamepad: 14, KindJoystick: 15,
		KindMMBDown: 16, KindMMBUp: 17, KindQuit: 0x1000,
	}
	for k, want := range tests {
		if int32(k) != want {
			t.Errorf("%s = %d, want %d", k, int32(k), want)
		}
		parsed, err := ParseKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), parsed, err)
		}
	}

	if _, err := ParseKind("swipe"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
	if got := Kind(99).String(); got != "kind(99)" {
		t.Errorf("got %q", got)
	}
}

func TestNewEvent_PadsAndTruncates(t *testing.T) {
	if ev := NewEvent(KindTap, 1, 2); ev.Args != [5]int32{1, 2, 0, 0, 0} {
		t.Errorf("got %v", ev.Args)
	}
	if ev := NewEvent(KindKey, 1, 2, 3, 4, 5, 6); ev.Args != [5]int32{1, 2, 3, 4, 5} {
		t.Errorf("got %v", ev.Args)
	}
	if s := NewEvent(KindDPad, 0, 22).String(); s != "dpad(0, 22, 0, 0, 0)" {
		t.Errorf("got %q", s)
	}
}

func TestMarshalEvent(t *testing.T) {
	b, err := MarshalEvent(NewEvent(KindMouseMove, -3, 4))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"mouse_move","args":[-3,4,0,0,0]}` {
		t.Errorf("got %s", b)
	}

	ev, err := UnmarshalEvent(b)
	if err != nil || ev != NewEvent(KindMouseMove, -3, 4) {
		t.Errorf("UnmarshalEvent = %v, %v", ev, err)
	}

	if _, err := MarshalEvent(Event{Kind: 77}); err == nil {
		t.Errorf("expected error for unknown kind")
	}
	if _, err := UnmarshalEvent([]byte(`{"type":"nope"}`)); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("unexpected error %v", err)
	}
	if _, err := UnmarshalEvent([]byte(`{`)); err == nil {
		t.Errorf("expected error for bad json")
	}
}

func TestTee_SkipsNil(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	p := Tee(a, nil, b)
	p.Push(NewEvent(KindTap))

	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("each pusher must see the event once")
	}
	a.Reset()
	if len(a.Events()) != 0 {
		t.Errorf("reset did not clear")
	}
}
