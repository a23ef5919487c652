package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"droidshell"
)

type recordingSink struct {
	keys    []droidshell.KeyEvent
	touches []droidshell.MotionEvent
	motions []droidshell.MotionEvent
}

func (s *recordingSink) OnKey(ev droidshell.KeyEvent) bool {
	s.keys = append(s.keys, ev)
	return true
}

func (s *recordingSink) OnTouch(ev droidshell.MotionEvent) bool {
	s.touches = append(s.touches, ev)
	return true
}

func (s *recordingSink) OnGenericMotion(ev droidshell.MotionEvent) bool {
	s.motions = append(s.motions, ev)
	return true
}

func evAt(ms int64, typ, code uint16, value int32) inputEvent {
	return inputEvent{Sec: ms / 1000, Usec: (ms % 1000) * 1000, Type: typ, Code: code, Value: value}
}

func TestEvdevDevice_KeyPressRepeatRelease(t *testing.T) {
	d := newEvdevDevice(1, "kbd", -32768, 32767)
	sink := &recordingSink{}

	d.handle(evAt(1000, EV_KEY, KEY_LEFTSHIFT, evValuePress), sink)
	d.handle(evAt(1000, EV_KEY, 30, evValuePress), sink) // KEY_A
	d.handle(evAt(1250, EV_KEY, 30, evValueRepeat), sink)
	d.handle(evAt(1400, EV_KEY, 30, evValueRelease), sink)

	if len(sink.keys) != 3 {
		t.Fatalf("expected 3 key events, got %d", len(sink.keys))
	}

	down, rep, up := sink.keys[0], sink.keys[1], sink.keys[2]
	if down.Code != droidshell.KeyCodeA || down.Action != droidshell.KeyActionDown || down.RepeatCount != 0 {
		t.Errorf("unexpected down %+v", down)
	}
	if down.UnicodeChar != 'A' || down.MetaState != droidshell.MetaShiftOn {
		t.Errorf("shift not applied: %+v", down)
	}
	if rep.Action != droidshell.KeyActionDown || rep.RepeatCount != 1 || rep.Elapsed() != 250 {
		t.Errorf("unexpected repeat %+v (elapsed %d)", rep, rep.Elapsed())
	}
	if up.Action != droidshell.KeyActionUp || up.RepeatCount != 0 || up.Elapsed() != 400 {
		t.Errorf("unexpected release %+v (elapsed %d)", up, up.Elapsed())
	}
}

func TestEvdevDevice_SystemAndGamepadKeys(t *testing.T) {
	d := newEvdevDevice(2, "pad", -32768, 32767)
	sink := &recordingSink{}

	d.handle(evAt(0, EV_KEY, KEY_ESC, evValuePress), sink)
	d.handle(evAt(0, EV_KEY, BTN_SOUTH, evValuePress), sink)
	d.handle(evAt(0, EV_KEY, KEY_UP, evValuePress), sink)
	d.handle(evAt(0, EV_KEY, 0x2ff, evValuePress), sink) // unmapped

	if len(sink.keys) != 3 {
		t.Fatalf("expected 3 key events, got %d", len(sink.keys))
	}
	if k := sink.keys[0]; k.Code != droidshell.KeyCodeBack || !k.System {
		t.Errorf("escape must be system BACK, got %+v", k)
	}
	if k := sink.keys[1]; k.Code != droidshell.KeyCodeButtonA || k.System {
		t.Errorf("BTN_SOUTH must be BUTTON_A, got %+v", k)
	}
	if k := sink.keys[2]; k.Code != droidshell.KeyCodeDPadUp {
		t.Errorf("KEY_UP must be DPAD_UP, got %+v", k)
	}
}

func TestEvdevDevice_AbsAxesFlushOnSyn(t *testing.T) {
	d := newEvdevDevice(3, "pad", 0, 255)
	sink := &recordingSink{}

	d.handle(evAt(0, EV_ABS, ABS_X, 255), sink)
	d.handle(evAt(0, EV_ABS, ABS_RY, 0), sink)
	d.handle(evAt(0, EV_ABS, ABS_HAT0X, -1), sink)
	if len(sink.motions) != 0 {
		t.Fatalf("axes must wait for SYN_REPORT")
	}

	d.handle(evAt(0, EV_SYN, SYN_REPORT, 0), sink)
	d.handle(evAt(0, EV_SYN, SYN_REPORT, 0), sink)

	if len(sink.motions) != 1 {
		t.Fatalf("expected one motion, got %d", len(sink.motions))
	}
	m := sink.motions[0]
	if m.Source != droidshell.SourceJoystick || m.Action != droidshell.MotionActionMove || m.Device == nil {
		t.Errorf("unexpected motion %+v", m)
	}
	if m.Axes[droidshell.AxisX] != 1 || m.Axes[droidshell.AxisRY] != -1 || m.Axes[droidshell.AxisHatX] != -1 {
		t.Errorf("unexpected axes %v", m.Axes)
	}

	// Binding indices 3 and 4 are the right stick.
	axes := m.Device.JoystickAxes()
	if axes[3] != droidshell.AxisRX || axes[4] != droidshell.AxisRY {
		t.Errorf("unexpected range order %v", axes)
	}
}

func TestEvdevDevice_MouseFlushOnSyn(t *testing.T) {
	d := newEvdevDevice(4, "mouse", -32768, 32767)
	sink := &recordingSink{}

	d.handle(evAt(0, EV_REL, REL_X, 10), sink)
	d.handle(evAt(0, EV_REL, REL_Y, -5), sink)
	d.handle(evAt(0, EV_KEY, BTN_RIGHT, evValuePress), sink)
	d.handle(evAt(0, EV_SYN, SYN_REPORT, 0), sink)

	if len(sink.keys) != 0 {
		t.Errorf("mouse buttons must not be keys")
	}
	if len(sink.touches) != 1 {
		t.Fatalf("expected one mouse motion, got %d", len(sink.touches))
	}
	m := sink.touches[0]
	if m.X != 10 || m.Y != 0 || m.ButtonState != droidshell.ButtonSecondary || m.Source != droidshell.SourceMouse {
		t.Errorf("unexpected mouse motion %+v", m)
	}
}

func TestEvdevDevice_FeedsNormalizer(t *testing.T) {
	rec := &droidshell.Recorder{}
	n := droidshell.NewNormalizer(droidshell.NormalizerOptions{Out: rec})
	d := newEvdevDevice(5, "pad", -100, 100)

	d.handle(evAt(0, EV_ABS, ABS_X, 100), n)
	d.handle(evAt(0, EV_SYN, SYN_REPORT, 0), n)

	if !n.Sticks().A.Get(droidshell.DirRight) {
		t.Errorf("full right deflection must set A right")
	}
	if len(rec.Events()) != 0 {
		t.Errorf("stick motion must not emit events, got %v", rec.Events())
	}
}

func TestNormalizeAbs(t *testing.T) {
	tests := []struct {
		v, lo, hi int32
		want      float32
	}{
		{0, 0, 255, -1},
		{255, 0, 255, 1},
		{-32768, -32768, 32767, -1},
		{500, 0, 255, 1},
		{5, 5, 5, 0},
		{math.MinInt32, math.MinInt32, math.MaxInt32, -1},
		{math.MaxInt32, math.MinInt32, math.MaxInt32, 1},
		{0, -10, 10, 0},
	}
	for _, tt := range tests {
		if got := normalizeAbs(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("normalizeAbs(%d, %d, %d) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestDecodeInputEvent(t *testing.T) {
	want := inputEvent{Sec: 12, Usec: 34, Type: EV_KEY, Code: KEY_SPACE, Value: evValuePress}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, want); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != inputEventSize {
		t.Fatalf("encoded %d bytes, want %d", buf.Len(), inputEventSize)
	}

	got, ok := decodeInputEvent(buf.Bytes(), bytes.NewReader(nil))
	if !ok || got != want {
		t.Errorf("got %+v, %v", got, ok)
	}
	if got.time() != time.Unix(12, 34000) {
		t.Errorf("time = %v", got.time())
	}
	if _, ok := decodeInputEvent([]byte{1, 2}, bytes.NewReader(nil)); ok {
		t.Errorf("short buffer must not decode")
	}
}

func TestReadInputEvents_StopsOnCancelWhileSending(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	var buf bytes.Buffer
	for i := 0; i < 2; i++ {
		if err := binary.Write(&buf, binary.LittleEndian, inputEvent{Type: EV_KEY, Code: KEY_SPACE, Value: evValuePress}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan deviceEvent) // nobody receives
	done := make(chan error, 1)
	go func() {
		done <- readInputEvents(ctx, inputDevice{id: 1, path: "pipe", f: r}, events)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("readInputEvents = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reader stayed blocked on send after cancel")
	}
}
