package droidshell

import (
	"context"
	"sync"
	"testing"
	"time"
)

type keyPress struct {
	code, action int
}

type recordingKeys struct {
	mu    sync.Mutex
	calls []keyPress
}

func (k *recordingKeys) GenerateKey(code, action int) bool {
	k.mu.Lock()
	k.calls = append(k.calls, keyPress{code, action})
	k.mu.Unlock()
	return true
}

func (k *recordingKeys) snapshot() []keyPress {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]keyPress(nil), k.calls...)
}

func TestStickEmulator_PulsePairsDownsThenUps(t *testing.T) {
	keys := &recordingKeys{}
	flags := &StickFlags{}
	flags.A.Set(DirRight, true)
	flags.A.Set(DirDown, true)

	e := NewStickEmulator(keys, flags, nil, nil)
	n := e.Pulse(DefaultPollerGroups()[0])
	if n != 2 {
		t.Fatalf("expected 2 directions pulsed, got %d", n)
	}

	want := []keyPress{
		{KeyCodeDPadRight, KeyActionDown},
		{KeyCodeDPadDown, KeyActionDown},
		{KeyCodeDPadRight, KeyActionUp},
		{KeyCodeDPadDown, KeyActionUp},
	}
	got := keys.snapshot()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestStickEmulator_PulseReadsOwnGroup(t *testing.T) {
	keys := &recordingKeys{}
	flags := &StickFlags{}
	flags.A.Set(DirLeft, true)

	e := NewStickEmulator(keys, flags, nil, nil)
	if n := e.Pulse(DefaultPollerGroups()[1]); n != 0 {
		t.Errorf("group B must not see A's flags, pulsed %d", n)
	}
	if len(keys.snapshot()) != 0 {
		t.Errorf("expected no keys")
	}
}

func TestStickEmulator_RunsUntilStopped(t *testing.T) {
	keys := &recordingKeys{}
	flags := &StickFlags{}
	flags.B.Set(DirUp, true)

	groups := []PollerGroup{
		{Name: "b", Period: 2 * time.Millisecond, Group: StickB, Directions: DefaultDirectionKeys()},
	}
	e := NewStickEmulator(keys, flags, groups, nil)
	e.Start(context.Background())
	e.Start(context.Background()) // no second set of pollers

	waitUntil(t, time.Second, func() bool { return len(keys.snapshot()) >= 6 }, "no pulses")

	e.Stop()
	after := len(keys.snapshot())
	time.Sleep(20 * time.Millisecond)
	if got := len(keys.snapshot()); got != after {
		t.Errorf("pulses after stop: %d -> %d", after, got)
	}
	if after%2 != 0 {
		t.Errorf("down/up pairs must flush together, got %d calls", after)
	}
}

func TestStickEmulator_ContextCancelStops(t *testing.T) {
	keys := &recordingKeys{}
	flags := &StickFlags{}
	flags.A.Set(DirRight, true)

	ctx, cancel := context.WithCancel(context.Background())
	e := NewStickEmulator(keys, flags, nil, nil)
	e.Start(ctx)
	waitUntil(t, time.Second, func() bool { return len(keys.snapshot()) > 0 }, "no pulses")

	cancel()
	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("pollers did not exit after cancel")
	}
}
