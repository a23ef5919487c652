package droidshell

import (
	"context"
	"sync"
	"testing"
	"time"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}

// fakeHost records every bridge call.
type fakeHost struct {
	mu       sync.Mutex
	osd      []string
	captions []string
	keyboard []bool
	toggles  int
	cursor   []bool
}

func (h *fakeHost) ShowOSD(msg string) {
	h.mu.Lock()
	h.osd = append(h.osd, msg)
	h.mu.Unlock()
}

func (h *fakeHost) SetCaption(caption string) {
	h.mu.Lock()
	h.captions = append(h.captions, caption)
	h.mu.Unlock()
}

func (h *fakeHost) ShowKeyboard(show bool) {
	h.mu.Lock()
	h.keyboard = append(h.keyboard, show)
	h.mu.Unlock()
}

func (h *fakeHost) ToggleKeyboard() {
	h.mu.Lock()
	h.toggles++
	h.mu.Unlock()
}

func (h *fakeHost) SetCursorVisible(visible bool) {
	h.mu.Lock()
	h.cursor = append(h.cursor, visible)
	h.mu.Unlock()
}

func (h *fakeHost) toggleCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.toggles
}

func (h *fakeHost) cursorCalls() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.cursor...)
}

// fakeGuard is a pointer emulator whose guard is set by the test.
type fakeGuard struct {
	guard bool
	mouse []MotionEvent
}

func (f *fakeGuard) IsMouse(ev MotionEvent) bool { return ev.Source == SourceMouse }

func (f *fakeGuard) OnMouseEvent(ev MotionEvent) bool {
	f.mouse = append(f.mouse, ev)
	return true
}

func (f *fakeGuard) RightButtonGuard() bool { return f.guard }

// fakeEngine records pushes and blocks in Run until QUIT or release.
type fakeEngine struct {
	mu     sync.Mutex
	events []Event
	pauses []bool

	quit    chan struct{}
	once    sync.Once
	ignored bool // keep running after QUIT

	exited chan error // result of Run
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{quit: make(chan struct{}), exited: make(chan error, 1)}
}

func (e *fakeEngine) Push(ev Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
	if ev.Kind == KindQuit && !e.ignored {
		e.once.Do(func() { close(e.quit) })
	}
}

func (e *fakeEngine) SetPause(paused bool) {
	e.mu.Lock()
	e.pauses = append(e.pauses, paused)
	e.mu.Unlock()
}

func (e *fakeEngine) Run(ctx context.Context) error {
	var err error
	select {
	case <-e.quit:
	case <-ctx.Done():
		err = ctx.Err()
	}
	select {
	case e.exited <- err:
	default:
	}
	return err
}

func (e *fakeEngine) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}

func (e *fakeEngine) Pauses() []bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]bool(nil), e.pauses...)
}

func expectEvents(t *testing.T, got []Event, want ...Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
