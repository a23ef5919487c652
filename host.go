package droidshell

import (
	"log/slog"
	"sync/atomic"
)

// LogHost is the Host used where there is no OSD, title bar or soft
// keyboard to drive: every call is logged and the keyboard and cursor
// visibility are tracked for inspection.
type LogHost struct {
	logger   *slog.Logger
	keyboard atomic.Bool
	cursor   atomic.Bool
}

// NewLogHost creates a LogHost; a nil logger discards everything.
func NewLogHost(logger *slog.Logger) *LogHost {
	return &LogHost{logger: orDiscard(logger).With("component", "host")}
}

func (h *LogHost) ShowOSD(msg string) {
	h.logger.Warn("osd", "message", msg)
}

func (h *LogHost) SetCaption(caption string) {
	h.logger.Info("caption", "caption", caption)
}

func (h *LogHost) ShowKeyboard(show bool) {
	h.keyboard.Store(show)
	h.logger.Info("soft keyboard", "visible", show)
}

func (h *LogHost) ToggleKeyboard() {
	// Callers run on one goroutine per session, so load-then-store is enough.
	show := !h.keyboard.Load()
	h.keyboard.Store(show)
	h.logger.Info("soft keyboard toggled", "visible", show)
}

func (h *LogHost) SetCursorVisible(visible bool) {
	h.cursor.Store(visible)
	h.logger.Debug("cursor", "visible", visible)
}

// KeyboardVisible reports the last requested soft keyboard state.
func (h *LogHost) KeyboardVisible() bool { return h.keyboard.Load() }

// CursorVisible reports the last requested cursor state.
func (h *LogHost) CursorVisible() bool { return h.cursor.Load() }
