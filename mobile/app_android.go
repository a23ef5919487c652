//go:build android

package mobile

import (
	"log/slog"

	"golang.org/x/mobile/app"
	"golang.org/x/mobile/event/paint"

	"droidshell"
)

// Main runs the shell as an x/mobile app and returns when the app dies.
func Main(cfg droidshell.Config, engine droidshell.EngineFactory, logger *slog.Logger) {
	app.Main(func(a app.App) {
		opts := cfg.ShellOptions(engine, droidshell.NewLogHost(logger))
		opts.Logger = logger

		shell, err := droidshell.NewShell(opts)
		if err != nil {
			logger.Error("failed to create shell", "error", err)
			return
		}
		session := NewSession(shell, shell.Normalizer(), logger)

		for e := range a.Events() {
			switch e := a.Filter(e).(type) {
			case paint.Event:
				// The engine draws through its own surface.
				a.Publish()
			default:
				if session.Handle(e) {
					return
				}
			}
		}
	})
}
