//go:build android

package main

import (
	"os"

	"droidshell"
	"droidshell/mobile"
)

func main() {
	cfg, err := loadAppConfig()
	if err != nil {
		droidshell.NewLogger(droidshell.LogLevelError, "text", os.Stderr).Error("bad config", "error", err)
		os.Exit(1)
	}

	level, _ := droidshell.ParseLogLevel(cfg.Logging.Level)
	logger := droidshell.NewLogger(level, cfg.Logging.Format, os.Stderr)

	engineLog := logger.With("component", "engine")
	sink := droidshell.PusherFunc(func(ev droidshell.Event) {
		engineLog.Debug("event", "event", ev)
	})

	mobile.Main(cfg, droidshell.LoopbackFactory(cfg.Engine.QueueSize, sink, logger), logger)
}
