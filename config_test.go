package droidshell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "droidshell.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	groups := cfg.PollerGroups()
	if len(groups) != 2 || groups[0].Period != DefaultStickPeriodA || groups[1].Period != DefaultStickPeriodB {
		t.Errorf("unexpected default pollers %+v", groups)
	}
	if cfg.RightButtonGuard() != DefaultRightButtonGuard {
		t.Errorf("guard = %v", cfg.RightButtonGuard())
	}
}

func TestLoadConfigFile_OverlaysDefaults(t *testing.T) {
	p := writeConfig(t, `
paths:
  storage_root: /mnt/games
stick:
  deadzone: 0.5
  pollers:
    - name: fast
      group: b
      period_ms: 2
      directions:
        - {index: 0, key_code: 22}
engine:
  join_timeout_ms: 250
`)
	cfg, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Paths.StorageRoot != "/mnt/games" {
		t.Errorf("storage_root = %q", cfg.Paths.StorageRoot)
	}
	if cfg.Paths.FilesDir == "" {
		t.Errorf("files_dir default lost")
	}

	opts := cfg.ShellOptions(LoopbackFactory(1, nil, nil), &fakeHost{})
	if opts.Input.Deadzone != 0.5 {
		t.Errorf("deadzone = %v", opts.Input.Deadzone)
	}
	if opts.JoinTimeout != 250*time.Millisecond {
		t.Errorf("join timeout = %v", opts.JoinTimeout)
	}
	if len(opts.Pollers) != 1 || opts.Pollers[0].Group != StickB || opts.Pollers[0].Period != 2*time.Millisecond {
		t.Errorf("pollers = %+v", opts.Pollers)
	}
	if !opts.Input.Mouse || opts.Input.MouseGuard != DefaultRightButtonGuard {
		t.Errorf("mouse options = %v %v", opts.Input.Mouse, opts.Input.MouseGuard)
	}
}

func TestLoadConfigFile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", "paths:\n  storage: /x\n", "field storage not found"},
		{"trailing document", "logging:\n  level: info\n---\nlogging:\n  level: debug\n", "trailing document"},
		{"bad yaml", "paths: [\n", "decode config yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfigFile(""); err == nil {
		t.Errorf("empty path must fail")
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"deadzone", func(c *Config) { c.Stick.Deadzone = 1 }},
		{"poller group", func(c *Config) { c.Stick.Pollers[0].Group = "c" }},
		{"poller period", func(c *Config) { c.Stick.Pollers[0].PeriodMS = 0 }},
		{"direction index", func(c *Config) { c.Stick.Pollers[0].Directions = []DirectionKey{{Index: 4, KeyCode: 19}} }},
		{"binding group", func(c *Config) { c.Stick.Bindings[0].Group = "x" }},
		{"abs range", func(c *Config) { c.Input.AbsMin = c.Input.AbsMax }},
		{"double tap window", func(c *Config) { c.Input.DoubleTapMinMS = c.Input.DoubleTapTimeoutMS }},
		{"double tap min zero", func(c *Config) { c.Input.DoubleTapMinMS = 0 }},
		{"right button guard zero", func(c *Config) { c.Pointer.RightButtonGuardMS = 0 }},
		{"queue", func(c *Config) { c.Engine.QueueSize = 0 }},
		{"monitor path", func(c *Config) { c.Monitor.Enabled = true; c.Monitor.Path = "ws" }},
		{"ipc socket", func(c *Config) { c.IPC.SocketPath = "" }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	root := "/media/usb"
	dev := "/dev/input/event7"
	off := false
	level := "debug"

	cfg := DefaultConfig()
	FlagOverrides{
		StorageRoot: &root,
		Device:      &dev,
		IPCEnabled:  &off,
		LogLevel:    &level,
	}.Apply(&cfg)

	if cfg.Paths.StorageRoot != root {
		t.Errorf("storage root = %q", cfg.Paths.StorageRoot)
	}
	if len(cfg.Input.Devices) != 1 || cfg.Input.Devices[0] != dev {
		t.Errorf("devices = %v", cfg.Input.Devices)
	}
	if cfg.IPC.Enabled {
		t.Errorf("ipc must be disabled by a false override")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}

	FlagOverrides{}.Apply(nil)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/saves"); got != filepath.Join(home, "saves") {
		t.Errorf("got %q", got)
	}
	if got := ExpandPath("~"); got != home {
		t.Errorf("got %q", got)
	}
	if got := ExpandPath("/abs"); got != "/abs" {
		t.Errorf("got %q", got)
	}
	if got := ExpandPath("~user/x"); got != "~user/x" {
		t.Errorf("got %q", got)
	}
}
