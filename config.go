package droidshell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration of the shell.
//
// Keep defaults and validation centralized so the rest of the code can
// assume a well-formed config.
type Config struct {
	// Storage and engine file locations
	Paths PathsConfig `yaml:"paths"`

	// Raw input and gesture tuning
	Input InputConfig `yaml:"input"`

	// Analog stick to D-pad emulation
	Stick StickConfig `yaml:"stick"`

	// Mouse handling
	Pointer PointerConfig `yaml:"pointer"`

	// Engine hand-off
	Engine EngineConfig `yaml:"engine"`

	// Event monitor (websocket)
	Monitor MonitorConfig `yaml:"monitor"`

	// IPC injection socket
	IPC IPCConfig `yaml:"ipc"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type PathsConfig struct {
	StorageRoot     string `yaml:"storage_root"`
	FilesDir        string `yaml:"files_dir"`
	InternalSaveDir string `yaml:"internal_save_dir"`
}

type InputConfig struct {
	Devices []string `yaml:"devices,omitempty"` // evdev nodes read by the desktop host

	// Range reported by the evdev absolute axes, mapped onto [-1, 1].
	AbsMin int32 `yaml:"abs_min"`
	AbsMax int32 `yaml:"abs_max"`

	LongPressMS        int     `yaml:"long_press_ms"`
	TapTimeoutMS       int     `yaml:"tap_timeout_ms"`
	DoubleTapTimeoutMS int     `yaml:"double_tap_timeout_ms"`
	DoubleTapMinMS     int     `yaml:"double_tap_min_ms"`
	TouchSlop          float32 `yaml:"touch_slop"`
	DoubleTapSlop      float32 `yaml:"double_tap_slop"`
	TrackballScale     float32 `yaml:"trackball_scale"`
}

type StickConfig struct {
	Deadzone float32        `yaml:"deadzone"`
	Bindings []AxisBinding  `yaml:"bindings"`
	Pollers  []PollerConfig `yaml:"pollers"`
}

type PollerConfig struct {
	Name       string         `yaml:"name"`
	Group      StickGroup     `yaml:"group"`
	PeriodMS   int            `yaml:"period_ms"`
	Directions []DirectionKey `yaml:"directions"`
}

type PointerConfig struct {
	RightButtonGuardMS int `yaml:"right_button_guard_ms"`
}

type EngineConfig struct {
	QueueSize     int `yaml:"queue_size"`
	JoinTimeoutMS int `yaml:"join_timeout_ms"`
}

type MonitorConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Listen       string `yaml:"listen"`
	Path         string `yaml:"path"`
	SendBuf      int    `yaml:"send_buf,omitempty"`
	BroadcastBuf int    `yaml:"broadcast_buf,omitempty"`
}

type IPCConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	pollers := make([]PollerConfig, 0, 2)
	for _, g := range DefaultPollerGroups() {
		pollers = append(pollers, PollerConfig{
			Name:       g.Name,
			Group:      g.Group,
			PeriodMS:   int(g.Period / time.Millisecond),
			Directions: g.Directions,
		})
	}

	return Config{
		Paths: PathsConfig{
			StorageRoot:     "~/.local/share/droidshell",
			FilesDir:        "~/.config/droidshell",
			InternalSaveDir: "~/.local/state/droidshell/saves",
		},
		Input: InputConfig{
			Devices:            []string{"/dev/input/event0"},
			AbsMin:             -32768,
			AbsMax:             32767,
			LongPressMS:        int(DefaultLongPressTimeout / time.Millisecond),
			TapTimeoutMS:       int(DefaultTapTimeout / time.Millisecond),
			DoubleTapTimeoutMS: int(DefaultDoubleTapTimeout / time.Millisecond),
			DoubleTapMinMS:     int(DefaultDoubleTapMinTime / time.Millisecond),
			TouchSlop:          DefaultTouchSlop,
			DoubleTapSlop:      DefaultDoubleTapSlop,
			TrackballScale:     DefaultTrackballScale,
		},
		Stick: StickConfig{
			Deadzone: DefaultDeadzone,
			Bindings: DefaultAxisBindings(),
			Pollers:  pollers,
		},
		Pointer: PointerConfig{
			RightButtonGuardMS: int(DefaultRightButtonGuard / time.Millisecond),
		},
		Engine: EngineConfig{
			QueueSize:     DefaultQueueSize,
			JoinTimeoutMS: int(DefaultJoinTimeout / time.Millisecond),
		},
		Monitor: MonitorConfig{
			Enabled: false,
			Listen:  "127.0.0.1:3002",
			Path:    "/ws/events",
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: "/tmp/droidshell.sock",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the
// defaults. Unknown fields are rejected to catch typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds command-line overrides. A nil pointer means the flag
// was not set; a non-nil pointer is applied even if it is a zero value.
type FlagOverrides struct {
	StorageRoot *string
	Device      *string

	MonitorEnabled *bool
	MonitorListen  *string

	IPCEnabled    *bool
	IPCSocketPath *string

	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.StorageRoot != nil {
		cfg.Paths.StorageRoot = *o.StorageRoot
	}
	if o.Device != nil {
		cfg.Input.Devices = []string{*o.Device}
	}

	if o.MonitorEnabled != nil {
		cfg.Monitor.Enabled = *o.MonitorEnabled
	}
	if o.MonitorListen != nil {
		cfg.Monitor.Listen = *o.MonitorListen
	}

	if o.IPCEnabled != nil {
		cfg.IPC.Enabled = *o.IPCEnabled
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	// Paths
	if c.Paths.StorageRoot == "" {
		return errors.New("paths.storage_root must not be empty")
	}
	if c.Paths.FilesDir == "" {
		return errors.New("paths.files_dir must not be empty")
	}
	if c.Paths.InternalSaveDir == "" {
		return errors.New("paths.internal_save_dir must not be empty")
	}

	// Input
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.AbsMin >= c.Input.AbsMax {
		return errors.New("input.abs_min must be < input.abs_max")
	}
	if c.Input.LongPressMS <= 0 {
		return errors.New("input.long_press_ms must be > 0")
	}
	if c.Input.TapTimeoutMS <= 0 {
		return errors.New("input.tap_timeout_ms must be > 0")
	}
	if c.Input.DoubleTapMinMS <= 0 || c.Input.DoubleTapMinMS >= c.Input.DoubleTapTimeoutMS {
		return errors.New("input.double_tap_min_ms must be > 0 and < input.double_tap_timeout_ms")
	}
	if c.Input.TouchSlop <= 0 || c.Input.DoubleTapSlop <= 0 {
		return errors.New("input.touch_slop and input.double_tap_slop must be > 0")
	}
	if c.Input.TrackballScale == 0 {
		return errors.New("input.trackball_scale must not be 0")
	}

	// Stick
	if c.Stick.Deadzone <= 0 || c.Stick.Deadzone >= 1 {
		return errors.New("stick.deadzone must be between 0 and 1 (exclusive)")
	}
	for i, b := range c.Stick.Bindings {
		if err := b.validate(); err != nil {
			return fmt.Errorf("stick.bindings[%d]: %w", i, err)
		}
	}
	if len(c.Stick.Pollers) == 0 {
		return errors.New("stick.pollers must not be empty")
	}
	for i, p := range c.Stick.Pollers {
		if p.Group != StickA && p.Group != StickB {
			return fmt.Errorf("stick.pollers[%d].group must be %q or %q", i, StickA, StickB)
		}
		if p.PeriodMS <= 0 || p.PeriodMS > 1000 {
			return fmt.Errorf("stick.pollers[%d].period_ms must be between 1 and 1000", i)
		}
		for j, d := range p.Directions {
			if d.Index < 0 || d.Index >= numDirections {
				return fmt.Errorf("stick.pollers[%d].directions[%d].index out of range: %d", i, j, d.Index)
			}
		}
	}

	// Pointer
	if c.Pointer.RightButtonGuardMS <= 0 {
		return errors.New("pointer.right_button_guard_ms must be > 0")
	}

	// Engine
	if c.Engine.QueueSize <= 0 {
		return errors.New("engine.queue_size must be > 0")
	}
	if c.Engine.JoinTimeoutMS <= 0 {
		return errors.New("engine.join_timeout_ms must be > 0")
	}

	// Monitor
	if c.Monitor.Enabled {
		if c.Monitor.Listen == "" {
			return errors.New("monitor.enabled is true but monitor.listen is empty")
		}
		if c.Monitor.Path == "" || c.Monitor.Path[0] != '/' {
			return errors.New("monitor.path must start with /")
		}
	}

	// IPC
	if c.IPC.Enabled && c.IPC.SocketPath == "" {
		return errors.New("ipc.enabled is true but ipc.socket_path is empty")
	}

	// Logging
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return errors.New(`logging.format must be "text" or "json"`)
	}

	return nil
}

// GestureOptions converts the input section for the recognizer.
func (c *Config) GestureOptions() GestureOptions {
	return GestureOptions{
		TapTimeout:       time.Duration(c.Input.TapTimeoutMS) * time.Millisecond,
		DoubleTapTimeout: time.Duration(c.Input.DoubleTapTimeoutMS) * time.Millisecond,
		DoubleTapMinTime: time.Duration(c.Input.DoubleTapMinMS) * time.Millisecond,
		TouchSlop:        c.Input.TouchSlop,
		DoubleTapSlop:    c.Input.DoubleTapSlop,
	}
}

// PollerGroups converts the stick section for the emulator.
func (c *Config) PollerGroups() []PollerGroup {
	out := make([]PollerGroup, 0, len(c.Stick.Pollers))
	for _, p := range c.Stick.Pollers {
		out = append(out, PollerGroup{
			Name:       p.Name,
			Period:     time.Duration(p.PeriodMS) * time.Millisecond,
			Group:      p.Group,
			Directions: p.Directions,
		})
	}
	return out
}

// ShellOptions builds the shell configuration around the caller's engine
// factory and host.
func (c *Config) ShellOptions(engine EngineFactory, host Host) ShellOptions {
	return ShellOptions{
		Paths: PathOptions{
			StorageRoot:     c.Paths.StorageRoot,
			FilesDir:        c.Paths.FilesDir,
			InternalSaveDir: c.Paths.InternalSaveDir,
		},
		Engine: engine,
		Host:   host,
		Input: NormalizerOptions{
			Mouse:            true,
			MouseGuard:       c.RightButtonGuard(),
			Bindings:         c.Stick.Bindings,
			Deadzone:         c.Stick.Deadzone,
			LongPressTimeout: time.Duration(c.Input.LongPressMS) * time.Millisecond,
			TrackballScale:   c.Input.TrackballScale,
			Gesture:          c.GestureOptions(),
		},
		Pollers:     c.PollerGroups(),
		JoinTimeout: time.Duration(c.Engine.JoinTimeoutMS) * time.Millisecond,
	}
}

// RightButtonGuard returns the pointer guard window.
func (c *Config) RightButtonGuard() time.Duration {
	return time.Duration(c.Pointer.RightButtonGuardMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
