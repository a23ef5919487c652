package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"droidshell"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("droidshell v%s\n", version)
	fmt.Println("Input and lifecycle shell for the game engine")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  droidshell [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Reads keyboards, mice and gamepads from Linux input devices, turns them")
	fmt.Println("  into engine events (including D-pad emulation from analog sticks) and")
	fmt.Println("  runs the engine through its lifecycle. Without a native engine linked")
	fmt.Println("  in, a loopback engine logs every event it receives.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file (optional; defaults are used without it)")
	fmt.Println()
	fmt.Println("  -storage-root string")
	fmt.Println("        Directory holding the games; saves go to <root>/ScummVM/Saves/")
	fmt.Println()
	fmt.Println("  -device string")
	fmt.Println("        Single Linux input event device, replaces input.devices")
	fmt.Println()
	fmt.Println("  -monitor / -monitor-listen string")
	fmt.Println("        Enable the websocket event monitor and set its listen address")
	fmt.Println()
	fmt.Println("  -ipc / -ipc-socket string")
	fmt.Println("        Enable the IPC socket and set its path")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug")
	fmt.Println()
	fmt.Println("  -log-format string")
	fmt.Println("        Log format: text, json")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  droidshell -config ~/.config/droidshell/droidshell.yaml")
	fmt.Println("  droidshell -device /dev/input/event4 -monitor -log-level debug")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to input devices (run as root or add user to 'input' group)")
	fmt.Println("  - Use droidctl to inject input or pause/resume/quit over the IPC socket")
	fmt.Println()
}

func main() {
	var (
		configPath    = flag.String("config", "", "YAML config file")
		storageRoot   = flag.String("storage-root", "", "Directory holding the games")
		device        = flag.String("device", "", "Linux input event device")
		monitor       = flag.Bool("monitor", false, "Enable the websocket event monitor")
		monitorListen = flag.String("monitor-listen", "", "Monitor listen address")
		ipcEnabled    = flag.Bool("ipc", true, "Enable the IPC socket")
		ipcSocket     = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		logLevel      = flag.String("log-level", "", "Log level: error, warn, info, debug")
		logFormat     = flag.String("log-format", "", "Log format: text, json")
		showVersion   = flag.Bool("version", false, "Print version and exit")
		showHelp      = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := droidshell.DefaultConfig()
	if *configPath != "" {
		loaded, err := droidshell.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var o droidshell.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "storage-root":
			o.StorageRoot = storageRoot
		case "device":
			o.Device = device
		case "monitor":
			o.MonitorEnabled = monitor
		case "monitor-listen":
			o.MonitorListen = monitorListen
		case "ipc":
			o.IPCEnabled = ipcEnabled
		case "ipc-socket":
			o.IPCSocketPath = ipcSocket
		case "log-level":
			o.LogLevel = logLevel
		case "log-format":
			o.LogFormat = logFormat
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	level, _ := droidshell.ParseLogLevel(cfg.Logging.Level)
	logger := droidshell.NewLogger(level, cfg.Logging.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("droidshell stopped", "error", err)
		os.Exit(1)
	}
}

// errShellStopped ends the run group when the engine exits on its own.
var errShellStopped = errors.New("shell stopped")

func run(ctx context.Context, cfg droidshell.Config, logger *slog.Logger) error {
	logger.Debug("starting droidshell", "version", version)

	devices, err := openDevices(cfg.Input.Devices)
	if err != nil {
		logger.Error("failed to open input device", "error", err, "tip", "run as root or add user to 'input' group")
		return err
	}
	defer closeDevices(devices)

	host := droidshell.NewLogHost(logger)
	engineLog := logger.With("component", "engine")
	sink := droidshell.PusherFunc(func(ev droidshell.Event) {
		engineLog.Debug("event", "event", ev)
	})

	opts := cfg.ShellOptions(droidshell.LoopbackFactory(cfg.Engine.QueueSize, sink, logger), host)
	opts.Logger = logger

	var mon *droidshell.Monitor
	if cfg.Monitor.Enabled {
		mon = droidshell.NewMonitor(logger, droidshell.HubConfig{
			SendBuf:      cfg.Monitor.SendBuf,
			BroadcastBuf: cfg.Monitor.BroadcastBuf,
		})
		opts.Tap = mon
		opts.OnTransition = mon.PublishTransition
	}

	shell, err := droidshell.NewShell(opts)
	if err != nil {
		return err
	}

	if err := shell.Create(); err != nil {
		return err
	}
	if err := shell.Resume(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if mon != nil {
		g.Go(func() error {
			mon.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			return runMonitorServer(gctx, cfg.Monitor, mon, logger)
		})
	}

	if cfg.IPC.Enabled {
		g.Go(func() error {
			return droidshell.RunIPCServer(gctx, cfg.IPC.SocketPath, shell, logger)
		})
	}

	if len(devices) > 0 {
		events := make(chan deviceEvent, 64)
		removed := make(chan int, len(devices))

		g.Go(func() error {
			return readDevices(gctx, devices, events, removed, logger)
		})
		g.Go(func() error {
			return translateInput(gctx, cfg.Input, devices, events, removed, shell.Normalizer())
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-shell.EngineDone():
			return errShellStopped
		}
	})

	logger.Info("listening",
		"devices", cfg.Input.Devices,
		"storage_root", cfg.Paths.StorageRoot,
		"ipc", cfg.IPC.SocketPath,
		"monitor", cfg.Monitor.Enabled)

	err = g.Wait()

	logger.Info("shutting down")
	if derr := shell.Destroy(); derr != nil {
		logger.Warn("engine teardown", "error", derr)
	}

	if errors.Is(err, errShellStopped) {
		return shell.EngineErr()
	}
	return err
}

func openDevices(paths []string) ([]inputDevice, error) {
	var out []inputDevice
	for i, p := range paths {
		p = droidshell.ExpandPath(p)
		f, err := os.Open(p)
		if err != nil {
			closeDevices(out)
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		out = append(out, inputDevice{id: i + 1, path: p, f: f})
	}
	return out, nil
}

func closeDevices(devices []inputDevice) {
	for _, d := range devices {
		_ = d.f.Close()
	}
}

// translateInput feeds every device event through its translator until ctx
// is canceled.
func translateInput(ctx context.Context, cfg droidshell.InputConfig, devices []inputDevice, events <-chan deviceEvent, removed <-chan int, n *droidshell.Normalizer) error {
	translators := make(map[int]*evdevDevice, len(devices))
	for _, d := range devices {
		translators[d.id] = newEvdevDevice(d.id, d.path, cfg.AbsMin, cfg.AbsMax)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case id := <-removed:
			delete(translators, id)
			n.Devices().Remove(id)

		case de := <-events:
			if t, ok := translators[de.device]; ok {
				t.handle(de.ev, n)
			}
		}
	}
}

// runMonitorServer serves the monitor websocket and shuts the server down
// gracefully when ctx is canceled.
func runMonitorServer(ctx context.Context, cfg droidshell.MonitorConfig, mon *droidshell.Monitor, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mon.Register(mux, cfg.Path)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("monitor listening", "addr", cfg.Listen, "path", cfg.Path)

	errCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("monitor server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("monitor server shutdown: %w", err)
		}
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}
