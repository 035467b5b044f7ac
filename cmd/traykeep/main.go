package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/traykeep/traykeep/internal/capture"
	"github.com/traykeep/traykeep/internal/config"
	"github.com/traykeep/traykeep/internal/daemon"
	"github.com/traykeep/traykeep/internal/hotkeys"
	"github.com/traykeep/traykeep/internal/ipc"
	"github.com/traykeep/traykeep/internal/layout"
	"github.com/traykeep/traykeep/internal/match"
	"github.com/traykeep/traykeep/internal/platform"
	"github.com/traykeep/traykeep/internal/reposition"
	"github.com/traykeep/traykeep/internal/restore"
	"github.com/traykeep/traykeep/internal/section"
	"github.com/traykeep/traykeep/internal/x11"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: traykeep daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: traykeep daemon")
			os.Exit(2)
		}
		runDaemon()
	case "toggle":
		os.Exit(runToggle(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "refresh":
		os.Exit(runRefresh(os.Args[2:]))
	case "restore":
		os.Exit(runRestore(os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: traykeep <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the traykeep daemon (foreground)")
	fmt.Fprintln(w, "  toggle              Show or hide the hidden tray section")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  refresh             Re-capture the tray and update the saved layout")
	fmt.Fprintln(w, "  restore             Replay saved icon positions")
	fmt.Fprintln(w, "  move                Move an icon into a section slot")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'traykeep <command> --help' for command-specific options.")
}

func runToggle(args []string) int {
	fs := flag.NewFlagSet("toggle", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: traykeep toggle")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show or hide the hidden tray section via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "toggle takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.Toggle(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: traykeep status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("state:          %s\n", status.State)
	fmt.Printf("visible:        %d\n", status.ItemCounts["visible"])
	fmt.Printf("hidden:         %d\n", status.ItemCounts["hidden"])
	fmt.Printf("always_hidden:  %d\n", status.ItemCounts["alwaysHidden"])
	fmt.Printf("spacers:        %d\n", status.SpacerCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runRefresh(args []string) int {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: traykeep refresh")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Re-capture the tray strip and update the saved layout.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	out, err := client.Refresh()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("visible:       %d\n", out.ItemCounts["visible"])
	fmt.Printf("hidden:        %d\n", out.ItemCounts["hidden"])
	fmt.Printf("always_hidden: %d\n", out.ItemCounts["alwaysHidden"])
	fmt.Printf("new_items:     %d\n", out.NewItems)
	fmt.Printf("overrides:     %d\n", out.Overrides)
	return 0
}

func runRestore(args []string) int {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: traykeep restore")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Replay the saved per-section icon order through simulated drags.")
		fmt.Fprintln(os.Stderr, "Best-effort: icons that are not running are skipped.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	out, err := client.Restore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("attempted: %d\n", out.Attempted)
	fmt.Printf("moved:     %d\n", out.Moved)
	fmt.Printf("skipped:   %d\n", out.Skipped)
	fmt.Printf("failed:    %d\n", out.Failed)
	fmt.Printf("missing:   %d\n", out.Missing)
	return 0
}

func runMove(args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: traykeep move --section SECTION [--index N] [--title TITLE] <namespace>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Move an icon into a section (visible, hidden, alwaysHidden).")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	sectionName := fs.String("section", "", "Target section: visible, hidden or alwaysHidden")
	index := fs.Int("index", 0, "Insertion index within the section")
	title := fs.String("title", "", "Icon title, to disambiguate multi-icon apps")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "move requires <namespace>")
		fs.Usage()
		return 2
	}
	if *sectionName == "" {
		fmt.Fprintln(os.Stderr, "move requires --section")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.MoveItem(fs.Arg(0), *title, *sectionName, *index); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: traykeep reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Reload the daemon configuration from disk.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	if err := client.Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  traykeep config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  traykeep config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/traykeep/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var err error
		if *path == "" {
			_, err = config.Load()
		} else {
			_, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/traykeep/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var cfg *config.Config
		var err error
		if *printDefaults {
			cfg = config.Default()
		} else if *path == "" {
			cfg, err = config.Load()
		} else {
			cfg, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runDaemon() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	logger.Info("configuration loaded",
		"toggle_hotkey", cfg.Hotkeys.Toggle,
		"always_hidden", cfg.GetAlwaysHiddenSection())

	// Connect to display server
	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Disconnect()
	conn := backend.Connection()

	if !backend.HasScreenCapture() {
		logger.Warn("screen capture unavailable; layout refresh will be degraded")
	}
	if !backend.HasInputControl() {
		logger.Warn("XTEST unavailable; icon moves and restoration are disabled")
	}

	// Separator state machine over the two control items
	controlItems := x11.NewControlItems(conn, cfg.GetAlwaysHiddenSection())
	machineOpts := []section.Option{
		section.WithAutoCollapse(cfg.AutoCollapse.GetEnabled(), cfg.AutoCollapse.Delay()),
	}
	if d := cfg.Timing.ToggleDebounce(); d > 0 {
		machineOpts = append(machineOpts, section.WithToggleDebounce(d))
	}
	machine := section.NewMachine(controlItems, logger, machineOpts...)
	if err := machine.Setup(); err != nil {
		log.Fatalf("Failed to set up separator items: %v", err)
	}
	defer machine.Shutdown()
	defer controlItems.Destroy()

	// Core pipeline
	pipeline := capture.NewPipeline(backend, backend, backend, logger)
	matcher := match.NewMatcher(backend, logger)
	repositioner := reposition.NewRepositioner(backend, backend, backend, logger)
	if d := cfg.Timing.GestureDelay(); d > 0 {
		repositioner.SetGestureDelay(d)
	}
	restorer := restore.NewRestorer(matcher, repositioner, backend, logger)
	if d := cfg.Timing.SettleDelay(); d > 0 {
		restorer.SetSettleDelay(d)
	}

	storePath, err := layout.DefaultPath()
	if err != nil {
		log.Fatalf("Failed to resolve layout path: %v", err)
	}
	store := layout.NewStore(storePath)

	controller, err := daemon.NewController(
		machine, pipeline, matcher, repositioner, restorer, store, controlItems, logger)
	if err != nil {
		log.Fatalf("Failed to initialize controller: %v", err)
	}

	logger.Info("traykeep daemon started")

	// Toggle hotkey
	hotkeyHandler := hotkeys.NewHandler(conn, controller, logger)
	if cfg.Hotkeys.Toggle != "" {
		if err := hotkeyHandler.RegisterToggle(cfg.Hotkeys.Toggle); err != nil {
			logger.Warn("failed to register toggle hotkey",
				"hotkey", cfg.Hotkeys.Toggle, "error", err)
		} else {
			logger.Info("toggle hotkey registered", "hotkey", cfg.Hotkeys.Toggle)
		}
	}

	// First capture, then best-effort position restoration in the
	// background: restoring drags dozens of icons with settle pauses and
	// must not block hotkey registration or the IPC server.
	if err := controller.Refresh(); err != nil {
		logger.Warn("initial refresh failed", "error", err)
	}
	go controller.RestoreSavedPositions()

	// Create config reload channel
	reloadChan := make(chan *config.Config, 1)

	// Start IPC server
	ipcServer, err := ipc.NewServer(controller, logger, reloadChan)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	// Periodic refresh keeps the layout converged with icons that come
	// and go outside traykeep's control.
	refreshLoop := daemon.NewRefreshLoop(daemon.RefreshLoopConfig{
		Interval: 30 * time.Second,
		Logger:   logger,
	}, controller)
	loopCtx, loopCancel := context.WithCancel(context.Background())
	defer loopCancel()
	go refreshLoop.Run(loopCtx)

	// Setup signal handlers
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	applyConfig := func(newCfg *config.Config) {
		machine.SetAutoCollapse(newCfg.AutoCollapse.GetEnabled(), newCfg.AutoCollapse.Delay())
		if d := newCfg.Timing.GestureDelay(); d > 0 {
			repositioner.SetGestureDelay(d)
		}
		if d := newCfg.Timing.SettleDelay(); d > 0 {
			restorer.SetSettleDelay(d)
		}
		if newCfg.Hotkeys.Toggle != cfg.Hotkeys.Toggle {
			logger.Warn("toggle hotkey change requires a daemon restart")
		}
		cfg = newCfg
		logger.Info("config reloaded")
	}

	// Handle signals and config reloads
	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received SIGHUP, reloading config")
					newCfg, err := config.Load()
					if err != nil {
						logger.Error("config reload failed", "error", err)
						continue
					}
					applyConfig(newCfg)

				case os.Interrupt, syscall.SIGTERM:
					logger.Info("shutting down traykeep daemon")
					loopCancel()
					ipcServer.Stop()
					machine.Shutdown()
					controlItems.Destroy()
					os.Exit(0)
				}

			case newCfg := <-reloadChan:
				// Config was reloaded via IPC, update components
				applyConfig(newCfg)
			}
		}
	}()

	// Start event loop (blocking)
	logger.Info("entering event loop")
	backend.EventLoop()
}

// newLogger builds the daemon logger: stderr plus a size-rotated log
// file.
func newLogger(cfg *config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logFile, err := cfg.LogFile()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotated := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, rotated), &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler), nil
}
