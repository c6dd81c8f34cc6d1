package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/citation.report/internal/admin"
	"github.com/banshee-data/citation.report/internal/citation"
	"github.com/banshee-data/citation.report/internal/config"
	"github.com/banshee-data/citation.report/internal/console"
	"github.com/banshee-data/citation.report/internal/device"
	"github.com/banshee-data/citation.report/internal/engine"
	"github.com/banshee-data/citation.report/internal/fsutil"
	"github.com/banshee-data/citation.report/internal/monitoring"
	"github.com/banshee-data/citation.report/internal/printer"
	"github.com/banshee-data/citation.report/internal/speech"
	"github.com/banshee-data/citation.report/internal/summary"
	"github.com/banshee-data/citation.report/internal/telemetry"
	"github.com/banshee-data/citation.report/internal/ticket"
	"github.com/banshee-data/citation.report/internal/timeutil"
	"github.com/banshee-data/citation.report/internal/version"
	"github.com/banshee-data/citation.report/internal/workers"
)

var (
	telemetryURL = flag.String("telemetry-url", telemetry.DefaultURL, "Telemetry server endpoint")
	rulesPath    = flag.String("rules", "", "Rules configuration JSON (built-in defaults when empty)")
	outDir       = flag.String("out", ".", "Directory for the violation log, screenshots, tickets and court sessions")
	listen       = flag.String("listen", "127.0.0.1:8080", "Admin listen address for /metrics and /debug/ (empty disables)")

	speechMode  = flag.String("speech", "polly", "Announcement backend: polly, espeak or console")
	pollyRegion = flag.String("polly-region", "us-east-1", "AWS region for Amazon Polly")
	pollyVoice  = flag.String("polly-voice", "Matthew", "Amazon Polly voice")
	beepMode    = flag.String("beep", "beep", "Tone backend: beep or bell")

	printMode   = flag.String("print", "lp", "Ticket printer: lp, serial or none")
	lpDest      = flag.String("lp-destination", "", "lp destination (system default when empty)")
	printerPort = flag.String("printer-port", "/dev/ttyUSB0", "Serial port of the ESC/POS printer")
	printerBaud = flag.Int("printer-baud", 9600, "Baud rate of the ESC/POS printer")

	screenshots = flag.Bool("screenshots", true, "Capture a screenshot for each citation")
	focusMode   = flag.String("focus", "xdotool", "Game focus check: xdotool or always")
	keyboard    = flag.String("keyboard", "", "evdev keyboard device for horn and trailer keys (disabled when empty)")
	inputDir    = flag.String("input-dir", device.DefaultInputDir, "Directory watched for unplugged input devices")
	queueSize   = flag.Int("queue-size", workers.DefaultQueueSize, "Capacity of each worker queue")

	showVersion = flag.Bool("version", false, "Print version and exit")
)

// Output layout under -out.
const (
	logName       = "violations_log.txt"
	screenshotDir = "screenshots"
	ticketDir     = "tickets"
	sessionDir    = "court_sessions"
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("citation %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if err := validateFlags(); err != nil {
		log.Fatal(err)
	}

	rules, err := loadRules(*rulesPath)
	if err != nil {
		log.Fatalf("failed to load rules: %v", err)
	}

	out := console.Stdout()
	monitoring.SetLogger(out.Logf)

	if err := run(rules, out); err != nil {
		out.Event(console.KindError, "[Error] %v", err)
		out.Finish()
		os.Exit(1)
	}
}

func validateFlags() error {
	switch *speechMode {
	case "polly", "espeak", "console":
	default:
		return fmt.Errorf("unknown -speech %q", *speechMode)
	}
	switch *beepMode {
	case "beep", "bell":
	default:
		return fmt.Errorf("unknown -beep %q", *beepMode)
	}
	switch *printMode {
	case "lp", "serial", "none":
	default:
		return fmt.Errorf("unknown -print %q", *printMode)
	}
	switch *focusMode {
	case "xdotool", "always":
	default:
		return fmt.Errorf("unknown -focus %q", *focusMode)
	}
	if *queueSize <= 0 {
		return fmt.Errorf("-queue-size must be positive, got %d", *queueSize)
	}
	return nil
}

func loadRules(path string) (config.Rules, error) {
	if path == "" {
		return config.DefaultRules(), nil
	}
	cfg, err := config.LoadRulesConfig(path)
	if err != nil {
		return config.Rules{}, err
	}
	return cfg.Resolve(), nil
}

func newSpeaker(mode string, out *console.Printer) workers.Speaker {
	switch mode {
	case "espeak":
		return speech.Espeak()
	case "console":
		return speech.Console{Out: out}
	default:
		return speech.NewPolly(speech.PollyConfig{Region: *pollyRegion, VoiceID: *pollyVoice}, nil)
	}
}

func newBeeper(mode string) workers.Beeper {
	if mode == "bell" {
		return speech.Bell{Out: os.Stdout}
	}
	return speech.CommandBeeper{}
}

func newTicketPrinter(mode string, fs fsutil.FileSystem) workers.TicketPrinter {
	switch mode {
	case "serial":
		return printer.Serial{
			Path:    *printerPort,
			Options: printer.PortOptions{BaudRate: *printerBaud},
			FS:      fs,
			Open:    printer.OpenSerial,
		}
	case "lp":
		return printer.Spooler{Destination: *lpDest}
	}
	return nil
}

func newFocus(mode string) engine.FocusChecker {
	if mode == "always" {
		return device.AlwaysFocused{}
	}
	return device.NewWindowTitleFocus()
}

func run(rules config.Rules, out *console.Printer) error {
	fs := fsutil.OSFileSystem{}
	clock := timeutil.RealClock{}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	if err := fs.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	violations, err := citation.CreateLog(fs, filepath.Join(*outDir, logName))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group := workers.NewGroup(ctx)

	beeper := newBeeper(*beepMode)
	announcements := workers.NewQueue("speech", *queueSize, workers.AnnouncementHandler(newSpeaker(*speechMode, out), beeper), metrics)
	group.AddQueue(announcements)

	recorder := &citation.Recorder{Console: out, Log: violations}
	if *screenshots {
		q := workers.NewQueue("screenshot", *queueSize,
			workers.ScreenshotHandler(filepath.Join(*outDir, screenshotDir), workers.DefaultCapturer(), fs), metrics)
		group.AddQueue(q)
		recorder.Screenshots = q
	}
	if tp := newTicketPrinter(*printMode, fs); tp != nil {
		tickets := filepath.Join(*outDir, ticketDir)
		q := workers.NewQueue("print", *queueSize, workers.PrintHandler(tp, fs, tickets), metrics)
		group.AddQueue(q)
		recorder.Tickets = ticket.Writer{Dir: tickets, FS: fs}
		recorder.Prints = q
	}

	siren := workers.NewSiren(beeper, clock)
	group.Go("siren", siren.Run)

	removal := &device.RemovalFlag{}
	if w, err := device.NewWatcher(*inputDir, removal); err != nil {
		monitoring.Logf("[Device Monitor] disabled: %v", err)
	} else {
		group.Go("device-monitor", w.Run)
	}

	var keys engine.KeyState = device.NoKeys{}
	if *keyboard != "" {
		kb, err := device.OpenKeyboard(*keyboard)
		if err != nil {
			monitoring.Logf("[Keyboard] disabled: %v", err)
		} else {
			keys = kb
			group.Go("keyboard", kb.Run)
		}
	}

	feed := admin.NewFeed()
	eng, err := engine.New(engine.Options{
		Rules:    rules,
		Source:   telemetry.NewClient(*telemetryURL, nil, telemetry.DefaultTimeout),
		Focus:    newFocus(*focusMode),
		Keys:     keys,
		Removal:  removal,
		Announce: announcements,
		Recorder: citation.Tee{recorder, feed},
		Siren:    siren,
		Console:  out,
		Clock:    clock,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}

	var server *http.Server
	if *listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		admin.AttachRoutes(mux, eng, feed)
		server = &http.Server{Addr: *listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				monitoring.Logf("[Admin] server error: %v", err)
			}
		}()
	}

	out.Event(console.KindInfo, "[INFO] citation %s watching %s (rules: %s)", version.Version, *telemetryURL, rulesLabel(*rulesPath))
	runErr := eng.Run(ctx)

	// Shutdown always runs, even after a loop failure.
	out.Event(console.KindInfo, "[INFO] Shutting down...")
	total := eng.Close()
	if err := group.Shutdown(); err != nil {
		monitoring.Logf("[Workers] shutdown error: %v", err)
	}
	feed.Close()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("[Admin] shutdown error: %v", err)
			server.Close()
		}
		cancel()
	}

	gen := summary.Generator{Dir: filepath.Join(*outDir, sessionDir), FS: fs}
	if _, err := gen.Write(violations.Path(), total); err != nil {
		monitoring.Logf("[Ticket Gen] ERROR: %v", err)
	}
	out.Event(console.KindInfo, "[INFO] Session ended with %d points.", total)
	out.Finish()
	return runErr
}

func rulesLabel(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}
