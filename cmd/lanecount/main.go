// Command lanecount counts vehicles crossing a detection band in a fixed
// camera view. Input is either a directory of foreground masks or, in builds
// with -tags withcv, a video file, stream or camera.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/lanecount/internal/config"
	"github.com/banshee-data/lanecount/internal/counting"
	"github.com/banshee-data/lanecount/internal/db"
	"github.com/banshee-data/lanecount/internal/display"
	"github.com/banshee-data/lanecount/internal/monitor"
	"github.com/banshee-data/lanecount/internal/monitoring"
	"github.com/banshee-data/lanecount/internal/pipeline"
	"github.com/banshee-data/lanecount/internal/timeutil"
	"github.com/banshee-data/lanecount/internal/version"
	"github.com/banshee-data/lanecount/internal/vision"
)

var (
	configPath  = flag.String("config", "", "Counting tuning JSON file (built-in defaults when empty)")
	masksDir    = flag.String("masks", "", "Directory of foreground mask images to replay")
	videoInput   = flag.String("video", "", "Video file, stream URL or camera index such as 0 (needs -tags withcv)")
	dbPath      = flag.String("db", "", "SQLite database for sessions and per-frame counts")
	listen      = flag.String("listen", "", "HTTP listen address for status and debug charts, e.g. :8080")
	plotDir     = flag.String("plot-dir", "", "Write PNG plots of the run into this directory")
	serialPath  = flag.String("serial", "", "Serial port of the roadside count display")
	serialBaud  = flag.Int("serial-baud", 9600, "Baud rate of the count display")
	skipEmpty   = flag.Bool("skip-empty", false, "Do not store frames without peaks in the database")
	debugLog    = flag.Bool("debug", false, "Log session and tuning diagnostics to stderr")
	traceLog    = flag.Bool("trace", false, "Log per-frame peaks and counts to stderr")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// runOptions carries the parsed command line into run.
type runOptions struct {
	ConfigPath string
	MasksDir   string
	VideoInput  string
	DBPath     string
	Listen     string
	PlotDir    string
	SerialPath string
	SerialBaud int
	SkipEmpty  bool
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	var diag, trace io.Writer
	if *debugLog {
		diag = os.Stderr
	}
	if *traceLog {
		trace = os.Stderr
	}
	counting.SetLogWriters(os.Stderr, diag, trace)
	pipeline.SetLogWriters(os.Stderr, diag, trace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		ConfigPath: *configPath,
		MasksDir:   *masksDir,
		VideoInput:  *videoInput,
		DBPath:     *dbPath,
		Listen:     *listen,
		PlotDir:    *plotDir,
		SerialPath: *serialPath,
		SerialBaud: *serialBaud,
		SkipEmpty:  *skipEmpty,
	}
	summary, err := run(ctx, opts)
	if err != nil {
		log.Fatalf("lanecount: %v", err)
	}
	fmt.Printf("session %s: %d vehicles in %d frames (%d rejected, %d flat, %.2f peaks/frame)\n",
		summary.SessionID, summary.Total, summary.Frames, summary.Rejected, summary.Degenerate, summary.PeaksPerFrame())
}

func loadConfig(path string) (*config.CountingConfig, error) {
	if path == "" {
		return config.DefaultCountingConfig(), nil
	}
	return config.LoadCountingConfig(path)
}

func openSource(opts runOptions, cfg *config.CountingConfig) (pipeline.FrameSource, string, error) {
	switch {
	case opts.MasksDir != "" && opts.VideoInput != "":
		return nil, "", errors.New("-masks and -video are mutually exclusive")
	case opts.MasksDir != "":
		src, err := vision.NewDirSource(opts.MasksDir)
		if err != nil {
			return nil, "", err
		}
		src.Threshold = uint8(cfg.GetMaskThreshold())
		return src, opts.MasksDir, nil
	case opts.VideoInput != "":
		src, err := openVideo(opts.VideoInput, cfg)
		if err != nil {
			return nil, "", err
		}
		return src, opts.VideoInput, nil
	default:
		return nil, "", errors.New("one of -masks or -video is required")
	}
}

// run counts one input to completion or until ctx is cancelled. Cancellation
// is a normal stop: the summary so far is returned without error.
func run(ctx context.Context, opts runOptions) (counting.Summary, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return counting.Summary{}, err
	}

	source, label, err := openSource(opts, cfg)
	if err != nil {
		return counting.Summary{}, err
	}
	defer source.Close()

	session, err := pipeline.NewSessionFromSource(source, cfg.Params())
	if err != nil {
		return counting.Summary{}, err
	}
	g := session.Geometry()
	monitoring.Logf("session %s: %dx%d frames, band %v, source %s", session.ID(), g.FrameWidth, g.FrameHeight, g.Band, label)

	sinks := []pipeline.FrameSink{pipeline.FrameSinkFunc(logCounts)}

	var database *db.DB
	var recorder *db.Recorder
	if opts.DBPath != "" {
		database, err = db.NewDB(opts.DBPath)
		if err != nil {
			return counting.Summary{}, fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		recorder = db.NewRecorder(database, timeutil.RealClock{})
		recorder.SkipEmpty = opts.SkipEmpty
		if err := recorder.StartSession(session, label); err != nil {
			return counting.Summary{}, err
		}
		sinks = append(sinks, recorder)
	}

	if opts.SerialPath != "" {
		port, err := display.Open(opts.SerialPath, display.PortOptions{BaudRate: opts.SerialBaud})
		if err != nil {
			return counting.Summary{}, err
		}
		defer port.Close()
		sinks = append(sinks, display.NewSink(port))
	}

	var plotter *monitor.SignalPlotter
	if opts.PlotDir != "" {
		plotter = monitor.NewSignalPlotter(opts.PlotDir)
		sinks = append(sinks, plotter)
	}

	var wg sync.WaitGroup
	serverCtx, stopServer := context.WithCancel(ctx)
	defer func() {
		stopServer()
		wg.Wait()
	}()
	if opts.Listen != "" {
		ws := monitor.NewWebServer(monitor.Config{Address: opts.Listen, DB: database})
		sinks = append(sinks, ws)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Start(serverCtx); err != nil {
				monitoring.Logf("web server: %v", err)
			}
		}()
	}

	summary, err := pipeline.NewRunner(source, session, sinks...).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return summary, err
	}

	if recorder != nil {
		if err := recorder.EndSession(summary); err != nil {
			monitoring.Logf("failed to store session summary: %v", err)
		}
	}
	if plotter != nil {
		files, err := plotter.GeneratePlots()
		if err != nil {
			monitoring.Logf("failed to write plots: %v", err)
		}
		for _, f := range files {
			monitoring.Logf("wrote %s", f)
		}
	}
	return summary, nil
}

func logCounts(ctx context.Context, res counting.FrameResult) error {
	if res.Added > 0 {
		monitoring.Logf("frame %d: +%d vehicles, total %d", res.Index, res.Added, res.Total)
	}
	return nil
}
