// Command solarsim runs the camera tracking core headlessly: it advances a
// scene session on a fixed frame loop, optionally locks the camera onto a
// body, logs camera state periodically and serves Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rrosmaninho/ICG-ISS/internal/logging"
	"github.com/rrosmaninho/ICG-ISS/internal/observability"
	"github.com/rrosmaninho/ICG-ISS/internal/scene"
	"github.com/rrosmaninho/ICG-ISS/model"
	"github.com/rrosmaninho/ICG-ISS/timectrl"
)

// options are the command-line settings. Zero values keep the
// environment/default scene config.
type options struct {
	Duration    time.Duration
	FPS         float64
	Speed       float64
	Track       model.FocusMode
	MetricsAddr string
	ISSSource   string
	TLE1        string
	TLE2        string
	AssetsDir   string
	LogEvery    int
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, log = logging.WithSessionLogger(ctx, log)

	tracing := observability.TracingConfigFromEnv()
	if cfg, err := sceneConfig(opts); err == nil {
		tracing.Scene = observability.SceneResource(cfg.ISSSource, cfg.SpeedMultiplier)
	}
	shutdownTracing, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	if err := run(ctx, opts, log, nil); err != nil {
		log.Error(ctx, "solarsim exited", logging.Err(err))
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("solarsim", flag.ContinueOnError)
	fs.SetOutput(output)

	var opts options
	var track string
	fs.DurationVar(&opts.Duration, "duration", 0, "how long to run (0 runs until interrupted)")
	fs.Float64Var(&opts.FPS, "fps", 0, "frames per second (default from SOLARSIM_FRAME_INTERVAL or 60)")
	fs.Float64Var(&opts.Speed, "speed", 0, "simulation speed multiplier (default from SOLARSIM_SPEED or 1)")
	fs.StringVar(&track, "track", "free", "initial focus: free, iss, sun, moon or earth")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	fs.StringVar(&opts.ISSSource, "iss-source", "", "ISS motion model: circular or tle")
	fs.StringVar(&opts.TLE1, "tle1", "", "first TLE line for -iss-source=tle")
	fs.StringVar(&opts.TLE2, "tle2", "", "second TLE line for -iss-source=tle")
	fs.StringVar(&opts.AssetsDir, "assets", "", "directory holding material assets (empty keeps placeholders)")
	fs.IntVar(&opts.LogEvery, "log-every", 60, "log camera state every N frames (0 disables)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	mode, err := model.ParseFocusMode(track)
	if err != nil {
		fmt.Fprintln(output, err)
		return options{}, err
	}
	opts.Track = mode
	if opts.FPS < 0 || opts.Speed < 0 || opts.LogEvery < 0 {
		err := fmt.Errorf("-fps, -speed and -log-every must not be negative")
		fmt.Fprintln(output, err)
		return options{}, err
	}
	return opts, nil
}

// sceneConfig overlays the flags on the environment configuration.
func sceneConfig(opts options) (scene.Config, error) {
	cfg := scene.ConfigFromEnv()
	if opts.Speed > 0 {
		cfg.SpeedMultiplier = opts.Speed
	}
	if opts.FPS > 0 {
		cfg.FrameInterval = time.Duration(float64(time.Second) / opts.FPS)
	}
	if opts.ISSSource != "" {
		cfg.ISSSource = opts.ISSSource
	}
	if opts.TLE1 != "" {
		cfg.TLELine1 = opts.TLE1
	}
	if opts.TLE2 != "" {
		cfg.TLELine2 = opts.TLE2
	}
	return cfg, cfg.Validate()
}

// run drives a session until ctx ends or opts.Duration elapses. A nil reg
// registers metrics with the default Prometheus registry.
func run(ctx context.Context, opts options, log logging.Logger, reg prometheus.Registerer) error {
	cfg, err := sceneConfig(opts)
	if err != nil {
		return err
	}

	collector, err := observability.NewSceneCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metricsSrv := serveMetrics(opts.MetricsAddr, collector, log)
	defer func() {
		if metricsSrv == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	// The session logs through the logger carried on ctx.
	ctx = logging.ContextWithLogger(ctx, log)
	sessionOpts := []scene.Option{scene.WithMetricsRecorder(collector)}
	if opts.AssetsDir != "" {
		sessionOpts = append(sessionOpts, scene.WithAssetLoader(scene.NewFileAssetLoader(opts.AssetsDir)))
	}
	session, err := scene.NewSession(ctx, cfg, sessionOpts...)
	if err != nil {
		return err
	}
	defer session.Close()

	if opts.Track != model.ModeFree {
		if err := session.RequestMode(ctx, opts.Track); err != nil {
			return fmt.Errorf("initial focus %s: %w", opts.Track, err)
		}
	}

	frames := 0
	loop := timectrl.NewFrameLoop(cfg.FrameInterval)
	loop.AddListener(func(_ time.Time, realDelta time.Duration) {
		frame := session.Advance(ctx, realDelta, cfg.SpeedMultiplier)
		frames++
		if opts.LogEvery > 0 && frames%opts.LogEvery == 0 {
			logFrame(ctx, log, frame)
		}
	})

	log.Info(ctx, "frame loop started",
		logging.Duration("frame_interval", cfg.FrameInterval),
		logging.Mode("focus", opts.Track),
	)
	<-loop.Start(ctx, opts.Duration)
	log.Info(ctx, "frame loop stopped",
		logging.Int("frames", frames),
		logging.SimTime(session.SimTime()),
	)
	return nil
}

func logFrame(ctx context.Context, log logging.Logger, f scene.Frame) {
	log.Info(ctx, "frame",
		logging.SimTime(f.SimTime),
		logging.Mode("mode", f.Focus.Mode),
		logging.Float("locked_distance", f.Focus.LockedDistance),
		logging.Vec3("camera_position", f.Camera.Position),
		logging.Vec3("camera_target", f.Camera.Target),
		logging.Float("night_visibility", f.Lighting.NightSideVisibility),
		logging.Bool("iss_sunlit", f.Lighting.ISSSunlit),
		logging.Bool("transitioning", f.Transitioning),
	)
}

func serveMetrics(addr string, collector *observability.SceneCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()
	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
