package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/v4lcap/cmd"
	"github.com/smazurov/v4lcap/internal/api"
	"github.com/smazurov/v4lcap/internal/capture"
	"github.com/smazurov/v4lcap/internal/config"
	"github.com/smazurov/v4lcap/internal/events"
	"github.com/smazurov/v4lcap/internal/logging"
	"github.com/smazurov/v4lcap/internal/metrics"
	"github.com/smazurov/v4lcap/internal/metrics/exporters"
	"github.com/smazurov/v4lcap/internal/version"
	"github.com/smazurov/v4lcap/pkg/linuxav/hotplug"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"v4lcap.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Capture settings; the device itself is described by the [capture] table.
	CaptureAutostart    bool          `help:"Start capturing when the server starts" default:"true" toml:"server.capture_autostart" env:"CAPTURE_AUTOSTART"`
	CaptureFrameTimeout time.Duration `help:"Maximum wait for each frame" default:"5s" toml:"server.frame_timeout" env:"CAPTURE_FRAME_TIMEOUT"`
	CaptureWatchConfig  bool          `help:"Restart capture when the configuration file changes" default:"true" toml:"server.watch_config" env:"CAPTURE_WATCH_CONFIG"`
	CaptureHotplug      bool          `help:"Watch for video devices being plugged and unplugged" default:"true" toml:"server.hotplug" env:"CAPTURE_HOTPLUG"`

	// Metrics settings
	MetricsPrometheusEnabled bool          `help:"Expose Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsRateInterval      time.Duration `help:"Measured frame rate sampling interval" default:"1s" toml:"metrics.rate_interval" env:"METRICS_RATE_INTERVAL"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingV4L2    string `help:"Device session logging level" default:"info" toml:"logging.v4l2" env:"LOGGING_V4L2"`
	LoggingConfig  string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

// startHotplug forwards video device uevents to the runner until ctx ends.
func startHotplug(ctx context.Context, runner *capture.Runner, bus *events.Bus, logger *slog.Logger) {
	monitor, err := hotplug.NewMonitor(hotplug.SubsystemVideo4Linux)
	if err != nil {
		logger.Warn("Hotplug monitoring unavailable", "error", err)
		return
	}

	ch := make(chan hotplug.Event, 16)
	go func() {
		defer func() { _ = monitor.Close() }()
		if runErr := monitor.Run(ctx, ch); runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Warn("Hotplug monitor stopped", "error", runErr)
		}
	}()
	go capture.WatchDevices(ctx, ch, runner, bus, logging.GetLogger("capture"))
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"capture": opts.LoggingCapture,
				"v4l2":    opts.LoggingV4L2,
				"config":  opts.LoggingConfig,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
			},
		})
		logger := logging.GetLogger("main")

		settings, err := config.LoadCaptureConfig(opts.Config)
		if err != nil {
			logger.Error("Invalid capture configuration, using defaults", "config", opts.Config, "error", err)
			settings, _ = config.CaptureFile{}.Settings()
		}
		settings.Session.Logger = logging.GetLogger("v4l2")

		eventBus := events.New()
		unsubscribeMetrics := metrics.Subscribe(eventBus)
		sampler := exporters.NewRateSampler(opts.MetricsRateInterval)

		runner := capture.NewRunner(capture.Options{
			Session:      settings.Session,
			Buffers:      settings.Buffers,
			FrameTimeout: opts.CaptureFrameTimeout,
			Bus:          eventBus,
			Logger:       logging.GetLogger("capture"),
		})
		var lastFrame capture.LastFrame

		watcher := config.NewConfigWatcher(
			opts.Config,
			config.LoadCaptureConfig,
			logging.GetLogger("config"),
			config.WithErrorHandler[config.CaptureSettings](func(err error) {
				logger.Warn("Ignoring invalid capture configuration", "error", err)
			}),
		)
		watcher.OnReload(func(s config.CaptureSettings) {
			s.Session.Logger = logging.GetLogger("v4l2")
			runner.Restart(s.Session, s.Buffers)
		})

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Prober:       capture.SystemProber{},
			Runner:       runner,
			Frames:       &lastFrame,
			EventBus:     eventBus,
		}
		if opts.MetricsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			sampler.Start(ctx)

			if opts.CaptureAutostart {
				runner.Start(ctx, lastFrame.Handler())
			}

			if opts.CaptureHotplug {
				startHotplug(ctx, runner, eventBus, logger)
			}

			if opts.CaptureWatchConfig {
				if startErr := watcher.Start(); startErr != nil {
					logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
				}
			}

			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if stopErr := server.Stop(stopCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			_ = watcher.Stop()
			runner.Stop()
			cancel()
			sampler.Stop()
			unsubscribeMetrics()
		})
	})

	cli.Root().Use = "v4lcap"
	cli.Root().Short = "V4L2 capture service"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(
		cmd.CreateDevicesCmd(),
		cmd.CreateFormatsCmd(),
		cmd.CreateCaptureCmd(),
		cmd.CreateSnapshotCmd(),
		cmd.CreateConfigCmd(),
	)

	// Run the CLI
	cli.Run()
}
