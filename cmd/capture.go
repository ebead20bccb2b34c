package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smazurov/v4lcap/internal/capture"
	"github.com/smazurov/v4lcap/internal/config"
	"github.com/smazurov/v4lcap/internal/logging"
	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// captureFlags holds command line overrides for the [capture] table.
type captureFlags struct {
	configFile  string
	device      string
	input       int
	width       uint32
	height      uint32
	format      string
	field       string
	progressive bool
	fps         uint32
	highQuality bool
	buffers     int
	policy      string
	logJSON     bool
}

func (f *captureFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configFile, "config", "c", "", "Capture configuration file")
	fs.StringVarP(&f.device, "device", "d", "", "Device node")
	fs.IntVar(&f.input, "input", 0, "Video input index")
	fs.Uint32Var(&f.width, "width", 0, "Requested width")
	fs.Uint32Var(&f.height, "height", 0, "Requested height")
	fs.StringVarP(&f.format, "format", "f", "", "Pixel format FourCC (e.g. YUYV, MJPG)")
	fs.StringVar(&f.field, "field", "", "Field order (any, none, interlaced, ...)")
	fs.BoolVar(&f.progressive, "progressive", false, "Request progressive frames (same as --field none)")
	fs.Uint32Var(&f.fps, "fps", 0, "Requested frame rate")
	fs.BoolVar(&f.highQuality, "high-quality", false, "Request high quality capture mode")
	fs.IntVarP(&f.buffers, "buffers", "b", 0, "Number of mmap buffers")
	fs.StringVar(&f.policy, "mapping-policy", "", "Buffer mapping policy (strict, truncate)")
	fs.BoolVar(&f.logJSON, "log-json", false, "Use JSON log format")
}

// settings merges the flags that were set over the configuration file.
func (f *captureFlags) settings(cmd *cobra.Command) (config.CaptureSettings, error) {
	file := config.CaptureFile{}
	if f.configFile != "" {
		var err error
		if file, err = config.ReadCaptureFile(f.configFile); err != nil {
			return config.CaptureSettings{}, err
		}
	}

	s := &file.Capture
	fs := cmd.Flags()
	if fs.Changed("device") {
		s.Device = f.device
	}
	if fs.Changed("input") {
		s.Input = &f.input
	}
	if fs.Changed("width") {
		s.Width = f.width
	}
	if fs.Changed("height") {
		s.Height = f.height
	}
	if fs.Changed("format") {
		s.Format = f.format
	}
	if fs.Changed("field") {
		s.Field = f.field
	}
	if fs.Changed("progressive") && f.progressive {
		s.Field = v4l2.FieldNone.String()
	}
	if fs.Changed("fps") {
		s.FPS, s.TimePerFrame = f.fps, ""
	}
	if fs.Changed("high-quality") {
		s.HighQuality = f.highQuality
	}
	if fs.Changed("buffers") {
		s.Buffers = f.buffers
	}
	if fs.Changed("mapping-policy") {
		s.MappingPolicy = f.policy
	}
	return file.Settings()
}

func (f *captureFlags) initLogging() {
	cfg := logging.Config{Level: "info", Format: "text"}
	if f.configFile != "" {
		cfg = config.LoadLoggingConfig(f.configFile)
	}
	if f.logJSON {
		cfg.Format = "json"
	}
	logging.Initialize(cfg)
}

// CreateCaptureCmd creates the capture command.
func CreateCaptureCmd() *cobra.Command {
	var (
		flags   captureFlags
		frames  int
		timeout time.Duration
		saveDir string
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Stream frames from a capture device",
		Long: `Opens the device, negotiates the requested format, maps the buffer pool and ` +
			`streams frames until interrupted or --frames have been captured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.initLogging()
			logger := logging.GetLogger("capture")

			settings, err := flags.settings(cmd)
			if err != nil {
				return err
			}

			var handlers []capture.Handler
			if !quiet {
				handlers = append(handlers, capture.PrintHandler(cmd.OutOrStdout()))
			}
			if saveDir != "" {
				save, err := capture.SaveHandler(saveDir, settings.Session.PixelFormat)
				if err != nil {
					return err
				}
				handlers = append(handlers, save)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := capture.NewRunner(capture.Options{
				Session:      settings.Session,
				Buffers:      settings.Buffers,
				Frames:       frames,
				FrameTimeout: timeout,
				Logger:       logger,
			})
			if err := runner.Run(ctx, capture.Chain(handlers...)); err != nil {
				return err
			}

			st := runner.Status()
			logger.Info("Capture finished", "frames", st.Frames, "dropped", st.Dropped)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&frames, "frames", "n", 0, "Stop after this many frames (0 runs until interrupted)")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultFrameTimeout, "Maximum wait for each frame")
	cmd.Flags().StringVarP(&saveDir, "save-dir", "o", "", "Write each frame to this directory")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print a line per frame")
	return cmd
}

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd() *cobra.Command {
	var (
		flags   captureFlags
		skip    int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "snapshot <output>",
		Short: "Write a single frame to a file",
		Long:  `Captures one frame after discarding --skip warm-up frames and writes its raw payload to output.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.initLogging()

			settings, err := flags.settings(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = capture.CaptureScreenshot(ctx, capture.Options{
				Session:      settings.Session,
				Buffers:      settings.Buffers,
				FrameTimeout: timeout,
				Logger:       logging.GetLogger("capture"),
			}, args[0], skip)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&skip, "skip", 5, "Frames to discard while the sensor settles")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultFrameTimeout, "Maximum wait for each frame")
	return cmd
}
