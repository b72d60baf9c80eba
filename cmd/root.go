package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/config"
	"github.com/andresmejia3/facecast/internal/log"
	"github.com/spf13/cobra"
)

// Options holds the flags shared by stream, snap and probe.
type Options struct {
	InputPath     string
	ImagePath     string
	NthFrame      int
	Mode          string
	Endpoint      string
	Preview       bool
	Tick          time.Duration
	Timeout       time.Duration
	WebAddr       string
	Progress      bool
	Backend       string
	RTSPTransport string
}

var (
	// Cfg is the configuration loaded in PersistentPreRunE, before flag overrides.
	Cfg = config.Default()

	configPath string
	logLevel   string

	// stderr receives every user-facing status and error line.
	stderr io.Writer = os.Stderr
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "facecast",
	Short:   "Stream camera frames to a face-recognition API",
	Version: Version,
	// errors are printed once by run, or already shown by the command
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Init(logLevel)
		if configPath == "" {
			return nil
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}
		Cfg = *loaded
		log.Debug("config loaded", "path", configPath)
		return nil
	},
}

func Execute() {
	// Ctrl+C stops a running session cleanly
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run executes the command line and prints the error unless the command already showed it.
func run(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.As(err, new(*reportedError)) {
		fmt.Fprintln(stderr, err)
	}
	return err
}

// reportedError marks an error the user has already seen, on the console or in an error box.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (flags override its values)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Diagnostic log level: debug, info, warn, error")
}

// addSourceFlags registers the flags every command that opens a source needs.
func addSourceFlags(cmd *cobra.Command, opts *Options) {
	def := config.Default()
	cmd.Flags().StringVarP(&opts.InputPath, "input", "i", "", "Stream URL (rtsp://, http://), camera (/dev/video0, device:0), video file or synthetic://N")
	cmd.Flags().StringVar(&opts.Backend, "backend", def.Backend, "Capture backend: ffmpeg or gocv")
	cmd.Flags().StringVar(&opts.RTSPTransport, "rtsp-transport", def.RTSPTransport, "RTSP transport: tcp or udp")
}

// addUploadFlags registers the flags every command that uploads needs.
func addUploadFlags(cmd *cobra.Command, opts *Options) {
	def := config.Default()
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", def.Mode.String(), "API mode: recognize, register or face-reg")
	cmd.Flags().StringVarP(&opts.Endpoint, "endpoint", "e", def.Endpoint, "Recognition API base URL")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", def.Timeout, "Upload timeout")
}

// resolveConfig layers explicitly set flags over the loaded configuration and validates the result.
func resolveConfig(cmd *cobra.Command, base config.Config, opts Options) (config.Config, error) {
	cfg := base
	changed := cmd.Flags().Changed

	if changed("input") || cfg.Source == "" {
		cfg.Source = opts.InputPath
	}
	if changed("nth-frame") {
		cfg.Interval = opts.NthFrame
	}
	if changed("mode") {
		m, err := api.ParseMode(opts.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = m
	}
	if changed("endpoint") {
		cfg.Endpoint = opts.Endpoint
	}
	if changed("preview") {
		cfg.Preview = opts.Preview
	}
	if changed("tick") {
		cfg.Tick = opts.Tick
	}
	if changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if changed("web") {
		cfg.WebAddr = opts.WebAddr
	}
	if changed("backend") {
		cfg.Backend = opts.Backend
	}
	if changed("rtsp-transport") {
		cfg.RTSPTransport = opts.RTSPTransport
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
