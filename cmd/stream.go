package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/config"
	"github.com/andresmejia3/facecast/internal/display"
	"github.com/andresmejia3/facecast/internal/httpc"
	"github.com/andresmejia3/facecast/internal/log"
	"github.com/andresmejia3/facecast/internal/session"
	"github.com/andresmejia3/facecast/internal/source"
	"github.com/andresmejia3/facecast/internal/utils"
	"github.com/andresmejia3/facecast/internal/web"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var streamOpts Options

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream a camera or video and upload every Nth frame to the recognition API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := resolveConfig(cmd, Cfg, streamOpts)
		if err != nil {
			return err
		}
		if err := validateStreamFlags(cfg); err != nil {
			return err
		}
		return runStream(cmd.Context(), cfg, streamOpts.Progress)
	},
}

func init() {
	def := config.Default()
	addSourceFlags(streamCmd, &streamOpts)
	addUploadFlags(streamCmd, &streamOpts)
	streamCmd.Flags().IntVarP(&streamOpts.NthFrame, "nth-frame", "n", def.Interval, "Upload every Nth frame (1-60)")
	streamCmd.Flags().BoolVar(&streamOpts.Preview, "preview", def.Preview, "Show the live preview on the dashboard")
	streamCmd.Flags().DurationVar(&streamOpts.Tick, "tick", def.Tick, "Delay between frames (0 reads as fast as the source delivers)")
	streamCmd.Flags().StringVar(&streamOpts.WebAddr, "web", "", "Serve the dashboard on this address (e.g. :8080)")
	streamCmd.Flags().BoolVarP(&streamOpts.Progress, "progress", "p", false, "Show a progress bar (frame count for files, spinner for live sources)")

	rootCmd.AddCommand(streamCmd)
}

// validateStreamFlags checks what Config.Validate cannot: a source must be named.
func validateStreamFlags(cfg config.Config) error {
	if strings.TrimSpace(cfg.Source) == "" {
		return errors.New("no source: pass -i/--input or set source in the config file")
	}
	return nil
}

// runStream wires the API client, display surfaces and optional dashboard around one session.
func runStream(ctx context.Context, cfg config.Config, progress bool) error {
	client, err := api.NewClient(cfg.Endpoint, httpc.NewClient(cfg.Timeout))
	if err != nil {
		return err
	}

	surfaces := []display.Surface{display.NewConsole(stderr)}
	opts := cfg.SessionOptions()

	var bar *progressbar.ProgressBar
	if progress {
		bar = newProgressBar(ctx, cfg.Source)
		opts.OnFrame = func(int) { bar.Add(1) }
	}

	var dash *web.Dashboard
	if cfg.WebAddr != "" {
		dash = web.NewDashboard(web.NewHub(256), cfg.JPEGQuality, 0)
		surfaces = append(surfaces, dash)
	}

	sess, err := session.New(client, display.Multi(surfaces...), opts)
	if err != nil {
		return err
	}

	webErr := make(chan error, 1)
	webCtx, stopWeb := context.WithCancel(ctx)
	defer stopWeb()
	if dash != nil {
		srv, err := web.NewServer(cfg.WebAddr, sess, dash)
		if err != nil {
			return err
		}
		go func() { webErr <- srv.Run(webCtx) }()
		fmt.Fprintf(stderr, "🌐 Dashboard at http://%s\n", dashboardHost(cfg.WebAddr))
	}

	fmt.Fprintf(stderr, "🎥 Opening %s (session %s)\n", cfg.Source, sess.ID[:8])
	fmt.Fprintf(stderr, "📡 Uploading every %d frame(s) to %s\n", cfg.Interval, client.Endpoint(cfg.Mode))

	open := func(ctx context.Context) (source.Source, error) {
		return source.Open(ctx, cfg.Source, cfg.SourceOptions())
	}
	sum, err := sess.Run(ctx, open)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		// open failures are already on the console, with ffmpeg's reason when it left one
		if !errors.Is(err, source.ErrOpen) {
			utils.ShowError(stderr, "Session failed", err, nil)
		}
		return reported(err)
	}

	fmt.Fprintf(stderr, "\n🏁 Session %s finished. Read %d frames, sampled %d, uploaded %d, failed %d.\n",
		sess.ID[:8], sum.Frames, sum.Sampled, sum.Uploaded, sum.Failed)

	if dash != nil {
		if sum.Ended && ctx.Err() == nil {
			// keep the last result visible until the user quits
			fmt.Fprintln(stderr, "⏸️  Stream ended. Dashboard stays up, press Ctrl+C to exit.")
			<-ctx.Done()
		}
		stopWeb()
		if err := <-webErr; err != nil {
			log.Error("dashboard stopped with error", "error", err)
		}
	}
	return nil
}

// newProgressBar sizes the bar from ffprobe for files; live and synthetic sources get a spinner.
func newProgressBar(ctx context.Context, desc string) *progressbar.ProgressBar {
	total := -1
	if !strings.HasPrefix(desc, source.SyntheticScheme) && !source.IsStillImage(desc) {
		if n := utils.GetTotalFrames(ctx, desc); n > 0 {
			total = n
		}
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("📡 Streaming"),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionShowCount(),
	)
}

func dashboardHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
