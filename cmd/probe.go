package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/andresmejia3/facecast/internal/config"
	"github.com/andresmejia3/facecast/internal/source"
	"github.com/andresmejia3/facecast/internal/utils"
	"github.com/spf13/cobra"
)

var probeOpts Options

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Open a source, read one frame and report what it delivers, without uploading",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := resolveConfig(cmd, Cfg, probeOpts)
		if err != nil {
			return err
		}
		if strings.TrimSpace(cfg.Source) == "" {
			return errors.New("no source: pass -i/--input or set source in the config file")
		}
		return runProbe(cmd.Context(), os.Stdout, cfg)
	},
}

func init() {
	addSourceFlags(probeCmd, &probeOpts)
	rootCmd.AddCommand(probeCmd)
}

func runProbe(ctx context.Context, out io.Writer, cfg config.Config) error {
	start := time.Now()
	src, err := source.Open(ctx, cfg.Source, cfg.SourceOptions())
	if err != nil {
		var openErr *source.OpenError
		if errors.As(err, &openErr) {
			utils.ShowError(stderr, "Failed to open source", err, openErr.Cmd)
			return reported(err)
		}
		return err
	}
	defer src.Close()

	f, err := src.Read(ctx)
	if err != nil {
		utils.ShowError(stderr, "Failed to read a frame", err, nil)
		return reported(err)
	}
	img, err := f.Decoded()
	if err != nil {
		return fmt.Errorf("decode first frame: %w", err)
	}
	data, err := f.Encoded(cfg.JPEGQuality)
	if err != nil {
		return fmt.Errorf("encode first frame: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "SOURCE\t%s\n", src.Describe())
	fmt.Fprintf(w, "SIZE\t%dx%d\n", img.Bounds().Dx(), img.Bounds().Dy())
	fmt.Fprintf(w, "JPEG BYTES\t%d\n", len(data))
	fmt.Fprintf(w, "FIRST FRAME\t%s\n", time.Since(start).Round(time.Millisecond))
	if !utils.IsLiveSource(cfg.Source) && !strings.HasPrefix(cfg.Source, source.SyntheticScheme) && !source.IsStillImage(cfg.Source) {
		if n := utils.GetTotalFrames(ctx, cfg.Source); n > 0 {
			fmt.Fprintf(w, "FRAMES\t%d\n", n)
		}
	}
	return w.Flush()
}
