package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/config"
	"github.com/andresmejia3/facecast/internal/display"
	"github.com/andresmejia3/facecast/internal/httpc"
	"github.com/andresmejia3/facecast/internal/session"
	"github.com/andresmejia3/facecast/internal/source"
	"github.com/spf13/cobra"
)

var snapOpts Options

var snapCmd = &cobra.Command{
	Use:   "snap",
	Short: "Capture a single frame (or use a still image) and upload it once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if snapOpts.ImagePath != "" {
			if cmd.Flags().Changed("input") {
				return errors.New("use either -i/--input or --image, not both")
			}
			snapOpts.InputPath = snapOpts.ImagePath
			if err := cmd.Flags().Set("input", snapOpts.ImagePath); err != nil {
				return err
			}
		}
		cfg, err := resolveConfig(cmd, Cfg, snapOpts)
		if err != nil {
			return err
		}
		if strings.TrimSpace(cfg.Source) == "" {
			return errors.New("no source: pass -i/--input, --image or set source in the config file")
		}
		return runSnap(cmd.Context(), cfg)
	},
}

func init() {
	addSourceFlags(snapCmd, &snapOpts)
	addUploadFlags(snapCmd, &snapOpts)
	snapCmd.Flags().StringVar(&snapOpts.ImagePath, "image", "", "Upload this JPEG/PNG file instead of grabbing a frame")

	rootCmd.AddCommand(snapCmd)
}

// runSnap uploads exactly one frame and prints the JSON result on stdout.
func runSnap(ctx context.Context, cfg config.Config) error {
	client, err := api.NewClient(cfg.Endpoint, httpc.NewClient(cfg.Timeout))
	if err != nil {
		return err
	}

	opts := cfg.SessionOptions()
	opts.Interval = 1
	opts.Preview = false
	opts.Tick = 0
	sess, err := session.New(client, display.NewConsole(stderr), opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "📸 Capturing one frame from %s\n", cfg.Source)
	result, err := sess.Capture(ctx, func(ctx context.Context) (source.Source, error) {
		return source.Open(ctx, cfg.Source, cfg.SourceOptions())
	})
	if errors.Is(err, session.ErrAlreadyRunning) {
		return err
	}
	if err != nil {
		// the console surface has shown it already
		return reported(err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
