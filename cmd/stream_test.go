package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/config"
	"github.com/spf13/cobra"
)

// newFlagCmd builds a throwaway command carrying the stream flags.
func newFlagCmd(opts *Options) *cobra.Command {
	c := &cobra.Command{Use: "test"}
	def := config.Default()
	addSourceFlags(c, opts)
	addUploadFlags(c, opts)
	c.Flags().IntVarP(&opts.NthFrame, "nth-frame", "n", def.Interval, "")
	c.Flags().BoolVar(&opts.Preview, "preview", def.Preview, "")
	c.Flags().DurationVar(&opts.Tick, "tick", def.Tick, "")
	c.Flags().StringVar(&opts.WebAddr, "web", "", "")
	return c
}

func TestResolveConfig(t *testing.T) {
	base := config.Default()
	base.Source = "rtsp://from-file/stream"
	base.Interval = 15
	base.Mode = api.ModeFaceReg

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, cfg config.Config)
	}{
		{
			name: "file values survive when flags are not set",
			args: nil,
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Interval != 15 || cfg.Mode != api.ModeFaceReg || cfg.Source != "rtsp://from-file/stream" {
					t.Errorf("unexpected config %+v", cfg)
				}
			},
		},
		{
			name: "explicit flags win",
			args: []string{"-i", "synthetic://5", "-n", "2", "-m", "register", "--tick", "0s", "--preview=false"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Source != "synthetic://5" {
					t.Errorf("Source = %q", cfg.Source)
				}
				if cfg.Interval != 2 {
					t.Errorf("Interval = %d, want 2", cfg.Interval)
				}
				if cfg.Mode != api.ModeRegister {
					t.Errorf("Mode = %s, want register", cfg.Mode)
				}
				if cfg.Tick != 0 || cfg.Preview {
					t.Errorf("Tick/Preview not overridden: %+v", cfg)
				}
			},
		},
		{name: "interval below range", args: []string{"-n", "0"}, wantErr: true},
		{name: "interval above range", args: []string{"-n", "61"}, wantErr: true},
		{name: "unknown mode", args: []string{"-m", "detect"}, wantErr: true},
		{name: "bad endpoint", args: []string{"-e", "localhost:8000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts Options
			c := newFlagCmd(&opts)
			if err := c.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}
			cfg, err := resolveConfig(c, base, opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveConfig: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestValidateStreamFlags(t *testing.T) {
	cfg := config.Default()
	if err := validateStreamFlags(cfg); err == nil {
		t.Error("expected error for missing source")
	}
	cfg.Source = "synthetic://1"
	if err := validateStreamFlags(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunModes(t *testing.T) {
	var out bytes.Buffer
	if err := runModes(&out, "http://zahangir.pythonanywhere.com/"); err != nil {
		t.Fatalf("runModes: %v", err)
	}
	for _, want := range []string{
		"http://zahangir.pythonanywhere.com/recognize-frame",
		"http://zahangir.pythonanywhere.com/register-frame",
		"http://zahangir.pythonanywhere.com/face-reg",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	if err := runModes(&out, "ftp://nope"); err == nil {
		t.Error("expected error for non-http endpoint")
	}
}

func TestRunProbeSynthetic(t *testing.T) {
	cfg := config.Default()
	cfg.Source = "synthetic://3"

	var out bytes.Buffer
	if err := runProbe(context.Background(), &out, cfg); err != nil {
		t.Fatalf("runProbe: %v", err)
	}
	if !strings.Contains(out.String(), "640x360") {
		t.Errorf("expected display-sized synthetic frame, got:\n%s", out.String())
	}
}

func TestRunStreamUploadsEveryNthFrame(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recognize-frame" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		hits.Add(1)
		w.Write([]byte(`{"name": "alice", "confidence": 0.92}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Source = "synthetic://25"
	cfg.Endpoint = server.URL
	cfg.Interval = 10
	cfg.Tick = 0
	cfg.Timeout = 5 * time.Second

	if err := runStream(context.Background(), cfg, false); err != nil {
		t.Fatalf("runStream: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("uploads = %d, want 2", got)
	}
}

func TestRunStreamOpenFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Source = "/does/not/exist.mp4"
	cfg.Tick = 0

	if err := runStream(context.Background(), cfg, false); err == nil {
		t.Fatal("expected open error")
	}
}

func TestRunSnap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/register-frame" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status": "registered"}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Source = "synthetic://1"
	cfg.Endpoint = server.URL
	cfg.Mode = api.ModeRegister

	if err := runSnap(context.Background(), cfg); err != nil {
		t.Fatalf("runSnap: %v", err)
	}
}
