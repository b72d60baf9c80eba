// Package config loads facecast settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/httpc"
	"github.com/andresmejia3/facecast/internal/session"
	"github.com/andresmejia3/facecast/internal/source"
	"github.com/andresmejia3/facecast/internal/utils"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the local development server.
const DefaultEndpoint = "http://localhost:8000"

// Config holds every setting a stream or snap run needs.
type Config struct {
	Source        string        `yaml:"source"`
	Endpoint      string        `yaml:"endpoint"` // base URL, the mode adds the path
	Mode          api.Mode      `yaml:"mode"`
	Interval      int           `yaml:"interval"` // upload every Nth frame
	Preview       bool          `yaml:"preview"`
	Tick          time.Duration `yaml:"tick"`
	Timeout       time.Duration `yaml:"timeout"` // per upload
	WebAddr       string        `yaml:"web_addr"`
	DisplayWidth  int           `yaml:"display_width"`
	DisplayHeight int           `yaml:"display_height"`
	JPEGQuality   int           `yaml:"jpeg_quality"`
	Backend       string        `yaml:"backend"`
	RTSPTransport string        `yaml:"rtsp_transport"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Endpoint:      DefaultEndpoint,
		Mode:          api.ModeRecognize,
		Interval:      30,
		Preview:       true,
		Tick:          30 * time.Millisecond,
		Timeout:       httpc.DefaultTimeout,
		DisplayWidth:  utils.DisplayWidth,
		DisplayHeight: utils.DisplayHeight,
		JPEGQuality:   utils.DefaultJPEGQuality,
		Backend:       source.BackendFFmpeg,
		RTSPTransport: "tcp",
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Keys missing from the file keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Interval < session.MinInterval || c.Interval > session.MaxInterval {
		return fmt.Errorf("interval must be between %d and %d, got %d", session.MinInterval, session.MaxInterval, c.Interval)
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("unknown mode %d", int32(c.Mode))
	}
	if c.DisplayWidth <= 0 || c.DisplayHeight <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", c.DisplayWidth, c.DisplayHeight)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.Tick < 0 {
		return fmt.Errorf("tick must not be negative, got %s", c.Tick)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if err := validateEndpoint(c.Endpoint); err != nil {
		return err
	}
	switch c.Backend {
	case source.BackendFFmpeg, source.BackendGoCV:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", source.BackendFFmpeg, source.BackendGoCV, c.Backend)
	}
	switch c.RTSPTransport {
	case "tcp", "udp":
	default:
		return fmt.Errorf("rtsp_transport must be tcp or udp, got %q", c.RTSPTransport)
	}
	return nil
}

// SourceOptions maps the capture settings onto source.Options.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		Backend:       c.Backend,
		RTSPTransport: c.RTSPTransport,
		Width:         c.DisplayWidth,
		Height:        c.DisplayHeight,
	}
}

// SessionOptions maps the loop settings onto session.Options.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Interval:      c.Interval,
		Mode:          c.Mode,
		Preview:       c.Preview,
		Tick:          c.Tick,
		DisplayWidth:  c.DisplayWidth,
		DisplayHeight: c.DisplayHeight,
		JPEGQuality:   c.JPEGQuality,
	}
}

func validateEndpoint(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("endpoint is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %q has no host", raw)
	}
	return nil
}
