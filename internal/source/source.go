// Package source opens frame sources: RTSP/HTTP streams and files through an ffmpeg pipe (or gocv),
// single still images, and synthetic test patterns.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresmejia3/facecast/internal/types"
	"github.com/andresmejia3/facecast/internal/utils"
)

var (
	// ErrOpen is matched by every OpenError.
	ErrOpen = errors.New("source: open failed")
	// ErrEndOfStream is terminal for the current session: the source is exhausted or unreadable.
	ErrEndOfStream = errors.New("source: end of stream")
	// ErrBackendUnavailable is returned when a backend was not compiled in.
	ErrBackendUnavailable = errors.New("source: backend not available in this build")
)

// OpenError reports a source that could not be reached or decoded.
type OpenError struct {
	Source string
	Err    error
	Cmd    *utils.SafeCommand // capture process, when one was involved
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %q: %v", e.Source, e.Err)
}

func (e *OpenError) Unwrap() []error { return []error{ErrOpen, e.Err} }

// Source yields frames until it returns an error wrapping ErrEndOfStream.
type Source interface {
	Read(ctx context.Context) (*types.Frame, error)
	Close() error
	Describe() string
}

// Backends.
const (
	BackendFFmpeg = "ffmpeg"
	BackendGoCV   = "gocv"
)

// SyntheticScheme selects the built-in test pattern: "synthetic://25" yields 25 frames,
// "synthetic://" never ends.
const SyntheticScheme = "synthetic://"

// Options tune how stream descriptors are opened.
type Options struct {
	Backend       string // ffmpeg (default) or gocv
	RTSPTransport string // tcp (default) or udp
	Width         int    // synthetic frame size
	Height        int
}

// Open picks an implementation from the descriptor and opens it.
// Failures are always *OpenError.
func Open(ctx context.Context, desc string, opts Options) (Source, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return nil, &OpenError{Source: desc, Err: errors.New("empty source descriptor")}
	}

	if rest, ok := strings.CutPrefix(desc, SyntheticScheme); ok {
		n := 0
		if rest != "" {
			parsed, err := strconv.Atoi(rest)
			if err != nil || parsed < 0 {
				return nil, &OpenError{Source: desc, Err: fmt.Errorf("invalid synthetic frame count %q", rest)}
			}
			n = parsed
		}
		return NewSynthetic(n, opts.Width, opts.Height), nil
	}

	if IsStillImage(desc) {
		return OpenStill(desc)
	}

	switch opts.Backend {
	case "", BackendFFmpeg:
		return openFFmpeg(ctx, desc, opts)
	case BackendGoCV:
		return openGoCV(ctx, desc, opts)
	default:
		return nil, &OpenError{Source: desc, Err: fmt.Errorf("unknown backend %q", opts.Backend)}
	}
}

// IsStillImage reports whether desc names a local JPEG or PNG file.
func IsStillImage(desc string) bool {
	if utils.IsLiveSource(desc) {
		return false
	}
	switch strings.ToLower(filepath.Ext(desc)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func endOfStream(reason error) error {
	if reason == nil {
		return ErrEndOfStream
	}
	return fmt.Errorf("%w: %v", ErrEndOfStream, reason)
}
