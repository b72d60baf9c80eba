// Package session runs the frame sampling loop: count every frame, preview it, and upload
// every Nth one to the recognition API.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/display"
	"github.com/andresmejia3/facecast/internal/source"
	"github.com/andresmejia3/facecast/internal/utils"
	"github.com/google/uuid"
)

// Interval bounds offered by the configuration surface.
const (
	MinInterval = 1
	MaxInterval = 60
)

// Uploader sends one encoded frame and returns the decoded response.
type Uploader interface {
	Upload(ctx context.Context, m api.Mode, jpeg []byte) (map[string]any, error)
}

// Opener acquires the frame source when a session starts.
type Opener func(ctx context.Context) (source.Source, error)

// State is the session lifecycle: Idle -> Streaming -> (Idle | Ended).
type State int32

const (
	Idle State = iota
	Streaming
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Options configure a new session.
type Options struct {
	Interval      int           // upload every Nth frame, >= 1
	Mode          api.Mode      // endpoint selector
	Preview       bool          // forward resized frames to the live surface
	Tick          time.Duration // pause between loop iterations, 0 for none
	DisplayWidth  int
	DisplayHeight int
	JPEGQuality   int
	OnFrame       func(counter int) // called once per frame read, e.g. a progress bar
}

// Status is a point-in-time view of a session, safe to read from other goroutines.
type Status struct {
	ID       string   `json:"id"`
	State    State    `json:"state"`
	Counter  int      `json:"counter"`
	Interval int      `json:"interval"`
	Mode     api.Mode `json:"mode"`
	Preview  bool     `json:"preview"`
	Uploaded int      `json:"uploaded"`
	Failed   int      `json:"failed"`
}

// Summary is returned when a session stops.
type Summary struct {
	Frames   int
	Sampled  int
	Uploaded int
	Failed   int
	Ended    bool // true on end-of-stream, false when stopped
}

// Session holds what used to be UI state: counter, interval, mode and preview toggle.
// The setters may be called from another goroutine while Run is active; the frame loop
// picks up the new value on the next frame.
type Session struct {
	ID string

	uploader Uploader
	surface  display.Surface

	interval atomic.Int64
	mode     atomic.Int32
	preview  atomic.Bool
	state    atomic.Int32
	counter  atomic.Int64
	uploaded atomic.Int64
	failed   atomic.Int64
	running  atomic.Bool

	tick    time.Duration
	width   int
	height  int
	quality int
	onFrame func(int)
}

// New validates opts and returns an idle session.
func New(uploader Uploader, surface display.Surface, opts Options) (*Session, error) {
	if uploader == nil {
		return nil, errors.New("session: uploader is required")
	}
	if surface == nil {
		surface = display.Multi()
	}
	if opts.Interval < MinInterval {
		return nil, fmt.Errorf("session: interval must be >= %d, got %d", MinInterval, opts.Interval)
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("session: invalid mode %d", int32(opts.Mode))
	}
	if opts.Tick < 0 {
		return nil, fmt.Errorf("session: tick must not be negative, got %s", opts.Tick)
	}
	if opts.DisplayWidth <= 0 || opts.DisplayHeight <= 0 {
		opts.DisplayWidth, opts.DisplayHeight = utils.DisplayWidth, utils.DisplayHeight
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = utils.DefaultJPEGQuality
	}

	s := &Session{
		ID:       uuid.NewString(),
		uploader: uploader,
		surface:  surface,
		tick:     opts.Tick,
		width:    opts.DisplayWidth,
		height:   opts.DisplayHeight,
		quality:  opts.JPEGQuality,
		onFrame:  opts.OnFrame,
	}
	s.interval.Store(int64(opts.Interval))
	s.mode.Store(int32(opts.Mode))
	s.preview.Store(opts.Preview)
	return s, nil
}

// SetInterval changes N. It applies from the next frame on; past frames are not re-sampled.
func (s *Session) SetInterval(n int) error {
	if n < MinInterval {
		return fmt.Errorf("interval must be >= %d, got %d", MinInterval, n)
	}
	s.interval.Store(int64(n))
	return nil
}

// SetMode changes the endpoint used for the next upload.
func (s *Session) SetMode(m api.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("invalid mode %d", int32(m))
	}
	s.mode.Store(int32(m))
	return nil
}

// SetPreview toggles the live surface.
func (s *Session) SetPreview(on bool) {
	s.preview.Store(on)
}

// Interval returns the current sampling interval.
func (s *Session) Interval() int { return int(s.interval.Load()) }

// Mode returns the current mode.
func (s *Session) Mode() api.Mode { return api.Mode(s.mode.Load()) }

// State returns the lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Status returns a snapshot for dashboards.
func (s *Session) Status() Status {
	return Status{
		ID:       s.ID,
		State:    s.State(),
		Counter:  int(s.counter.Load()),
		Interval: s.Interval(),
		Mode:     s.Mode(),
		Preview:  s.preview.Load(),
		Uploaded: int(s.uploaded.Load()),
		Failed:   int(s.failed.Load()),
	}
}

func (s *Session) reset() {
	s.counter.Store(0)
	s.uploaded.Store(0)
	s.failed.Store(0)
}
