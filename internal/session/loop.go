package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/facecast/internal/log"
	"github.com/andresmejia3/facecast/internal/source"
	"github.com/andresmejia3/facecast/internal/types"
	"github.com/andresmejia3/facecast/internal/utils"
)

// ErrAlreadyRunning is returned when Run or Capture is called on a busy session.
var ErrAlreadyRunning = errors.New("session: already streaming")

// Run opens the source and processes frames until end-of-stream or ctx is cancelled.
// A failed open is reported once and returned; the session stays Idle and nothing is uploaded.
// End-of-stream moves the session to Ended, cancellation back to Idle. Both return a nil error.
func (s *Session) Run(ctx context.Context, open Opener) (Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Summary{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	src, err := open(ctx)
	if err != nil {
		s.surface.Error(0, err)
		return Summary{}, err
	}
	defer src.Close()

	s.reset()
	s.state.Store(int32(Streaming))
	s.surface.Log(fmt.Sprintf("✅ Stream started in %s mode.", s.Mode()))
	log.Debug("session started", "session", s.ID, "source", src.Describe(), "interval", s.Interval())

	var ticker *time.Ticker
	if s.tick > 0 {
		ticker = time.NewTicker(s.tick)
		defer ticker.Stop()
	}

	var sum Summary
	for {
		f, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return s.stopped(sum), nil
			}
			if !errors.Is(err, source.ErrEndOfStream) {
				err = fmt.Errorf("%w: %v", source.ErrEndOfStream, err)
			}
			s.state.Store(int32(Ended))
			s.surface.Error(int(s.counter.Load()), err)
			sum.Ended = true
			return s.totals(sum), nil
		}

		sum.Frames++
		if s.OnFrame(ctx, f) {
			sum.Sampled++
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return s.stopped(sum), nil
			case <-ticker.C:
			}
		}
	}
}

// Capture performs a single manual capture: one frame is read and uploaded regardless of the interval.
func (s *Session) Capture(ctx context.Context, open Opener) (map[string]any, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	src, err := open(ctx)
	if err != nil {
		s.surface.Error(0, err)
		return nil, err
	}
	defer src.Close()

	s.reset()
	s.state.Store(int32(Streaming))
	defer s.state.Store(int32(Idle))

	f, err := src.Read(ctx)
	if err != nil {
		s.surface.Error(0, err)
		return nil, err
	}

	n := int(s.counter.Add(1))
	if s.preview.Load() {
		s.showLive(f)
	}
	return s.send(ctx, f, n)
}

// OnFrame handles one frame: count it, preview it, and upload it when the counter hits the interval.
// It reports whether the frame was selected for upload.
func (s *Session) OnFrame(ctx context.Context, f *types.Frame) bool {
	n := int(s.counter.Add(1))
	if s.onFrame != nil {
		s.onFrame(n)
	}
	if s.preview.Load() {
		s.showLive(f)
	}

	if n%s.Interval() != 0 {
		return false
	}
	s.send(ctx, f, n)
	return true
}

func (s *Session) showLive(f *types.Frame) {
	img, err := f.Decoded()
	if err != nil {
		log.Debug("preview decode failed", "session", s.ID, "frame", f.Seq, "error", err)
		return
	}
	s.surface.Live(utils.FitDisplay(img, s.width, s.height))
}

func (s *Session) send(ctx context.Context, f *types.Frame, n int) (map[string]any, error) {
	mode := s.Mode()
	data, err := f.Encoded(s.quality)
	if err != nil {
		s.failed.Add(1)
		err = fmt.Errorf("encode frame: %w", err)
		s.surface.Error(n, err)
		return nil, err
	}

	s.surface.Log(fmt.Sprintf("📤 Sending frame #%d to `%s` API...", n, mode))
	start := time.Now()
	result, err := s.uploader.Upload(ctx, mode, data)
	if err != nil {
		s.failed.Add(1)
		log.Debug("upload failed", "session", s.ID, "frame", n, "mode", mode.String(), "error", err)
		if ctx.Err() == nil {
			s.surface.Error(n, err)
		}
		return nil, err
	}

	s.uploaded.Add(1)
	log.Debug("upload ok", "session", s.ID, "frame", n, "mode", mode.String(), "latency", time.Since(start))
	s.surface.Result(n, result)
	s.surface.Sent(n, data)
	return result, nil
}

func (s *Session) stopped(sum Summary) Summary {
	s.state.Store(int32(Idle))
	s.surface.Log(fmt.Sprintf("⏹️  Stream stopped after %d frames.", sum.Frames))
	return s.totals(sum)
}

func (s *Session) totals(sum Summary) Summary {
	sum.Uploaded = int(s.uploaded.Load())
	sum.Failed = int(s.failed.Load())
	return sum
}
