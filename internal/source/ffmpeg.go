package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/andresmejia3/facecast/internal/log"
	"github.com/andresmejia3/facecast/internal/types"
	"github.com/andresmejia3/facecast/internal/utils"
)

const megabyte = 1024 * 1024

// ffmpegSource decodes any ffmpeg-readable input into a stream of MJPEG frames.
type ffmpegSource struct {
	desc    string
	cmd     *utils.SafeCommand
	out     io.ReadCloser
	scanner *bufio.Scanner
	pending *types.Frame // first frame, read during open
	seq     int

	waitOnce sync.Once
	waitErr  error
}

func openFFmpeg(ctx context.Context, desc string, opts Options) (Source, error) {
	if !utils.IsLiveSource(desc) {
		info, err := os.Stat(desc)
		if err != nil {
			return nil, &OpenError{Source: desc, Err: err}
		}
		if info.IsDir() {
			return nil, &OpenError{Source: desc, Err: errors.New("path is a directory, expected a video file")}
		}
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, &OpenError{Source: desc, Err: fmt.Errorf("ffmpeg not found in PATH: %w", err)}
	}

	transport := opts.RTSPTransport
	if transport == "" {
		transport = "tcp"
	}
	cmd := utils.NewFFmpegCmd(ctx, desc, transport)
	log.Debug("starting ffmpeg", "args", cmd.Args)

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &OpenError{Source: desc, Err: fmt.Errorf("create ffmpeg stdout pipe: %w", err), Cmd: cmd}
	}
	if err := cmd.Start(); err != nil {
		return nil, &OpenError{Source: desc, Err: fmt.Errorf("start ffmpeg: %w", err), Cmd: cmd}
	}

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	s := &ffmpegSource{desc: desc, cmd: cmd, out: out, scanner: scanner}

	// An unreachable camera only shows up once ffmpeg gives up, so wait for the first frame here.
	first, err := s.next()
	if err != nil {
		s.Close()
		return nil, &OpenError{Source: desc, Err: err, Cmd: cmd}
	}
	s.pending = first
	return s, nil
}

func (s *ffmpegSource) Describe() string { return "ffmpeg:" + s.desc }

func (s *ffmpegSource) Read(ctx context.Context) (*types.Frame, error) {
	if s.pending != nil {
		f := s.pending
		s.pending = nil
		return f, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.next()
	if err != nil {
		return nil, endOfStream(err)
	}
	return f, nil
}

func (s *ffmpegSource) next() (*types.Frame, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("frame scanner failed: %w", err)
		}
		if err := s.wait(); err != nil {
			if logs := s.cmd.Logs(); logs != "" {
				return nil, fmt.Errorf("ffmpeg exited: %w: %s", err, logs)
			}
			return nil, fmt.Errorf("ffmpeg exited: %w", err)
		}
		return nil, io.EOF
	}

	data := bytes.Clone(s.scanner.Bytes())
	if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", s.seq+1, err)
	}
	s.seq++
	return &types.Frame{Seq: s.seq, JPEG: data, CapturedAt: time.Now()}, nil
}

func (s *ffmpegSource) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

// Close stops ffmpeg and reaps it. Safe to call more than once.
func (s *ffmpegSource) Close() error {
	if s.cmd.Process != nil && s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Kill()
	}
	s.out.Close()
	s.wait()
	return nil
}
