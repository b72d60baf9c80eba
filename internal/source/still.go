package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/facecast/internal/types"
	"github.com/andresmejia3/facecast/internal/utils"
)

// stillSource yields one image read from disk, then ends. It backs single manual captures from files.
type stillSource struct {
	path  string
	frame *types.Frame
}

// OpenStill loads a JPEG or PNG file as a one-frame source.
func OpenStill(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &OpenError{Source: path, Err: err}
	}
	img, err := utils.DecodeImage(data)
	if err != nil {
		return nil, &OpenError{Source: path, Err: fmt.Errorf("decode image: %w", err)}
	}

	f := &types.Frame{Seq: 1, Image: img, CapturedAt: time.Now()}
	if bytes.HasPrefix(data, utils.JpegSOI) {
		f.JPEG = data
	}
	return &stillSource{path: path, frame: f}, nil
}

func (s *stillSource) Describe() string { return "still:" + s.path }

func (s *stillSource) Read(ctx context.Context) (*types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.frame == nil {
		return nil, endOfStream(nil)
	}
	f := s.frame
	s.frame = nil
	return f, nil
}

func (s *stillSource) Close() error {
	s.frame = nil
	return nil
}
