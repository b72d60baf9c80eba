package source

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/andresmejia3/facecast/internal/types"
	"github.com/andresmejia3/facecast/internal/utils"
)

// Synthetic generates solid-colour frames. Count 0 means unlimited.
type Synthetic struct {
	count  int
	width  int
	height int
	seq    int
	closed bool
}

// NewSynthetic returns a source producing count frames of w x h.
func NewSynthetic(count, w, h int) *Synthetic {
	if w <= 0 || h <= 0 {
		w, h = utils.DisplayWidth, utils.DisplayHeight
	}
	return &Synthetic{count: count, width: w, height: h}
}

func (s *Synthetic) Describe() string {
	if s.count == 0 {
		return "synthetic:unlimited"
	}
	return fmt.Sprintf("synthetic:%d", s.count)
}

func (s *Synthetic) Read(ctx context.Context) (*types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, endOfStream(fmt.Errorf("source closed"))
	}
	if s.count > 0 && s.seq >= s.count {
		return nil, endOfStream(nil)
	}
	s.seq++

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	shade := uint8(s.seq * 16 % 256)
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: shade, G: 128, B: 255 - shade, A: 255}}, image.Point{}, draw.Src)

	return &types.Frame{Seq: s.seq, Image: img, CapturedAt: time.Now()}, nil
}

func (s *Synthetic) Close() error {
	s.closed = true
	return nil
}
