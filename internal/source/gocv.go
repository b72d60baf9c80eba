//go:build gocv

package source

import (
	"context"
	"errors"
	"time"

	"github.com/andresmejia3/facecast/internal/types"
	"github.com/andresmejia3/facecast/internal/utils"
	"gocv.io/x/gocv"
)

// gocvSource reads frames through OpenCV's VideoCapture (FFmpeg backend for URLs and files).
type gocvSource struct {
	desc string
	vc   *gocv.VideoCapture
	mat  gocv.Mat
	seq  int
}

func openGoCV(_ context.Context, desc string, _ Options) (Source, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	if idx, ok := utils.DeviceIndex(desc); ok {
		vc, err = gocv.VideoCaptureDevice(idx)
	} else {
		vc, err = gocv.VideoCaptureFileWithAPI(desc, gocv.VideoCaptureFFmpeg)
	}
	if err != nil {
		return nil, &OpenError{Source: desc, Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &OpenError{Source: desc, Err: errors.New("unable to open capture")}
	}
	return &gocvSource{desc: desc, vc: vc, mat: gocv.NewMat()}, nil
}

func (s *gocvSource) Describe() string { return "gocv:" + s.desc }

func (s *gocvSource) Read(ctx context.Context) (*types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, endOfStream(errors.New("failed to grab frame"))
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, endOfStream(err)
	}
	s.seq++
	return &types.Frame{Seq: s.seq, Image: img, CapturedAt: time.Now()}, nil
}

func (s *gocvSource) Close() error {
	s.mat.Close()
	return s.vc.Close()
}
