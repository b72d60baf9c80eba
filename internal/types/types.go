package types

import (
	"errors"
	"image"
	"time"

	"github.com/andresmejia3/facecast/internal/utils"
)

// Frame is a single captured image. It is owned by the loop iteration that read it.
// Sources fill JPEG (ffmpeg pipe, still files) or Image (gocv, synthetic); the other side is derived lazily.
type Frame struct {
	Seq        int
	JPEG       []byte
	Image      image.Image
	CapturedAt time.Time
}

var errEmptyFrame = errors.New("frame has no image data")

// Decoded returns the raster, decoding the JPEG payload on first use.
func (f *Frame) Decoded() (image.Image, error) {
	if f.Image != nil {
		return f.Image, nil
	}
	if len(f.JPEG) == 0 {
		return nil, errEmptyFrame
	}
	img, err := utils.DecodeImage(f.JPEG)
	if err != nil {
		return nil, err
	}
	f.Image = img
	return img, nil
}

// Encoded returns the JPEG payload, encoding the raster on first use.
// Frames that arrived as JPEG are passed through untouched to avoid a second lossy pass.
func (f *Frame) Encoded(quality int) ([]byte, error) {
	if len(f.JPEG) > 0 {
		return f.JPEG, nil
	}
	if f.Image == nil {
		return nil, errEmptyFrame
	}
	data, err := utils.EncodeJPEG(f.Image, quality)
	if err != nil {
		return nil, err
	}
	f.JPEG = data
	return data, nil
}

// Event kinds pushed to display surfaces that speak JSON.
const (
	EventLog    = "log"
	EventResult = "result"
	EventError  = "error"
	EventState  = "state"
)

// Event is the JSON shape broadcast to dashboard clients.
type Event struct {
	Type    string         `json:"type"`
	Time    time.Time      `json:"time"`
	Frame   int            `json:"frame,omitempty"`
	Message string         `json:"message,omitempty"`
	Result  map[string]any `json:"result"`
	Status  int            `json:"status,omitempty"` // HTTP status for upload errors
	Body    string         `json:"body,omitempty"`   // raw response body for upload errors
	State   any            `json:"state,omitempty"`
}
