package utils

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

// Fixed preview size shared by the live and "last sent" surfaces.
const (
	DisplayWidth  = 640
	DisplayHeight = 360
)

// DefaultJPEGQuality matches the encoder default used for uploads and previews.
const DefaultJPEGQuality = 90

// FitDisplay resizes img to exactly w x h for display. Aspect ratio is not preserved,
// matching how the preview panes are laid out.
func FitDisplay(img image.Image, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		w, h = DisplayWidth, DisplayHeight
	}
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Linear)
}

// EncodeJPEG encodes img at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes JPEG or PNG bytes, honouring EXIF orientation.
func DecodeImage(data []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}
