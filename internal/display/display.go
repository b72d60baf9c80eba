// Package display defines the surfaces a session reports to: a live preview, the last
// uploaded frame, and a result/log panel.
package display

import (
	"image"
)

// Surface receives everything a streaming session has to show.
// Implementations must not block for long: they are called from the frame loop.
type Surface interface {
	// Live gets every frame, already resized to the display size, while preview is on.
	Live(img image.Image)
	// Sent gets the JPEG that was just uploaded successfully.
	Sent(counter int, jpeg []byte)
	// Result gets the parsed JSON of a successful upload.
	Result(counter int, result map[string]any)
	// Error gets open, read, encode and upload failures. counter is 0 when no frame is involved.
	Error(counter int, err error)
	// Log gets free-form status lines.
	Log(msg string)
}

// Multi fans every call out to all surfaces, in order.
func Multi(surfaces ...Surface) Surface {
	var flat multi
	for _, s := range surfaces {
		if s == nil {
			continue
		}
		if m, ok := s.(multi); ok {
			flat = append(flat, m...)
			continue
		}
		flat = append(flat, s)
	}
	return flat
}

type multi []Surface

func (m multi) Live(img image.Image) {
	for _, s := range m {
		s.Live(img)
	}
}

func (m multi) Sent(counter int, jpeg []byte) {
	for _, s := range m {
		s.Sent(counter, jpeg)
	}
}

func (m multi) Result(counter int, result map[string]any) {
	for _, s := range m {
		s.Result(counter, result)
	}
}

func (m multi) Error(counter int, err error) {
	for _, s := range m {
		s.Error(counter, err)
	}
}

func (m multi) Log(msg string) {
	for _, s := range m {
		s.Log(msg)
	}
}
