package web

import (
	"errors"
	"image"
	"time"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/display"
	"github.com/andresmejia3/facecast/internal/log"
	"github.com/andresmejia3/facecast/internal/types"
	"github.com/andresmejia3/facecast/internal/utils"
	"github.com/mattn/go-mjpeg"
)

// Dashboard is the browser display.Surface: two MJPEG streams (live and last sent)
// plus a websocket event feed for results and logs.
type Dashboard struct {
	live    *mjpeg.Stream
	sent    *mjpeg.Stream
	hub     *Hub
	quality int
}

var _ display.Surface = (*Dashboard)(nil)

// NewDashboard creates the streams. interval paces MJPEG writes to viewers.
func NewDashboard(hub *Hub, quality int, interval time.Duration) *Dashboard {
	if quality <= 0 {
		quality = utils.DefaultJPEGQuality
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Dashboard{
		live:    mjpeg.NewStreamWithInterval(interval),
		sent:    mjpeg.NewStreamWithInterval(interval),
		hub:     hub,
		quality: quality,
	}
}

// Live encodes the preview only when someone is watching it.
func (d *Dashboard) Live(img image.Image) {
	if d.live.NWatch() == 0 {
		return
	}
	data, err := utils.EncodeJPEG(img, d.quality)
	if err != nil {
		log.Debug("live preview encode failed", "error", err)
		return
	}
	_ = d.live.Update(data)
}

func (d *Dashboard) Sent(counter int, jpeg []byte) {
	_ = d.sent.Update(jpeg)
}

func (d *Dashboard) Result(counter int, result map[string]any) {
	d.hub.Publish(types.Event{Type: types.EventResult, Frame: counter, Result: result})
}

func (d *Dashboard) Error(counter int, err error) {
	ev := types.Event{Type: types.EventError, Frame: counter, Message: display.Describe(counter, err)}
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		ev.Status = httpErr.StatusCode
		ev.Body = httpErr.Body
	}
	d.hub.Publish(ev)
}

func (d *Dashboard) Log(msg string) {
	d.hub.Publish(types.Event{Type: types.EventLog, Message: msg})
}

// Close ends both MJPEG streams so their handlers return.
func (d *Dashboard) Close() error {
	return errors.Join(d.live.Close(), d.sent.Close())
}
