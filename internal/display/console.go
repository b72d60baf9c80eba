package display

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/source"
)

// Console prints timestamped status lines, like the progress console of the desktop client.
// It has no image panes, so Live and Sent only matter for the "last sent" note.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewConsole writes to w (usually os.Stderr).
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, now: time.Now}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "[%s] ", c.now().Format("15:04:05"))
	fmt.Fprintf(c.w, format, args...)
	fmt.Fprintln(c.w)
}

func (c *Console) Live(image.Image) {}

func (c *Console) Sent(counter int, jpeg []byte) {
	c.printf("🖼️  Frame #%d sent (%d bytes)", counter, len(jpeg))
}

func (c *Console) Result(counter int, result map[string]any) {
	data, err := json.Marshal(result)
	if err != nil {
		c.printf("✅ Success: %v", result)
		return
	}
	c.printf("✅ Success: %s", data)
}

func (c *Console) Error(counter int, err error) {
	c.printf("%s", Describe(counter, err))
}

func (c *Console) Log(msg string) {
	c.printf("%s", msg)
}

// Describe renders an error the way it is shown to the user, status and body verbatim.
func Describe(counter int, err error) string {
	var (
		httpErr      *api.HTTPError
		decodeErr    *api.DecodeError
		transportErr *api.TransportError
		openErr      *source.OpenError
	)
	switch {
	case errors.As(err, &httpErr):
		if httpErr.Truncated {
			return fmt.Sprintf("❌ Error: %d - %s (truncated)", httpErr.StatusCode, httpErr.Body)
		}
		return fmt.Sprintf("❌ Error: %d - %s", httpErr.StatusCode, httpErr.Body)
	case errors.As(err, &decodeErr):
		return fmt.Sprintf("❌ Error: %d - invalid JSON response: %s", decodeErr.StatusCode, decodeErr.Body)
	case errors.As(err, &transportErr):
		return fmt.Sprintf("❌ Exception: %v", transportErr.Err)
	case errors.As(err, &openErr):
		return fmt.Sprintf("❌ Failed to open stream: %v", openErr.Err)
	case errors.Is(err, source.ErrEndOfStream):
		return fmt.Sprintf("⚠️ Stream ended or failed to read frame (%v)", err)
	case counter > 0:
		return fmt.Sprintf("❌ Error on frame #%d: %v", counter, err)
	default:
		return fmt.Sprintf("❌ Error: %v", err)
	}
}
