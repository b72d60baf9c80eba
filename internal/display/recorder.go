package display

import (
	"image"
	"sync"
)

// Recorder is a Surface that remembers every call. It stands in for a UI in tests and dry runs.
type Recorder struct {
	mu      sync.Mutex
	lives   int
	sent    []int
	results []RecordedResult
	errs    []RecordedError
	logs    []string
}

// RecordedResult is one Result call.
type RecordedResult struct {
	Counter int
	Result  map[string]any
}

// RecordedError is one Error call.
type RecordedError struct {
	Counter int
	Err     error
}

func (r *Recorder) Live(image.Image) {
	r.mu.Lock()
	r.lives++
	r.mu.Unlock()
}

func (r *Recorder) Sent(counter int, _ []byte) {
	r.mu.Lock()
	r.sent = append(r.sent, counter)
	r.mu.Unlock()
}

func (r *Recorder) Result(counter int, result map[string]any) {
	r.mu.Lock()
	r.results = append(r.results, RecordedResult{Counter: counter, Result: result})
	r.mu.Unlock()
}

func (r *Recorder) Error(counter int, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, RecordedError{Counter: counter, Err: err})
	r.mu.Unlock()
}

func (r *Recorder) Log(msg string) {
	r.mu.Lock()
	r.logs = append(r.logs, msg)
	r.mu.Unlock()
}

// Lives returns how many live frames were shown.
func (r *Recorder) Lives() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lives
}

// SentCounters returns the counters of frames shown on the "last sent" surface.
func (r *Recorder) SentCounters() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.sent...)
}

// Results returns a copy of all recorded results.
func (r *Recorder) Results() []RecordedResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedResult(nil), r.results...)
}

// Errors returns a copy of all recorded errors.
func (r *Recorder) Errors() []RecordedError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedError(nil), r.errs...)
}

// Logs returns a copy of all recorded log lines.
func (r *Recorder) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.logs...)
}
