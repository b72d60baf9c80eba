//go:build !gocv

package source

import (
	"context"
	"errors"
	"testing"
)

func TestGoCVBackendUnavailable(t *testing.T) {
	_, err := Open(context.Background(), "rtsp://cam/stream1", Options{Backend: BackendGoCV})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got %v", err)
	}
}
