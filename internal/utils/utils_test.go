package utils

import (
	"bufio"
	"bytes"
	"image"
	"image/color"
	"reflect"
	"testing"
)

func TestSplitJpeg(t *testing.T) {
	// Construct a stream containing: [Garbage] [JPEG] [Garbage]
	// SOI (Start of Image): FF D8
	// EOI (End of Image):   FF D9

	jpegData := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}

	streamData := []byte{0x00, 0x00} // Garbage at start
	streamData = append(streamData, jpegData...)
	streamData = append(streamData, []byte{0x00, 0x00}...) // Garbage at end

	scanner := bufio.NewScanner(bytes.NewReader(streamData))
	scanner.Split(SplitJpeg)

	// Scan() should skip the first garbage bytes and find the JPEG
	if !scanner.Scan() {
		t.Fatal("Expected to find a token, got EOF")
	}
	if !bytes.Equal(scanner.Bytes(), jpegData) {
		t.Errorf("Expected %X, got %X", jpegData, scanner.Bytes())
	}

	// The trailing garbage is not a JPEG
	if scanner.Scan() {
		t.Error("Expected only one token, found more")
	}
}

func TestSplitJpeg_BackToBack(t *testing.T) {
	a := []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9}
	b := []byte{0xFF, 0xD8, 0xBB, 0xBB, 0xFF, 0xD9}

	scanner := bufio.NewScanner(bytes.NewReader(append(append([]byte{}, a...), b...)))
	scanner.Split(SplitJpeg)

	var got [][]byte
	for scanner.Scan() {
		got = append(got, append([]byte(nil), scanner.Bytes()...))
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(got))
	}
	if !bytes.Equal(got[0], a) || !bytes.Equal(got[1], b) {
		t.Errorf("Frames split incorrectly: %X", got)
	}
}

func TestFFmpegInputArgs(t *testing.T) {
	tests := []struct {
		desc      string
		transport string
		want      []string
	}{
		{"rtsp://cam:554/stream1", "tcp", []string{"-rtsp_transport", "tcp"}},
		{"RTSP://cam/stream1", "udp", []string{"-rtsp_transport", "udp"}},
		{"rtsp://cam/stream1", "", nil},
		{"device:0", "tcp", []string{"-f", "v4l2"}},
		{"/dev/video2", "", []string{"-f", "v4l2"}},
		{"clip.mp4", "tcp", nil},
	}

	for _, tt := range tests {
		if got := FFmpegInputArgs(tt.desc, tt.transport); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FFmpegInputArgs(%q, %q) = %v, want %v", tt.desc, tt.transport, got, tt.want)
		}
	}
}

func TestDeviceHelpers(t *testing.T) {
	if got := DevicePath("device:3"); got != "/dev/video3" {
		t.Errorf("DevicePath = %q", got)
	}
	if got := DevicePath("clip.mp4"); got != "clip.mp4" {
		t.Errorf("DevicePath changed a file path: %q", got)
	}
	if idx, ok := DeviceIndex("/dev/video1"); !ok || idx != 1 {
		t.Errorf("DeviceIndex(/dev/video1) = %d, %v", idx, ok)
	}
	if _, ok := DeviceIndex("device:abc"); ok {
		t.Error("DeviceIndex accepted a non-numeric index")
	}
	if !IsLiveSource("rtsp://x") || !IsLiveSource("device:0") || IsLiveSource("movie.mkv") {
		t.Error("IsLiveSource misclassified a descriptor")
	}
}

func TestFitDisplayAndEncode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	for y := 0; y < 720; y++ {
		for x := 0; x < 1280; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}

	fitted := FitDisplay(src, DisplayWidth, DisplayHeight)
	if b := fitted.Bounds(); b.Dx() != 640 || b.Dy() != 360 {
		t.Fatalf("Expected 640x360, got %dx%d", b.Dx(), b.Dy())
	}

	data, err := EncodeJPEG(fitted, 80)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if !bytes.HasPrefix(data, JpegSOI) {
		t.Errorf("Encoded data does not start with SOI marker")
	}

	back, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if b := back.Bounds(); b.Dx() != 640 || b.Dy() != 360 {
		t.Errorf("Decoded size %dx%d", b.Dx(), b.Dy())
	}
}
