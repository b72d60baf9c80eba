package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps a standard exec.Cmd with a buffer to catch Stderr (FFmpeg logs)
// This ensures we don't lose the reason a capture process died.
type SafeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

// NewSafeCommand initializes a command and attaches a buffer to its Stderr pipe
// It prepares the command for execution but does not start it.
func NewSafeCommand(ctx context.Context, name string, args ...string) *SafeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// Logs returns whatever the process wrote to stderr, trimmed.
func (s *SafeCommand) Logs() string {
	if s == nil || s.Stderr == nil {
		return ""
	}
	return strings.TrimSpace(s.Stderr.String())
}

// ShowError is the unified error report for facecast.
// It prints a formatted error box to w and dumps FFmpeg logs if a SafeCommand is provided.
// Unlike a hard exit it lets the caller decide whether to keep going.
func ShowError(w io.Writer, context string, err error, s *SafeCommand) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 FACECAST ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
	}

	if logs := s.Logs(); logs != "" {
		fmt.Fprintf(w, "\nFFMPEG LOGS:\n%s\n", logs)
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// --- 2. Video Engine (Shared by stream, snap & probe) ---

var (
	JpegSOI = []byte{0xFF, 0xD8} // Start of Image
	JpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// IsLiveSource reports whether the descriptor points at a network stream or a capture device,
// i.e. something without a known frame count.
func IsLiveSource(desc string) bool {
	lower := strings.ToLower(desc)
	for _, prefix := range []string{"rtsp://", "rtsps://", "rtmp://", "http://", "https://", "udp://", "device:", "/dev/video"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// DevicePath maps "device:N" to the V4L2 node "/dev/videoN". Other descriptors are returned unchanged.
func DevicePath(desc string) string {
	if n, ok := strings.CutPrefix(desc, "device:"); ok {
		return "/dev/video" + n
	}
	return desc
}

// DeviceIndex extracts the camera index from "device:N" or "/dev/videoN".
func DeviceIndex(desc string) (int, bool) {
	for _, prefix := range []string{"device:", "/dev/video"} {
		if n, ok := strings.CutPrefix(desc, prefix); ok {
			idx, err := strconv.Atoi(n)
			if err != nil || idx < 0 {
				return 0, false
			}
			return idx, true
		}
	}
	return 0, false
}

// FFmpegInputArgs returns the demuxer options that must precede "-i" for the given source.
func FFmpegInputArgs(desc, rtspTransport string) []string {
	lower := strings.ToLower(desc)
	switch {
	case strings.HasPrefix(lower, "rtsp://"), strings.HasPrefix(lower, "rtsps://"):
		if rtspTransport == "" {
			return nil
		}
		return []string{"-rtsp_transport", rtspTransport}
	case strings.HasPrefix(desc, "device:"), strings.HasPrefix(desc, "/dev/video"):
		return []string{"-f", "v4l2"}
	}
	return nil
}

// NewFFmpegCmd creates a standard decoder pipe
// It configures FFmpeg to output raw MJPEG frames to Stdout for ingestion.
func NewFFmpegCmd(ctx context.Context, desc, rtspTransport string) *SafeCommand {
	// -hide_banner and -loglevel error keep the stderr buffer small on long sessions
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, FFmpegInputArgs(desc, rtspTransport)...)
	args = append(args, "-i", DevicePath(desc), "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "2", "-")
	return NewSafeCommand(ctx, "ffmpeg", args...)
}

// GetTotalFrames uses ffprobe to count frames for the progress bar
// It returns 0 if the count fails (or the source is live), letting the caller fall back to a spinner.
func GetTotalFrames(ctx context.Context, path string) int {
	if IsLiveSource(path) {
		return 0
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  ffprobe not found. Cannot provide a progress bar estimation because of this.\n")
		return 0
	}

	type ffprobeOutput struct {
		Streams []struct {
			NbFrames      string `json:"nb_frames"`
			NbReadPackets string `json:"nb_read_packets"`
		} `json:"streams"`
	}

	// 1. Fast Path: Container Metadata
	cmdFast := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0", "-show_entries", "stream=nb_frames", "-of", "json", path)
	if out, err := cmdFast.Output(); err == nil {
		var res ffprobeOutput
		if json.Unmarshal(out, &res) == nil && len(res.Streams) > 0 {
			if count, err := strconv.Atoi(res.Streams[0].NbFrames); err == nil && count > 0 {
				return count
			}
		}
	}

	// 2. Slow Path: Count Packets
	fmt.Fprintf(os.Stderr, "⏳ Metadata missing. Counting frames (this may take a moment)...\n")
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0", "-count_packets",
		"-show_entries", "stream=nb_read_packets", "-of", "json", path)
	out, err := cmd.Output()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ffprobe failed: %v\n", err)
		return 0
	}

	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil || len(res.Streams) == 0 {
		return 0
	}
	count, err := strconv.Atoi(res.Streams[0].NbReadPackets)
	if err != nil {
		return 0
	}
	return count
}

// SplitJpeg is the custom splitter for bufio.Scanner
// It locates the Start Of Image (FFD8) and End Of Image (FFD9) markers to extract full JPEG frames.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, JpegSOI)
	if start == -1 {
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], JpegEOI)
	if end == -1 {
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}
