// Package api uploads sampled frames to the remote face-recognition service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/andresmejia3/facecast/internal/log"
)

// Multipart layout expected by the recognition service.
const (
	FieldName   = "file"
	FileName    = "frame.jpg"
	ContentType = "image/jpeg"
)

// maxBodyBytes caps how much of a response we keep in memory.
// Anything longer is flagged as truncated, never dropped silently.
const maxBodyBytes = 4 << 20

// Client posts JPEG frames to <baseURL><mode path>.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient validates baseURL (scheme + host) and returns a client using httpClient.
// A nil httpClient means http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be http or https, got %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(u.String(), "/"),
		http:    httpClient,
		logger:  log.With("component", "api.client"),
	}, nil
}

// Endpoint returns the full URL used for mode.
func (c *Client) Endpoint(m Mode) string {
	return c.baseURL + m.Path()
}

// Upload sends one JPEG frame and returns the decoded JSON object.
// Errors are *HTTPError, *TransportError or *DecodeError. Nothing is retried.
func (c *Client) Upload(ctx context.Context, m Mode, jpeg []byte) (map[string]any, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("api: invalid mode %d", int32(m))
	}

	body, contentType, err := buildMultipart(jpeg)
	if err != nil {
		return nil, fmt.Errorf("api: build request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(m), body)
	if err != nil {
		return nil, fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, maxBodyBytes))
	var tooLarge *http.MaxBytesError
	truncated := errors.As(err, &tooLarge)
	if err != nil && !truncated {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("upload finished",
		"mode", m.String(),
		"status", resp.StatusCode,
		"bytes_sent", len(jpeg),
		"latency", time.Since(start),
		"truncated", truncated)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), Truncated: truncated}
	}
	if truncated {
		return nil, &DecodeError{StatusCode: resp.StatusCode, Body: string(raw), Err: fmt.Errorf("response body exceeds %d bytes: %w", maxBodyBytes, err)}
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &DecodeError{StatusCode: resp.StatusCode, Body: string(raw), Err: err}
	}
	if result == nil {
		// "null" decodes without error but is not an object
		return nil, &DecodeError{StatusCode: resp.StatusCode, Body: string(raw), Err: fmt.Errorf("expected a JSON object")}
	}
	return result, nil
}

// buildMultipart writes a single "file" part. CreateFormFile would label it
// application/octet-stream, so the part header is set by hand.
func buildMultipart(jpeg []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldName, FileName))
	h.Set("Content-Type", ContentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
