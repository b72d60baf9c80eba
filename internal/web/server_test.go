package web

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/session"
	"github.com/andresmejia3/facecast/internal/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopUploader struct{}

func (nopUploader) Upload(context.Context, api.Mode, []byte) (map[string]any, error) {
	return map[string]any{}, nil
}

func newTestServer(t *testing.T) (*Server, *session.Session) {
	t.Helper()
	sess, err := session.New(nopUploader{}, nil, session.Options{Interval: 30, Mode: api.ModeRecognize, Preview: true})
	require.NoError(t, err)
	srv, err := NewServer("127.0.0.1:0", sess, NewDashboard(NewHub(16), 0, 0))
	require.NoError(t, err)
	return srv, sess
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStateAndHealth(t *testing.T) {
	srv, sess := newTestServer(t)
	mux := srv.Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, sess.ID, st["id"])
	assert.Equal(t, "idle", st["state"])
	assert.Equal(t, "recognize", st["mode"])
	assert.EqualValues(t, 30, st["interval"])
}

func TestIndexServed(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/live.mjpeg")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestSetInterval(t *testing.T) {
	srv, sess := newTestServer(t)
	mux := srv.Mux()

	rec := post(t, mux, "/interval", `{"interval": 5}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, sess.Interval())

	cases := []struct {
		name string
		body string
	}{
		{"zero", `{"interval": 0}`},
		{"negative", `{"interval": -3}`},
		{"above_max", `{"interval": 61}`},
		{"missing", `{}`},
		{"not_json", `five`},
		{"wrong_type", `{"interval": "5"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, mux, "/interval", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 5, sess.Interval(), "invalid request must not change the interval")
		})
	}
}

func TestSetModeAndPreview(t *testing.T) {
	srv, sess := newTestServer(t)
	mux := srv.Mux()

	rec := post(t, mux, "/mode", `{"mode": "face-reg"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.ModeFaceReg, sess.Mode())

	rec = post(t, mux, "/mode", `{"mode": "detect"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, api.ModeFaceReg, sess.Mode())

	rec = post(t, mux, "/preview", `{"preview": false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, sess.Status().Preview)

	rec = post(t, mux, "/preview", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func readEvent(t *testing.T, conn *websocket.Conn) types.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev types.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestWebsocketFeed(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readEvent(t, conn)
	assert.Equal(t, types.EventState, hello.Type)
	require.Eventually(t, func() bool { return srv.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := post(t, srv.Mux(), "/interval", `{"interval": 12}`)
	require.Equal(t, http.StatusOK, rec.Code)
	ev := readEvent(t, conn)
	assert.Equal(t, types.EventState, ev.Type)
	st, ok := ev.State.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 12, st["interval"])

	dash := srv.Surface()
	dash.Result(30, map[string]any{"name": "alice", "confidence": 0.92})
	ev = readEvent(t, conn)
	assert.Equal(t, types.EventResult, ev.Type)
	assert.Equal(t, 30, ev.Frame)
	assert.Equal(t, map[string]any{"name": "alice", "confidence": 0.92}, ev.Result)

	dash.Error(60, &api.HTTPError{StatusCode: 500, Body: "server error"})
	ev = readEvent(t, conn)
	assert.Equal(t, types.EventError, ev.Type)
	assert.Equal(t, 500, ev.Status)
	assert.Equal(t, "server error", ev.Body)
	assert.Equal(t, "❌ Error: 500 - server error", ev.Message)
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(2)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(types.Event{Type: types.EventLog, Message: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no consumer")
	}
	assert.Len(t, hub.events, 2)
}

func TestDashboardSkipsLiveWithoutViewers(t *testing.T) {
	hub := NewHub(4)
	dash := NewDashboard(hub, 80, 0)
	defer dash.Close()

	dash.Live(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	dash.Log("hello")
	dash.Error(0, errors.New("boom"))

	require.Len(t, hub.events, 2)
	ev := <-hub.events
	assert.Equal(t, types.EventLog, ev.Type)
	assert.Equal(t, "hello", ev.Message)
	ev = <-hub.events
	assert.Equal(t, "❌ Error: boom", ev.Message)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}
