// Package web serves the browser dashboard: live and last-sent MJPEG streams, a websocket
// event feed, and JSON endpoints to change the interval, mode and preview while streaming.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/andresmejia3/facecast/internal/log"
	"github.com/andresmejia3/facecast/internal/session"
	"github.com/andresmejia3/facecast/internal/types"
)

//go:embed static/*
var staticFiles embed.FS

// Controller is the part of a session the dashboard may read and steer.
type Controller interface {
	Status() session.Status
	SetInterval(n int) error
	SetMode(m api.Mode) error
	SetPreview(on bool)
}

// Server wires the dashboard routes to a session.
type Server struct {
	addr  string
	ctrl  Controller
	hub   *Hub
	dash  *Dashboard
	index []byte
}

// NewServer builds the dashboard server around dash, which must also be one of the
// session's display surfaces for the streams and feed to carry anything.
func NewServer(addr string, ctrl Controller, dash *Dashboard) (*Server, error) {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("web: static fs: %w", err)
	}
	index, err := fs.ReadFile(sub, "index.html")
	if err != nil {
		return nil, fmt.Errorf("web: read index: %w", err)
	}

	if ctrl == nil || dash == nil {
		return nil, errors.New("web: controller and dashboard are required")
	}
	dash.hub.hello = func() any {
		return types.Event{Type: types.EventState, Time: time.Now(), State: ctrl.Status()}
	}
	return &Server{
		addr:  addr,
		ctrl:  ctrl,
		hub:   dash.hub,
		dash:  dash,
		index: index,
	}, nil
}

// Surface returns the display surface feeding this dashboard.
func (s *Server) Surface() *Dashboard { return s.dash }

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /live.mjpeg", s.dash.live)
	mux.Handle("GET /sent.mjpeg", s.dash.sent)
	mux.Handle("GET /ws", s.hub)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /interval", s.handleInterval)
	mux.HandleFunc("POST /mode", s.handleMode)
	mux.HandleFunc("POST /preview", s.handlePreview)

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Mux(), ReadHeaderTimeout: 5 * time.Second}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.dash.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		// MJPEG handlers only return once their stream is closed
		s.dash.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.index)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Interval *int `json:"interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Interval == nil {
		http.Error(w, "expected {\"interval\": n}", http.StatusBadRequest)
		return
	}
	n := *req.Interval
	if n < session.MinInterval || n > session.MaxInterval {
		http.Error(w, fmt.Sprintf("interval must be between %d and %d", session.MinInterval, session.MaxInterval), http.StatusBadRequest)
		return
	}
	if err := s.ctrl.SetInterval(n); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.changed(w)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "expected {\"mode\": name}", http.StatusBadRequest)
		return
	}
	m, err := api.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.ctrl.SetMode(m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.changed(w)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preview *bool `json:"preview"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Preview == nil {
		http.Error(w, "expected {\"preview\": bool}", http.StatusBadRequest)
		return
	}
	s.ctrl.SetPreview(*req.Preview)
	s.changed(w)
}

// changed answers a settings change with the new status and tells every client about it.
func (s *Server) changed(w http.ResponseWriter) {
	st := s.ctrl.Status()
	s.hub.Publish(types.Event{Type: types.EventState, State: st})
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
