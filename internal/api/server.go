// Package api exposes the counter's control operations over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"color-counter/internal/app"
	"color-counter/internal/httputil"
	"color-counter/internal/monitoring"
	"color-counter/internal/signature"
)

// Server maps HTTP requests onto a Runner and its live settings.
type Server struct {
	runner *app.Runner
	frames *LatestFrame
}

// NewServer creates a server. frames may be nil, in which case
// /api/frame.jpg always reports 404.
func NewServer(runner *app.Runner, frames *LatestFrame) *Server {
	return &Server{runner: runner, frames: frames}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/line", s.handleLine)
	mux.HandleFunc("/api/colors", s.handleColors)
	mux.HandleFunc("/api/colors/", s.handleColor)
	mux.HandleFunc("/api/counts", s.handleCounts)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/frame.jpg", s.handleFrame)
	return mux
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("[%d] %s %s %.3fms", lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(s.ServeMux()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("HTTP API listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.runner.Start(); err != nil {
		if errors.Is(err, app.ErrAlreadyRunning) {
			httputil.Conflict(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.runner.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.runner.Stop()
	httputil.WriteJSONOK(w, s.runner.Status())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.runner.Reset()
	httputil.WriteJSONOK(w, s.runner.Counter().Counts())
}

type lineRequest struct {
	Line *float64 `json:"line"`
}

func (s *Server) handleLine(w http.ResponseWriter, r *http.Request) {
	settings := s.runner.Settings()
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, map[string]float64{"line": settings.Line()})
	case http.MethodPut:
		var req lineRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if req.Line == nil {
			httputil.BadRequest(w, "missing line")
			return
		}
		if err := settings.SetLine(*req.Line); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, map[string]float64{"line": settings.Line()})
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.runner.Settings().Snapshot().Signatures)
}

type rangeRequest struct {
	Lower []int `json:"lower"`
	Upper []int `json:"upper"`
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/colors/")
	if name == "" || strings.Contains(name, "/") {
		httputil.NotFound(w, "unknown color")
		return
	}
	settings := s.runner.Settings()
	if _, ok := settings.Signature(name); !ok {
		httputil.NotFound(w, signature.UnknownColor(name).Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		sig, _ := settings.Signature(name)
		httputil.WriteJSONOK(w, sig)
	case http.MethodPut:
		var req rangeRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		lower, err := signature.ParseBounds(name+".lower", req.Lower)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		upper, err := signature.ParseBounds(name+".upper", req.Upper)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := settings.SetColorRange(name, lower, upper); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		sig, _ := settings.Signature(name)
		httputil.WriteJSONOK(w, sig)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.runner.Counter().Counts())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.runner.Status())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.frames == nil {
		httputil.NotFound(w, "no frame available")
		return
	}
	data, seq, ok, err := s.frames.JPEG()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if !ok {
		httputil.NotFound(w, "no frame available")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(seq, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		monitoring.Logf("failed to write frame: %v", err)
	}
}
