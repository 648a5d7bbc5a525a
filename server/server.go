// Package server exposes analyses over HTTP and serves the browser UI.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/codestory/analysis"
	"github.com/pithecene-io/codestory/llm"
	"github.com/pithecene-io/codestory/log"
	"github.com/pithecene-io/codestory/metrics"
	"github.com/pithecene-io/codestory/report"
	"github.com/pithecene-io/codestory/types"
)

//go:embed static
var staticFS embed.FS

// Defaults for Options.
const (
	DefaultMaxBodyBytes    = 1 << 20
	DefaultShutdownTimeout = 10 * time.Second
)

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	Analyzer        Analyzer
	Metrics         *metrics.Collector
	Logger          *log.Logger
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// Server serves the UI and the JSON API. The latest analysis is shared by
// all clients and replaced wholesale by each successful POST /api/analyze.
type Server struct {
	opts    Options
	logger  *log.Logger
	current analysis.Holder
}

// New creates a Server. Analyzer is required.
func New(opts Options) (*Server, error) {
	if opts.Analyzer == nil {
		return nil, errors.New("server: analyzer is required")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Server{opts: opts, logger: logger}, nil
}

// Current returns the latest analysis or nil.
func (s *Server) Current() *analysis.Result { return s.current.Load() }

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /static/app.js", s.handleAsset("static/app.js", "text/javascript; charset=utf-8"))
	mux.HandleFunc("GET /static/app.css", s.handleAsset("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/analysis", s.handleAnalysis)
	mux.HandleFunc("GET /api/highlight", s.handleHighlight)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return withRequestLog(s.logger, withSecurityHeaders(mux))
}

// Run listens on Options.Addr and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", map[string]any{"addr": ln.Addr().String()})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		s.logger.Info("server stopped", nil)
		return nil
	})
	return g.Wait()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.serveFile(w, "static/index.html", "text/html; charset=utf-8")
}

func (s *Server) handleAsset(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.serveFile(w, name, contentType)
	}
}

func (s *Server) serveFile(w http.ResponseWriter, name, contentType string) {
	data, err := staticFS.ReadFile(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	var req analysis.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.opts.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			s.logger.Warn("analysis failed", map[string]any{
				"request_id": requestID(r.Context()),
				"status":     status,
				"error":      err.Error(),
			})
		}
		writeError(w, status, err.Error())
		return
	}

	s.current.Store(result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, _ *http.Request) {
	result := s.current.Load()
	if result == nil {
		writeError(w, http.StatusNotFound, "no analysis yet")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type highlightResponse struct {
	AnalysisID string `json:"analysis_id"`
	Step       int    `json:"step"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Note       string `json:"note"`
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(r.URL.Query().Get("step"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "step must be an integer")
		return
	}
	result := s.current.Load()
	if result == nil {
		writeError(w, http.StatusNotFound, "no analysis yet")
		return
	}
	rng, ok := result.Alignment.HighlightRangeForStep(step)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("step %d has no highlight range", step))
		return
	}
	writeJSON(w, http.StatusOK, highlightResponse{
		AnalysisID: result.ID,
		Step:       step,
		StartLine:  rng.StartLine,
		EndLine:    rng.EndLine,
		Note:       rng.Note,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	result := s.current.Load()
	if result == nil {
		writeError(w, http.StatusNotFound, "no analysis yet")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="codestory-`+result.ID+`.md"`)
	_, _ = w.Write([]byte(report.Markdown(result)))
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": types.Version})
}

// statusFor maps analysis errors onto HTTP status codes.
func statusFor(err error) int {
	var upstream *llm.UpstreamError
	switch {
	case errors.Is(err, analysis.ErrEmptySource):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrSourceTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, llm.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, llm.ErrResponseInvalid), errors.Is(err, llm.ErrInvalidInput), errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
