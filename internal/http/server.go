// Package http serves signed photo objects plus health, readiness and
// Prometheus endpoints.
package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/metrics"
	"github.com/jerardpelaez/wedding-calendar/internal/middleware/ratelimit"
	"github.com/jerardpelaez/wedding-calendar/internal/objectstore"
)

const readyTimeout = 2 * time.Second

// Options configures NewServer. Ready may be nil.
type Options struct {
	Objects           *objectstore.Bucket
	Ready             func(context.Context) error
	Metrics           *metrics.Metrics
	Logger            *applog.Logger
	RequestsPerMinute int
}

type Server struct {
	http.Server
	objects *objectstore.Bucket
	ready   func(context.Context) error
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
	logger  *applog.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		objects: opts.Objects,
		ready:   opts.Ready,
		metrics: opts.Metrics,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(applog.Middleware(logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string { return chimw.GetReqID(r.Context()) }))
	r.Use(applog.AccessLog)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	if s.objects != nil {
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(extractClientIP, func(*http.Request) {
				s.metrics.ObjectServed("rate_limited")
			}))
			r.Use(objectHeaders)
			r.Get(objectstore.SignPrefix+"{bucket}/*", s.handleSignedObject)
		})
	}

	s.Handler = r
	return s
}

// Shutdown gracefully shuts down the server and its limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleSignedObject serves one object after verifying its URL token.
func (s *Server) handleSignedObject(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())

	if chi.URLParam(r, "bucket") != s.objects.Name() {
		s.metrics.ObjectServed("not_found")
		http.NotFound(w, r)
		return
	}
	path := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(path)
		if err != nil {
			s.metrics.ObjectServed("bad_request")
			http.Error(w, "invalid object path", http.StatusBadRequest)
			return
		}
		path = unescaped
	}

	f, info, err := s.objects.Open(path, r.URL.Query().Get("token"))
	switch {
	case err == nil:
	case errors.Is(err, objectstore.ErrInvalidToken):
		s.metrics.ObjectServed("forbidden")
		logger.WarnContext(r.Context(), "Rejected object signature", applog.FieldObjectPath, path)
		http.Error(w, "invalid or expired signature", http.StatusForbidden)
		return
	case errors.Is(err, objectstore.ErrInvalidPath):
		s.metrics.ObjectServed("bad_request")
		http.Error(w, "invalid object path", http.StatusBadRequest)
		return
	case errors.Is(err, objectstore.ErrNotFound):
		s.metrics.ObjectServed("not_found")
		http.NotFound(w, r)
		return
	default:
		s.metrics.ObjectServed("error")
		logger.ErrorContext(r.Context(), "Failed to open object", applog.FieldObjectPath, path, applog.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	s.metrics.ObjectServed("ok")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
