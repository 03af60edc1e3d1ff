// Package server exposes the HTTP surface of the pipeline: the upload
// submission endpoint, the status polling endpoint, and the middleware around
// them. Handlers only validate, persist to temp, and enqueue; all processing
// happens in the worker.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"filegate/internal/config"
	"filegate/internal/queue"
	"filegate/internal/status"
)

// Server wires configuration, the status store, and the work queue into an
// http.Server.
type Server struct {
	cfg     *config.Config
	store   status.Store
	queue   *queue.Queue
	log     *slog.Logger
	limiter *ipRateLimiter
	server  *http.Server
	once    sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, store status.Store, q *queue.Queue, log *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		queue:   q,
		log:     log,
		limiter: newIPRateLimiter(cfg.UploadRateLimit, cfg.UploadRateWindow),
	}
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// drains in-flight requests within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Routes(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info("listening", "address", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Routes builds the router. Exported so tests can drive the full middleware
// stack through httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.With(s.limiter.Handler).Post("/upload", s.handleUpload)
	r.Get("/upload/status/{id}", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				log.Info("http_request",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration", time.Since(start),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
