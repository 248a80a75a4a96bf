// Package server provides the HTTP API for ragfuse.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/ragfuse/internal/config"
	"github.com/hyperjump/ragfuse/internal/models"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 120 * time.Second

// Pipeline is the question-answering pipeline served over HTTP.
type Pipeline interface {
	Ingest(ctx context.Context, inputs []*models.DocumentInput) (*models.IngestReport, error)
	Remove(ctx context.Context, filename string) error
	Ask(ctx context.Context, question string) (*models.Answer, error)
	Status() *models.Status
}

// WatchService manages inbox directories at runtime.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the ragfuse API.
type Server struct {
	pipeline Pipeline
	config   *config.ServerConfig
	logger   *zap.Logger
	timeout  time.Duration
	server   *http.Server

	watch         WatchService
	configPath    string
	watchConfig   *config.Config
	watchConfigMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithWatch enables the inbox directory endpoints. When configPath and cfg are set, directory
// changes are written back to the config file.
func WithWatch(ws WatchService, configPath string, cfg *config.Config) Option {
	return func(s *Server) {
		s.watch = ws
		s.configPath = configPath
		s.watchConfig = cfg
	}
}

// WithRequestTimeout bounds every request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewServer creates a server for p.
func NewServer(p Pipeline, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline: p,
		config:   cfg,
		logger:   logger,
		timeout:  defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(sentryTracing)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.With(maxBodyBytes(s.maxUploadBytes())).Post("/documents", s.handleIngest)
		r.Delete("/documents/{filename}", s.handleRemove)
		r.Post("/ask", s.handleAsk)
		r.Get("/status", s.handleStatus)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

func (s *Server) maxUploadBytes() int64 {
	if s.config == nil || s.config.MaxUploadMB <= 0 {
		return 0
	}
	return int64(s.config.MaxUploadMB) << 20
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
