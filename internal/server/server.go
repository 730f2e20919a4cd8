// Package server exposes the question-answering pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/models"
)

// Answerer is the pipeline surface the server needs.
type Answerer interface {
	Query(ctx context.Context, question string, k int) models.Answer
	BuildIndex(ctx context.Context, dir string) error
	CollectionExists() bool
	DocumentCount() int
}

// Server serves the HTTP API.
type Server struct {
	addr     string
	pipeline Answerer
	logger   *zap.Logger
	http     *http.Server
}

// New creates a server listening on addr. logger may be nil.
func New(addr string, pipeline Answerer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{addr: addr, pipeline: pipeline, logger: logger}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Post("/index", s.handleIndex)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start serves until ListenAndServe fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
