// Package server exposes the submission service over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/entrhq/formai/pkg/config"
	"github.com/entrhq/formai/pkg/logging"
)

// Service identity reported by GET /.
const (
	ServiceName = "Form AI"
	Version     = "0.1.0"
)

// Server represents the HTTP server of the submission API.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	log        *logging.Logger
}

// NewServer creates a Server listening on settings.Addr(). hist may be nil.
// The write timeout covers one automation run plus a margin; batch requests
// extend it per item.
func NewServer(settings *config.Settings, submitter Submitter, hist HistoryReader, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	handlers := NewHandlers(submitter, settings, hist, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handlers.HandleRoot)
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.HandleFunc("POST /api/submit", handlers.HandleSubmit)
	mux.HandleFunc("POST /api/batch-submit", handlers.HandleBatchSubmit)
	mux.HandleFunc("GET /api/config", handlers.HandleConfig)
	mux.HandleFunc("GET /api/history", handlers.HandleHistory)

	handler := Chain(mux,
		RequestID(),
		AccessLog(log),
		Recover(log),
		CORS(settings.CORSOrigins),
	)

	return &Server{
		handlers: handlers,
		log:      log,
		httpServer: &http.Server{
			Addr:              settings.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      settings.Timeout() + writeMargin,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens on the configured address and blocks until the server
// stops. A graceful Shutdown yields a nil error.
func (s *Server) Start() error {
	s.log.Infof("listening on %s", s.httpServer.Addr)
	return ignoreClosed(s.httpServer.ListenAndServe())
}

// Serve is Start on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	s.log.Infof("listening on %s", l.Addr())
	return ignoreClosed(s.httpServer.Serve(l))
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// submissions until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infof("shutting down")
	return s.httpServer.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
