// package server contains the gin HTTP API for exporting tasks
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/tasks"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// ClientFactory builds a Graph client for one request's bearer token.
type ClientFactory func(token string) tasks.APIClient

// Options is the dependency bag passed to [New].
type Options struct {
	Logger   *log.Logger
	Factory  ClientFactory
	Recorder tasks.RunRecorder // optional export history
	Fetch    tasks.FetchOpts
	Mode     string // gin mode; defaults to release
}

// Server serves the export API. Every request builds its own client, fetcher and exporter,
// so no remote data is shared between requests.
type Server struct {
	gin      *gin.Engine
	logger   *log.Logger
	factory  ClientFactory
	recorder tasks.RunRecorder
	fetch    tasks.FetchOpts
}

// New creates a Server with its routes and middleware registered.
func New(opts Options) (*Server, error) {
	if opts.Factory == nil {
		return nil, errors.New("client factory is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Mode == "" {
		opts.Mode = gin.ReleaseMode
	}
	gin.SetMode(opts.Mode)

	srv := &Server{
		gin:      gin.New(),
		logger:   shared.WithLogger(opts.Logger, "component", "server"),
		factory:  opts.Factory,
		recorder: opts.Recorder,
		fetch:    opts.Fetch,
	}
	srv.mapHandlers()

	return srv, nil
}

// Handler returns the server as an [http.Handler].
func (s *Server) Handler() http.Handler {
	return s.gin
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}
