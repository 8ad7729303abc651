package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hojomatch/hojocrawl/internal/logger"
)

// Server runs the HTTP API until its context is cancelled.
type Server struct {
	httpServer *http.Server
	log        logger.Interface
}

// shutdownGrace bounds how long in-flight requests may finish.
const shutdownGrace = 10 * time.Second

// NewServer creates a server bound to addr.
func NewServer(addr string, pages PageSearcher, log logger.Interface) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(pages, log),
			ReadHeaderTimeout: 15 * time.Second,
		},
		log: log.WithComponent("api"),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
