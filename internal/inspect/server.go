package inspect

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/xraph/binder/internal/logger"
)

// DefaultWatchInterval is how often watchers are checked for a changed snapshot.
const DefaultWatchInterval = 2 * time.Second

// Server serves a Handler on its own listener.
type Server struct {
	handler  *Handler
	log      logger.Logger
	interval time.Duration

	srv    *http.Server
	ln     net.Listener
	cancel context.CancelFunc
}

// NewServer creates a server for h on addr. It does not listen until Start.
func NewServer(addr string, h *Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Server{
		handler:  h,
		log:      log,
		interval: DefaultWatchInterval,
		srv: &http.Server{
			Addr:        addr,
			Handler:     h,
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	watchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.handler.Watch(watchCtx, s.interval)

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("inspect server error", logger.Error(err))
		}
	}()

	s.log.Info("inspect server started", logger.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Stop disconnects watchers and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.handler.Close()
	return s.srv.Shutdown(ctx)
}
