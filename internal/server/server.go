package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ternarybob/quarry/internal/app"
)

// Server exposes the research service over HTTP and WebSocket
type Server struct {
	app    *app.App
	router *http.ServeMux
	server *http.Server
}

// New builds the server for an initialized application
func New(application *app.App) *Server {
	s := &Server{app: application}
	s.router = s.setupRoutes()

	// WriteTimeout stays unset: /api/chat and /ws/chat hold the connection
	// for a whole conversation, which chat.timeout bounds instead.
	s.server = &http.Server{
		Addr:              net.JoinHostPort(application.Config.Server.Host, fmt.Sprint(application.Config.Server.Port)),
		Handler:           s.withConditionalMiddleware(s.router),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	addr := ln.Addr().String()
	s.app.Logger.Info().
		Str("address", addr).
		Str("chat", "http://"+addr+"/api/chat").
		Str("stream", "ws://"+addr+"/ws/chat").
		Msg("HTTP server listening")

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
