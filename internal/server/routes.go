package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Streaming chat
	mux.HandleFunc("/ws/chat", s.app.WSHandler.HandleWebSocket)

	// API routes - Chat
	mux.HandleFunc("/api/chat", s.app.ChatHandler.ChatHandler)
	mux.HandleFunc("/api/chat/export", s.app.ChatHandler.ExportHandler)
	mux.HandleFunc("/api/conversations", s.app.ChatHandler.ConversationsHandler)
	mux.HandleFunc("/api/conversations/", s.app.ChatHandler.ConversationsHandler)

	// API routes - Discovery
	mux.HandleFunc("/api/modes", s.app.APIHandler.ModesHandler)
	mux.HandleFunc("/api/starters", s.app.APIHandler.StartersHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	if s.app.Metrics != nil {
		path := s.app.Config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.app.Metrics.Handler())
	}

	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
