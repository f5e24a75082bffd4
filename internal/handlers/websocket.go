package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"golang.org/x/time/rate"
)

// Client frame types
const (
	WSQuery  = "query"
	WSCancel = "cancel"
)

// Server frame types
const (
	WSEvent  = "event"
	WSResult = "result"
	WSError  = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the frame exchanged in both directions
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsOutbound struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// WSResultPayload ends a conversation on the socket
type WSResultPayload struct {
	*interfaces.ResearchResult
	Error string `json:"error,omitempty"`
}

// WebSocketHandler streams conversations over /ws/chat. A connection runs
// one conversation at a time; events arrive in the order they were emitted.
type WebSocketHandler struct {
	research interfaces.ResearchService
	config   common.WebSocketConfig
	logger   arbor.ILogger

	mu      sync.Mutex
	clients int
}

func NewWebSocketHandler(research interfaces.ResearchService, config common.WebSocketConfig, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		research: research,
		config:   config,
		logger:   logger,
	}
}

// Clients returns the number of open connections
func (h *WebSocketHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

// wsSession is the state of one connection
type wsSession struct {
	conn    *websocket.Conn
	handler *WebSocketHandler
	limiter *rate.Limiter

	writeMu sync.Mutex

	runMu   sync.Mutex
	cancel  context.CancelFunc
	running bool
	done    sync.WaitGroup
}

func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients++
	count := h.clients
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	session := &wsSession{
		conn:    conn,
		handler: h,
		limiter: newQueryLimiter(h.config.GetQueryInterval()),
	}

	defer func() {
		session.stop()
		session.done.Wait()
		conn.Close()

		h.mu.Lock()
		h.clients--
		remaining := h.clients
		h.mu.Unlock()
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")
	}()

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}

		switch msg.Type {
		case WSQuery:
			var req interfaces.ResearchRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				session.writeError("invalid query payload")
				continue
			}
			session.start(r.Context(), req)
		case WSCancel:
			session.stop()
		default:
			session.writeError("unknown message type: " + msg.Type)
		}
	}
}

// newQueryLimiter returns nil when queries are not rate limited
func newQueryLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// start launches a conversation unless one is already running on the connection
func (s *wsSession) start(parent context.Context, req interfaces.ResearchRequest) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	// the limiter is only consumed by queries that actually start
	if s.limiter != nil && s.limiter.Tokens() < 1 {
		s.writeError("too many queries, try again shortly")
		return
	}
	if s.running {
		s.writeError("a conversation is already in progress")
		return
	}
	if s.limiter != nil {
		s.limiter.Allow()
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	s.cancel = cancel
	s.running = true
	s.done.Add(1)

	common.SafeGo(s.handler.logger, "websocket-research", func() {
		defer s.done.Done()
		defer s.finish(cancel)
		frame := s.run(ctx, req)
		if frame == nil {
			return
		}
		if err := s.write(*frame); err != nil {
			s.handler.logger.Debug().Err(err).Str("frame", frame.Type).Msg("Failed to write frame")
		}
	})
}

// run executes the conversation and returns the closing frame. The
// connection stays busy until that frame is written.
func (s *wsSession) run(ctx context.Context, req interfaces.ResearchRequest) *wsOutbound {
	emit := func(event models.Event) error {
		return s.write(wsOutbound{Type: WSEvent, Payload: event})
	}

	result, err := s.handler.research.Research(ctx, req, emit)
	switch {
	case result != nil:
		payload := WSResultPayload{ResearchResult: result}
		if err != nil {
			payload.Error = err.Error()
		}
		return &wsOutbound{Type: WSResult, Payload: payload}
	case errors.Is(err, context.Canceled):
		s.handler.logger.Debug().Msg("Conversation cancelled by client")
		return nil
	default:
		return &wsOutbound{Type: WSError, Payload: map[string]string{"error": err.Error()}}
	}
}

func (s *wsSession) finish(cancel context.CancelFunc) {
	cancel()
	s.runMu.Lock()
	s.running = false
	s.cancel = nil
	s.runMu.Unlock()
}

// stop cancels the running conversation, if any
func (s *wsSession) stop() {
	s.runMu.Lock()
	cancel := s.cancel
	s.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *wsSession) write(msg wsOutbound) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if timeout := s.handler.config.GetWriteTimeout(); timeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return s.conn.WriteJSON(msg)
}

func (s *wsSession) writeError(message string) {
	if err := s.write(wsOutbound{Type: WSError, Payload: map[string]string{"error": message}}); err != nil {
		s.handler.logger.Debug().Err(err).Msg("Failed to write error frame")
	}
}
