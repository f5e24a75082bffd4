package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/pdf"
	"github.com/ternarybob/quarry/internal/services/transcript"
)

// ChatResponse is the body of a completed POST /api/chat
type ChatResponse struct {
	*interfaces.ResearchResult
	Events     []models.Event         `json:"events"`
	Transcript *transcript.Transcript `json:"transcript"`
	Markdown   string                 `json:"markdown"`
	Error      string                 `json:"error,omitempty"`
}

// ExportRequest carries the events a client received so it can be rendered
// without running the conversation again
type ExportRequest struct {
	Query  string         `json:"query"`
	Mode   models.Mode    `json:"mode"`
	Events []models.Event `json:"events"`
}

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	research interfaces.ResearchService
	pdf      *pdf.Service
	audit    interfaces.AuditStorage
	logger   arbor.ILogger
}

// NewChatHandler creates a new chat handler. audit may be nil.
func NewChatHandler(
	research interfaces.ResearchService,
	pdfService *pdf.Service,
	audit interfaces.AuditStorage,
	logger arbor.ILogger,
) *ChatHandler {
	return &ChatHandler{
		research: research,
		pdf:      pdfService,
		audit:    audit,
		logger:   logger,
	}
}

// ChatHandler handles POST /api/chat. The conversation runs to completion
// and the response carries every presentation event plus the transcript.
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interfaces.ResearchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode chat request")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	renderer := transcript.NewRenderer(req.Mode, req.Query)
	var events []models.Event
	emit := func(event models.Event) error {
		events = append(events, event)
		renderer.Apply(event)
		return nil
	}

	result, err := h.research.Research(r.Context(), req, emit)
	if result == nil {
		status := statusFor(err)
		h.logger.Warn().Err(err).Int("status", status).Msg("Chat request failed")
		WriteError(w, status, err.Error())
		return
	}

	t := renderer.Transcript()
	resp := ChatResponse{
		ResearchResult: result,
		Events:         events,
		Transcript:     t,
		Markdown:       t.Markdown(),
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = statusFor(err)
	}
	WriteJSON(w, status, resp)
}

// ExportHandler handles POST /api/chat/export and returns the transcript as PDF
func (h *ChatHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ExportRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Events) == 0 {
		WriteError(w, http.StatusBadRequest, "events are required")
		return
	}

	renderer := transcript.NewRenderer(req.Mode, req.Query)
	for _, event := range req.Events {
		renderer.Apply(event)
	}
	t := renderer.Transcript()

	doc, err := h.pdf.RenderTranscript(t)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", t.SessionID).Msg("Failed to render transcript")
		WriteError(w, http.StatusInternalServerError, "failed to render transcript")
		return
	}

	name := t.SessionID
	if name == "" {
		name = "transcript"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".pdf"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write PDF response")
	}
}

// ConversationsHandler handles GET /api/conversations and
// GET /api/conversations/{id}
func (h *ChatHandler) ConversationsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if h.audit == nil {
		WriteError(w, http.StatusNotFound, "conversation audit is disabled")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/conversations"), "/")
	if id == "" {
		records, err := h.audit.ListRecent(r.Context(), GetLimitParam(r, 20, 200))
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list conversations")
			WriteError(w, http.StatusInternalServerError, "failed to list conversations")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"conversations": records,
		})
		return
	}

	record, err := h.audit.GetConversation(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrConversationNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("session_id", id).Msg("Failed to get conversation")
		WriteError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}
	WriteJSON(w, http.StatusOK, record)
}

// statusFor maps a research error to an HTTP status
func statusFor(err error) int {
	var (
		timeout   *models.BackendTimeoutError
		retrieval *models.RetrievalBackendError
		model     *models.ModelBackendError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, interfaces.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &retrieval), errors.As(err, &model):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
