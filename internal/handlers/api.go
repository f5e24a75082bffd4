package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// ModeInfo describes one conversation mode to clients
type ModeInfo struct {
	Mode    models.Mode `json:"mode"`
	Label   string      `json:"label"`
	Default bool        `json:"default"`
}

type APIHandler struct {
	config   *common.Config
	research interfaces.ResearchService
	logger   arbor.ILogger
}

func NewAPIHandler(config *common.Config, research interfaces.ResearchService, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		config:   config,
		research: research,
		logger:   logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, common.GetBuildInfo())
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"index":  h.config.Search.IndexName,
	})
}

// ModesHandler lists the selectable conversation modes
func (h *APIHandler) ModesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	def, err := models.ParseMode(h.config.Chat.DefaultMode)
	if err != nil {
		def = models.ModeSinglePass
	}

	modes := make([]ModeInfo, 0, 2)
	for _, mode := range []models.Mode{models.ModeSinglePass, models.ModeIterative} {
		modes = append(modes, ModeInfo{
			Mode:    mode,
			Label:   mode.Label(),
			Default: mode == def,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"modes": modes,
	})
}

// StartersHandler returns the suggested opening questions
func (h *APIHandler) StartersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"starters": h.research.Starters(),
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
