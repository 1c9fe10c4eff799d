package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/config"
)

// SettingsHandler reports the console settings that operators may see
type SettingsHandler struct {
	cfg *config.Config
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{
		cfg: cfg,
	}
}

// GetSettings handles GET /settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	store := "memory"
	if h.cfg.MongoDB.URI != "" {
		store = "mongodb"
	}
	c.JSON(http.StatusOK, gin.H{
		"backendUrl":         h.cfg.API.BaseURL,
		"spinDelayMs":        h.cfg.Draw.SpinDelay().Milliseconds(),
		"cacheTtlSeconds":    int(h.cfg.Draw.CacheTTL().Seconds()),
		"sessionIdleMinutes": int(h.cfg.Draw.SessionIdle().Minutes()),
		"auditStore":         store,
	})
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
