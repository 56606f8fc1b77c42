package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialstax/backend/internal/infrastructure/persistence"
	"github.com/socialstax/backend/internal/interfaces/http/dto"
)

// SystemHandler handles health and readiness probes
type SystemHandler struct {
	BaseHandler
	db      *persistence.Database
	version string
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(db *persistence.Database, version string) *SystemHandler {
	return &SystemHandler{db: db, version: version}
}

// Health reports process liveness
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready reports whether the service can serve traffic
// GET /ready
func (h *SystemHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(dto.ErrCodeStoreUnavailable, "Database unreachable"))
		return
	}

	h.Success(c, gin.H{"status": "ready"})
}
