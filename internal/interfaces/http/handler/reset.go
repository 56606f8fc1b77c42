package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appbilling "github.com/socialstax/backend/internal/application/billing"
)

// ResetHandler exposes the manual usage reset for administrators
type ResetHandler struct {
	BaseHandler
	resetService *appbilling.ResetService
}

// NewResetHandler creates a new reset handler
func NewResetHandler(resetService *appbilling.ResetService) *ResetHandler {
	return &ResetHandler{resetService: resetService}
}

// Trigger runs a full usage reset immediately. The scheduled monthly
// reset uses the same service, so a manual run mid-cycle is safe to
// retry. Admin only.
// POST /api/v1/admin/usage/reset
func (h *ResetHandler) Trigger(c *gin.Context) {
	result, err := h.resetService.ResetAll(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
