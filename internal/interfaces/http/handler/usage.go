package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbilling "github.com/socialstax/backend/internal/application/billing"
	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/interfaces/http/dto"
)

// UsageHandler handles usage reporting and metering endpoints
type UsageHandler struct {
	BaseHandler
	usageService *appbilling.UsageService
	quotaService *appbilling.QuotaService
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usageService *appbilling.UsageService, quotaService *appbilling.QuotaService) *UsageHandler {
	return &UsageHandler{usageService: usageService, quotaService: quotaService}
}

// IncrementRequest is the request body for recording usage
type IncrementRequest struct {
	Resource string          `json:"resource" binding:"required,resource"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// Increment records usage that already happened. It never refuses on
// quota grounds; enforcement belongs to the consume endpoint.
// POST /api/v1/usage/increment
func (h *UsageHandler) Increment(c *gin.Context) {
	var req IncrementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resource, err := billing.ParseResourceType(req.Resource)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Unknown resource type: "+req.Resource)
		return
	}

	userID, err := authenticatedUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.usageService.Increment(c.Request.Context(), userID, resource, req.Amount); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"recorded": true})
}

// GetUsage returns the caller's usage summary across all resources
// GET /api/v1/usage
func (h *UsageHandler) GetUsage(c *gin.Context) {
	userID, err := authenticatedUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	summary, err := h.quotaService.GetUsage(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// GetUserUsage returns any user's usage summary. Admin only.
// GET /api/v1/admin/users/:id/usage
func (h *UsageHandler) GetUserUsage(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	userID, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	summary, err := h.quotaService.GetUsage(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}
