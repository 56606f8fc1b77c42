package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appbilling "github.com/socialstax/backend/internal/application/billing"
	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/interfaces/http/dto"
)

// QuotaHandler handles quota check and consume endpoints
type QuotaHandler struct {
	BaseHandler
	quotaService *appbilling.QuotaService
}

// NewQuotaHandler creates a new quota handler
func NewQuotaHandler(quotaService *appbilling.QuotaService) *QuotaHandler {
	return &QuotaHandler{quotaService: quotaService}
}

// QuotaRequest is the request body for quota check and consume
type QuotaRequest struct {
	Resource string `json:"resource" binding:"required,resource"`
	// Amount defaults to 1 when omitted. Zero is a pure availability probe
	// on the check endpoint and invalid on consume.
	Amount *decimal.Decimal `json:"amount"`
}

// QuotaResponse is the response body for quota operations
type QuotaResponse struct {
	Allowed      bool            `json:"allowed"`
	Resource     string          `json:"resource"`
	CurrentUsage decimal.Decimal `json:"current_usage"`
	Limit        int64           `json:"limit"`
	Unlimited    bool            `json:"unlimited"`
	Remaining    decimal.Decimal `json:"remaining"`
	GrantApplied bool            `json:"grant_applied"`
}

func toQuotaResponse(r *appbilling.QuotaCheckResult) QuotaResponse {
	return QuotaResponse{
		Allowed:      r.Allowed,
		Resource:     string(r.Resource),
		CurrentUsage: r.CurrentUsage,
		Limit:        r.Limit,
		Unlimited:    r.Unlimited,
		Remaining:    r.Remaining,
		GrantApplied: r.GrantApplied,
	}
}

func (h *QuotaHandler) bindInput(c *gin.Context) (appbilling.QuotaCheckInput, bool) {
	var req QuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return appbilling.QuotaCheckInput{}, false
	}

	resource, err := billing.ParseResourceType(req.Resource)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Unknown resource type: "+req.Resource)
		return appbilling.QuotaCheckInput{}, false
	}

	amount := decimal.NewFromInt(1)
	if req.Amount != nil {
		amount = *req.Amount
	}

	userID, err := authenticatedUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return appbilling.QuotaCheckInput{}, false
	}

	return appbilling.QuotaCheckInput{
		UserID:   userID,
		Resource: resource,
		Amount:   amount,
	}, true
}

// Check reports whether the caller may consume the given amount without
// recording anything
// POST /api/v1/quota/check
func (h *QuotaHandler) Check(c *gin.Context) {
	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	result, err := h.quotaService.CanPerform(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toQuotaResponse(result))
}

// Consume atomically checks and records consumption. A denial returns
// 429 with the current usage picture.
// POST /api/v1/quota/consume
func (h *QuotaHandler) Consume(c *gin.Context) {
	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	result, err := h.quotaService.TryConsume(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if !result.Allowed {
		c.JSON(http.StatusTooManyRequests, dto.Response{
			Success: false,
			Data:    toQuotaResponse(result),
			Error: &dto.ErrorInfo{
				Code:    dto.ErrCodeQuotaExceeded,
				Message: "Quota exceeded for " + result.Resource.DisplayName(),
			},
		})
		return
	}

	h.Success(c, toQuotaResponse(result))
}
