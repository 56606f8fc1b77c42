package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appbilling "github.com/socialstax/backend/internal/application/billing"
	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/interfaces/http/dto"
	"github.com/socialstax/backend/internal/interfaces/http/middleware"
)

// GrantHandler handles free access grant administration
type GrantHandler struct {
	BaseHandler
	grantService *appbilling.GrantService
}

// NewGrantHandler creates a new grant handler
func NewGrantHandler(grantService *appbilling.GrantService) *GrantHandler {
	return &GrantHandler{grantService: grantService}
}

// CustomLimitsRequest carries optional per-resource ceiling overrides
type CustomLimitsRequest struct {
	ContentGenerations    *int64 `json:"content_generations"`
	ImageGenerations      *int64 `json:"image_generations"`
	VoiceAssistantMinutes *int64 `json:"voice_assistant_minutes"`
	APICalls              *int64 `json:"api_calls"`
}

// CreateGrantRequest is the request body for creating a grant
type CreateGrantRequest struct {
	UserID       string               `json:"user_id" binding:"required,uuid"`
	Email        string               `json:"email" binding:"required,email"`
	PlanTier     string               `json:"plan_tier" binding:"required,plantier"`
	Reason       string               `json:"reason"`
	ExpiresAt    *time.Time           `json:"expires_at"`
	CustomLimits *CustomLimitsRequest `json:"custom_limits"`
}

// GrantResponse is the API view of a grant
type GrantResponse struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	PlanTier  string     `json:"plan_tier"`
	Reason    string     `json:"reason,omitempty"`
	GrantedBy string     `json:"granted_by,omitempty"`
	GrantedAt time.Time  `json:"granted_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	Active    bool       `json:"active"`
}

func toGrantResponse(g *billing.FreeAccessGrant) GrantResponse {
	return GrantResponse{
		ID:        g.ID,
		UserID:    g.UserID,
		Email:     g.Email,
		PlanTier:  string(g.PlanTier),
		Reason:    g.Reason,
		GrantedBy: g.GrantedBy,
		GrantedAt: g.GrantedAt,
		ExpiresAt: g.ExpiresAt,
		RevokedAt: g.RevokedAt,
		Active:    g.IsActiveAt(time.Now()),
	}
}

// Create creates a free access grant for a user. Admin only.
// POST /api/v1/admin/grants
func (h *GrantHandler) Create(c *gin.Context) {
	var req CreateGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	input := appbilling.CreateGrantInput{
		UserID:    userID,
		Email:     req.Email,
		PlanTier:  billing.PlanTier(req.PlanTier),
		Reason:    req.Reason,
		GrantedBy: grantedByFromClaims(c),
		ExpiresAt: req.ExpiresAt,
	}
	if req.CustomLimits != nil {
		input.CustomLimits = billing.CustomLimits{
			ContentGenerations:    req.CustomLimits.ContentGenerations,
			ImageGenerations:      req.CustomLimits.ImageGenerations,
			VoiceAssistantMinutes: req.CustomLimits.VoiceAssistantMinutes,
			APICalls:              req.CustomLimits.APICalls,
		}
	}

	grant, err := h.grantService.CreateGrant(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toGrantResponse(grant))
}

// Revoke revokes a grant. Revocation is idempotent: already revoked and
// unknown grants both succeed, so retried deletes are harmless. Admin only.
// DELETE /api/v1/admin/grants/:id
func (h *GrantHandler) Revoke(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid grant ID")
		return
	}

	grantID, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid grant ID")
		return
	}

	grant, err := h.grantService.RevokeGrant(c.Request.Context(), grantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if grant == nil {
		h.Success(c, gin.H{"revoked": true})
		return
	}

	h.Success(c, toGrantResponse(grant))
}

// List returns grants across all users, most recent first. Admin only.
// GET /api/v1/admin/grants
func (h *GrantHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}
	req.Normalize()

	result, err := h.grantService.ListGrants(c.Request.Context(), req.Offset(), req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	grants := make([]GrantResponse, len(result.Grants))
	for i, g := range result.Grants {
		grants[i] = toGrantResponse(g)
	}

	h.SuccessWithMeta(c, grants, result.Total, req.Page, req.PageSize)
}

// ListForUser returns all grants for one user. Admin only.
// GET /api/v1/admin/users/:id/grants
func (h *GrantHandler) ListForUser(c *gin.Context) {
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

	grants, err := h.grantService.ListGrantsForUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]GrantResponse, len(grants))
	for i, g := range grants {
		out[i] = toGrantResponse(g)
	}

	h.Success(c, out)
}

// grantedByFromClaims identifies the admin issuing the grant
func grantedByFromClaims(c *gin.Context) string {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.Email
	}
	return ""
}
