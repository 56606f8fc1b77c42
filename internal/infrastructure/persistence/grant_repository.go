package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/shared"
)

// FreeAccessGrantModel is the GORM model for free access grants
type FreeAccessGrantModel struct {
	ID                         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID                     uuid.UUID  `gorm:"type:uuid;index;not null"`
	Email                      string     `gorm:"type:varchar(255);not null"`
	PlanTier                   string     `gorm:"type:varchar(20);not null"`
	Reason                     string     `gorm:"type:text"`
	GrantedBy                  string     `gorm:"type:varchar(255)"`
	GrantedAt                  time.Time  `gorm:"not null;index"`
	ExpiresAt                  *time.Time `gorm:""`
	RevokedAt                  *time.Time `gorm:""`
	CustomContentGenerations   *int64     `gorm:""`
	CustomImageGenerations     *int64     `gorm:""`
	CustomVoiceAssistantMins   *int64     `gorm:"column:custom_voice_assistant_minutes"`
	CustomAPICalls             *int64     `gorm:"column:custom_api_calls"`
	CreatedAt                  time.Time  `gorm:"autoCreateTime"`
	UpdatedAt                  time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (FreeAccessGrantModel) TableName() string {
	return "free_access_grants"
}

// ToEntity converts the model to a domain entity
func (m *FreeAccessGrantModel) ToEntity() *billing.FreeAccessGrant {
	return &billing.FreeAccessGrant{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:    m.UserID,
		Email:     m.Email,
		PlanTier:  billing.ParsePlanTier(m.PlanTier),
		Reason:    m.Reason,
		GrantedBy: m.GrantedBy,
		GrantedAt: m.GrantedAt,
		ExpiresAt: m.ExpiresAt,
		RevokedAt: m.RevokedAt,
		CustomLimits: billing.CustomLimits{
			ContentGenerations:    m.CustomContentGenerations,
			ImageGenerations:      m.CustomImageGenerations,
			VoiceAssistantMinutes: m.CustomVoiceAssistantMins,
			APICalls:              m.CustomAPICalls,
		},
	}
}

// FreeAccessGrantModelFromEntity creates a model from a domain entity
func FreeAccessGrantModelFromEntity(e *billing.FreeAccessGrant) *FreeAccessGrantModel {
	return &FreeAccessGrantModel{
		ID:                       e.ID,
		UserID:                   e.UserID,
		Email:                    e.Email,
		PlanTier:                 string(e.PlanTier),
		Reason:                   e.Reason,
		GrantedBy:                e.GrantedBy,
		GrantedAt:                e.GrantedAt,
		ExpiresAt:                e.ExpiresAt,
		RevokedAt:                e.RevokedAt,
		CustomContentGenerations: e.CustomLimits.ContentGenerations,
		CustomImageGenerations:   e.CustomLimits.ImageGenerations,
		CustomVoiceAssistantMins: e.CustomLimits.VoiceAssistantMinutes,
		CustomAPICalls:           e.CustomLimits.APICalls,
		CreatedAt:                e.CreatedAt,
		UpdatedAt:                e.UpdatedAt,
	}
}

// GrantRepository implements the billing.GrantRepository interface
type GrantRepository struct {
	db *gorm.DB
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// FindByID retrieves a grant by ID
func (r *GrantRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.FreeAccessGrant, error) {
	var model FreeAccessGrantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Save persists a grant (insert or update)
func (r *GrantRepository) Save(ctx context.Context, grant *billing.FreeAccessGrant) error {
	model := FreeAccessGrantModelFromEntity(grant)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByUserID returns all grants for a user, most recent first
func (r *GrantRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*billing.FreeAccessGrant, error) {
	var models []FreeAccessGrantModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("granted_at DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	grants := make([]*billing.FreeAccessGrant, len(models))
	for i := range models {
		grants[i] = models[i].ToEntity()
	}
	return grants, nil
}

// List returns grants across all users, most recent first
func (r *GrantRepository) List(ctx context.Context, offset, limit int) ([]*billing.FreeAccessGrant, error) {
	var models []FreeAccessGrantModel
	err := r.db.WithContext(ctx).
		Order("granted_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	grants := make([]*billing.FreeAccessGrant, len(models))
	for i := range models {
		grants[i] = models[i].ToEntity()
	}
	return grants, nil
}

// Count returns the total number of grants
func (r *GrantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&FreeAccessGrantModel{}).Count(&count).Error
	return count, err
}

var _ billing.GrantRepository = (*GrantRepository)(nil)
