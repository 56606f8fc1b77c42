package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/shared"
)

// UsageRecordModel is the GORM model for per-user usage counters
type UsageRecordModel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID                uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	ContentGenerations    decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	ImageGenerations      decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	VoiceAssistantMinutes decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	APICalls              decimal.Decimal `gorm:"column:api_calls;type:numeric(20,6);not null;default:0"`
	LastReset             time.Time       `gorm:"not null"`
	CreatedAt             time.Time       `gorm:"autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (UsageRecordModel) TableName() string {
	return "usage_records"
}

// ToEntity converts the model to a domain entity
func (m *UsageRecordModel) ToEntity() *billing.UsageRecord {
	return &billing.UsageRecord{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:                m.UserID,
		ContentGenerations:    m.ContentGenerations,
		ImageGenerations:      m.ImageGenerations,
		VoiceAssistantMinutes: m.VoiceAssistantMinutes,
		APICalls:              m.APICalls,
		LastReset:             m.LastReset,
	}
}

// UsageRecordModelFromEntity creates a model from a domain entity
func UsageRecordModelFromEntity(e *billing.UsageRecord) *UsageRecordModel {
	return &UsageRecordModel{
		ID:                    e.ID,
		UserID:                e.UserID,
		ContentGenerations:    e.ContentGenerations,
		ImageGenerations:      e.ImageGenerations,
		VoiceAssistantMinutes: e.VoiceAssistantMinutes,
		APICalls:              e.APICalls,
		LastReset:             e.LastReset,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

// counterColumn maps a resource type to its counter column. Resource types
// are a closed enum, so an unknown value here is a programming error.
func counterColumn(resource billing.ResourceType) (string, error) {
	switch resource {
	case billing.ResourceContentGenerations:
		return "content_generations", nil
	case billing.ResourceImageGenerations:
		return "image_generations", nil
	case billing.ResourceVoiceAssistantMinutes:
		return "voice_assistant_minutes", nil
	case billing.ResourceAPICalls:
		return "api_calls", nil
	default:
		return "", shared.NewDomainError("VALIDATION_ERROR", "Invalid resource type")
	}
}

// UsageRepository implements the billing.UsageRepository interface
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// FindByUserID retrieves the usage record for a user
func (r *UsageRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*billing.UsageRecord, error) {
	var model UsageRecordModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Save persists a usage record (insert or update)
func (r *UsageRepository) Save(ctx context.Context, record *billing.UsageRecord) error {
	model := UsageRecordModelFromEntity(record)
	return r.db.WithContext(ctx).Save(model).Error
}

// Increment atomically adds amount to a resource counter, creating an
// all-zero record first if the user has none yet.
func (r *UsageRepository) Increment(ctx context.Context, userID uuid.UUID, resource billing.ResourceType, amount decimal.Decimal) error {
	column, err := counterColumn(resource)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRecord(tx, userID); err != nil {
			return err
		}

		return tx.Model(&UsageRecordModel{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				column:       gorm.Expr(column+" + ?", amount),
				"updated_at": time.Now(),
			}).Error
	})
}

// TryConsume atomically adds amount to a resource counter only if the
// resulting total stays at or below limit. The check and the increment
// happen in a single conditional UPDATE so concurrent consumers cannot
// push the counter past the ceiling.
func (r *UsageRepository) TryConsume(ctx context.Context, userID uuid.UUID, resource billing.ResourceType, amount decimal.Decimal, limit int64) (bool, error) {
	if limit == billing.UnlimitedLimit {
		if err := r.Increment(ctx, userID, resource, amount); err != nil {
			return false, err
		}
		return true, nil
	}

	column, err := counterColumn(resource)
	if err != nil {
		return false, err
	}

	consumed := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRecord(tx, userID); err != nil {
			return err
		}

		// Decimals bind as text, so force a numeric comparison. Without the
		// casts sqlite compares text against the ceiling and waves
		// everything through.
		result := tx.Model(&UsageRecordModel{}).
			Where("user_id = ?", userID).
			Where("CAST("+column+" AS NUMERIC) + CAST(? AS NUMERIC) <= CAST(? AS NUMERIC)", amount, decimal.NewFromInt(limit)).
			Updates(map[string]any{
				column:       gorm.Expr(column+" + ?", amount),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		consumed = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return consumed, nil
}

// ListUserIDs returns user IDs with a usage record, ordered by user ID so
// pagination is stable across pages.
func (r *UsageRepository) ListUserIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&UsageRecordModel{}).
		Order("user_id ASC").
		Offset(offset).
		Limit(limit).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ResetBatch zeroes the counters of the given users and stamps LastReset.
// Returns the number of records actually reset.
func (r *UsageRepository) ResetBatch(ctx context.Context, userIDs []uuid.UUID, resetAt time.Time) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&UsageRecordModel{}).
		Where("user_id IN ?", userIDs).
		Updates(map[string]any{
			"content_generations":     decimal.Zero,
			"image_generations":       decimal.Zero,
			"voice_assistant_minutes": decimal.Zero,
			"api_calls":               decimal.Zero,
			"last_reset":              resetAt,
			"updated_at":              time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// ensureRecord inserts an all-zero usage record for the user if none
// exists. Runs inside the caller's transaction.
func ensureRecord(tx *gorm.DB, userID uuid.UUID) error {
	var count int64
	if err := tx.Model(&UsageRecordModel{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	record, err := billing.NewUsageRecord(userID)
	if err != nil {
		return err
	}
	return tx.Create(UsageRecordModelFromEntity(record)).Error
}

var _ billing.UsageRepository = (*UsageRepository)(nil)
