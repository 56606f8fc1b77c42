package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/identity"
	"github.com/socialstax/backend/internal/domain/shared"
)

// UserModel is the GORM model for users
type UserModel struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email                string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash         string     `gorm:"type:varchar(255);not null"`
	DisplayName          string     `gorm:"type:varchar(200)"`
	Role                 string     `gorm:"type:varchar(20);not null;default:'user'"`
	Plan                 string     `gorm:"type:varchar(20);not null;default:'free'"`
	SubscriptionStatus   string     `gorm:"type:varchar(20);not null;default:'none'"`
	StripeCustomerID     string     `gorm:"type:varchar(255);index"`
	StripeSubscriptionID string     `gorm:"type:varchar(255)"`
	LastLoginAt          *time.Time `gorm:""`
	CreatedAt            time.Time  `gorm:"autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (UserModel) TableName() string {
	return "users"
}

// ToEntity converts the model to a domain entity
func (m *UserModel) ToEntity() *identity.User {
	return &identity.User{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Email:                m.Email,
		PasswordHash:         m.PasswordHash,
		DisplayName:          m.DisplayName,
		Role:                 identity.UserRole(m.Role),
		Plan:                 billing.ParsePlanTier(m.Plan),
		SubscriptionStatus:   identity.SubscriptionStatus(m.SubscriptionStatus),
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		LastLoginAt:          m.LastLoginAt,
	}
}

// UserModelFromEntity creates a model from a domain entity
func UserModelFromEntity(e *identity.User) *UserModel {
	return &UserModel{
		ID:                   e.ID,
		Email:                e.Email,
		PasswordHash:         e.PasswordHash,
		DisplayName:          e.DisplayName,
		Role:                 string(e.Role),
		Plan:                 string(e.Plan),
		SubscriptionStatus:   string(e.SubscriptionStatus),
		StripeCustomerID:     e.StripeCustomerID,
		StripeSubscriptionID: e.StripeSubscriptionID,
		LastLoginAt:          e.LastLoginAt,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// UserRepository implements the identity.UserRepository interface
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByEmail retrieves a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByStripeCustomerID retrieves the user attached to a Stripe customer
func (r *UserRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*identity.User, error) {
	if customerID == "" {
		return nil, shared.ErrNotFound
	}
	var model UserModel
	if err := r.db.WithContext(ctx).First(&model, "stripe_customer_id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Save persists a user (insert or update)
func (r *UserRepository) Save(ctx context.Context, user *identity.User) error {
	model := UserModelFromEntity(user)
	return r.db.WithContext(ctx).Save(model).Error
}

// Count returns the total number of users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&count).Error
	return count, err
}

var _ identity.UserRepository = (*UserRepository)(nil)
