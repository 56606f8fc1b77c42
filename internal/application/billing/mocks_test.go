package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/identity"
)

// Mock implementations

type mockUsageRepository struct {
	mock.Mock
}

func (m *mockUsageRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*billing.UsageRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UsageRecord), args.Error(1)
}

func (m *mockUsageRepository) Save(ctx context.Context, record *billing.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockUsageRepository) Increment(ctx context.Context, userID uuid.UUID, resource billing.ResourceType, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, resource, amount)
	return args.Error(0)
}

func (m *mockUsageRepository) TryConsume(ctx context.Context, userID uuid.UUID, resource billing.ResourceType, amount decimal.Decimal, limit int64) (bool, error) {
	args := m.Called(ctx, userID, resource, amount, limit)
	return args.Bool(0), args.Error(1)
}

func (m *mockUsageRepository) ListUserIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockUsageRepository) ResetBatch(ctx context.Context, userIDs []uuid.UUID, resetAt time.Time) (int, error) {
	args := m.Called(ctx, userIDs, resetAt)
	return args.Int(0), args.Error(1)
}

type mockGrantRepository struct {
	mock.Mock
}

func (m *mockGrantRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.FreeAccessGrant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.FreeAccessGrant), args.Error(1)
}

func (m *mockGrantRepository) Save(ctx context.Context, grant *billing.FreeAccessGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *mockGrantRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*billing.FreeAccessGrant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.FreeAccessGrant), args.Error(1)
}

func (m *mockGrantRepository) List(ctx context.Context, offset, limit int) ([]*billing.FreeAccessGrant, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.FreeAccessGrant), args.Error(1)
}

func (m *mockGrantRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *mockUserRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*identity.User, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *mockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Test fixtures

func newTestUser(plan billing.PlanTier) *identity.User {
	user, err := identity.NewUser("user@example.com", "password1")
	if err != nil {
		panic(err)
	}
	if plan != billing.PlanFree {
		user.UpdateSubscription(plan, identity.SubscriptionStatusActive, "sub_test")
	}
	return user
}

func newTestUsage(userID uuid.UUID, resource billing.ResourceType, amount int64) *billing.UsageRecord {
	record, err := billing.NewUsageRecord(userID)
	if err != nil {
		panic(err)
	}
	if err := record.Add(resource, decimal.NewFromInt(amount)); err != nil {
		panic(err)
	}
	return record
}
