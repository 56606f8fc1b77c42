package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository manages user persistence
type UserRepository interface {
	// FindByID returns a user by ID, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail returns a user by email, or shared.ErrNotFound
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByStripeCustomerID returns the user attached to a Stripe
	// customer, or shared.ErrNotFound
	FindByStripeCustomerID(ctx context.Context, customerID string) (*User, error)

	// Save persists a user (insert or update)
	Save(ctx context.Context, user *User) error

	// Count returns the total number of users
	Count(ctx context.Context) (int64, error)
}
