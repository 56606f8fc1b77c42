package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	billingcfg "github.com/socialstax/backend/internal/infrastructure/billing"

	domainbilling "github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/domain/identity"
	"github.com/socialstax/backend/internal/domain/shared"
)

// EventDedupeStore remembers which webhook event IDs were already
// processed. Stripe retries deliveries, so handlers must be idempotent.
type EventDedupeStore interface {
	// MarkProcessed records an event ID. Returns false if it was already
	// recorded.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

// StripeWebhookService handles Stripe webhook events
type StripeWebhookService struct {
	config   *billingcfg.StripeConfig
	userRepo identity.UserRepository
	dedupe   EventDedupeStore
	logger   *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(
	config *billingcfg.StripeConfig,
	userRepo identity.UserRepository,
	dedupe EventDedupeStore,
	logger *zap.Logger,
) *StripeWebhookService {
	return &StripeWebhookService{
		config:   config,
		userRepo: userRepo,
		dedupe:   dedupe,
		logger:   logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies and processes a Stripe webhook event
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	if s.dedupe != nil {
		firstSeen, err := s.dedupe.MarkProcessed(ctx, event.ID)
		if err != nil {
			// A dedupe outage must not drop events; worst case we process twice
			s.logger.Warn("Webhook dedupe store unavailable", zap.Error(err))
		} else if !firstSeen {
			s.logger.Debug("Skipping duplicate webhook event",
				zap.String("event_id", event.ID))
			result.Message = "Duplicate event"
			return result, nil
		}
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.handleSubscriptionChanged(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

// handleSubscriptionChanged handles subscription created and updated events
func (s *StripeWebhookService) handleSubscriptionChanged(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	customerID := ""
	if subscription.Customer != nil {
		customerID = subscription.Customer.ID
	}
	if customerID == "" {
		s.logger.Warn("Subscription has no customer ID, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	user, err := s.userRepo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if err == shared.ErrNotFound {
			// Webhooks can arrive before signup completes, or for customers
			// outside our system. Acknowledge to stop Stripe retries.
			s.logger.Warn("User not found for Stripe customer",
				zap.String("customer_id", customerID))
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	plan := s.resolvePlan(&subscription)
	status := mapSubscriptionStatus(subscription.Status)
	user.UpdateSubscription(plan, status, subscription.ID)

	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("Subscription change applied",
		zap.String("user_id", user.ID.String()),
		zap.String("subscription_id", subscription.ID),
		zap.String("plan", string(user.Plan)),
		zap.String("status", string(user.SubscriptionStatus)))

	return nil
}

// handleSubscriptionDeleted handles customer.subscription.deleted events
func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	customerID := ""
	if subscription.Customer != nil {
		customerID = subscription.Customer.ID
	}
	if customerID == "" {
		s.logger.Warn("Subscription has no customer ID, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	user, err := s.userRepo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if err == shared.ErrNotFound {
			s.logger.Warn("User not found for Stripe customer",
				zap.String("customer_id", customerID))
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	user.ClearSubscription()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("Subscription deleted, user downgraded to free",
		zap.String("user_id", user.ID.String()),
		zap.String("subscription_id", subscription.ID))

	return nil
}

// resolvePlan determines the plan tier for a subscription. Metadata wins
// over the price lookup so support can pin a tier on a custom deal.
func (s *StripeWebhookService) resolvePlan(subscription *stripe.Subscription) domainbilling.PlanTier {
	if tier, ok := subscription.Metadata["plan_tier"]; ok {
		return domainbilling.ParsePlanTier(tier)
	}

	if subscription.Items != nil {
		for _, item := range subscription.Items.Data {
			if item.Price == nil {
				continue
			}
			if tier, ok := s.config.PlanForPrice(item.Price.ID); ok {
				return domainbilling.ParsePlanTier(tier)
			}
		}
	}

	s.logger.Warn("Could not resolve plan tier for subscription, defaulting to free",
		zap.String("subscription_id", subscription.ID))
	return domainbilling.PlanFree
}

func mapSubscriptionStatus(status stripe.SubscriptionStatus) identity.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return identity.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return identity.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return identity.SubscriptionStatusCanceled
	default:
		return identity.SubscriptionStatusNone
	}
}
