package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"

	"github.com/socialstax/backend/internal/infrastructure/config"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// IsTestMode indicates if using Stripe test mode
	IsTestMode bool `json:"is_test_mode" mapstructure:"is_test_mode"`

	// PriceIDs maps plan tier names to Stripe Price IDs
	PriceIDs map[string]string `json:"price_ids" mapstructure:"price_ids"`
}

// NewStripeConfig builds the Stripe configuration from application config
func NewStripeConfig(cfg config.StripeConfig, env string) *StripeConfig {
	return &StripeConfig{
		SecretKey:     cfg.SecretKey,
		WebhookSecret: cfg.WebhookSecret,
		IsTestMode:    env != "production",
		PriceIDs:      cfg.PriceIDs,
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}

	if c.IsTestMode {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_test" {
			return fmt.Errorf("stripe: test mode enabled but secret key is not a test key")
		}
	} else {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_live" {
			return fmt.Errorf("stripe: live mode enabled but secret key is not a live key")
		}
	}

	return nil
}

// GetPriceID returns the Stripe Price ID for a given plan tier
func (c *StripeConfig) GetPriceID(tier string) (string, error) {
	priceID, exists := c.PriceIDs[tier]
	if !exists {
		return "", fmt.Errorf("stripe: no price ID configured for tier: %s", tier)
	}
	if priceID == "" && tier != "free" {
		return "", fmt.Errorf("stripe: price ID not set for tier: %s", tier)
	}
	return priceID, nil
}

// PlanForPrice resolves a plan tier name from a Stripe price ID
func (c *StripeConfig) PlanForPrice(priceID string) (string, bool) {
	if priceID == "" {
		return "", false
	}
	for tier, id := range c.PriceIDs {
		if id == priceID {
			return tier, true
		}
	}
	return "", false
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
