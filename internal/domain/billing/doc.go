// Package billing provides domain models for usage quotas and free access grants.
//
// This package implements the usage quota bounded context, which is responsible for:
//   - Tracking per-user usage counters for metered resources (content, images, voice, API calls)
//   - Defining per-plan resource ceilings through an injected limit table
//   - Granting and revoking free access that overrides a user's subscription plan
//
// Key Aggregates:
//   - UsageRecord: Per-user counters for the current billing cycle
//   - FreeAccessGrant: Admin-issued plan override, optionally with custom ceilings
//
// Value Objects:
//   - ResourceType: Closed enumeration of metered resources
//   - PlanLimits / LimitTable: Per-tier resource ceilings
//
// The billing domain integrates with:
//   - Identity domain: For subscription plan and role information
//   - Application layer: Quota evaluation, usage recording, and the monthly reset
package billing
