package billing

// PlanTier identifies a subscription plan tier
type PlanTier string

const (
	// PlanFree is the default tier for users without a paid subscription
	PlanFree PlanTier = "free"

	// PlanStarter is the entry-level paid tier
	PlanStarter PlanTier = "starter"

	// PlanPro is the full-featured paid tier
	PlanPro PlanTier = "pro"

	// PlanEnterprise removes all resource ceilings
	PlanEnterprise PlanTier = "enterprise"
)

// UnlimitedLimit is the sentinel ceiling meaning "no limit"
const UnlimitedLimit int64 = -1

// String returns the string representation of PlanTier
func (p PlanTier) String() string {
	return string(p)
}

// IsValid returns true if the plan tier is valid
func (p PlanTier) IsValid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// ParsePlanTier maps a tier name to a PlanTier. Unknown names resolve to
// the most restrictive tier rather than failing, so a malformed
// subscription document can never grant more than free-tier access.
func ParsePlanTier(s string) PlanTier {
	p := PlanTier(s)
	if !p.IsValid() {
		return PlanFree
	}
	return p
}

// PlanLimits holds the per-resource ceilings for one plan tier.
// A ceiling of UnlimitedLimit means the resource is not metered for the tier.
type PlanLimits struct {
	ContentGenerations    int64
	ImageGenerations      int64
	VoiceAssistantMinutes int64
	APICalls              int64
}

// LimitFor returns the ceiling for a resource type
func (l PlanLimits) LimitFor(resource ResourceType) int64 {
	switch resource {
	case ResourceContentGenerations:
		return l.ContentGenerations
	case ResourceImageGenerations:
		return l.ImageGenerations
	case ResourceVoiceAssistantMinutes:
		return l.VoiceAssistantMinutes
	case ResourceAPICalls:
		return l.APICalls
	default:
		return 0
	}
}

// IsUnlimited returns true if the resource has no ceiling on this plan
func (l PlanLimits) IsUnlimited(resource ResourceType) bool {
	return l.LimitFor(resource) == UnlimitedLimit
}

// LimitTable is an immutable lookup of plan limits per tier. It is built
// once at startup and injected into the quota evaluator, so tests can
// substitute their own tables.
type LimitTable struct {
	limits map[PlanTier]PlanLimits
}

// NewLimitTable builds a limit table from per-tier limits. Tiers missing
// from the input fall back to the free-tier limits on lookup.
func NewLimitTable(limits map[PlanTier]PlanLimits) LimitTable {
	copied := make(map[PlanTier]PlanLimits, len(limits))
	for tier, l := range limits {
		copied[tier] = l
	}
	return LimitTable{limits: copied}
}

// DefaultLimitTable returns the built-in plan limits
func DefaultLimitTable() LimitTable {
	return NewLimitTable(map[PlanTier]PlanLimits{
		PlanFree: {
			ContentGenerations:    10,
			ImageGenerations:      5,
			VoiceAssistantMinutes: 10,
			APICalls:              100,
		},
		PlanStarter: {
			ContentGenerations:    100,
			ImageGenerations:      50,
			VoiceAssistantMinutes: 60,
			APICalls:              1000,
		},
		PlanPro: {
			ContentGenerations:    500,
			ImageGenerations:      250,
			VoiceAssistantMinutes: 300,
			APICalls:              10000,
		},
		PlanEnterprise: {
			ContentGenerations:    UnlimitedLimit,
			ImageGenerations:      UnlimitedLimit,
			VoiceAssistantMinutes: UnlimitedLimit,
			APICalls:              UnlimitedLimit,
		},
	})
}

// LimitsFor returns the limits for a tier. Unknown or unconfigured tiers
// resolve to the free-tier limits.
func (t LimitTable) LimitsFor(tier PlanTier) PlanLimits {
	if limits, ok := t.limits[tier]; ok {
		return limits
	}
	return t.limits[PlanFree]
}
