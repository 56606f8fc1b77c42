package billing

import "fmt"

// ResourceType identifies a metered resource subject to a quota.
// The set is closed: unknown names fail parsing instead of silently
// mapping to an empty limit.
type ResourceType string

const (
	// ResourceContentGenerations tracks AI text/post generations
	ResourceContentGenerations ResourceType = "content_generations"

	// ResourceImageGenerations tracks AI image generations
	ResourceImageGenerations ResourceType = "image_generations"

	// ResourceVoiceAssistantMinutes tracks voice assistant time in minutes (fractional)
	ResourceVoiceAssistantMinutes ResourceType = "voice_assistant_minutes"

	// ResourceAPICalls tracks platform API requests
	ResourceAPICalls ResourceType = "api_calls"
)

// legacyVoiceAssistantName is the field name some older clients still send
// for voice assistant time. It normalizes to ResourceVoiceAssistantMinutes.
const legacyVoiceAssistantName = "voice_assistant"

// String returns the string representation of ResourceType
func (r ResourceType) String() string {
	return string(r)
}

// IsValid returns true if the resource type is valid
func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceContentGenerations,
		ResourceImageGenerations,
		ResourceVoiceAssistantMinutes,
		ResourceAPICalls:
		return true
	}
	return false
}

// IsFractional returns true if amounts for this resource may carry a
// fractional component (voice time is billed in partial minutes).
func (r ResourceType) IsFractional() bool {
	return r == ResourceVoiceAssistantMinutes
}

// DisplayName returns a human-readable name for the resource type
func (r ResourceType) DisplayName() string {
	switch r {
	case ResourceContentGenerations:
		return "Content Generations"
	case ResourceImageGenerations:
		return "Image Generations"
	case ResourceVoiceAssistantMinutes:
		return "Voice Assistant Minutes"
	case ResourceAPICalls:
		return "API Calls"
	default:
		return string(r)
	}
}

// AllResourceTypes returns all valid resource types
func AllResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceContentGenerations,
		ResourceImageGenerations,
		ResourceVoiceAssistantMinutes,
		ResourceAPICalls,
	}
}

// ParseResourceType parses a string into a ResourceType.
// The legacy "voice_assistant" name is accepted and normalized to
// ResourceVoiceAssistantMinutes.
func ParseResourceType(s string) (ResourceType, error) {
	if s == legacyVoiceAssistantName {
		return ResourceVoiceAssistantMinutes, nil
	}
	r := ResourceType(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid resource type: %s", s)
	}
	return r, nil
}
