package enums

import "fmt"

// Tier identifies one of the four ticket classes sold per performance session.
type Tier string

const (
	TierGeneral  Tier = "general"
	TierReserved Tier = "reserved"
	TierVIP1     Tier = "vip1"
	TierVIP2     Tier = "vip2"
)

var validTiers = []Tier{
	TierGeneral,
	TierReserved,
	TierVIP1,
	TierVIP2,
}

// AllTiers returns every tier in stable display order.
func AllTiers() []Tier {
	out := make([]Tier, len(validTiers))
	copy(out, validTiers)
	return out
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}

// IsValid reports whether the value is a known Tier.
func (t Tier) IsValid() bool {
	for _, candidate := range validTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTier converts raw input into a Tier.
func ParseTier(value string) (Tier, error) {
	for _, candidate := range validTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier %q", value)
}
