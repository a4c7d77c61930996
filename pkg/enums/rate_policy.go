package enums

import (
	"fmt"
	"strings"
)

// RatePolicy selects which commission rate applies at group settlement time.
type RatePolicy string

const (
	// RatePolicyPlatformDefault applies the platform default to every group.
	RatePolicyPlatformDefault RatePolicy = "platform_default"
	// RatePolicyProductOverride applies the override of the group's first product.
	RatePolicyProductOverride RatePolicy = "product_override"
)

func (p RatePolicy) IsValid() bool {
	return p == RatePolicyPlatformDefault || p == RatePolicyProductOverride
}

func ParseRatePolicy(value string) (RatePolicy, error) {
	v := RatePolicy(strings.ToLower(strings.TrimSpace(value)))
	if v == "" {
		return RatePolicyPlatformDefault, nil
	}
	if !v.IsValid() {
		return "", fmt.Errorf("invalid rate policy %q", value)
	}
	return v, nil
}
