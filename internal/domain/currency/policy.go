package currency

import (
	"fmt"
	"slices"
	"strings"
)

// MissingRatePolicy decides what happens to an amount whose currency cannot be resolved
type MissingRatePolicy string

const (
	// MissingRateZero replaces the amount with zero and keeps going
	MissingRateZero MissingRatePolicy = "zero"
	// MissingRateFail aborts the whole conversion run
	MissingRateFail MissingRatePolicy = "fail"
	// MissingRateSkip leaves the amount untouched
	MissingRateSkip MissingRatePolicy = "skip"
)

// DefaultMissingRatePolicy preserves the historical behaviour
const DefaultMissingRatePolicy = MissingRateZero

// AllMissingRatePolicies returns all valid policies
func AllMissingRatePolicies() []MissingRatePolicy {
	return []MissingRatePolicy{MissingRateZero, MissingRateFail, MissingRateSkip}
}

// IsValid checks if the policy is valid
func (p MissingRatePolicy) IsValid() bool {
	return slices.Contains(AllMissingRatePolicies(), p)
}

// String returns the string representation of the policy
func (p MissingRatePolicy) String() string {
	return string(p)
}

// ParseMissingRatePolicy parses a policy name; an empty string yields the default
func ParseMissingRatePolicy(s string) (MissingRatePolicy, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultMissingRatePolicy, nil
	}
	p := MissingRatePolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("currency: invalid missing rate policy %q, expected one of %v", s, AllMissingRatePolicies())
	}
	return p, nil
}
