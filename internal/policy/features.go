// Package policy holds the enumerated feature gate and the PII redaction
// rules applied to stored conversation content.
package policy

import "sync"

// Feature names one gateable middleware category. Disabling a category skips
// it entirely; a skipped check is not a passed check.
type Feature string

const (
	FeatureMemoryContext    Feature = "memory_context"
	FeatureStyleAdaptation  Feature = "style_adaptation"
	FeatureMemoryClaimCheck Feature = "memory_claim_check"
	FeatureMathCheck        Feature = "math_check"
	FeaturePIIRedaction     Feature = "pii_redaction"
	FeatureProfileSync      Feature = "profile_sync"
)

// Features lists every known feature in stable order.
var Features = []Feature{
	FeatureMemoryContext,
	FeatureStyleAdaptation,
	FeatureMemoryClaimCheck,
	FeatureMathCheck,
	FeaturePIIRedaction,
	FeatureProfileSync,
}

// Gate answers whether a feature is enabled for a user. Implementations are
// injected; the middleware never mutates gate state.
type Gate interface {
	IsEnabled(feature Feature, userID string) bool
}

// StaticGate is a config-backed gate with optional per-user overrides.
// Unknown features are disabled.
type StaticGate struct {
	mu        sync.RWMutex
	defaults  map[Feature]bool
	overrides map[string]map[Feature]bool
}

// NewStaticGate builds a gate from per-feature defaults.
func NewStaticGate(defaults map[Feature]bool) *StaticGate {
	d := make(map[Feature]bool, len(defaults))
	for f, on := range defaults {
		d[f] = on
	}
	return &StaticGate{
		defaults:  d,
		overrides: make(map[string]map[Feature]bool),
	}
}

// AllEnabled returns a gate with every known feature switched on.
func AllEnabled() *StaticGate {
	d := make(map[Feature]bool, len(Features))
	for _, f := range Features {
		d[f] = true
	}
	return NewStaticGate(d)
}

// IsEnabled implements Gate.
func (g *StaticGate) IsEnabled(feature Feature, userID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if user, ok := g.overrides[userID]; ok {
		if on, ok := user[feature]; ok {
			return on
		}
	}
	return g.defaults[feature]
}

// SetOverride pins a feature on or off for one user, e.g. during a staged
// rollout.
func (g *StaticGate) SetOverride(userID string, feature Feature, enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	user, ok := g.overrides[userID]
	if !ok {
		user = make(map[Feature]bool)
		g.overrides[userID] = user
	}
	user[feature] = enabled
}
