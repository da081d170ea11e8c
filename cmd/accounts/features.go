package main

import (
	"context"

	"github.com/goliatone/go-featuregate/gate"
)

// staticGate resolves features from configuration. Unknown keys are enabled.
type staticGate map[string]bool

var _ gate.FeatureGate = staticGate(nil)

func (g staticGate) Enabled(ctx context.Context, key string, opts ...gate.ResolveOption) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	enabled, ok := g[key]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

func newFeatureGate(cfg *Config) gate.FeatureGate {
	return staticGate{
		gate.FeatureUsersSignup: cfg.SignupEnabled,
	}
}
