package main

import (
	"context"
	"testing"

	"github.com/goliatone/go-featuregate/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticGate(t *testing.T) {
	ctx := context.Background()

	g := newFeatureGate(&Config{SignupEnabled: false})
	enabled, err := g.Enabled(ctx, gate.FeatureUsersSignup)
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = g.Enabled(ctx, "some.other.feature")
	require.NoError(t, err)
	assert.True(t, enabled)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = g.Enabled(cancelled, gate.FeatureUsersSignup)
	assert.ErrorIs(t, err, context.Canceled)
}
