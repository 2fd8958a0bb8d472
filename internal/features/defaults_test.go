package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flutterbye/platform/internal/identity"
)

func TestEnsureDefaultsSeedsEmptyRegistry(t *testing.T) {
	reg := NewRegistry(newMemoryRepo(), nil, nil)
	require.NoError(t, reg.EnsureDefaults(context.Background()))
	require.Len(t, reg.List(), len(DefaultFeatures()))
	require.True(t, reg.IsEnabled("home"))
	require.True(t, reg.IsEnabled("feature_toggles"))

	// Seeding again changes nothing.
	require.NoError(t, reg.EnsureDefaults(context.Background()))
	require.Len(t, reg.List(), len(DefaultFeatures()))
}

func TestEnsureDefaultsLeavesExistingAlone(t *testing.T) {
	reg := NewRegistry(newMemoryRepo(), nil, nil)
	_, err := reg.Create(context.Background(), &Feature{ID: "custom", Name: "Custom", Enabled: false}, "admin")
	require.NoError(t, err)

	require.NoError(t, reg.EnsureDefaults(context.Background()))
	require.Len(t, reg.List(), 1)
	require.False(t, reg.IsEnabled("home"))
}

func TestDefaultRoleMapping(t *testing.T) {
	byID := map[string]*Feature{}
	for _, f := range DefaultFeatures() {
		byID[f.ID] = f
	}
	require.Nil(t, byID["home"].RequiredRole)
	require.Equal(t, identity.RoleUser, *byID["chat"].RequiredRole)
	require.Equal(t, identity.RoleAdmin, *byID["admin_dashboard"].RequiredRole)
	require.True(t, byID["marketplace"].Governs("/api/marketplace/listings"))
	require.False(t, byID["mint"].Governs("/mint/extra"))
}
