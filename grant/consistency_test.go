package grant_test

import (
	"testing"

	"github.com/jrsteele09/go-grant-server/grant"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestNarrowScopes(t *testing.T) {
	got, err := grant.NarrowScopes(nil, []string{"read", "write"})
	require.NoError(t, err)
	require.Equal(t, []string{"read", "write"}, got)

	got, err = grant.NarrowScopes([]string{"read"}, []string{"read", "write"})
	require.NoError(t, err)
	require.Equal(t, []string{"read"}, got)

	got, err = grant.NarrowScopes([]string{"read", "admin"}, []string{"read", "write"})
	require.NoError(t, err)
	require.Equal(t, []string{"read"}, got)

	_, err = grant.NarrowScopes([]string{"admin"}, []string{"read", "write"})
	requireKind(t, err, oauthmodel.KindInvalidScope)
}

func TestReconcileResources(t *testing.T) {
	granted := []string{"https://api.example.com", "https://files.example.com"}

	got, err := grant.ReconcileResources(nil, granted)
	require.NoError(t, err)
	require.Equal(t, granted, got)

	got, err = grant.ReconcileResources([]string{"https://files.example.com"}, granted)
	require.NoError(t, err)
	require.Equal(t, []string{"https://files.example.com"}, got)

	_, err = grant.ReconcileResources([]string{"https://evil.example.com"}, granted)
	requireKind(t, err, oauthmodel.KindInvalidTarget)
}
