package refresh_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-grant-server/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *refresh.Manager {
	t.Helper()
	cfg, err := config.New("")
	require.NoError(t, err)
	return refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), cfg)
}

func TestManager_RotatesByDefault(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	client := &clients.Client{ID: "client-1", DomainID: "acme"}

	value, err := m.Create(ctx, "acme", "client-1", "u-1", []string{"read"}, nil)
	require.NoError(t, err)
	require.Len(t, value, 64)

	rt, err := m.Refresh(ctx, value, client)
	require.NoError(t, err)
	require.Equal(t, "u-1", rt.Subject)
	require.Equal(t, "read", rt.Claims()["scope"])

	_, err = m.Refresh(ctx, value, client)
	require.True(t, oauthmodel.IsKind(err, oauthmodel.KindInvalidGrant))
}

func TestManager_RotationDisabled(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	client := &clients.Client{ID: "client-1", DomainID: "acme", DisableRefreshTokenRotation: true}

	value, err := m.Create(ctx, "acme", "client-1", "", []string{"read"}, nil)
	require.NoError(t, err)
	for range 3 {
		_, err := m.Refresh(ctx, value, client)
		require.NoError(t, err)
	}
}

func TestManager_Rejections(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	value, err := m.Create(ctx, "acme", "client-1", "", nil, nil)
	require.NoError(t, err)

	_, err = m.Refresh(ctx, value, &clients.Client{ID: "client-2", DomainID: "acme"})
	require.True(t, oauthmodel.IsKind(err, oauthmodel.KindInvalidGrant))

	_, err = m.Refresh(ctx, "unknown", &clients.Client{ID: "client-1", DomainID: "acme"})
	require.True(t, oauthmodel.IsKind(err, oauthmodel.KindInvalidGrant))

	original := refresh.NowTimeFunc
	t.Cleanup(func() { refresh.NowTimeFunc = original })
	refresh.NowTimeFunc = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	_, err = m.Refresh(ctx, value, &clients.Client{ID: "client-1", DomainID: "acme"})
	require.True(t, oauthmodel.IsKind(err, oauthmodel.KindInvalidGrant))
}

func TestManager_Revoke(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	owner := &clients.Client{ID: "client-1", DomainID: "acme"}
	value, err := m.Create(ctx, "acme", "client-1", "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, value, &clients.Client{ID: "client-2", DomainID: "acme"}))
	rt, err := m.Refresh(ctx, value, &clients.Client{ID: "client-1", DomainID: "acme", DisableRefreshTokenRotation: true})
	require.NoError(t, err)
	require.Equal(t, value, rt.Token)

	require.NoError(t, m.Revoke(ctx, value, owner))
	require.NoError(t, m.Revoke(ctx, value, owner))
	_, err = m.Refresh(ctx, value, owner)
	require.True(t, oauthmodel.IsKind(err, oauthmodel.KindInvalidGrant))
}

func TestManager_StoresPermissions(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	perms := []oauthmodel.Permission{{ResourceID: "photos", ResourceScopes: []string{"view"}}}

	value, err := m.Create(ctx, "acme", "client-1", "u-1", []string{"view"}, nil, perms...)
	require.NoError(t, err)
	rt, err := m.Refresh(ctx, value, &clients.Client{ID: "client-1", DomainID: "acme"})
	require.NoError(t, err)
	require.Equal(t, perms, rt.Permissions)
	require.Equal(t, perms, rt.Claims()["permissions"])
}
