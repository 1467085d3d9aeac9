package authcode_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-grant-server/authcode"
	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/jrsteele09/go-grant-server/internal/onetime"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, now *time.Time) *authcode.Service {
	t.Helper()
	cfg, err := config.New("")
	require.NoError(t, err)
	s, err := authcode.NewService(onetime.NewMemoryStore[authcode.AuthorizationCode](time.Minute), cfg,
		authcode.WithNowTime(func() time.Time { return *now }))
	require.NoError(t, err)
	return s
}

func TestService_CreateAndRemove(t *testing.T) {
	now := time.Now()
	s := newService(t, &now)
	client := &clients.Client{ID: "client-1", DomainID: "acme"}

	created, err := s.Create(context.Background(), authcode.AuthorizationCode{
		DomainID:          "acme",
		ClientID:          "client-1",
		Subject:           "user-1",
		Scopes:            []string{"openid"},
		RequestParameters: url.Values{"redirect_uri": {"https://app/cb"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.Code)
	require.Equal(t, now, created.CreatedAt)
	require.True(t, created.ExpiresAt.After(now))

	got, err := s.Remove(context.Background(), created.Code, client)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "https://app/cb", got.RequestParameters.Get("redirect_uri"))

	again, err := s.Remove(context.Background(), created.Code, client)
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestService_CodesAreUnique(t *testing.T) {
	now := time.Now()
	s := newService(t, &now)
	seen := map[string]bool{}
	for range 50 {
		c, err := s.Create(context.Background(), authcode.AuthorizationCode{DomainID: "acme", ClientID: "client-1"})
		require.NoError(t, err)
		require.False(t, seen[c.Code])
		seen[c.Code] = true
	}
}

func TestService_WrongClientBurnsCode(t *testing.T) {
	now := time.Now()
	s := newService(t, &now)
	created, err := s.Create(context.Background(), authcode.AuthorizationCode{DomainID: "acme", ClientID: "client-1"})
	require.NoError(t, err)

	got, err := s.Remove(context.Background(), created.Code, &clients.Client{ID: "client-2", DomainID: "acme"})
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = s.Remove(context.Background(), created.Code, &clients.Client{ID: "client-1", DomainID: "acme"})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestService_ExpiredCode(t *testing.T) {
	now := time.Now()
	s := newService(t, &now)
	created, err := s.Create(context.Background(), authcode.AuthorizationCode{DomainID: "acme", ClientID: "client-1"})
	require.NoError(t, err)

	now = created.ExpiresAt.Add(time.Second)
	got, err := s.Remove(context.Background(), created.Code, &clients.Client{ID: "client-1", DomainID: "acme"})
	require.NoError(t, err)
	require.Nil(t, got)
}
