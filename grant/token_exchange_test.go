package grant_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/grant"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/tokenexchange"
	"github.com/jrsteele09/go-grant-server/users"
	"github.com/stretchr/testify/require"
)

func TestTokenExchange_NeverRefreshable(t *testing.T) {
	f := newFixture(t)
	f.domain.TokenExchange = &domains.TokenExchangeSettings{Enabled: true, AllowDelegation: true}
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	actor := &oauthmodel.ActorInfo{Subject: "service-a", ClientID: "client-a"}
	exchanger := &fakeExchanger{result: &tokenexchange.Result{
		ResourceOwner:    &users.User{ID: "u-1", DomainID: testDomainID},
		Scopes:           []string{"read"},
		IssuedTokenType:  oauthmodel.TokenTypeAccessToken,
		Expiration:       exp,
		SubjectTokenID:   "jti-1",
		SubjectTokenType: oauthmodel.TokenTypeAccessToken,
		IsDelegation:     true,
		ActorInfo:        actor,
	}}
	s, err := grant.NewTokenExchangeStrategy(exchanger, f.users)
	require.NoError(t, err)
	client := newClient(oauthmodel.TokenExchangeGrant, oauthmodel.RefreshTokenGrant)

	result, err := s.Process(context.Background(), tokenRequest(oauthmodel.TokenExchangeGrant), client, f.domain)
	require.NoError(t, err)
	require.False(t, result.SupportRefreshToken)
	require.Equal(t, "u-1", result.ResourceOwner.ID)
	require.Equal(t, oauthmodel.TokenExchangeData{
		IssuedTokenType:  oauthmodel.TokenTypeAccessToken,
		Expiration:       exp,
		SubjectTokenID:   "jti-1",
		SubjectTokenType: oauthmodel.TokenTypeAccessToken,
		IsDelegation:     true,
		ActorInfo:        actor,
	}, result.Data)

	exchanger.result, exchanger.err = nil, oauthmodel.InvalidGrant("bad subject token")
	_, err = s.Process(context.Background(), tokenRequest(oauthmodel.TokenExchangeGrant), client, f.domain)
	requireKind(t, err, oauthmodel.KindInvalidGrant)
}
