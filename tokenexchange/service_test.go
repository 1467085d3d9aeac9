package tokenexchange_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/jrsteele09/go-grant-server/token/keys"
	"github.com/jrsteele09/go-grant-server/tokenexchange"
	"github.com/jrsteele09/go-grant-server/users"
	fakeuserrepo "github.com/jrsteele09/go-grant-server/users/repofake"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service *tokenexchange.Service
	creator *jwt.Creator
	users   *users.Service
	alice   *users.User
	domain  *domains.Domain
	client  *clients.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.New("")
	require.NoError(t, err)
	kp, err := keys.GenerateRSAKeyPair("test", 2048)
	require.NoError(t, err)
	signer := keys.NewKeyPairSigner(kp)
	creator, err := jwt.NewCreator(cfg, signer)
	require.NoError(t, err)
	verifier, err := jwt.NewVerifier(signer, nil)
	require.NoError(t, err)
	service, err := tokenexchange.NewService(verifier)
	require.NoError(t, err)

	repo := fakeuserrepo.NewFakeUserRepo()
	alice := &users.User{DomainID: "acme", Username: "alice"}
	require.NoError(t, repo.Upsert(alice))
	userService, err := users.NewService(repo)
	require.NoError(t, err)

	return &fixture{
		service: service,
		creator: creator,
		users:   userService,
		alice:   alice,
		domain: &domains.Domain{ID: "acme", Issuer: "https://auth.example.com/acme", TokenExchange: &domains.TokenExchangeSettings{
			Enabled:            true,
			AllowImpersonation: true,
			AllowDelegation:    true,
		}},
		client: &clients.Client{ID: "client-1", DomainID: "acme"},
	}
}

func (f *fixture) accessToken(t *testing.T, p jwt.AccessTokenParams) string {
	t.Helper()
	p.Issuer = f.domain.Issuer
	p.DomainID = "acme"
	if p.ClientID == "" {
		p.ClientID = "client-1"
	}
	raw, _, err := f.creator.CreateAccessToken(p)
	require.NoError(t, err)
	return raw
}

func (f *fixture) exchange(kv ...string) (*tokenexchange.Result, error) {
	form := url.Values{oauthmodel.ParamGrantType: {oauthmodel.TokenExchangeGrant}}
	for i := 0; i+1 < len(kv); i += 2 {
		form.Add(kv[i], kv[i+1])
	}
	return f.service.Exchange(context.Background(), oauthmodel.NewTokenRequest(f.client.ID, form), f.client, f.domain, f.users)
}

func requireKind(t *testing.T, err error, kind oauthmodel.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, oauthmodel.KindOf(err), "unexpected error: %v", err)
}

func TestExchange_Impersonation(t *testing.T) {
	f := newFixture(t)
	subjectToken := f.accessToken(t, jwt.AccessTokenParams{Subject: f.alice.ID, Scopes: []string{"read", "write"}})

	result, err := f.exchange(
		oauthmodel.ParamSubjectToken, subjectToken,
		oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken,
	)
	require.NoError(t, err)
	require.Equal(t, f.alice.ID, result.ResourceOwner.ID)
	require.Equal(t, []string{"read", "write"}, result.Scopes)
	require.Equal(t, oauthmodel.TokenTypeAccessToken, result.IssuedTokenType)
	require.Equal(t, oauthmodel.TokenTypeAccessToken, result.SubjectTokenType)
	require.NotEmpty(t, result.SubjectTokenID)
	require.False(t, result.IsDelegation)
	require.Nil(t, result.ActorInfo)
	require.False(t, result.Expiration.IsZero())

	narrowed, err := f.exchange(
		oauthmodel.ParamSubjectToken, subjectToken,
		oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken,
		oauthmodel.ParamScope, "read",
	)
	require.NoError(t, err)
	require.Equal(t, []string{"read"}, narrowed.Scopes)

	_, err = f.exchange(
		oauthmodel.ParamSubjectToken, subjectToken,
		oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken,
		oauthmodel.ParamScope, "admin",
	)
	requireKind(t, err, oauthmodel.KindInvalidScope)
}

func TestExchange_ClientOnlySubjectToken(t *testing.T) {
	f := newFixture(t)
	subjectToken := f.accessToken(t, jwt.AccessTokenParams{Subject: "client-1"})

	result, err := f.exchange(
		oauthmodel.ParamSubjectToken, subjectToken,
		oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeJWT,
	)
	require.NoError(t, err)
	require.Nil(t, result.ResourceOwner)
}

func TestExchange_Delegation(t *testing.T) {
	f := newFixture(t)
	subjectExp := time.Now().Add(time.Hour)
	actorExp := time.Now().Add(10 * time.Minute)
	subjectToken := f.accessToken(t, jwt.AccessTokenParams{
		Subject:   f.alice.ID,
		ExpiresAt: subjectExp,
		Actor:     &oauthmodel.ActorInfo{Subject: "gateway"},
	})
	actorToken := f.accessToken(t, jwt.AccessTokenParams{Subject: "service-a", ClientID: "client-a", ExpiresAt: actorExp})

	result, err := f.exchange(
		oauthmodel.ParamSubjectToken, subjectToken,
		oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken,
		oauthmodel.ParamActorToken, actorToken,
		oauthmodel.ParamActorTokenType, oauthmodel.TokenTypeAccessToken,
	)
	require.NoError(t, err)
	require.True(t, result.IsDelegation)
	require.Equal(t, &oauthmodel.ActorInfo{
		Subject:  "service-a",
		ClientID: "client-a",
		Actor:    &oauthmodel.ActorInfo{Subject: "gateway"},
	}, result.ActorInfo)
	require.Equal(t, actorExp.Unix(), result.Expiration.Unix())

	f.domain.TokenExchange.MaxDelegationDepth = 1
	_, err = f.exchange(
		oauthmodel.ParamSubjectToken, subjectToken,
		oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken,
		oauthmodel.ParamActorToken, actorToken,
		oauthmodel.ParamActorTokenType, oauthmodel.TokenTypeAccessToken,
	)
	requireKind(t, err, oauthmodel.KindInvalidRequest)
	require.Contains(t, err.Error(), "delegation depth")
}

func TestExchange_Rejections(t *testing.T) {
	f := newFixture(t)
	subjectToken := f.accessToken(t, jwt.AccessTokenParams{Subject: f.alice.ID})
	unknownUser := f.accessToken(t, jwt.AccessTokenParams{Subject: "ghost"})

	tests := []struct {
		name   string
		modify func(*domains.TokenExchangeSettings)
		kv     []string
		want   oauthmodel.ErrorKind
	}{
		{
			name:   "disabled",
			modify: func(s *domains.TokenExchangeSettings) { s.Enabled = false },
			kv:     []string{oauthmodel.ParamSubjectToken, subjectToken, oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken},
			want:   oauthmodel.KindUnauthorizedClient,
		},
		{
			name: "missing subject token",
			kv:   []string{oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken},
			want: oauthmodel.KindInvalidRequest,
		},
		{
			name: "missing subject token type",
			kv:   []string{oauthmodel.ParamSubjectToken, subjectToken},
			want: oauthmodel.KindInvalidRequest,
		},
		{
			name: "refresh token subject",
			kv:   []string{oauthmodel.ParamSubjectToken, subjectToken, oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeRefreshToken},
			want: oauthmodel.KindInvalidRequest,
		},
		{
			name:   "refresh token subject explicitly allowed",
			modify: func(s *domains.TokenExchangeSettings) { s.AllowedSubjectTokenTypes = []string{oauthmodel.TokenTypeRefreshToken} },
			kv:     []string{oauthmodel.ParamSubjectToken, subjectToken, oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeRefreshToken},
			want:   oauthmodel.KindInvalidRequest,
		},
		{
			name: "requested id token",
			kv: []string{
				oauthmodel.ParamSubjectToken, subjectToken,
				oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken,
				oauthmodel.ParamRequestedTokenType, oauthmodel.TokenTypeIDToken,
			},
			want: oauthmodel.KindInvalidRequest,
		},
		{
			name:   "impersonation not allowed",
			modify: func(s *domains.TokenExchangeSettings) { s.AllowImpersonation = false },
			kv:     []string{oauthmodel.ParamSubjectToken, subjectToken, oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken},
			want:   oauthmodel.KindInvalidRequest,
		},
		{
			name:   "delegation not allowed",
			modify: func(s *domains.TokenExchangeSettings) { s.AllowDelegation = false },
			kv: []string{
				oauthmodel.ParamSubjectToken, subjectToken,
				oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken,
				oauthmodel.ParamActorToken, subjectToken,
				oauthmodel.ParamActorTokenType, oauthmodel.TokenTypeAccessToken,
			},
			want: oauthmodel.KindInvalidRequest,
		},
		{
			name: "actor token type without actor token",
			kv: []string{
				oauthmodel.ParamSubjectToken, subjectToken,
				oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken,
				oauthmodel.ParamActorTokenType, oauthmodel.TokenTypeAccessToken,
			},
			want: oauthmodel.KindInvalidRequest,
		},
		{
			name: "subject token is an id token",
			kv:   []string{oauthmodel.ParamSubjectToken, subjectToken, oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeIDToken},
			want: oauthmodel.KindInvalidGrant,
		},
		{
			name: "invalid actor token",
			kv: []string{
				oauthmodel.ParamSubjectToken, subjectToken,
				oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken,
				oauthmodel.ParamActorToken, "garbage",
				oauthmodel.ParamActorTokenType, oauthmodel.TokenTypeAccessToken,
			},
			want: oauthmodel.KindInvalidGrant,
		},
		{
			name: "unknown subject",
			kv:   []string{oauthmodel.ParamSubjectToken, unknownUser, oauthmodel.ParamSubjectTokenType, oauthmodel.TokenTypeAccessToken},
			want: oauthmodel.KindInvalidGrant,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := *f.domain.TokenExchange
			t.Cleanup(func() { *f.domain.TokenExchange = settings })
			if tt.modify != nil {
				tt.modify(f.domain.TokenExchange)
			}
			_, err := f.exchange(tt.kv...)
			requireKind(t, err, tt.want)
		})
	}
}
