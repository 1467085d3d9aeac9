package jwtbearer_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/url"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-grant-server/extgrant/jwtbearer"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/stretchr/testify/require"
)

const (
	partnerIssuer = "https://partner.example.com"
	tokenEndpoint = "https://auth.example.com/acme/oauth/token"
)

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func assertion(t *testing.T, key *rsa.PrivateKey, claims jwtlib.MapClaims) string {
	t.Helper()
	base := jwtlib.MapClaims{
		"iss": partnerIssuer,
		"sub": "partner-42",
		"aud": tokenEndpoint,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	}
	for k, v := range claims {
		base[k] = v
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, base).SignedString(key)
	require.NoError(t, err)
	return signed
}

func grantRequest(value string) oauthmodel.TokenRequest {
	form := url.Values{oauthmodel.ParamGrantType: {oauthmodel.JWTBearerGrant}}
	if value != "" {
		form.Set(oauthmodel.ParamAssertion, value)
	}
	return oauthmodel.NewTokenRequest("client-1", form)
}

func newProvider(t *testing.T, key *rsa.PrivateKey, mapper map[string]string) *jwtbearer.Provider {
	t.Helper()
	p, err := jwtbearer.New(context.Background(), jwtbearer.Config{
		Issuer:       partnerIssuer,
		Audience:     tokenEndpoint,
		PublicKeys:   []crypto.PublicKey{&key.PublicKey},
		ClaimsMapper: mapper,
	})
	require.NoError(t, err)
	return p
}

func TestProvider_Grant(t *testing.T) {
	key := rsaKey(t)
	p := newProvider(t, key, map[string]string{"gis": "gis", "tenant": "partner_tenant"})

	user, err := p.Grant(context.Background(), grantRequest(assertion(t, key, jwtlib.MapClaims{
		"email":       "bob@partner.com",
		"given_name":  "Bob",
		"family_name": "Builder",
		"gis":         "partner|42",
		"tenant":      "t-9",
	})))
	require.NoError(t, err)
	require.Equal(t, "partner-42", user.ID)
	require.Equal(t, "partner-42", user.Username)
	require.Equal(t, "bob@partner.com", user.Email)
	require.Equal(t, "Bob", user.FirstName)
	require.Equal(t, "Builder", user.LastName)
	require.Equal(t, map[string]any{"gis": "partner|42", "partner_tenant": "t-9"}, user.AdditionalInformation)
}

func TestProvider_Rejections(t *testing.T) {
	key := rsaKey(t)
	p := newProvider(t, key, nil)

	_, err := p.Grant(context.Background(), grantRequest(""))
	require.EqualError(t, err, "missing assertion parameter")

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong issuer", token: assertion(t, key, jwtlib.MapClaims{"iss": "https://evil.example.com"})},
		{name: "wrong audience", token: assertion(t, key, jwtlib.MapClaims{"aud": "https://elsewhere"})},
		{name: "expired", token: assertion(t, key, jwtlib.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})},
		{name: "foreign key", token: assertion(t, rsaKey(t), nil)},
		{name: "garbage", token: "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Grant(context.Background(), grantRequest(tt.token))
			require.ErrorContains(t, err, "invalid assertion")
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := jwtbearer.New(context.Background(), jwtbearer.Config{})
	require.Error(t, err)

	_, err = jwtbearer.New(context.Background(), jwtbearer.Config{Issuer: partnerIssuer})
	require.Error(t, err)
}
