// Package jwtbearer implements the RFC 7523 JWT bearer assertion as an extension grant
// provider. Assertions are verified with go-oidc against the configured issuer keys.
package jwtbearer

import (
	"context"
	"crypto"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-grant-server/extgrant"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/users"
	"github.com/pkg/errors"
)

// Config describes the trusted assertion issuer. Exactly one of JWKSURL and PublicKeys is used,
// JWKSURL taking precedence.
type Config struct {
	Issuer     string
	Audience   string // expected aud, usually the token endpoint URL; empty skips the check
	JWKSURL    string
	PublicKeys []crypto.PublicKey
	// ClaimsMapper maps assertion claims to additional information entries, e.g.
	// {"gis": "gis"} to carry an internal subject.
	ClaimsMapper map[string]string
}

type Provider struct {
	verifier *oidc.IDTokenVerifier
	mapper   map[string]string
}

var _ extgrant.Provider = (*Provider)(nil)

func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("[jwtbearer.New] issuer is required")
	}
	var keySet oidc.KeySet
	switch {
	case cfg.JWKSURL != "":
		keySet = oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
	case len(cfg.PublicKeys) > 0:
		keySet = &oidc.StaticKeySet{PublicKeys: cfg.PublicKeys}
	default:
		return nil, errors.New("[jwtbearer.New] jwks url or public keys are required")
	}
	verifier := oidc.NewVerifier(cfg.Issuer, keySet, &oidc.Config{
		ClientID:          cfg.Audience,
		SkipClientIDCheck: cfg.Audience == "",
	})
	return &Provider{verifier: verifier, mapper: cfg.ClaimsMapper}, nil
}

// Grant verifies the assertion parameter and returns its subject as the external user.
func (p *Provider) Grant(ctx context.Context, req oauthmodel.TokenRequest) (*users.ExternalUser, error) {
	assertion := strings.TrimSpace(req.Param(oauthmodel.ParamAssertion))
	if assertion == "" {
		return nil, errors.New("missing assertion parameter")
	}
	token, err := p.verifier.Verify(ctx, assertion)
	if err != nil {
		return nil, errors.Wrap(err, "invalid assertion")
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "invalid assertion claims")
	}

	user := &users.ExternalUser{
		ID:                    token.Subject,
		Username:              stringClaim(claims, "preferred_username"),
		Email:                 stringClaim(claims, "email"),
		FirstName:             stringClaim(claims, "given_name"),
		LastName:              stringClaim(claims, "family_name"),
		AdditionalInformation: map[string]any{},
	}
	if user.Username == "" {
		user.Username = token.Subject
	}
	for claim, key := range p.mapper {
		if v, ok := claims[claim]; ok {
			user.AdditionalInformation[key] = v
		}
	}
	return user, nil
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return s
}
