package grant

import (
	"context"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
)

// ClientCredentialsStrategy issues client-only tokens. There is never a resource owner
// and never a refresh token.
type ClientCredentialsStrategy struct{}

var _ Strategy = ClientCredentialsStrategy{}

func (ClientCredentialsStrategy) GrantType() string { return oauthmodel.ClientCredentialsGrant }

func (ClientCredentialsStrategy) Supports(grantType string, client *clients.Client, _ *domains.Domain) bool {
	return authorized(grantType, oauthmodel.ClientCredentialsGrant, client)
}

func (ClientCredentialsStrategy) Process(_ context.Context, req oauthmodel.TokenRequest, client *clients.Client, _ *domains.Domain) (*oauthmodel.TokenCreationRequest, error) {
	return &oauthmodel.TokenCreationRequest{
		ClientID:  client.ID,
		GrantType: oauthmodel.ClientCredentialsGrant,
		Scopes:    req.Scopes,
		Resources: req.Resources,
		Data:      oauthmodel.ClientCredentialsData{},
	}, nil
}
