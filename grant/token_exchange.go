package grant

import (
	"context"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/pkg/errors"
)

// TokenExchangeStrategy delegates to the exchange service. Exchanged tokens are never
// refreshable.
type TokenExchangeStrategy struct {
	exchanger TokenExchanger
	userStore UserGateway
}

var _ Strategy = (*TokenExchangeStrategy)(nil)

func NewTokenExchangeStrategy(exchanger TokenExchanger, userStore UserGateway) (*TokenExchangeStrategy, error) {
	if exchanger == nil {
		return nil, errors.New("[NewTokenExchangeStrategy] token exchanger is required")
	}
	if userStore == nil {
		return nil, errors.New("[NewTokenExchangeStrategy] user gateway is required")
	}
	return &TokenExchangeStrategy{exchanger: exchanger, userStore: userStore}, nil
}

func (s *TokenExchangeStrategy) GrantType() string { return oauthmodel.TokenExchangeGrant }

func (s *TokenExchangeStrategy) Supports(grantType string, client *clients.Client, domain *domains.Domain) bool {
	return authorized(grantType, oauthmodel.TokenExchangeGrant, client) && domain.TokenExchangeEnabled()
}

func (s *TokenExchangeStrategy) Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error) {
	result, err := s.exchanger.Exchange(ctx, req, client, domain, s.userStore)
	if err != nil {
		return nil, err
	}
	return &oauthmodel.TokenCreationRequest{
		ClientID:            client.ID,
		GrantType:           oauthmodel.TokenExchangeGrant,
		ResourceOwner:       result.ResourceOwner,
		Scopes:              result.Scopes,
		Resources:           req.Resources,
		SupportRefreshToken: false,
		Data: oauthmodel.TokenExchangeData{
			IssuedTokenType:  result.IssuedTokenType,
			Expiration:       result.Expiration,
			SubjectTokenID:   result.SubjectTokenID,
			SubjectTokenType: result.SubjectTokenType,
			IsDelegation:     result.IsDelegation,
			ActorInfo:        result.ActorInfo,
		},
	}, nil
}
