package grant

import (
	"context"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type PasswordStrategy struct {
	userStore UserGateway
}

var _ Strategy = (*PasswordStrategy)(nil)

func NewPasswordStrategy(userStore UserGateway) (*PasswordStrategy, error) {
	if userStore == nil {
		return nil, errors.New("[NewPasswordStrategy] user gateway is required")
	}
	return &PasswordStrategy{userStore: userStore}, nil
}

func (s *PasswordStrategy) GrantType() string { return oauthmodel.PasswordGrant }

func (s *PasswordStrategy) Supports(grantType string, client *clients.Client, _ *domains.Domain) bool {
	return authorized(grantType, oauthmodel.PasswordGrant, client)
}

func (s *PasswordStrategy) Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error) {
	username := req.Param(oauthmodel.ParamUsername)
	if username == "" {
		return nil, oauthmodel.InvalidRequest("Missing parameter: username")
	}
	password := req.Param(oauthmodel.ParamPassword)
	if password == "" {
		return nil, oauthmodel.InvalidRequest("Missing parameter: password")
	}

	owner, err := s.userStore.Authenticate(ctx, domain.ID, username, password)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("username", username).Msg("password authentication failed")
		return nil, oauthmodel.InvalidGrant("Invalid resource owner credentials")
	}

	return &oauthmodel.TokenCreationRequest{
		ClientID:            client.ID,
		GrantType:           oauthmodel.PasswordGrant,
		ResourceOwner:       owner,
		Scopes:              req.Scopes,
		Resources:           req.Resources,
		SupportRefreshToken: supportsRefresh(client),
		Data:                oauthmodel.PasswordData{Username: username},
	}, nil
}
