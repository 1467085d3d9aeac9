package grant

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/internal/utils"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/users"
	"github.com/pkg/errors"
)

type RefreshTokenStrategy struct {
	tokens    RefreshTokenStore
	userStore UserGateway
}

var _ Strategy = (*RefreshTokenStrategy)(nil)

func NewRefreshTokenStrategy(tokens RefreshTokenStore, userStore UserGateway) (*RefreshTokenStrategy, error) {
	if tokens == nil {
		return nil, errors.New("[NewRefreshTokenStrategy] refresh token store is required")
	}
	if userStore == nil {
		return nil, errors.New("[NewRefreshTokenStrategy] user gateway is required")
	}
	return &RefreshTokenStrategy{tokens: tokens, userStore: userStore}, nil
}

func (s *RefreshTokenStrategy) GrantType() string { return oauthmodel.RefreshTokenGrant }

func (s *RefreshTokenStrategy) Supports(grantType string, client *clients.Client, _ *domains.Domain) bool {
	return authorized(grantType, oauthmodel.RefreshTokenGrant, client)
}

func (s *RefreshTokenStrategy) Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error) {
	value := strings.TrimSpace(req.Param(oauthmodel.ParamRefreshToken))
	if value == "" {
		return nil, oauthmodel.InvalidRequest("Missing parameter: refresh_token")
	}

	token, err := s.tokens.Refresh(ctx, value, client)
	if err != nil {
		return nil, err
	}

	var owner *users.User
	if token.Subject != "" {
		owner, err = s.userStore.LoadPreAuthenticatedUser(ctx, domain.ID, token.Subject)
		if err != nil {
			return nil, errors.Wrap(err, "[RefreshTokenStrategy.Process] LoadPreAuthenticatedUser")
		}
	}

	scopes, err := NarrowScopes(req.Scopes, token.Scopes)
	if err != nil {
		return nil, err
	}
	resources, err := ReconcileResources(req.Resources, token.Resources)
	if err != nil {
		return nil, err
	}

	var permissions []oauthmodel.Permission
	if token.Permissions != nil {
		permissions = narrowPermissions(token.Permissions, scopes)
	}

	return &oauthmodel.TokenCreationRequest{
		ClientID:            client.ID,
		GrantType:           oauthmodel.RefreshTokenGrant,
		ResourceOwner:       owner,
		Scopes:              scopes,
		Resources:           resources,
		SupportRefreshToken: supportsRefresh(client) && !client.DisableRefreshTokenRotation,
		Data: oauthmodel.RefreshTokenData{
			RefreshToken:  value,
			DecodedClaims: token.Claims(),
			Permissions:   permissions,
		},
	}, nil
}

// narrowPermissions keeps the scopes of each permission that are still granted. Resources
// left without a scope are dropped.
func narrowPermissions(permissions []oauthmodel.Permission, scopes []string) []oauthmodel.Permission {
	out := make([]oauthmodel.Permission, 0, len(permissions))
	for _, p := range permissions {
		kept := utils.Intersect(p.ResourceScopes, scopes)
		if len(kept) == 0 {
			continue
		}
		out = append(out, oauthmodel.Permission{ResourceID: p.ResourceID, ResourceScopes: kept})
	}
	return out
}
