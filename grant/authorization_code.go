package grant

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type AuthorizationCodeStrategy struct {
	codes     CodeStore
	flows     AuthFlowContextStore
	userStore UserGateway
}

var _ Strategy = (*AuthorizationCodeStrategy)(nil)

func NewAuthorizationCodeStrategy(codes CodeStore, flows AuthFlowContextStore, userStore UserGateway) (*AuthorizationCodeStrategy, error) {
	if codes == nil {
		return nil, errors.New("[NewAuthorizationCodeStrategy] code store is required")
	}
	if flows == nil {
		return nil, errors.New("[NewAuthorizationCodeStrategy] auth flow context store is required")
	}
	if userStore == nil {
		return nil, errors.New("[NewAuthorizationCodeStrategy] user gateway is required")
	}
	return &AuthorizationCodeStrategy{codes: codes, flows: flows, userStore: userStore}, nil
}

func (s *AuthorizationCodeStrategy) GrantType() string { return oauthmodel.AuthorizationCodeGrant }

func (s *AuthorizationCodeStrategy) Supports(grantType string, client *clients.Client, _ *domains.Domain) bool {
	return authorized(grantType, oauthmodel.AuthorizationCodeGrant, client)
}

func (s *AuthorizationCodeStrategy) Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error) {
	code := strings.TrimSpace(req.Param(oauthmodel.ParamCode))
	if code == "" {
		return nil, oauthmodel.InvalidRequest("Missing parameter: code")
	}

	stored, err := s.codes.Remove(ctx, code, client)
	if err != nil {
		return nil, errors.Wrap(err, "[AuthorizationCodeStrategy.Process] codes.Remove")
	}
	if stored == nil {
		return nil, oauthmodel.InvalidGrant("Invalid authorization code: %s", code)
	}
	authReq := stored.RequestParameters

	recorded := authReq.Get(oauthmodel.ParamRedirectURI)
	if recorded != "" {
		supplied := req.Param(oauthmodel.ParamRedirectURI)
		if supplied == "" {
			return nil, oauthmodel.InvalidGrant("Redirect URI is missing")
		}
		if supplied != recorded {
			return nil, oauthmodel.InvalidGrant("Redirect URI mismatch")
		}
	}

	if err := ValidatePKCE(
		authReq.Get(oauthmodel.ParamCodeChallenge),
		authReq.Get(oauthmodel.ParamCodeChallengeMeth),
		req.Param(oauthmodel.ParamCodeVerifier),
	); err != nil {
		return nil, err
	}

	if stored.TransactionID != "" {
		if err := s.flows.RemoveContext(ctx, stored.TransactionID, stored.ContextVersion); err != nil {
			return nil, errors.Wrap(err, "[AuthorizationCodeStrategy.Process] flows.RemoveContext")
		}
	}

	owner, err := s.userStore.LoadPreAuthenticatedUser(ctx, domain.ID, stored.Subject)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("subject", stored.Subject).Msg("authorization code user not found")
		return nil, oauthmodel.InvalidGrant("User could not be found")
	}

	resources, err := ReconcileResources(req.Resources, authReq[oauthmodel.ParamResource])
	if err != nil {
		return nil, err
	}

	return &oauthmodel.TokenCreationRequest{
		ClientID:            client.ID,
		GrantType:           oauthmodel.AuthorizationCodeGrant,
		ResourceOwner:       owner,
		Scopes:              stored.Scopes,
		Resources:           resources,
		SupportRefreshToken: supportsRefresh(client),
		Data: oauthmodel.AuthorizationCodeData{
			Code:        code,
			RedirectURI: recorded,
			Nonce:       authReq.Get(oauthmodel.ParamNonce),
		},
	}, nil
}
