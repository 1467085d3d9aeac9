package grant

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/pkg/errors"
)

type CibaStrategy struct {
	requests  CibaRequestStore
	userStore UserGateway
}

var _ Strategy = (*CibaStrategy)(nil)

func NewCibaStrategy(requests CibaRequestStore, userStore UserGateway) (*CibaStrategy, error) {
	if requests == nil {
		return nil, errors.New("[NewCibaStrategy] ciba request store is required")
	}
	if userStore == nil {
		return nil, errors.New("[NewCibaStrategy] user gateway is required")
	}
	return &CibaStrategy{requests: requests, userStore: userStore}, nil
}

func (s *CibaStrategy) GrantType() string { return oauthmodel.CibaGrant }

func (s *CibaStrategy) Supports(grantType string, client *clients.Client, _ *domains.Domain) bool {
	return authorized(grantType, oauthmodel.CibaGrant, client)
}

func (s *CibaStrategy) Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error) {
	authReqID := strings.TrimSpace(req.Param(oauthmodel.ParamAuthReqID))
	if authReqID == "" {
		return nil, oauthmodel.InvalidRequest("Missing parameter: auth_req_id")
	}

	cibaReq, err := s.requests.Retrieve(ctx, domain.ID, authReqID, client.ID)
	if err != nil {
		return nil, err
	}
	if cibaReq.ClientID != client.ID {
		return nil, oauthmodel.InvalidGrant("auth_req_id not found")
	}

	owner, err := s.userStore.LoadPreAuthenticatedUser(ctx, domain.ID, cibaReq.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "[CibaStrategy.Process] LoadPreAuthenticatedUser")
	}

	acrValues := cibaReq.ACRValues()
	if acrValues == nil {
		acrValues = []string{}
	}
	return &oauthmodel.TokenCreationRequest{
		ClientID:            client.ID,
		GrantType:           oauthmodel.CibaGrant,
		ResourceOwner:       owner,
		Scopes:              cibaReq.Scopes,
		Resources:           req.Resources,
		SupportRefreshToken: supportsRefresh(client),
		Data: oauthmodel.CibaData{
			AuthReqID: authReqID,
			ACRValues: acrValues,
		},
	}, nil
}
