package token

import (
	"context"
	"slices"

	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/subject"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/jrsteele09/go-grant-server/token/refresh"
	"github.com/pkg/errors"
)

// Minter turns the result of a grant strategy into signed tokens.
type Minter struct {
	creator  *jwt.Creator
	refresh  *refresh.Manager
	subjects *subject.Manager
}

func NewMinter(creator *jwt.Creator, refreshManager *refresh.Manager, subjects *subject.Manager) (*Minter, error) {
	if creator == nil {
		return nil, errors.New("[NewMinter] creator is required")
	}
	if refreshManager == nil {
		return nil, errors.New("[NewMinter] refresh manager is required")
	}
	if subjects == nil {
		return nil, errors.New("[NewMinter] subject manager is required")
	}
	return &Minter{
		creator:  creator,
		refresh:  refreshManager,
		subjects: subjects,
	}, nil
}

// Mint issues the access token and, when applicable, the refresh and ID tokens.
func (m *Minter) Mint(ctx context.Context, domain *domains.Domain, req *oauthmodel.TokenCreationRequest) (*TokenResponse, error) {
	params := jwt.AccessTokenParams{
		Issuer:   domain.Issuer,
		DomainID: domain.ID,
		ClientID: req.ClientID,
		Subject:  req.ClientID,
		Audience: req.Resources,
		Scopes:   req.Scopes,
	}
	ownerID := ""
	if owner := req.ResourceOwner; owner != nil {
		ownerID = owner.ID
		params.Subject = m.subjects.GenerateSubFrom(owner.SubjectID())
		params.InternalSub = m.subjects.GenerateInternalSubFrom(owner.SubjectID())
	}

	resp := &TokenResponse{
		TokenType: "Bearer",
		Scope:     oauthmodel.JoinScopes(req.Scopes),
	}

	nonce := ""
	switch data := req.Data.(type) {
	case oauthmodel.UmaData:
		params.Permissions = data.Permissions
		if params.Permissions == nil {
			params.Permissions = []oauthmodel.Permission{}
		}
		resp.Upgraded = data.Upgraded
	case oauthmodel.TokenExchangeData:
		params.ExpiresAt = data.Expiration
		if data.IsDelegation {
			params.Actor = data.ActorInfo
		}
		resp.IssuedTokenType = data.IssuedTokenType
	case oauthmodel.AuthorizationCodeData:
		nonce = data.Nonce
	case oauthmodel.RefreshTokenData:
		params.Permissions = data.Permissions
		if !req.SupportRefreshToken {
			// rotation disabled: the presented token stays valid and is handed back
			resp.RefreshToken = data.RefreshToken
		}
	}

	accessToken, exp, err := m.creator.CreateAccessToken(params)
	if err != nil {
		return nil, errors.Wrap(err, "[Minter.Mint] creator.CreateAccessToken")
	}
	resp.AccessToken = accessToken
	resp.ExpiresIn = int(exp.Sub(jwt.NowTimeFunc()).Seconds())
	if resp.ExpiresIn < 0 {
		resp.ExpiresIn = 0
	}

	if req.SupportRefreshToken {
		rt, err := m.refresh.Create(ctx, domain.ID, req.ClientID, ownerID, req.Scopes, req.Resources, params.Permissions...)
		if err != nil {
			return nil, errors.Wrap(err, "[Minter.Mint] refresh.Create")
		}
		resp.RefreshToken = rt
	}

	if req.ResourceOwner != nil && slices.Contains(req.Scopes, oauthmodel.ScopeOpenID) {
		idToken, err := m.creator.CreateIDToken(jwt.IDTokenParams{
			Issuer:      domain.Issuer,
			DomainID:    domain.ID,
			ClientID:    req.ClientID,
			Subject:     params.Subject,
			InternalSub: params.InternalSub,
			Nonce:       nonce,
			User:        req.ResourceOwner,
		})
		if err != nil {
			return nil, errors.Wrap(err, "[Minter.Mint] creator.CreateIDToken")
		}
		resp.IDToken = idToken
	}

	return resp, nil
}
