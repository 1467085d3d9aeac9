package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/token/keys"
	"github.com/jrsteele09/go-grant-server/users"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// AccessTokenParams describes the access token to sign.
type AccessTokenParams struct {
	Issuer      string
	DomainID    string
	ClientID    string
	Subject     string // generated subject, the client id for client only tokens
	InternalSub string // "<source>|<externalId>", omitted when empty
	Audience    []string
	Scopes      []string
	Permissions []oauthmodel.Permission
	Actor       *oauthmodel.ActorInfo
	ExpiresAt   time.Time // zero uses the configured access token expiry
}

// IDTokenParams describes the OpenID Connect ID token to sign.
type IDTokenParams struct {
	Issuer      string
	DomainID    string
	ClientID    string
	Subject     string
	InternalSub string
	Nonce       string
	User        *users.User
}

// Creator handles JWT token creation (ID tokens and access tokens)
type Creator struct {
	config config.OAuthConfig
	signer keys.Signer
}

// NewCreator creates a new JWT creator
func NewCreator(cfg config.OAuthConfig, signer keys.Signer) (*Creator, error) {
	if cfg == nil {
		return nil, errors.New("[NewCreator] config is required")
	}
	if signer == nil {
		return nil, errors.New("[NewCreator] signer is required")
	}
	return &Creator{
		config: cfg,
		signer: signer,
	}, nil
}

// CreateAccessToken creates an OAuth2 access token and returns it with its expiry.
func (c *Creator) CreateAccessToken(p AccessTokenParams) (string, time.Time, error) {
	now := NowTimeFunc()
	exp := p.ExpiresAt
	if exp.IsZero() {
		exp = now.Add(c.config.GetDefaultAccessTokenExpiry())
	}

	claims := jwtlib.MapClaims{
		ClaimIssuer:    p.Issuer,
		ClaimSubject:   p.Subject,
		ClaimClientID:  p.ClientID,
		ClaimDomain:    p.DomainID,
		ClaimIssuedAt:  now.Unix(),
		ClaimExpiresAt: exp.Unix(),
		ClaimID:        uuid.New().String(),
		ClaimTokenUse:  string(UseAccessToken),
	}
	switch len(p.Audience) {
	case 0:
		claims[ClaimAudience] = p.ClientID
	case 1:
		claims[ClaimAudience] = p.Audience[0]
	default:
		claims[ClaimAudience] = p.Audience
	}
	if len(p.Scopes) > 0 {
		claims[ClaimScope] = oauthmodel.JoinScopes(p.Scopes)
	}
	if p.InternalSub != "" {
		claims[ClaimInternalSub] = p.InternalSub
	}
	if p.Permissions != nil {
		claims[ClaimPermissions] = p.Permissions
	}
	if p.Actor != nil {
		claims[ClaimActor] = p.Actor.Claims()
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Creator.CreateAccessToken] failed to sign JWT token")
	}
	return signed, exp, nil
}

// CreateIDToken creates an OpenID Connect ID token
func (c *Creator) CreateIDToken(p IDTokenParams) (string, error) {
	now := NowTimeFunc()
	// ID Token contains identity claims only (OpenID Connect Core)
	claims := jwtlib.MapClaims{
		ClaimIssuer:    p.Issuer,
		ClaimSubject:   p.Subject,
		ClaimAudience:  p.ClientID,
		ClaimDomain:    p.DomainID,
		ClaimIssuedAt:  now.Unix(),
		ClaimExpiresAt: now.Add(c.config.GetDefaultIDTokenExpiry()).Unix(),
		ClaimID:        uuid.New().String(),
		ClaimTokenUse:  string(UseIDToken),
	}
	if p.Nonce != "" {
		claims[ClaimNonce] = p.Nonce
	}
	if p.InternalSub != "" {
		claims[ClaimInternalSub] = p.InternalSub
	}
	if p.User != nil {
		if p.User.Email != "" {
			claims["email"] = p.User.Email
		}
		if p.User.Username != "" {
			claims["preferred_username"] = p.User.Username
		}
		if name := p.User.FirstName + " " + p.User.LastName; name != " " {
			claims["name"] = name
		}
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Creator.CreateIDToken] failed to sign JWT token")
	}
	return signed, nil
}
