// Package tokenexchange implements RFC 8693 token exchange: a subject token, optionally
// accompanied by an actor token, is swapped for a new token for the requesting client.
package tokenexchange

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/jrsteele09/go-grant-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type TokenDecoder interface {
	DecodeAndVerify(ctx context.Context, raw string, use jwt.TokenUse) (jwt.Claims, error)
}

type UserGateway interface {
	LoadPreAuthenticatedUser(ctx context.Context, domainID, userID string) (*users.User, error)
	LoadPreAuthenticatedUserBySub(ctx context.Context, domainID, internalSub string) (*users.User, error)
}

// Result is the outcome of a successful exchange.
type Result struct {
	ResourceOwner    *users.User // nil when the subject token was a client-only token
	Scopes           []string
	IssuedTokenType  string
	Expiration       time.Time
	SubjectTokenID   string
	SubjectTokenType string
	IsDelegation     bool
	ActorInfo        *oauthmodel.ActorInfo
}

type Service struct {
	decoder TokenDecoder
}

func NewService(decoder TokenDecoder) (*Service, error) {
	if decoder == nil {
		return nil, errors.New("[NewService] token decoder is required")
	}
	return &Service{decoder: decoder}, nil
}

// Exchange validates the exchange request against the domain settings. Protocol failures
// are oauthmodel errors.
func (s *Service) Exchange(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain, userGateway UserGateway) (*Result, error) {
	if !domain.TokenExchangeEnabled() {
		return nil, oauthmodel.UnauthorizedClient("Token exchange is not enabled for this domain")
	}
	settings := domain.TokenExchange

	subjectToken := strings.TrimSpace(req.Param(oauthmodel.ParamSubjectToken))
	subjectTokenType := req.Param(oauthmodel.ParamSubjectTokenType)
	if subjectToken == "" {
		return nil, oauthmodel.InvalidRequest("Missing parameter: subject_token")
	}
	if subjectTokenType == "" {
		return nil, oauthmodel.InvalidRequest("Missing parameter: subject_token_type")
	}
	if !settings.AllowsSubjectTokenType(subjectTokenType) {
		return nil, oauthmodel.InvalidRequest("Unsupported subject_token_type: %s", subjectTokenType)
	}
	subjectUse, err := tokenUseOf(subjectTokenType)
	if err != nil {
		return nil, err
	}

	requestedType := req.Param(oauthmodel.ParamRequestedTokenType)
	if requestedType == "" {
		requestedType = oauthmodel.TokenTypeAccessToken
	}
	if !settings.AllowsRequestedTokenType(requestedType) {
		return nil, oauthmodel.InvalidRequest("Unsupported requested_token_type: %s", requestedType)
	}

	actorToken := strings.TrimSpace(req.Param(oauthmodel.ParamActorToken))
	actorTokenType := req.Param(oauthmodel.ParamActorTokenType)
	var actorUse jwt.TokenUse
	if actorToken != "" {
		if actorTokenType == "" {
			return nil, oauthmodel.InvalidRequest("Missing parameter: actor_token_type")
		}
		if !settings.AllowsActorTokenType(actorTokenType) {
			return nil, oauthmodel.InvalidRequest("Unsupported actor_token_type: %s", actorTokenType)
		}
		if actorUse, err = tokenUseOf(actorTokenType); err != nil {
			return nil, err
		}
		if !settings.AllowDelegation {
			return nil, oauthmodel.InvalidRequest("Delegation is not allowed for this domain")
		}
	} else {
		if actorTokenType != "" {
			return nil, oauthmodel.InvalidRequest("actor_token_type must not be provided without actor_token")
		}
		if !settings.AllowImpersonation {
			return nil, oauthmodel.InvalidRequest("Impersonation is not allowed for this domain")
		}
	}

	subjectClaims, err := s.decoder.DecodeAndVerify(ctx, subjectToken, subjectUse)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("subject token rejected")
		return nil, oauthmodel.InvalidGrant("Invalid subject_token")
	}

	result := &Result{
		IssuedTokenType:  requestedType,
		Expiration:       subjectClaims.ExpiresAt(),
		SubjectTokenID:   subjectClaims.ID(),
		SubjectTokenType: subjectTokenType,
	}

	if actorToken != "" {
		actorClaims, err := s.decoder.DecodeAndVerify(ctx, actorToken, actorUse)
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("actor token rejected")
			return nil, oauthmodel.InvalidGrant("Invalid actor_token")
		}
		prior := subjectClaims.Actor()
		if limit := settings.MaxDelegationDepth; limit > 0 && chainDepth(prior)+1 > limit {
			return nil, oauthmodel.InvalidRequest("Maximum delegation depth of %d exceeded", limit)
		}
		result.IsDelegation = true
		result.ActorInfo = &oauthmodel.ActorInfo{
			Subject:  actorClaims.Subject(),
			ClientID: actorClaims.ClientID(),
			Actor:    prior,
		}
		if exp := actorClaims.ExpiresAt(); !exp.IsZero() && (result.Expiration.IsZero() || exp.Before(result.Expiration)) {
			result.Expiration = exp
		}
	}

	granted := subjectClaims.Scopes()
	if len(req.Scopes) == 0 {
		result.Scopes = granted
	} else {
		for _, scope := range req.Scopes {
			if !slices.Contains(granted, scope) {
				return nil, oauthmodel.InvalidScope("Scope %s exceeds the scopes of the subject_token", scope)
			}
		}
		result.Scopes = req.Scopes
	}

	owner, err := ResolveResourceOwner(ctx, userGateway, domain.ID, subjectClaims)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("subject token user not found")
		return nil, oauthmodel.InvalidGrant("Unknown subject")
	}
	result.ResourceOwner = owner
	return result, nil
}

// ResolveResourceOwner loads the user a verified token was issued for: by internal subject
// when present, else by user id. A client-only token (sub equal to client_id) has no owner.
func ResolveResourceOwner(ctx context.Context, userGateway UserGateway, domainID string, claims jwt.Claims) (*users.User, error) {
	if gis := claims.InternalSub(); gis != "" {
		return userGateway.LoadPreAuthenticatedUserBySub(ctx, domainID, gis)
	}
	sub := claims.Subject()
	if sub == "" {
		return nil, errors.New("[ResolveResourceOwner] token has no subject")
	}
	if sub == claims.ClientID() {
		return nil, nil
	}
	return userGateway.LoadPreAuthenticatedUser(ctx, domainID, sub)
}

func tokenUseOf(tokenType string) (jwt.TokenUse, error) {
	switch tokenType {
	case oauthmodel.TokenTypeAccessToken:
		return jwt.UseAccessToken, nil
	case oauthmodel.TokenTypeIDToken:
		return jwt.UseIDToken, nil
	case oauthmodel.TokenTypeJWT:
		return jwt.UseAny, nil
	}
	return "", oauthmodel.InvalidRequest("Token type %s cannot be exchanged", tokenType)
}

func chainDepth(a *oauthmodel.ActorInfo) int {
	depth := 0
	for ; a != nil; a = a.Actor {
		depth++
	}
	return depth
}
