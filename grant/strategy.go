// Package grant turns token requests into TokenCreationRequests. One Strategy exists per
// grant flow; the Dispatcher selects the strategy that supports a request.
package grant

import (
	"context"

	"github.com/jrsteele09/go-grant-server/authcode"
	"github.com/jrsteele09/go-grant-server/ciba"
	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/policy"
	"github.com/jrsteele09/go-grant-server/subject"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/jrsteele09/go-grant-server/token/refresh"
	"github.com/jrsteele09/go-grant-server/tokenexchange"
	"github.com/jrsteele09/go-grant-server/uma"
	"github.com/jrsteele09/go-grant-server/users"
)

// Strategy validates the requests of one grant flow.
type Strategy interface {
	// GrantType is the registry key of the strategy.
	GrantType() string
	Supports(grantType string, client *clients.Client, domain *domains.Domain) bool
	Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error)
}

// CodeStore consumes authorization codes. A nil code means unknown or already used.
type CodeStore interface {
	Remove(ctx context.Context, code string, client *clients.Client) (*authcode.AuthorizationCode, error)
}

type AuthFlowContextStore interface {
	RemoveContext(ctx context.Context, transactionID string, version int) error
}

type RefreshTokenStore interface {
	Refresh(ctx context.Context, value string, client *clients.Client) (*refresh.StoredRefreshToken, error)
}

type UserGateway interface {
	LoadPreAuthenticatedUser(ctx context.Context, domainID, userID string) (*users.User, error)
	LoadPreAuthenticatedUserBySub(ctx context.Context, domainID, internalSub string) (*users.User, error)
	LoadUserFromProvider(ctx context.Context, domainID, providerID string, external users.ExternalUser) (*users.User, error)
	Authenticate(ctx context.Context, domainID, username, password string) (*users.User, error)
	Connect(ctx context.Context, domainID, source string, external users.ExternalUser, silent bool) (*users.User, error)
}

type CibaRequestStore interface {
	Retrieve(ctx context.Context, domainID, authReqID, clientID string) (*ciba.AuthRequest, error)
}

type TicketStore interface {
	Remove(ctx context.Context, ticketID string) (*uma.PermissionTicket, error)
}

type ResourceGateway interface {
	FindByResources(ctx context.Context, ids []string) ([]uma.Resource, error)
	FindAccessPoliciesByResources(ctx context.Context, ids []string) ([]uma.AccessPolicy, error)
}

type RulesEngine interface {
	Fire(ctx context.Context, policies []uma.AccessPolicy, ec policy.ExecutionContext) error
}

type SubjectManager interface {
	GenerateSubFrom(id subject.UserID) string
	ExtractUserID(internalSub string) string
	ExtractSourceID(internalSub string) string
}

type TokenDecoder interface {
	DecodeAndVerify(ctx context.Context, raw string, use jwt.TokenUse) (jwt.Claims, error)
}

type TokenExchanger interface {
	Exchange(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain, userGateway tokenexchange.UserGateway) (*tokenexchange.Result, error)
}

// authorized is the gate shared by every strategy.
func authorized(grantType, want string, client *clients.Client) bool {
	return grantType == want && client != nil && client.AuthorizesGrantType(want)
}

func supportsRefresh(client *clients.Client) bool {
	return client.AuthorizesGrantType(oauthmodel.RefreshTokenGrant)
}
