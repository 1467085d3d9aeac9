package oauthmodel

import "time"

// GrantKind tags the variant carried by GrantData.
type GrantKind string

const (
	GrantKindAuthorizationCode GrantKind = "authorization_code"
	GrantKindRefreshToken      GrantKind = "refresh_token"
	GrantKindClientCredentials GrantKind = "client_credentials"
	GrantKindPassword          GrantKind = "password"
	GrantKindExtensionGrant    GrantKind = "extension_grant"
	GrantKindCiba              GrantKind = "ciba"
	GrantKindTokenExchange     GrantKind = "token_exchange"
	GrantKindUma               GrantKind = "uma"
)

// GrantData is the flow specific evidence handed to the token minter.
// The set of variants is closed; switch on the concrete type or on Kind().
type GrantData interface {
	Kind() GrantKind
	grantData()
}

type AuthorizationCodeData struct {
	Code        string
	RedirectURI string
	Nonce       string
}

type RefreshTokenData struct {
	RefreshToken  string
	DecodedClaims map[string]any

	// Permissions is set when the refreshed token was issued with an RPT.
	Permissions []Permission
}

type ClientCredentialsData struct{}

type PasswordData struct {
	Username string
}

type ExtensionGrantData struct {
	ExtensionGrantID   string
	ExtensionGrantType string
}

type CibaData struct {
	AuthReqID string
	ACRValues []string
}

// Permission is a resource and the scopes granted on it, as carried in an RPT.
type Permission struct {
	ResourceID     string   `json:"resourceId"`
	ResourceScopes []string `json:"resourceScopes"`
}

type UmaData struct {
	Ticket      string
	Permissions []Permission
	Upgraded    bool
}

// ActorInfo is the "act" claim of a delegated token. Nested actors form the delegation chain.
type ActorInfo struct {
	Subject  string     `json:"sub"`
	ClientID string     `json:"client_id,omitempty"`
	Actor    *ActorInfo `json:"act,omitempty"`
}

// Claims renders the actor as a JWT "act" claim value.
func (a *ActorInfo) Claims() map[string]any {
	if a == nil {
		return nil
	}
	claims := map[string]any{"sub": a.Subject}
	if a.ClientID != "" {
		claims["client_id"] = a.ClientID
	}
	if a.Actor != nil {
		claims["act"] = a.Actor.Claims()
	}
	return claims
}

type TokenExchangeData struct {
	IssuedTokenType  string
	Expiration       time.Time
	SubjectTokenID   string
	SubjectTokenType string
	IsDelegation     bool
	ActorInfo        *ActorInfo
}

func (AuthorizationCodeData) Kind() GrantKind { return GrantKindAuthorizationCode }
func (RefreshTokenData) Kind() GrantKind      { return GrantKindRefreshToken }
func (ClientCredentialsData) Kind() GrantKind { return GrantKindClientCredentials }
func (PasswordData) Kind() GrantKind          { return GrantKindPassword }
func (ExtensionGrantData) Kind() GrantKind    { return GrantKindExtensionGrant }
func (CibaData) Kind() GrantKind              { return GrantKindCiba }
func (UmaData) Kind() GrantKind               { return GrantKindUma }
func (TokenExchangeData) Kind() GrantKind     { return GrantKindTokenExchange }

func (AuthorizationCodeData) grantData() {}
func (RefreshTokenData) grantData()      {}
func (ClientCredentialsData) grantData() {}
func (PasswordData) grantData()          {}
func (ExtensionGrantData) grantData()    {}
func (CibaData) grantData()              {}
func (UmaData) grantData()               {}
func (TokenExchangeData) grantData()     {}
