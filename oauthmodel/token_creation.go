package oauthmodel

import "github.com/jrsteele09/go-grant-server/users"

// TokenCreationRequest is the grant agnostic result of a strategy.
// A nil ResourceOwner means the token is issued to the client alone.
type TokenCreationRequest struct {
	ClientID            string
	GrantType           string
	ResourceOwner       *users.User
	Scopes              []string
	Resources           []string
	SupportRefreshToken bool
	Data                GrantData
}

// ClientOnly reports whether the token carries no resource owner.
func (r *TokenCreationRequest) ClientOnly() bool {
	return r.ResourceOwner == nil
}
