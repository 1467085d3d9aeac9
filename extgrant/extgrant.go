// Package extgrant describes extension grants: custom grant types whose request is turned
// into an external user by a pluggable provider.
package extgrant

import (
	"context"
	"time"

	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/users"
)

// ExtensionGrant is one configured extension grant of a domain. Several grants may share
// a grant type; clients address them as "<grantType>~<id>".
type ExtensionGrant struct {
	ID        string
	DomainID  string
	Name      string
	GrantType string
	CreatedAt time.Time

	// IdentityProvider is the provider users are loaded from when UserExists is set.
	IdentityProvider string
	// CreateUser stores the external user as a local user.
	CreateUser bool
	// UserExists requires the external user to already be known to IdentityProvider.
	UserExists bool
}

// AuthorizedGrantType is the client grant type entry addressing this grant specifically.
func (g ExtensionGrant) AuthorizedGrantType() string {
	return g.GrantType + "~" + g.ID
}

// Provider validates an extension grant request. It returns nil, nil when the request is
// valid but carries no end user.
type Provider interface {
	Grant(ctx context.Context, req oauthmodel.TokenRequest) (*users.ExternalUser, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req oauthmodel.TokenRequest) (*users.ExternalUser, error)

func (f ProviderFunc) Grant(ctx context.Context, req oauthmodel.TokenRequest) (*users.ExternalUser, error) {
	return f(ctx, req)
}
