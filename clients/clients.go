package clients

import (
	"slices"

	"golang.org/x/crypto/bcrypt"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (SPAs, mobile apps)
)

// ScopeSetting is a scope pre-registered for the client.
type ScopeSetting struct {
	Scope        string `json:"scope"`
	DefaultScope bool   `json:"defaultScope,omitempty"`
}

type Client struct {
	ID           string     `json:"id"`
	Type         ClientType `json:"type"` // public or confidential
	Description  string     `json:"description"`
	Secret       string     `json:"secret"` // bcrypt hash, empty for public clients
	RedirectURIs []string   `json:"redirectURIs"`
	DomainID     string     `json:"domainId"`

	// AuthorizedGrantTypes lists grant type tokens. Extension grants are "<urn>~<extensionGrantId>",
	// or the bare "<urn>" for clients registered before grant ids existed.
	AuthorizedGrantTypes []string `json:"authorizedGrantTypes"`

	// DisableRefreshTokenRotation keeps the same refresh token across refreshes.
	DisableRefreshTokenRotation bool `json:"disableRefreshTokenRotation,omitempty"`

	ScopeSettings []ScopeSetting `json:"scopeSettings"`
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// AuthorizesGrantType reports whether grantType is one of the client's authorized grant type tokens.
func (c *Client) AuthorizesGrantType(grantType string) bool {
	return slices.Contains(c.AuthorizedGrantTypes, grantType)
}

// HasScope checks if the scope is pre-registered in the client's scope settings
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.ScopeSettings {
		if s.Scope == scope {
			return true
		}
	}
	return false
}

// ValidateScopes checks if all requested scopes are allowed for this client
func (c *Client) ValidateScopes(scopes []string) error {
	for _, scope := range scopes {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}

// DefaultScopes returns the scopes granted when a request names none.
func (c *Client) DefaultScopes() []string {
	var scopes []string
	for _, s := range c.ScopeSettings {
		if s.DefaultScope {
			scopes = append(scopes, s.Scope)
		}
	}
	return scopes
}

// CheckSecret compares a presented secret with the stored bcrypt hash.
func (c *Client) CheckSecret(secret string) bool {
	if c.Secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.Secret), []byte(secret)) == nil
}

// HashSecret hashes a client secret for storage.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}
