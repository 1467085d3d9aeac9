package domains

import (
	"slices"

	"github.com/jrsteele09/go-grant-server/oauthmodel"
)

// Domain is an isolated security domain with its own clients, users and grant settings.
type Domain struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer"` // e.g. "https://auth.example.com/acme"

	UMA           *UMASettings           `json:"uma,omitempty"`
	TokenExchange *TokenExchangeSettings `json:"tokenExchange,omitempty"`
}

// UMASettings toggles the UMA 2.0 grant for the domain.
type UMASettings struct {
	Enabled bool `json:"enabled"`
}

// TokenExchangeSettings configures RFC 8693 token exchange for the domain.
type TokenExchangeSettings struct {
	Enabled                    bool     `json:"enabled"`
	AllowedSubjectTokenTypes   []string `json:"allowedSubjectTokenTypes"`
	AllowedRequestedTokenTypes []string `json:"allowedRequestedTokenTypes"`
	AllowedActorTokenTypes     []string `json:"allowedActorTokenTypes"`
	AllowImpersonation         bool     `json:"allowImpersonation"`
	AllowDelegation            bool     `json:"allowDelegation"`
	// MaxDelegationDepth bounds the "act" chain; zero means unlimited.
	MaxDelegationDepth int `json:"maxDelegationDepth,omitempty"`
}

// UMAEnabled reports whether the UMA grant may be used in the domain.
func (d *Domain) UMAEnabled() bool {
	return d != nil && d.UMA != nil && d.UMA.Enabled
}

// TokenExchangeEnabled reports whether token exchange may be used in the domain.
func (d *Domain) TokenExchangeEnabled() bool {
	return d != nil && d.TokenExchange != nil && d.TokenExchange.Enabled
}

// Token types assumed when an allow-list is left empty.
var (
	DefaultSubjectTokenTypes   = []string{oauthmodel.TokenTypeAccessToken, oauthmodel.TokenTypeIDToken, oauthmodel.TokenTypeJWT}
	DefaultRequestedTokenTypes = []string{oauthmodel.TokenTypeAccessToken}
	DefaultActorTokenTypes     = []string{oauthmodel.TokenTypeAccessToken, oauthmodel.TokenTypeIDToken, oauthmodel.TokenTypeJWT}
)

func allowed(list, defaults []string, t string) bool {
	if len(list) == 0 {
		list = defaults
	}
	return slices.Contains(list, t)
}

func (s *TokenExchangeSettings) AllowsSubjectTokenType(t string) bool {
	return allowed(s.AllowedSubjectTokenTypes, DefaultSubjectTokenTypes, t)
}

func (s *TokenExchangeSettings) AllowsRequestedTokenType(t string) bool {
	return allowed(s.AllowedRequestedTokenTypes, DefaultRequestedTokenTypes, t)
}

func (s *TokenExchangeSettings) AllowsActorTokenType(t string) bool {
	return allowed(s.AllowedActorTokenTypes, DefaultActorTokenTypes, t)
}
