package token

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the JWT token used to access protected resources.
	// For the UMA grant this is the RPT, with a "permissions" claim.
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token (always "Bearer" in this implementation).
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Only present when the grant supports refresh for this client.
	RefreshToken string `json:"refresh_token,omitempty"`

	// IDToken is present when "openid" was granted to a resource owner.
	IDToken string `json:"id_token,omitempty"`

	// Scope is the space separated list of granted scopes.
	Scope string `json:"scope,omitempty"`

	// IssuedTokenType is set by token exchange (RFC 8693 section 2.2.1).
	IssuedTokenType string `json:"issued_token_type,omitempty"`

	// Upgraded tells an UMA client its previous RPT permissions were merged in.
	Upgraded bool `json:"upgraded,omitempty"`
}
