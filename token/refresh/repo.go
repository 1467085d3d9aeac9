package refresh

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-grant-server/oauthmodel"
)

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the Token field (a random string). All other fields are
// server-side metadata used for validation and token refresh operations.
type StoredRefreshToken struct {
	Token     string    // The actual random token string (sent to client)
	DomainID  string    // Server-side metadata
	ClientID  string    // Server-side metadata
	Subject   string    // Local user id, empty for client only grants
	Scopes    []string  // Original scopes, refreshes may only narrow them
	Resources []string  // RFC 8707 resources bound at issuance
	Iat       time.Time // Server-side metadata (issued at time)
	Exp       time.Time

	// Permissions of the UMA RPT the token was issued with.
	Permissions []oauthmodel.Permission
}

// Claims exposes the stored metadata the way a decoded token would.
func (rt *StoredRefreshToken) Claims() map[string]any {
	claims := map[string]any{
		"client_id": rt.ClientID,
		"domain":    rt.DomainID,
		"scope":     strings.Join(rt.Scopes, " "),
		"iat":       rt.Iat.Unix(),
		"exp":       rt.Exp.Unix(),
	}
	if rt.Subject != "" {
		claims["sub"] = rt.Subject
	}
	if len(rt.Resources) > 0 {
		claims["resource"] = rt.Resources
	}
	if rt.Permissions != nil {
		claims["permissions"] = rt.Permissions
	}
	return claims
}

// Repo manages server-side storage of refresh token metadata.
// Refresh tokens sent to clients are opaque random strings; this repo stores
// the associated metadata (user, client, domain, scope, etc.) keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
}
