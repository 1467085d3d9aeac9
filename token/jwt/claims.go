package jwt

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-grant-server/internal/utils"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/subject"
)

// Claim names minted by Creator and read back by the grant strategies.
const (
	ClaimIssuer      = "iss"
	ClaimSubject     = "sub"
	ClaimAudience    = "aud"
	ClaimExpiresAt   = "exp"
	ClaimIssuedAt    = "iat"
	ClaimID          = "jti"
	ClaimClientID    = "client_id"
	ClaimScope       = "scope"
	ClaimDomain      = "domain"
	ClaimNonce       = "nonce"
	ClaimPermissions = "permissions"
	ClaimActor       = "act"
	ClaimTokenUse    = "token_use"
	ClaimInternalSub = subject.InternalSubClaim
)

// TokenUse tells access tokens and ID tokens apart.
type TokenUse string

const (
	UseAny         TokenUse = ""
	UseAccessToken TokenUse = "access_token"
	UseIDToken     TokenUse = "id_token"
)

// Claims is a decoded and verified token payload.
type Claims map[string]any

func (c Claims) str(name string) string {
	s, _ := c[name].(string)
	return s
}

func (c Claims) Subject() string     { return c.str(ClaimSubject) }
func (c Claims) ID() string          { return c.str(ClaimID) }
func (c Claims) ClientID() string    { return c.str(ClaimClientID) }
func (c Claims) InternalSub() string { return c.str(ClaimInternalSub) }
func (c Claims) Issuer() string      { return c.str(ClaimIssuer) }

// Audience returns "aud" whether it was minted as a string or an array.
func (c Claims) Audience() []string {
	return utils.ToStringSlice(c[ClaimAudience])
}

func (c Claims) Scopes() []string {
	return oauthmodel.ParseScopes(c.str(ClaimScope))
}

func (c Claims) ExpiresAt() time.Time {
	t, _ := utils.ToUnixTime(c[ClaimExpiresAt])
	return t
}

// Permissions decodes the UMA "permissions" claim. Malformed entries are skipped.
func (c Claims) Permissions() []oauthmodel.Permission {
	raw, ok := c[ClaimPermissions]
	if !ok || raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var perms []oauthmodel.Permission
	if err := json.Unmarshal(data, &perms); err != nil {
		return nil
	}
	out := perms[:0]
	for _, p := range perms {
		if p.ResourceID != "" {
			out = append(out, p)
		}
	}
	return out
}

// Actor decodes the "act" claim chain.
func (c Claims) Actor() *oauthmodel.ActorInfo {
	raw, ok := c[ClaimActor].(map[string]any)
	if !ok {
		return nil
	}
	return actorFrom(raw)
}

func actorFrom(raw map[string]any) *oauthmodel.ActorInfo {
	a := &oauthmodel.ActorInfo{}
	a.Subject, _ = raw["sub"].(string)
	a.ClientID, _ = raw["client_id"].(string)
	if nested, ok := raw["act"].(map[string]any); ok {
		a.Actor = actorFrom(nested)
	}
	return a
}
