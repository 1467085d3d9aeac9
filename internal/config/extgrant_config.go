package config

import "github.com/knadh/koanf/v2"

// ExtensionGrantConfig configures the RFC 7523 JWT bearer extension grant of the system domain.
type ExtensionGrantConfig interface {
	GetJWTBearerEnabled() bool
	GetJWTBearerID() string
	GetJWTBearerIssuer() string
	GetJWTBearerJWKSURL() string
	GetJWTBearerAudience() string
	GetJWTBearerIdentityProvider() string
	GetJWTBearerCreateUser() bool
}

type ExtensionGrant struct {
	k *koanf.Koanf
}

var _ ExtensionGrantConfig = ExtensionGrant{}

func (e ExtensionGrant) GetJWTBearerEnabled() bool {
	return e.k.Bool("extgrant.jwt_bearer.enabled")
}

func (e ExtensionGrant) GetJWTBearerID() string {
	return e.k.String("extgrant.jwt_bearer.id")
}

func (e ExtensionGrant) GetJWTBearerIssuer() string {
	return e.k.String("extgrant.jwt_bearer.issuer")
}

func (e ExtensionGrant) GetJWTBearerJWKSURL() string {
	return e.k.String("extgrant.jwt_bearer.jwks_url")
}

// GetJWTBearerAudience is the expected "aud" of assertions. Empty skips the check.
func (e ExtensionGrant) GetJWTBearerAudience() string {
	return e.k.String("extgrant.jwt_bearer.audience")
}

func (e ExtensionGrant) GetJWTBearerIdentityProvider() string {
	return e.k.String("extgrant.jwt_bearer.identity_provider")
}

func (e ExtensionGrant) GetJWTBearerCreateUser() bool {
	return e.k.Bool("extgrant.jwt_bearer.create_user")
}
