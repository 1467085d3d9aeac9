package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

type OAuthConfig interface {
	GetAuthCodeTimeout() time.Duration
	GetCodeGenerationLength() int
	GetRefreshTokenLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultIDTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
	GetPermissionTicketTimeout() time.Duration
	GetCibaPollInterval() time.Duration
	GetCibaRequestExpiry() time.Duration
}

type OAuth struct {
	k *koanf.Koanf
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetAuthCodeTimeout() time.Duration {
	return o.k.Duration("oauth.auth_code_timeout")
}

func (o OAuth) GetCodeGenerationLength() int {
	return o.k.Int("oauth.code_generation_length")
}

func (o OAuth) GetRefreshTokenLength() int {
	return o.k.Int("oauth.refresh_token_length") // bytes, 32 = 256 bits
}

func (o OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return o.k.Duration("oauth.access_token_expiry")
}

func (o OAuth) GetDefaultIDTokenExpiry() time.Duration {
	return o.k.Duration("oauth.id_token_expiry")
}

func (o OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return o.k.Duration("oauth.refresh_token_expiry")
}

func (o OAuth) GetPermissionTicketTimeout() time.Duration {
	return o.k.Duration("oauth.permission_ticket_timeout")
}

// GetCibaPollInterval is the minimum delay between two polls of the same auth_req_id.
func (o OAuth) GetCibaPollInterval() time.Duration {
	return o.k.Duration("oauth.ciba_poll_interval")
}

func (o OAuth) GetCibaRequestExpiry() time.Duration {
	return o.k.Duration("oauth.ciba_request_expiry")
}
