package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix is the prefix of environment overrides. GRANT__OAUTH__AUTH_CODE_TIMEOUT sets
// oauth.auth_code_timeout.
const EnvPrefix = "GRANT__"

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	StoreConfig
	SystemConfig
	ExtensionGrantConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetLogLevel() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Store
	System
	ExtensionGrant
}

// New loads the defaults, then the YAML file at path (skipped when empty), then GRANT__ env vars.
func New(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, "[config.New] loading defaults")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "[config.New] loading %s", path)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transformEnv), nil); err != nil {
		return nil, errors.Wrap(err, "[config.New] loading environment")
	}
	return fromKoanf(k), nil
}

func fromKoanf(k *koanf.Koanf) Config {
	return mainConfig{
		EnvVars:  EnvVars{k: k},
		Cors:     Cors{k: k},
		OAuth:    OAuth{k: k},
		Security: Security{k: k},
		Store:    Store{k: k},

		System:         System{k: k},
		ExtensionGrant: ExtensionGrant{k: k},
	}
}

func transformEnv(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

var defaults = map[string]interface{}{
	"server.port":     "8080",
	"server.app_name": "Grant Server",
	"server.base_url": "http://localhost:8080",
	"server.env":      "DEV",
	"log.level":       "info",

	"cors.allowed_origins": []string{"*"},
	"cors.allowed_methods": "POST, OPTIONS",
	"cors.allowed_headers": "Content-Type, Authorization",

	"oauth.auth_code_timeout":         "10m",
	"oauth.code_generation_length":    32,
	"oauth.refresh_token_length":      32,
	"oauth.access_token_expiry":       "1h",
	"oauth.id_token_expiry":           "1h",
	"oauth.refresh_token_expiry":      "168h",
	"oauth.permission_ticket_timeout": "5m",
	"oauth.ciba_poll_interval":        "5s",
	"oauth.ciba_request_expiry":       "2m",

	"security.subject_namespace": "urn:grant-server",
	"security.signing_key_id":    "default",
	"security.signing_key_file":  "",

	"store.backend":        "memory",
	"store.redis.addr":     "localhost:6379",
	"store.redis.password": "",
	"store.redis.db":       0,

	"system.domain_id":     "default",
	"system.domain_name":   "Default",
	"system.client_id":     "grant-admin",
	"system.client_secret": "",

	"extgrant.jwt_bearer.enabled":           false,
	"extgrant.jwt_bearer.id":                "jwt-bearer",
	"extgrant.jwt_bearer.issuer":            "",
	"extgrant.jwt_bearer.jwks_url":          "",
	"extgrant.jwt_bearer.audience":          "",
	"extgrant.jwt_bearer.identity_provider": "",
	"extgrant.jwt_bearer.create_user":       true,
}
