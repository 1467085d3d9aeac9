package config

import (
	"strings"

	"github.com/knadh/koanf/v2"
)

type EnvVars struct {
	k *koanf.Koanf
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, always with a leading colon.
func (e EnvVars) GetPort() string {
	port := e.k.String("server.port")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.k.String("server.app_name")
}

// GetBaseURL returns the base URL for the server (e.g., "https://auth.example.com")
// Domain issuers default to <base>/<domain id>.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.k.String("server.base_url"), "/")
}

func (e EnvVars) GetLogLevel() string {
	return e.k.String("log.level")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.k.String("server.env"))
}
