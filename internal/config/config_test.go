package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c, err := config.New("")
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, 10*time.Minute, c.GetAuthCodeTimeout())
	require.Equal(t, 5*time.Second, c.GetCibaPollInterval())
	require.Equal(t, 32, c.GetRefreshTokenLength())
	require.Equal(t, config.StoreBackendMemory, c.GetStoreBackend())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("*"))
}

func TestNew_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grant.yaml")
	yaml := `
server:
  port: "9090"
oauth:
  auth_code_timeout: 2m
store:
  backend: redis
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("GRANT__OAUTH__CIBA_POLL_INTERVAL", "10s")
	t.Setenv("GRANT__SERVER__PORT", ":7070")

	c, err := config.New(path)
	require.NoError(t, err)

	require.Equal(t, ":7070", c.GetPort())
	require.Equal(t, 2*time.Minute, c.GetAuthCodeTimeout())
	require.Equal(t, 10*time.Second, c.GetCibaPollInterval())
	require.Equal(t, config.StoreBackendRedis, c.GetStoreBackend())
}

func TestNew_MissingFile(t *testing.T) {
	_, err := config.New(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestNew_SystemAndExtensionGrant(t *testing.T) {
	t.Setenv("GRANT__EXTGRANT__JWT_BEARER__ENABLED", "true")
	t.Setenv("GRANT__EXTGRANT__JWT_BEARER__ISSUER", "https://idp.example.com")
	t.Setenv("GRANT__SYSTEM__CLIENT_SECRET", "from-env")

	c, err := config.New("")
	require.NoError(t, err)

	require.Equal(t, "default", c.GetSystemDomainID())
	require.Equal(t, "grant-admin", c.GetSystemClientID())
	require.Equal(t, "from-env", c.GetSystemClientSecret())
	require.True(t, c.GetJWTBearerEnabled())
	require.Equal(t, "jwt-bearer", c.GetJWTBearerID())
	require.Equal(t, "https://idp.example.com", c.GetJWTBearerIssuer())
	require.True(t, c.GetJWTBearerCreateUser())
	require.Empty(t, c.GetJWTBearerAudience())
}
