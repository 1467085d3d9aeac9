package refresh

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/internal/config"
	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo   Repo
	config config.OAuthConfig
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg config.OAuthConfig) *Manager {
	return &Manager{
		repo:   repo,
		config: cfg,
	}
}

// Create generates a new refresh token and stores it. Permissions are those of the RPT the
// token was issued with, if any.
func (m *Manager) Create(ctx context.Context, domainID, clientID, subject string, scopes, resources []string, permissions ...oauthmodel.Permission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tokenBytes := make([]byte, m.config.GetRefreshTokenLength()) // Configured length (default: 32 bytes = 256 bits)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[Manager.Create] failed to generate random bytes")
	}

	now := NowTimeFunc()
	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:       tokenStr,
		DomainID:    domainID,
		ClientID:    clientID,
		Subject:     subject,
		Scopes:      scopes,
		Resources:   resources,
		Permissions: permissions,
		Iat:         now,
		Exp:         now.Add(m.config.GetDefaultRefreshTokenExpiry()),
	}); err != nil {
		return "", errors.Wrap(err, "[Manager.Create] failed to store refresh token")
	}

	return tokenStr, nil
}

// Refresh validates a presented refresh token for the client. Unless the client disabled
// rotation the token is consumed.
func (m *Manager) Refresh(ctx context.Context, value string, client *clients.Client) (*StoredRefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rt, err := m.repo.Get(value)
	if ierrors.IsNotFound(err) {
		return nil, oauthmodel.InvalidGrant("Refresh token is invalid")
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Refresh] repo.Get")
	}
	if rt.ClientID != client.ID || rt.DomainID != client.DomainID {
		return nil, oauthmodel.InvalidGrant("Refresh token was issued to another client")
	}
	if NowTimeFunc().After(rt.Exp) {
		_ = m.repo.Delete(value)
		return nil, oauthmodel.InvalidGrant("Refresh token is expired")
	}
	if !client.DisableRefreshTokenRotation {
		if err := m.repo.Delete(value); err != nil {
			if ierrors.IsNotFound(err) {
				// lost a race with a concurrent refresh of the same token
				return nil, oauthmodel.InvalidGrant("Refresh token is invalid")
			}
			return nil, errors.Wrap(err, "[Manager.Refresh] repo.Delete")
		}
	}
	return rt, nil
}

// Revoke removes a refresh token issued to client. Unknown tokens and tokens of other
// clients are ignored (RFC 7009).
func (m *Manager) Revoke(ctx context.Context, value string, client *clients.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rt, err := m.repo.Get(value)
	if ierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Manager.Revoke] repo.Get")
	}
	if rt.ClientID != client.ID || rt.DomainID != client.DomainID {
		return nil
	}
	if err := m.repo.Delete(value); err != nil && !ierrors.IsNotFound(err) {
		return errors.Wrap(err, "[Manager.Revoke] repo.Delete")
	}
	return nil
}
