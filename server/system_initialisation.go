package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// systemClientScopes are registered on the system client, "openid" as default.
var systemClientScopes = []clients.ScopeSetting{
	{Scope: oauthmodel.ScopeOpenID, DefaultScope: true},
	{Scope: "profile"},
	{Scope: "email"},
	{Scope: "offline_access"},
}

// InitialiseSystem creates the system domain and its confidential client when they do not
// exist yet. The client secret is generated unless configured and only logged on creation.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	domain, err := s.initialiseSystemDomain()
	if err != nil {
		return errors.Wrap(err, "[Server.InitialiseSystem] failed to bootstrap system domain")
	}

	client, generatedSecret, err := s.initialiseSystemClient(domain)
	if err != nil {
		return errors.Wrap(err, "[Server.InitialiseSystem] failed to bootstrap system client")
	}

	if generatedSecret != "" {
		issuer := s.issuerFor(domain)
		log.Ctx(ctx).Info().
			Str("domain_id", domain.ID).
			Str("issuer", issuer).
			Str("token_endpoint", domainPath(issuer, RouteOAuth2Token)).
			Str("client_id", client.ID).
			Str("client_secret", generatedSecret).
			Msg("system client created, the secret will not be displayed again")
	}
	return nil
}

func (s *Server) initialiseSystemDomain() (*domains.Domain, error) {
	domainID := s.config.GetSystemDomainID()
	domain, err := s.deps.Domains.Get(domainID)
	if err == nil {
		return domain, nil
	}
	if !ierrors.IsNotFound(err) {
		return nil, errors.Wrapf(err, "[Server.initialiseSystemDomain] get %s", domainID)
	}

	domain = &domains.Domain{
		ID:     domainID,
		Name:   s.config.GetSystemDomainName(),
		Issuer: s.config.GetBaseURL() + "/" + domainID,
	}
	if err := s.deps.Domains.Upsert(domain); err != nil {
		return nil, errors.Wrapf(err, "[Server.initialiseSystemDomain] upsert %s", domainID)
	}
	return domain, nil
}

func (s *Server) initialiseSystemClient(domain *domains.Domain) (*clients.Client, string, error) {
	clientID := s.config.GetSystemClientID()
	existing, err := s.deps.Clients.Get(domain.ID, clientID)
	if err == nil {
		return existing, "", nil
	}
	if !ierrors.IsNotFound(err) {
		return nil, "", errors.Wrapf(err, "[Server.initialiseSystemClient] get %s", clientID)
	}

	secret := s.config.GetSystemClientSecret()
	generated := ""
	if secret == "" {
		secretBytes := make([]byte, 24)
		if _, err := rand.Read(secretBytes); err != nil {
			return nil, "", errors.Wrap(err, "[Server.initialiseSystemClient] failed to generate secret")
		}
		secret = base64.RawURLEncoding.EncodeToString(secretBytes)
		generated = secret
	}
	hash, err := clients.HashSecret(secret)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Server.initialiseSystemClient] failed to hash secret")
	}

	client := &clients.Client{
		ID:          clientID,
		Type:        clients.ClientTypeConfidential,
		Description: "System client",
		Secret:      hash,
		DomainID:    domain.ID,
		AuthorizedGrantTypes: []string{
			oauthmodel.ClientCredentialsGrant,
			oauthmodel.PasswordGrant,
			oauthmodel.RefreshTokenGrant,
			oauthmodel.CibaGrant,
		},
		ScopeSettings: systemClientScopes,
	}
	client.AuthorizedGrantTypes = append(client.AuthorizedGrantTypes, s.systemGrantTypes...)
	if err := s.deps.Clients.Upsert(client); err != nil {
		return nil, "", errors.Wrapf(err, "[Server.initialiseSystemClient] upsert %s", clientID)
	}
	return client, generated, nil
}
