package grant_test

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/subject"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/jrsteele09/go-grant-server/token/keys"
	"github.com/jrsteele09/go-grant-server/users"
	fakeuserrepo "github.com/jrsteele09/go-grant-server/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testDomainID = "acme"
	testClientID = "client-1"
)

var (
	keyOnce sync.Once
	keyPair *keys.KeyPair
	keyErr  error
)

func testSigner(t *testing.T) keys.Signer {
	t.Helper()
	keyOnce.Do(func() {
		keyPair, keyErr = keys.GenerateRSAKeyPair("test-key", 2048)
	})
	require.NoError(t, keyErr)
	return keys.NewKeyPairSigner(keyPair)
}

type fixture struct {
	cfg      config.Config
	domain   *domains.Domain
	userRepo *fakeuserrepo.FakeUserRepo
	users    *users.Service
	subjects *subject.Manager
	creator  *jwt.Creator
	verifier *jwt.Verifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.New("")
	require.NoError(t, err)

	repo := fakeuserrepo.NewFakeUserRepo()
	userService, err := users.NewService(repo)
	require.NoError(t, err)

	signer := testSigner(t)
	creator, err := jwt.NewCreator(cfg, signer)
	require.NoError(t, err)
	verifier, err := jwt.NewVerifier(signer, nil)
	require.NoError(t, err)

	return &fixture{
		cfg: cfg,
		domain: &domains.Domain{
			ID:     testDomainID,
			Name:   "Acme",
			Issuer: "https://auth.example.com/acme",
		},
		userRepo: repo,
		users:    userService,
		subjects: subject.NewManager("urn:test"),
		creator:  creator,
		verifier: verifier,
	}
}

func (f *fixture) addUser(t *testing.T, username, password string) *users.User {
	t.Helper()
	hash, err := users.HashPassword(password)
	require.NoError(t, err)
	u := &users.User{
		DomainID:     testDomainID,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, f.userRepo.Upsert(u))
	return u
}

func newClient(grantTypes ...string) *clients.Client {
	return &clients.Client{
		ID:                   testClientID,
		Type:                 clients.ClientTypeConfidential,
		DomainID:             testDomainID,
		AuthorizedGrantTypes: grantTypes,
	}
}

func withScopes(c *clients.Client, scopes ...string) *clients.Client {
	for _, s := range scopes {
		c.ScopeSettings = append(c.ScopeSettings, clients.ScopeSetting{Scope: s})
	}
	return c
}

// tokenRequest builds a request from alternating parameter names and values.
func tokenRequest(grantType string, kv ...string) oauthmodel.TokenRequest {
	form := url.Values{oauthmodel.ParamGrantType: {grantType}}
	for i := 0; i+1 < len(kv); i += 2 {
		form.Add(kv[i], kv[i+1])
	}
	return oauthmodel.NewTokenRequest(testClientID, form)
}

func requireKind(t *testing.T, err error, kind oauthmodel.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, oauthmodel.KindOf(err), "unexpected error: %v", err)
}
