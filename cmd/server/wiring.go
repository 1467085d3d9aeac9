package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-grant-server/authcode"
	"github.com/jrsteele09/go-grant-server/authflow"
	"github.com/jrsteele09/go-grant-server/ciba"
	fakeclientrepo "github.com/jrsteele09/go-grant-server/clients/fakerepo"
	domainrepofakes "github.com/jrsteele09/go-grant-server/domains/repofakes"
	"github.com/jrsteele09/go-grant-server/extgrant"
	"github.com/jrsteele09/go-grant-server/extgrant/jwtbearer"
	"github.com/jrsteele09/go-grant-server/grant"
	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/jrsteele09/go-grant-server/internal/onetime"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/policy"
	"github.com/jrsteele09/go-grant-server/server"
	"github.com/jrsteele09/go-grant-server/subject"
	"github.com/jrsteele09/go-grant-server/token"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/jrsteele09/go-grant-server/token/keys"
	"github.com/jrsteele09/go-grant-server/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-grant-server/token/refresh/repofake"
	"github.com/jrsteele09/go-grant-server/tokenexchange"
	"github.com/jrsteele09/go-grant-server/uma"
	"github.com/jrsteele09/go-grant-server/users"
	fakeuserrepo "github.com/jrsteele09/go-grant-server/users/repofake"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	cacheCleanupInterval = time.Minute
	policyCacheTTL       = 10 * time.Minute
)

type app struct {
	handler http.Handler
	closers []func() error
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

// oneTimeStores are the single use artifact stores, shared by every domain.
type oneTimeStores struct {
	codes   onetime.Store[authcode.AuthorizationCode]
	tickets onetime.Store[uma.PermissionTicket]
}

func newOneTimeStores(ctx context.Context, c config.StoreConfig, a *app) (oneTimeStores, error) {
	switch c.GetStoreBackend() {
	case config.StoreBackendMemory:
		return oneTimeStores{
			codes:   onetime.NewMemoryStore[authcode.AuthorizationCode](cacheCleanupInterval),
			tickets: onetime.NewMemoryStore[uma.PermissionTicket](cacheCleanupInterval),
		}, nil
	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return oneTimeStores{}, errors.Wrapf(err, "[newOneTimeStores] redis ping %s", c.GetRedisAddr())
		}
		a.closers = append(a.closers, client.Close)
		return oneTimeStores{
			codes:   onetime.NewRedisStore[authcode.AuthorizationCode](client, "grant:code:"),
			tickets: onetime.NewRedisStore[uma.PermissionTicket](client, "grant:ticket:"),
		}, nil
	default:
		return oneTimeStores{}, errors.Errorf("[newOneTimeStores] unknown store backend %q", c.GetStoreBackend())
	}
}

// build wires the grant engine, the token minter and the HTTP server.
func build(ctx context.Context, c config.Config) (_ *app, returnError error) {
	a := &app{}
	defer func() {
		if returnError != nil {
			a.close()
		}
	}()

	keyPair, err := keys.LoadOrGenerate(c.GetSigningKeyID(), c.GetSigningKeyFile())
	if err != nil {
		return nil, err
	}
	signer := keys.NewKeyPairSigner(keyPair)
	revoked := token.NewInMemoryRevokedTokenCache(cacheCleanupInterval)
	creator, err := jwt.NewCreator(c, signer)
	if err != nil {
		return nil, err
	}
	verifier, err := jwt.NewVerifier(signer, revoked)
	if err != nil {
		return nil, err
	}

	stores, err := newOneTimeStores(ctx, c, a)
	if err != nil {
		return nil, err
	}

	domainRepo := domainrepofakes.NewFakeDomainRepo()
	clientRepo := fakeclientrepo.NewFakeClientRepo()
	userRepo := fakeuserrepo.NewFakeUserRepo()
	userService, err := users.NewService(userRepo)
	if err != nil {
		return nil, err
	}
	subjects := subject.NewManager(c.GetSubjectNamespace())
	refreshManager := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), c)

	codes, err := authcode.NewService(stores.codes, c)
	if err != nil {
		return nil, err
	}
	cibaService, err := ciba.NewService(ciba.NewInMemoryRepo(cacheCleanupInterval), c)
	if err != nil {
		return nil, err
	}
	resources := uma.NewInMemoryResourceRepo()
	tickets, err := uma.NewTicketService(stores.tickets, resources, c)
	if err != nil {
		return nil, err
	}
	rules, err := policy.NewEngine(policyCacheTTL)
	if err != nil {
		return nil, err
	}
	exchanger, err := tokenexchange.NewService(verifier)
	if err != nil {
		return nil, err
	}

	extensions, systemGrantTypes, err := extensionGrants(ctx, c)
	if err != nil {
		return nil, err
	}

	metrics, err := grant.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	dispatcher, err := grant.NewDefaultDispatcher(grant.Collaborators{
		Codes:         codes,
		Flows:         authflow.NewInMemoryRepo(cacheCleanupInterval),
		RefreshTokens: refreshManager,
		Users:         userService,
		Ciba:          cibaService,
		Tickets:       tickets,
		Resources:     resources,
		Rules:         rules,
		Decoder:       verifier,
		Subjects:      subjects,
		Exchanger:     exchanger,
	}, extensions, grant.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	minter, err := token.NewMinter(creator, refreshManager, subjects)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(c, server.Deps{
		Domains:       domainRepo,
		Clients:       clientRepo,
		Users:         userRepo,
		Dispatcher:    dispatcher,
		Minter:        minter,
		RefreshTokens: refreshManager,
		Decoder:       verifier,
		Revoked:       revoked,
		Keys:          signer,
		Ciba:          cibaService,
		Metrics:       promhttp.Handler(),
	}, server.WithSystemGrantTypes(systemGrantTypes...))
	if err != nil {
		return nil, err
	}
	if err := srv.InitialiseSystem(ctx); err != nil {
		return nil, err
	}
	a.handler = srv
	return a, nil
}

// extensionGrants returns the configured extension grants of the system domain and the
// grant type tokens the system client is authorized for.
func extensionGrants(ctx context.Context, c config.Config) ([]grant.ExtensionGrantBinding, []string, error) {
	if !c.GetJWTBearerEnabled() {
		return nil, nil, nil
	}
	provider, err := jwtbearer.New(ctx, jwtbearer.Config{
		Issuer:       c.GetJWTBearerIssuer(),
		Audience:     c.GetJWTBearerAudience(),
		JWKSURL:      c.GetJWTBearerJWKSURL(),
		ClaimsMapper: map[string]string{subject.InternalSubClaim: subject.InternalSubClaim},
	})
	if err != nil {
		return nil, nil, err
	}
	g := extgrant.ExtensionGrant{
		ID:               c.GetJWTBearerID(),
		DomainID:         c.GetSystemDomainID(),
		Name:             "JWT bearer",
		GrantType:        oauthmodel.JWTBearerGrant,
		CreatedAt:        time.Now(),
		IdentityProvider: c.GetJWTBearerIdentityProvider(),
		CreateUser:       c.GetJWTBearerCreateUser(),
		UserExists:       !c.GetJWTBearerCreateUser() && c.GetJWTBearerIdentityProvider() != "",
	}
	log.Ctx(ctx).Info().Str("issuer", c.GetJWTBearerIssuer()).Str("grant", g.AuthorizedGrantType()).Msg("jwt bearer extension grant enabled")
	return []grant.ExtensionGrantBinding{{Grant: g, Provider: provider}}, []string{g.AuthorizedGrantType()}, nil
}
