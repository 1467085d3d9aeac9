package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-grant-server/ciba"
	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/grant"
	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/token"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/jrsteele09/go-grant-server/token/keys"
	"github.com/jrsteele09/go-grant-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TokenProcessor validates a token request and returns what should be minted.
type TokenProcessor interface {
	Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error)
}

type TokenMinter interface {
	Mint(ctx context.Context, domain *domains.Domain, req *oauthmodel.TokenCreationRequest) (*token.TokenResponse, error)
}

type RefreshRevoker interface {
	Revoke(ctx context.Context, value string, client *clients.Client) error
}

type TokenDecoder interface {
	DecodeAndVerify(ctx context.Context, raw string, use jwt.TokenUse) (jwt.Claims, error)
}

type JWKSProvider interface {
	GetJWKS() (*keys.JWKS, error)
}

type BackchannelRequests interface {
	Create(ctx context.Context, domainID, clientID, userID string, scopes []string) (*ciba.AuthRequest, error)
}

// Deps are the collaborators the endpoints are served from. Ciba and Users are optional;
// without them the backchannel authentication endpoint is not registered.
type Deps struct {
	Domains       domains.Repo
	Clients       clients.Repo
	Users         users.UserRepo
	Dispatcher    TokenProcessor
	Minter        TokenMinter
	RefreshTokens RefreshRevoker
	Decoder       TokenDecoder
	Revoked       token.RevokedTokenCache
	Keys          JWKSProvider
	Ciba          BackchannelRequests
	Metrics       http.Handler
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	deps   Deps

	systemGrantTypes []string
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithSystemGrantTypes authorizes the system client for additional grant type tokens,
// typically "<urn>~<id>" of configured extension grants.
func WithSystemGrantTypes(grantTypes ...string) Option {
	return func(s *Server) {
		s.systemGrantTypes = append(s.systemGrantTypes, grantTypes...)
	}
}

func New(cfg config.Config, deps Deps, options ...Option) (*Server, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("[server.New] config is required")
	case deps.Domains == nil:
		return nil, errors.New("[server.New] domains repo is required")
	case deps.Clients == nil:
		return nil, errors.New("[server.New] clients repo is required")
	case deps.Dispatcher == nil:
		return nil, errors.New("[server.New] dispatcher is required")
	case deps.Minter == nil:
		return nil, errors.New("[server.New] minter is required")
	case deps.Keys == nil:
		return nil, errors.New("[server.New] key set is required")
	}

	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		deps:   deps,
	}
	for _, opt := range options {
		opt(s)
	}
	s.initRoutes()
	s.logRoutes()
	return s, nil
}

// Compile time checks that the engine types fit the endpoint dependencies.
var (
	_ TokenProcessor = (*grant.Dispatcher)(nil)
	_ TokenMinter    = (*token.Minter)(nil)
	_ JWKSProvider   = (*keys.KeyPairSigner)(nil)
)

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// domainFromRequest resolves the {domain} path segment.
func (s *Server) domainFromRequest(r *http.Request) (*domains.Domain, error) {
	domainID := r.PathValue("domain")
	if domainID == "" {
		return nil, errUnknownDomain
	}
	domain, err := s.deps.Domains.Get(domainID)
	if err != nil {
		return nil, errors.Wrapf(errUnknownDomain, "%s: %v", domainID, err)
	}
	return domain, nil
}

// issuerFor returns the domain issuer, defaulting to <base url>/<domain id>.
func (s *Server) issuerFor(domain *domains.Domain) string {
	if domain.Issuer != "" {
		return strings.TrimSuffix(domain.Issuer, "/")
	}
	return s.config.GetBaseURL() + "/" + domain.ID
}
