package server

// Route path constants. Domain scoped routes are prefixed with "/{domain}".
const (
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"

	// OAuth2 / OIDC Routes
	RouteWellKnownOpenIDConfig = "/{domain}/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/{domain}/.well-known/jwks.json"
	RouteOAuth2Token           = "/{domain}/oauth/token"
	RouteOAuth2Revoke          = "/{domain}/oauth/revoke"
	RouteBackchannelAuthorize  = "/{domain}/oauth/bc-authorize"
)

// domainPath turns a route constant into the path for a concrete domain.
func domainPath(issuer, route string) string {
	const prefix = "/{domain}"
	if len(route) >= len(prefix) && route[:len(prefix)] == prefix {
		route = route[len(prefix):]
	}
	return issuer + route
}
