package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// errorResponse is the RFC 6749 section 5.2 error body. Ticket and RequiredClaims are
// the UMA need_info extension.
type errorResponse struct {
	Error          string                     `json:"error"`
	Description    string                     `json:"error_description,omitempty"`
	Ticket         string                     `json:"ticket,omitempty"`
	RequiredClaims []oauthmodel.RequiredClaim `json:"required_claims,omitempty"`
}

// backchannelResponse answers a CIBA authentication request (CIBA Core section 7.3).
type backchannelResponse struct {
	AuthReqID string `json:"auth_req_id"`
	ExpiresIn int    `json:"expires_in"`
	Interval  int    `json:"interval,omitempty"`
}

// Token validates the request with the grant dispatcher and mints the resulting tokens.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		domain, err := s.domainFromRequest(r)
		if err != nil {
			writeJSONError(w, "invalid_request", "Unknown domain", http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}

		client, err := s.authenticateClient(r, domain)
		if err != nil {
			s.writeOAuthError(w, r, err)
			return
		}

		req := oauthmodel.NewTokenRequest(client.ID, r.PostForm)
		if req.GrantType == "" {
			s.writeOAuthError(w, r, oauthmodel.InvalidRequest("Missing grant_type parameter"))
			return
		}

		creation, err := s.deps.Dispatcher.Process(ctx, req, client, domain)
		if err != nil {
			s.writeOAuthError(w, r, err)
			return
		}
		resp, err := s.deps.Minter.Mint(ctx, domain, creation)
		if err != nil {
			s.writeOAuthError(w, r, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, resp)
	}
}

// Revoke implements RFC 7009. Access tokens are remembered as revoked until they expire,
// anything else is treated as a refresh token. Unknown tokens are not an error.
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		domain, err := s.domainFromRequest(r)
		if err != nil {
			writeJSONError(w, "invalid_request", "Unknown domain", http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}
		client, err := s.authenticateClient(r, domain)
		if err != nil {
			s.writeOAuthError(w, r, err)
			return
		}

		value := strings.TrimSpace(r.PostForm.Get("token"))
		if value == "" {
			s.writeOAuthError(w, r, oauthmodel.InvalidRequest("Missing token parameter"))
			return
		}

		if s.revokeAccessToken(r, value, client.ID) {
			w.WriteHeader(http.StatusOK)
			return
		}
		if err := s.deps.RefreshTokens.Revoke(ctx, value, client); err != nil {
			s.writeOAuthError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// revokeAccessToken reports whether value was an access token of the client and is now revoked.
func (s *Server) revokeAccessToken(r *http.Request, value, clientID string) bool {
	if s.deps.Decoder == nil || s.deps.Revoked == nil || strings.Count(value, ".") != 2 {
		return false
	}
	claims, err := s.deps.Decoder.DecodeAndVerify(r.Context(), value, jwt.UseAccessToken)
	if err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Msg("revocation of an unverifiable token")
		return errors.Is(err, ierrors.ErrTokenExpired)
	}
	if claims.ClientID() != clientID {
		return true
	}
	if err := s.deps.Revoked.Add(claims.ID(), claims.ExpiresAt()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("jti", claims.ID()).Msg("failed to revoke access token")
	}
	return true
}

// JWKS returns the JSON Web Key Set used to validate tokens
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.domainFromRequest(r); err != nil {
			writeJSONError(w, "invalid_request", "Unknown domain", http.StatusNotFound)
			return
		}
		jwks, err := s.deps.Keys.GetJWKS()
		if err != nil {
			s.writeOAuthError(w, r, errors.Wrap(err, "[Server.JWKS] GetJWKS"))
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, jwks)
	}
}

// WellKnownOpenIDConfig serves the discovery document of a domain.
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domain, err := s.domainFromRequest(r)
		if err != nil {
			writeJSONError(w, "invalid_request", "Unknown domain", http.StatusNotFound)
			return
		}
		issuer := s.issuerFor(domain)

		grantTypes := []string{
			oauthmodel.AuthorizationCodeGrant,
			oauthmodel.RefreshTokenGrant,
			oauthmodel.ClientCredentialsGrant,
			oauthmodel.PasswordGrant,
		}
		resp := map[string]any{
			"issuer":         issuer,
			"token_endpoint": domainPath(issuer, RouteOAuth2Token),
			"jwks_uri":       domainPath(issuer, RouteWellKnownJWKS),

			"token_endpoint_auth_methods_supported": []string{"client_secret_basic", "client_secret_post", "none"},
			"id_token_signing_alg_values_supported": []string{"RS256"},
			"subject_types_supported":               []string{"public"},
			"code_challenge_methods_supported":      []string{string(oauthmodel.CodeMethodTypeS256), string(oauthmodel.CodeMethodTypePlain)},
		}
		if s.deps.RefreshTokens != nil {
			resp["revocation_endpoint"] = domainPath(issuer, RouteOAuth2Revoke)
		}
		if s.deps.Ciba != nil && s.deps.Users != nil {
			grantTypes = append(grantTypes, oauthmodel.CibaGrant)
			resp["backchannel_authentication_endpoint"] = domainPath(issuer, RouteBackchannelAuthorize)
			resp["backchannel_token_delivery_modes_supported"] = []string{"poll"}
		}
		if domain.TokenExchangeEnabled() {
			grantTypes = append(grantTypes, oauthmodel.TokenExchangeGrant)
		}
		if domain.UMAEnabled() {
			grantTypes = append(grantTypes, oauthmodel.UmaGrant)
		}
		resp["grant_types_supported"] = grantTypes

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, resp)
	}
}

// BackchannelAuthorize starts a CIBA poll mode request for the user named by login_hint.
// The user approves or rejects it out of band; the client polls the token endpoint.
func (s *Server) BackchannelAuthorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		domain, err := s.domainFromRequest(r)
		if err != nil {
			writeJSONError(w, "invalid_request", "Unknown domain", http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}
		client, err := s.authenticateClient(r, domain)
		if err != nil {
			s.writeOAuthError(w, r, err)
			return
		}
		if !client.AuthorizesGrantType(oauthmodel.CibaGrant) {
			s.writeOAuthError(w, r, oauthmodel.UnauthorizedClient("Client is not authorized for CIBA"))
			return
		}

		scopes := oauthmodel.ParseScopes(r.PostForm.Get(oauthmodel.ParamScope))
		if len(scopes) == 0 {
			scopes = client.DefaultScopes()
		}
		if !slices.Contains(scopes, oauthmodel.ScopeOpenID) {
			s.writeOAuthError(w, r, oauthmodel.InvalidScope("The openid scope is required"))
			return
		}
		if err := client.ValidateScopes(scopes); err != nil {
			s.writeOAuthError(w, r, oauthmodel.InvalidScope("Invalid scope(s): %s", oauthmodel.JoinScopes(scopes)))
			return
		}

		loginHint := strings.TrimSpace(r.PostForm.Get("login_hint"))
		if loginHint == "" {
			s.writeOAuthError(w, r, oauthmodel.InvalidRequest("Missing login_hint parameter"))
			return
		}
		user, err := s.deps.Users.GetByUsername(domain.ID, loginHint)
		if ierrors.IsNotFound(err) {
			writeJSONError(w, "unknown_user_id", "The login_hint does not identify a known user", http.StatusBadRequest)
			return
		}
		if err != nil {
			s.writeOAuthError(w, r, errors.Wrap(err, "[Server.BackchannelAuthorize] GetByUsername"))
			return
		}
		if user.Blocked {
			s.writeOAuthError(w, r, oauthmodel.AuthorizationRejected("User is blocked"))
			return
		}

		req, err := s.deps.Ciba.Create(ctx, domain.ID, client.ID, user.ID, scopes)
		if err != nil {
			s.writeOAuthError(w, r, err)
			return
		}
		log.Ctx(ctx).Info().Str("auth_req_id", req.ID).Str("client_id", client.ID).Msg("backchannel authentication requested")

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, backchannelResponse{
			AuthReqID: req.ID,
			ExpiresIn: int(time.Until(req.ExpiresAt).Round(time.Second).Seconds()),
			Interval:  int(req.PollInterval.Seconds()),
		})
	}
}

// writeOAuthError answers with the wire form of a protocol error. Anything else is a
// server_error and is logged.
func (s *Server) writeOAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var oerr *oauthmodel.Error
	if !errors.As(err, &oerr) {
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeJSONError(w, "server_error", "Internal server error", http.StatusInternalServerError)
		return
	}
	if oerr.Kind == oauthmodel.KindInvalidClient && r.Header.Get("Authorization") != "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+r.PathValue("domain")+`"`)
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, oerr.HTTPStatus(), errorResponse{
		Error:          oerr.Code(),
		Description:    oerr.Description,
		Ticket:         oerr.Ticket,
		RequiredClaims: oerr.RequiredClaims,
	})
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, errorResponse{Error: errorCode, Description: description})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
