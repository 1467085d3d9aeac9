package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/pkg/errors"
)

var errUnknownDomain = errors.New("unknown domain")

// authenticateClient authenticates the caller with client_secret_basic or
// client_secret_post. Public clients identify themselves with client_id alone.
// The request form must already be parsed.
func (s *Server) authenticateClient(r *http.Request, domain *domains.Domain) (*clients.Client, error) {
	clientID, secret, basic := r.BasicAuth()
	if basic {
		if r.PostForm.Get(oauthmodel.ParamClientSecret) != "" {
			return nil, oauthmodel.InvalidRequest("Only one client authentication method may be used")
		}
		var err error
		// RFC 6749 section 2.3.1 form-encodes both parts before building the header
		if clientID, err = url.QueryUnescape(clientID); err != nil {
			return nil, oauthmodel.InvalidClient("Malformed client credentials")
		}
		if secret, err = url.QueryUnescape(secret); err != nil {
			return nil, oauthmodel.InvalidClient("Malformed client credentials")
		}
		if formID := r.PostForm.Get(oauthmodel.ParamClientID); formID != "" && formID != clientID {
			return nil, oauthmodel.InvalidClient("client_id does not match the authenticated client")
		}
	} else {
		clientID = r.PostForm.Get(oauthmodel.ParamClientID)
		secret = r.PostForm.Get(oauthmodel.ParamClientSecret)
	}
	if clientID == "" {
		return nil, oauthmodel.InvalidClient("Client authentication failed")
	}

	client, err := s.deps.Clients.Get(domain.ID, clientID)
	if ierrors.IsNotFound(err) {
		return nil, oauthmodel.InvalidClient("Client authentication failed")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "[Server.authenticateClient] client %s", clientID)
	}

	if client.IsPublic() {
		if secret != "" {
			return nil, oauthmodel.InvalidClient("Public clients do not authenticate with a secret")
		}
		return client, nil
	}
	if !client.CheckSecret(secret) {
		return nil, oauthmodel.InvalidClient("Client authentication failed")
	}
	return client, nil
}
