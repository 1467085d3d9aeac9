package oauthmodel

import (
	"net/url"
	"strings"
)

// TokenRequest holds the parameters of a request made to the /token endpoint.
// Strategies read it but never modify it.
type TokenRequest struct {
	// GrantType selects the strategy, e.g. "authorization_code" or an extension grant URN.
	GrantType string

	// ClientID is the authenticated client making the request.
	ClientID string

	// Scopes requested with the "scope" parameter, de-duplicated in request order.
	Scopes []string

	// Resources are the RFC 8707 "resource" indicators, de-duplicated in request order.
	Resources []string

	// Parameters holds every form parameter as received, including the grant specific ones.
	Parameters url.Values
}

// NewTokenRequest builds a TokenRequest from the form values of a token call.
func NewTokenRequest(clientID string, form url.Values) TokenRequest {
	params := url.Values{}
	for k, v := range form {
		params[k] = append([]string(nil), v...)
	}
	return TokenRequest{
		GrantType:  form.Get(ParamGrantType),
		ClientID:   clientID,
		Scopes:     ParseScopes(form.Get(ParamScope)),
		Resources:  dedup(form[ParamResource]),
		Parameters: params,
	}
}

// Param returns the first value of the named parameter.
func (r TokenRequest) Param(name string) string {
	if r.Parameters == nil {
		return ""
	}
	return r.Parameters.Get(name)
}

// HasParam reports whether the parameter was sent at all, even with an empty value.
func (r TokenRequest) HasParam(name string) bool {
	_, ok := r.Parameters[name]
	return ok
}

// ParseScopes splits a space separated scope string.
func ParseScopes(scope string) []string {
	return dedup(strings.Fields(scope))
}

// JoinScopes is the inverse of ParseScopes.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

func dedup(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
