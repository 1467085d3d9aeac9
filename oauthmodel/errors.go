package oauthmodel

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorKind classifies protocol failures raised while processing a token request.
type ErrorKind int

const (
	KindInvalidRequest ErrorKind = iota + 1
	KindInvalidGrant
	KindInvalidScope
	KindInvalidTarget
	KindUnauthorizedClient
	KindInvalidClient
	KindNeedInfo
	KindAuthorizationRejected
	KindAuthorizationPending
	KindSlowDown
	KindExpiredToken
	KindInvalidPermissionTicket
)

var kindCodes = map[ErrorKind]string{
	KindInvalidRequest:          "invalid_request",
	KindInvalidGrant:            "invalid_grant",
	KindInvalidScope:            "invalid_scope",
	KindInvalidTarget:           "invalid_target",
	KindUnauthorizedClient:      "unauthorized_client",
	KindInvalidClient:           "invalid_client",
	KindNeedInfo:                "need_info",
	KindAuthorizationRejected:   "access_denied",
	KindAuthorizationPending:    "authorization_pending",
	KindSlowDown:                "slow_down",
	KindExpiredToken:            "expired_token",
	KindInvalidPermissionTicket: "invalid_grant",
}

// Code returns the OAuth2/UMA wire error code for the kind.
func (k ErrorKind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return "server_error"
}

// RequiredClaim describes a claim the requesting party must still present (UMA 2.0 section 3.3.6).
type RequiredClaim struct {
	ClaimTokenFormat []string `json:"claim_token_format,omitempty"`
	ClaimType        string   `json:"claim_type,omitempty"`
	FriendlyName     string   `json:"friendly_name,omitempty"`
	Issuer           []string `json:"issuer,omitempty"`
	Name             string   `json:"name,omitempty"`
}

// Error is a protocol-level failure. The kind decides the wire code and HTTP status;
// Ticket and RequiredClaims are only set for need_info.
type Error struct {
	Kind           ErrorKind
	Description    string
	Ticket         string
	RequiredClaims []RequiredClaim
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Kind.Code()
	}
	return e.Kind.Code() + ": " + e.Description
}

// Code returns the wire error code.
func (e *Error) Code() string {
	return e.Kind.Code()
}

// HTTPStatus returns the status the token endpoint answers with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidClient:
		return http.StatusUnauthorized
	case KindNeedInfo:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	desc := format
	if len(args) > 0 {
		desc = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Description: desc}
}

func InvalidRequest(format string, args ...any) *Error {
	return newError(KindInvalidRequest, format, args...)
}

func InvalidGrant(format string, args ...any) *Error {
	return newError(KindInvalidGrant, format, args...)
}

func InvalidScope(format string, args ...any) *Error {
	return newError(KindInvalidScope, format, args...)
}

func InvalidTarget(format string, args ...any) *Error {
	return newError(KindInvalidTarget, format, args...)
}

func UnauthorizedClient(format string, args ...any) *Error {
	return newError(KindUnauthorizedClient, format, args...)
}

func InvalidClient(format string, args ...any) *Error {
	return newError(KindInvalidClient, format, args...)
}

func AuthorizationRejected(format string, args ...any) *Error {
	return newError(KindAuthorizationRejected, format, args...)
}

func AuthorizationPending(format string, args ...any) *Error {
	return newError(KindAuthorizationPending, format, args...)
}

func SlowDown(format string, args ...any) *Error {
	return newError(KindSlowDown, format, args...)
}

func ExpiredToken(format string, args ...any) *Error {
	return newError(KindExpiredToken, format, args...)
}

func InvalidPermissionTicket(format string, args ...any) *Error {
	return newError(KindInvalidPermissionTicket, format, args...)
}

// NeedInfo asks the client to come back with more claims for the given ticket.
func NeedInfo(ticket string, claims ...RequiredClaim) *Error {
	return &Error{
		Kind:           KindNeedInfo,
		Description:    "The authorization server needs additional information",
		Ticket:         ticket,
		RequiredClaims: claims,
	}
}

// KindOf returns the protocol kind carried by err, or 0 for technical errors.
func KindOf(err error) ErrorKind {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr.Kind
	}
	return 0
}

// IsKind reports whether err carries the given protocol kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
