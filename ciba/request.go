// Package ciba keeps the state of Client Initiated Backchannel Authentication requests
// between their creation and their redemption at the token endpoint.
package ciba

import (
	"time"
)

type Status string

const (
	StatusOngoing  Status = "ONGOING"
	StatusSuccess  Status = "SUCCESS"
	StatusRejected Status = "REJECTED"
)

// ExternalInfoACRValues is the key under which the approved acr values are kept.
const ExternalInfoACRValues = "acr_values"

// AuthRequest is a backchannel authentication request, identified by its auth_req_id.
type AuthRequest struct {
	ID           string
	DomainID     string
	ClientID     string
	Subject      string // local user id
	Scopes       []string
	Status       Status
	PollInterval time.Duration
	CreatedAt    time.Time
	LastAccessAt time.Time
	ExpiresAt    time.Time

	ExternalInformation map[string]any
}

// ACRValues returns the acr values recorded when the request was approved.
func (r *AuthRequest) ACRValues() []string {
	switch v := r.ExternalInformation[ExternalInfoACRValues].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
