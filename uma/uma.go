// Package uma holds the UMA 2.0 resource server side state: registered resources,
// their access policies and the permission tickets issued against them.
package uma

import (
	"time"

	"github.com/jrsteele09/go-grant-server/oauthmodel"
)

// PermissionTicket is handed to a client that was refused access; it is redeemed once
// at the token endpoint for an RPT.
type PermissionTicket struct {
	ID                 string                  `json:"id"`
	DomainID           string                  `json:"domainId"`
	ClientID           string                  `json:"clientId"` // resource server that requested it
	UserID             string                  `json:"userId"`   // resource owner
	PermissionRequests []oauthmodel.Permission `json:"permissionRequests"`
	CreatedAt          time.Time               `json:"createdAt"`
	ExpiresAt          time.Time               `json:"expiresAt"`
}

// ResourceIDs returns the distinct resource ids of the ticket in request order.
func (t *PermissionTicket) ResourceIDs() []string {
	seen := make(map[string]bool, len(t.PermissionRequests))
	ids := make([]string, 0, len(t.PermissionRequests))
	for _, p := range t.PermissionRequests {
		if !seen[p.ResourceID] {
			seen[p.ResourceID] = true
			ids = append(ids, p.ResourceID)
		}
	}
	return ids
}

// Resource is a protected resource registered by a resource server.
type Resource struct {
	ID             string
	DomainID       string
	ClientID       string
	UserID         string // resource owner
	Name           string
	ResourceScopes []string
}

type PolicyType string

const (
	// PolicyTypeCEL conditions are CEL boolean expressions.
	PolicyTypeCEL PolicyType = "cel"
	// PolicyTypeCedar conditions are Cedar policy documents; access needs an Allow decision.
	PolicyTypeCedar PolicyType = "cedar"
)

// AccessPolicy guards a resource. Only enabled policies are evaluated.
type AccessPolicy struct {
	ID         string
	DomainID   string
	ResourceID string
	Name       string
	Enabled    bool
	Type       PolicyType
	Condition  string
	CreatedAt  time.Time
}
