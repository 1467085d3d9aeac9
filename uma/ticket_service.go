package uma

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-grant-server/internal/config"
	"github.com/jrsteele09/go-grant-server/internal/onetime"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/pkg/errors"
)

// ErrUnknownResource is returned when a permission request names a resource that is not
// registered, or a scope the resource does not declare.
var ErrUnknownResource = errors.New("unknown resource or resource scope")

// TicketService issues permission tickets and redeems them exactly once.
type TicketService struct {
	store     onetime.Store[PermissionTicket]
	resources ResourceRepo
	config    config.OAuthConfig
	nowTime   func() time.Time
}

// TicketServiceOption defines a function type to modify the TicketService instance.
type TicketServiceOption func(*TicketService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) TicketServiceOption {
	return func(s *TicketService) {
		s.nowTime = nowFunc
	}
}

func NewTicketService(store onetime.Store[PermissionTicket], resources ResourceRepo, cfg config.OAuthConfig, options ...TicketServiceOption) (*TicketService, error) {
	if store == nil {
		return nil, errors.New("[NewTicketService] ticket store is required")
	}
	if resources == nil {
		return nil, errors.New("[NewTicketService] resource repo is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewTicketService] config is required")
	}
	s := &TicketService{store: store, resources: resources, config: cfg, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Create checks the requested resources and scopes against the registered resources of
// the domain and stores a new ticket.
func (s *TicketService) Create(ctx context.Context, domainID, clientID string, requests []oauthmodel.Permission) (*PermissionTicket, error) {
	if len(requests) == 0 {
		return nil, errors.Wrap(ErrUnknownResource, "[TicketService.Create] no permission requested")
	}
	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ResourceID)
	}
	found, err := s.resources.FindByResources(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "[TicketService.Create] FindByResources")
	}
	byID := make(map[string]Resource, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}

	var owner string
	for _, req := range requests {
		res, ok := byID[req.ResourceID]
		if !ok || res.DomainID != domainID {
			return nil, errors.Wrapf(ErrUnknownResource, "[TicketService.Create] resource %s", req.ResourceID)
		}
		for _, scope := range req.ResourceScopes {
			if !slices.Contains(res.ResourceScopes, scope) {
				return nil, errors.Wrapf(ErrUnknownResource, "[TicketService.Create] scope %s on resource %s", scope, req.ResourceID)
			}
		}
		owner = res.UserID
	}

	now := s.nowTime()
	ticket := PermissionTicket{
		ID:                 uuid.NewString(),
		DomainID:           domainID,
		ClientID:           clientID,
		UserID:             owner,
		PermissionRequests: requests,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.config.GetPermissionTicketTimeout()),
	}
	if err := s.store.Put(ctx, ticket.ID, ticket, s.config.GetPermissionTicketTimeout()); err != nil {
		return nil, errors.Wrap(err, "[TicketService.Create] store.Put")
	}
	return &ticket, nil
}

// Remove consumes the ticket. An unknown, expired or already used ticket is an
// InvalidPermissionTicket error.
func (s *TicketService) Remove(ctx context.Context, ticketID string) (*PermissionTicket, error) {
	ticket, ok, err := s.store.Take(ctx, ticketID)
	if err != nil {
		return nil, errors.Wrap(err, "[TicketService.Remove] store.Take")
	}
	if !ok || !s.nowTime().Before(ticket.ExpiresAt) {
		return nil, oauthmodel.InvalidPermissionTicket("Permission ticket is invalid or expired")
	}
	return &ticket, nil
}
