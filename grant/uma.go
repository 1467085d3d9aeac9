package grant

import (
	"context"
	"slices"
	"strings"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/internal/utils"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/policy"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/jrsteele09/go-grant-server/tokenexchange"
	"github.com/jrsteele09/go-grant-server/uma"
	"github.com/jrsteele09/go-grant-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// claimTokenRequirement is returned with need_info when the claim token is missing or unusable.
var claimTokenRequirement = oauthmodel.RequiredClaim{
	ClaimTokenFormat: []string{oauthmodel.ClaimTokenFormatIDToken},
	ClaimType:        "sub",
	FriendlyName:     "Subject",
	Name:             "sub",
}

// UmaStrategy exchanges a permission ticket for an RPT, optionally upgrading a previous RPT.
type UmaStrategy struct {
	tickets   TicketStore
	resources ResourceGateway
	rules     RulesEngine
	decoder   TokenDecoder
	userStore UserGateway
	subjects  SubjectManager
}

var _ Strategy = (*UmaStrategy)(nil)

func NewUmaStrategy(tickets TicketStore, resources ResourceGateway, rules RulesEngine, decoder TokenDecoder, userStore UserGateway, subjects SubjectManager) (*UmaStrategy, error) {
	switch {
	case tickets == nil:
		return nil, errors.New("[NewUmaStrategy] ticket store is required")
	case resources == nil:
		return nil, errors.New("[NewUmaStrategy] resource gateway is required")
	case rules == nil:
		return nil, errors.New("[NewUmaStrategy] rules engine is required")
	case decoder == nil:
		return nil, errors.New("[NewUmaStrategy] token decoder is required")
	case userStore == nil:
		return nil, errors.New("[NewUmaStrategy] user gateway is required")
	case subjects == nil:
		return nil, errors.New("[NewUmaStrategy] subject manager is required")
	}
	return &UmaStrategy{
		tickets:   tickets,
		resources: resources,
		rules:     rules,
		decoder:   decoder,
		userStore: userStore,
		subjects:  subjects,
	}, nil
}

func (s *UmaStrategy) GrantType() string { return oauthmodel.UmaGrant }

func (s *UmaStrategy) Supports(grantType string, client *clients.Client, domain *domains.Domain) bool {
	return authorized(grantType, oauthmodel.UmaGrant, client) && domain.UMAEnabled()
}

func (s *UmaStrategy) Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error) {
	ticketID := strings.TrimSpace(req.Param(oauthmodel.ParamTicket))
	if ticketID == "" {
		return nil, oauthmodel.InvalidGrant("Missing parameter: ticket")
	}
	claimToken := req.Param(oauthmodel.ParamClaimToken)
	claimTokenFormat := req.Param(oauthmodel.ParamClaimTokenFormat)
	if (claimToken == "") != (claimTokenFormat == "") ||
		(claimTokenFormat != "" && claimTokenFormat != oauthmodel.ClaimTokenFormatIDToken) {
		return nil, oauthmodel.NeedInfo(ticketID, claimTokenRequirement)
	}
	if err := client.ValidateScopes(req.Scopes); err != nil {
		return nil, oauthmodel.InvalidScope("Invalid scope(s): %s", oauthmodel.JoinScopes(req.Scopes))
	}

	var (
		owner       *users.User
		claimClaims jwt.Claims
	)
	if claimToken != "" {
		claims, err := s.decoder.DecodeAndVerify(ctx, claimToken, jwt.UseIDToken)
		if err == nil {
			owner, err = tokenexchange.ResolveResourceOwner(ctx, s.userStore, domain.ID, claims)
		}
		if err != nil || owner == nil {
			log.Ctx(ctx).Debug().Err(err).Msg("claim token does not identify a user")
			return nil, oauthmodel.NeedInfo(ticketID, claimTokenRequirement)
		}
		claimClaims = claims
	}

	ticket, err := s.tickets.Remove(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.DomainID != domain.ID {
		return nil, oauthmodel.InvalidPermissionTicket("Permission ticket is invalid or expired")
	}

	registered := make(map[string]uma.Resource)
	if err := s.loadResources(ctx, ticket.ResourceIDs(), registered); err != nil {
		return nil, err
	}

	for _, scope := range req.Scopes {
		bound := false
		for _, r := range registered {
			if slices.Contains(r.ResourceScopes, scope) {
				bound = true
				break
			}
		}
		if !bound {
			return nil, oauthmodel.InvalidScope("Scope %s is not bound to the requested resources", scope)
		}
	}

	permissions := nominalPermissions(ticket.PermissionRequests, registered, req.Scopes)

	upgraded := false
	if rpt := req.Param(oauthmodel.ParamRPT); rpt != "" {
		rptClaims, err := s.decoder.DecodeAndVerify(ctx, rpt, jwt.UseAccessToken)
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("rpt rejected")
			return nil, oauthmodel.InvalidGrant("Requesting Party Token is invalid or expired")
		}
		expected := client.ID
		if owner != nil {
			expected = s.subjects.GenerateSubFrom(owner.SubjectID())
		}
		if rptClaims.Subject() != expected {
			return nil, oauthmodel.InvalidGrant("Requesting Party Token subject does not match the requesting party")
		}
		if aud := rptClaims.Audience(); len(aud) != 1 || aud[0] != client.ID {
			return nil, oauthmodel.InvalidGrant("Requesting Party Token audience does not match the client")
		}
		permissions = unionPermissions(permissions, rptClaims.Permissions())
		upgraded = true
	}

	// permissions carried over from the previous RPT must still be registered
	resourceIDs := make([]string, 0, len(permissions))
	var carried []string
	for _, p := range permissions {
		resourceIDs = append(resourceIDs, p.ResourceID)
		if _, ok := registered[p.ResourceID]; !ok {
			carried = append(carried, p.ResourceID)
		}
	}
	if err := s.loadResources(ctx, carried, registered); err != nil {
		return nil, err
	}

	policies, err := s.resources.FindAccessPoliciesByResources(ctx, resourceIDs)
	if err != nil {
		return nil, errors.Wrap(err, "[UmaStrategy.Process] FindAccessPoliciesByResources")
	}
	enabled := slices.DeleteFunc(policies, func(p uma.AccessPolicy) bool { return !p.Enabled })
	if len(enabled) > 0 {
		ec := policy.ExecutionContext{
			DomainID:    domain.ID,
			ClientID:    client.ID,
			Scopes:      req.Scopes,
			Permissions: permissions,
			Claims:      claimClaims,
		}
		if owner != nil {
			ec.Subject = owner.ID
			ec.User = userAttributes(owner)
		}
		if err := s.rules.Fire(ctx, enabled, ec); err != nil {
			log.Ctx(ctx).Info().Err(err).Str("ticket", ticketID).Msg("uma policy evaluation refused the grant")
			return nil, oauthmodel.InvalidGrant("Policy conditions are not met")
		}
	}

	var scopes []string
	for _, p := range permissions {
		scopes = utils.Union(scopes, p.ResourceScopes)
	}
	return &oauthmodel.TokenCreationRequest{
		ClientID:            client.ID,
		GrantType:           oauthmodel.UmaGrant,
		ResourceOwner:       owner,
		Scopes:              scopes,
		Resources:           req.Resources,
		SupportRefreshToken: owner != nil && supportsRefresh(client),
		Data: oauthmodel.UmaData{
			Ticket:      ticketID,
			Permissions: permissions,
			Upgraded:    upgraded,
		},
	}, nil
}

// loadResources adds the resources with the given ids to registered. Any id that is not
// registered any more fails the grant.
func (s *UmaStrategy) loadResources(ctx context.Context, ids []string, registered map[string]uma.Resource) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.resources.FindByResources(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "[UmaStrategy.loadResources] FindByResources")
	}
	for _, r := range found {
		registered[r.ID] = r
	}
	for _, id := range ids {
		if _, ok := registered[id]; !ok {
			return oauthmodel.InvalidGrant("Permission ticket resources no longer exist")
		}
	}
	return nil
}

// nominalPermissions is the ticket's permissions widened with the requested scopes each
// resource declares, one entry per resource in ticket order.
func nominalPermissions(requests []oauthmodel.Permission, registered map[string]uma.Resource, requested []string) []oauthmodel.Permission {
	index := make(map[string]int, len(requests))
	out := make([]oauthmodel.Permission, 0, len(requests))
	for _, pr := range requests {
		i, ok := index[pr.ResourceID]
		if !ok {
			i = len(out)
			index[pr.ResourceID] = i
			out = append(out, oauthmodel.Permission{ResourceID: pr.ResourceID})
		}
		out[i].ResourceScopes = utils.Union(out[i].ResourceScopes, pr.ResourceScopes)
	}
	for i := range out {
		extra := utils.Intersect(requested, registered[out[i].ResourceID].ResourceScopes)
		out[i].ResourceScopes = utils.Union(out[i].ResourceScopes, extra)
	}
	return out
}

// unionPermissions merges the permissions of a previous RPT into the new ones. Resources
// only present in the previous RPT are kept.
func unionPermissions(current, previous []oauthmodel.Permission) []oauthmodel.Permission {
	index := make(map[string]int, len(current))
	for i, p := range current {
		index[p.ResourceID] = i
	}
	for _, p := range previous {
		if i, ok := index[p.ResourceID]; ok {
			current[i].ResourceScopes = utils.Union(current[i].ResourceScopes, p.ResourceScopes)
			continue
		}
		index[p.ResourceID] = len(current)
		current = append(current, oauthmodel.Permission{
			ResourceID:     p.ResourceID,
			ResourceScopes: slices.Clone(p.ResourceScopes),
		})
	}
	return current
}

func userAttributes(u *users.User) map[string]any {
	attrs := map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"verified": u.Verified,
	}
	for k, v := range u.AdditionalInformation {
		if _, ok := attrs[k]; !ok {
			attrs[k] = v
		}
	}
	return attrs
}
