package grant

import (
	"context"
	"sort"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/extgrant"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/subject"
	"github.com/jrsteele09/go-grant-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OldestExtensionGrantIDs maps each extension grant type to the id of its oldest grant.
// Only that grant answers clients authorized for the bare grant type.
func OldestExtensionGrantIDs(grants []extgrant.ExtensionGrant) map[string]string {
	sorted := append([]extgrant.ExtensionGrant(nil), grants...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	oldest := make(map[string]string)
	for _, g := range sorted {
		key := g.DomainID + "/" + g.GrantType
		if _, ok := oldest[key]; !ok {
			oldest[key] = g.ID
		}
	}
	return oldest
}

// IsOldest reports whether g is the oldest grant of its type in its domain.
func IsOldest(oldest map[string]string, g extgrant.ExtensionGrant) bool {
	return oldest[g.DomainID+"/"+g.GrantType] == g.ID
}

// ExtensionGrantStrategy serves one configured extension grant. Without a subject manager
// it runs in legacy mode and never links created users to an external identity.
type ExtensionGrantStrategy struct {
	grant     extgrant.ExtensionGrant
	provider  extgrant.Provider
	userStore UserGateway
	subjects  SubjectManager
	oldest    bool
}

var _ Strategy = (*ExtensionGrantStrategy)(nil)

// ExtensionGrantOption defines a function type to modify the ExtensionGrantStrategy instance.
type ExtensionGrantOption func(*ExtensionGrantStrategy)

// WithSubjectManager enables external identity linking.
func WithSubjectManager(subjects SubjectManager) ExtensionGrantOption {
	return func(s *ExtensionGrantStrategy) {
		s.subjects = subjects
	}
}

// NewExtensionGrantStrategy builds the strategy; oldest tells whether g is the oldest
// grant of its type (see OldestExtensionGrantIDs).
func NewExtensionGrantStrategy(g extgrant.ExtensionGrant, provider extgrant.Provider, userStore UserGateway, oldest bool, options ...ExtensionGrantOption) (*ExtensionGrantStrategy, error) {
	if g.ID == "" || g.GrantType == "" {
		return nil, errors.New("[NewExtensionGrantStrategy] extension grant id and grant type are required")
	}
	if provider == nil {
		return nil, errors.New("[NewExtensionGrantStrategy] provider is required")
	}
	if userStore == nil {
		return nil, errors.New("[NewExtensionGrantStrategy] user gateway is required")
	}
	s := &ExtensionGrantStrategy{grant: g, provider: provider, userStore: userStore, oldest: oldest}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *ExtensionGrantStrategy) GrantType() string { return s.grant.GrantType }

func (s *ExtensionGrantStrategy) Supports(grantType string, client *clients.Client, domain *domains.Domain) bool {
	if grantType != s.grant.GrantType || client == nil {
		return false
	}
	if domain != nil && s.grant.DomainID != "" && s.grant.DomainID != domain.ID {
		return false
	}
	if client.AuthorizesGrantType(s.grant.AuthorizedGrantType()) {
		return true
	}
	return s.oldest && client.AuthorizesGrantType(s.grant.GrantType)
}

func (s *ExtensionGrantStrategy) Process(ctx context.Context, req oauthmodel.TokenRequest, client *clients.Client, domain *domains.Domain) (*oauthmodel.TokenCreationRequest, error) {
	external, err := s.provider.Grant(ctx, req)
	if err != nil {
		if err.Error() == "" {
			return nil, oauthmodel.InvalidGrant("Unknown error")
		}
		return nil, oauthmodel.InvalidGrant("%s", err.Error())
	}

	result := &oauthmodel.TokenCreationRequest{
		ClientID:  client.ID,
		GrantType: s.grant.GrantType,
		Scopes:    req.Scopes,
		Resources: req.Resources,
		Data: oauthmodel.ExtensionGrantData{
			ExtensionGrantID:   s.grant.ID,
			ExtensionGrantType: s.grant.GrantType,
		},
	}
	if external == nil {
		return result, nil
	}

	source, externalID := s.identity(external)

	var owner *users.User
	if s.grant.UserExists {
		if s.grant.IdentityProvider == "" {
			return nil, oauthmodel.InvalidGrant("No identity_provider configured for extension grant %s", s.grant.ID)
		}
		if s.subjects != nil {
			owner, err = s.userStore.LoadPreAuthenticatedUserBySub(ctx, domain.ID, source+"|"+externalID)
		} else {
			owner, err = s.userStore.LoadUserFromProvider(ctx, domain.ID, s.grant.IdentityProvider, *external)
		}
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("external_id", external.ID).Msg("extension grant user not found")
			return nil, oauthmodel.InvalidGrant("Unknown user: %s", external.ID)
		}
	}
	if s.grant.CreateUser {
		linked := *external
		linked.ID = externalID
		owner, err = s.userStore.Connect(ctx, domain.ID, source, linked, false)
		if err != nil {
			return nil, errors.Wrap(err, "[ExtensionGrantStrategy.Process] Connect")
		}
	}
	if owner == nil {
		// the user is asserted for this token only and never stored
		owner = &users.User{
			ID:                    external.ID,
			DomainID:              domain.ID,
			Username:              external.Username,
			Email:                 external.Email,
			FirstName:             external.FirstName,
			LastName:              external.LastName,
			AdditionalInformation: external.AdditionalInformation,
		}
	}

	result.ResourceOwner = owner
	result.SupportRefreshToken = supportsRefresh(client) && (s.grant.CreateUser || s.grant.UserExists)
	return result, nil
}

// identity returns the source and external id the user is linked with. Legacy mode
// links nothing.
func (s *ExtensionGrantStrategy) identity(external *users.ExternalUser) (string, string) {
	if s.subjects == nil {
		return "", external.ID
	}
	if gis, _ := external.AdditionalInformation[subject.InternalSubClaim].(string); gis != "" {
		if source := s.subjects.ExtractSourceID(gis); source != "" {
			return source, s.subjects.ExtractUserID(gis)
		}
	}
	if s.grant.IdentityProvider != "" {
		return s.grant.IdentityProvider, external.ID
	}
	return s.grant.ID, external.ID
}
