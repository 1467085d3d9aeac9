package grant_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/grant"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/policy"
	"github.com/jrsteele09/go-grant-server/token/jwt"
	"github.com/jrsteele09/go-grant-server/uma"
	"github.com/stretchr/testify/require"
)

type umaFixture struct {
	*fixture
	tickets   *fakeTickets
	resources *fakeResources
	rules     *fakeRules
	strategy  *grant.UmaStrategy
	client    *clients.Client
}

func newUmaFixture(t *testing.T) *umaFixture {
	t.Helper()
	f := newFixture(t)
	f.domain.UMA = &domains.UMASettings{Enabled: true}

	tickets := &fakeTickets{tickets: map[string]*uma.PermissionTicket{
		"ticket-1": {
			ID:       "ticket-1",
			DomainID: testDomainID,
			PermissionRequests: []oauthmodel.Permission{
				{ResourceID: "rs_one", ResourceScopes: []string{"scopeA"}},
				{ResourceID: "rs_two", ResourceScopes: []string{"scopeA"}},
			},
		},
	}}
	resources := &fakeResources{resources: []uma.Resource{
		{ID: "rs_one", DomainID: testDomainID, ResourceScopes: []string{"scopeA", "scopeB", "scopeC"}},
		{ID: "rs_two", DomainID: testDomainID, ResourceScopes: []string{"scopeA", "scopeB", "scopeD"}},
	}}
	rules := &fakeRules{}

	strategy, err := grant.NewUmaStrategy(tickets, resources, rules, f.verifier, f.users, f.subjects)
	require.NoError(t, err)

	client := withScopes(newClient(oauthmodel.UmaGrant, oauthmodel.RefreshTokenGrant), "scopeA", "scopeB", "scopeC", "scopeD", "unbound")
	return &umaFixture{fixture: f, tickets: tickets, resources: resources, rules: rules, strategy: strategy, client: client}
}

func (f *umaFixture) rpt(t *testing.T, subject string, audience []string, perms ...oauthmodel.Permission) string {
	t.Helper()
	token, _, err := f.creator.CreateAccessToken(jwt.AccessTokenParams{
		Issuer:      f.domain.Issuer,
		DomainID:    testDomainID,
		ClientID:    testClientID,
		Subject:     subject,
		Audience:    audience,
		Permissions: perms,
	})
	require.NoError(t, err)
	return token
}

func (f *umaFixture) process(t *testing.T, kv ...string) (*oauthmodel.TokenCreationRequest, error) {
	t.Helper()
	kv = append([]string{oauthmodel.ParamTicket, "ticket-1"}, kv...)
	return f.strategy.Process(context.Background(), tokenRequest(oauthmodel.UmaGrant, kv...), f.client, f.domain)
}

func umaData(t *testing.T, result *oauthmodel.TokenCreationRequest) oauthmodel.UmaData {
	t.Helper()
	data, ok := result.Data.(oauthmodel.UmaData)
	require.True(t, ok)
	return data
}

func TestUma_TicketPermissionsOnly(t *testing.T) {
	f := newUmaFixture(t)

	result, err := f.process(t)
	require.NoError(t, err)
	data := umaData(t, result)
	require.Equal(t, "ticket-1", data.Ticket)
	require.False(t, data.Upgraded)
	require.Equal(t, []oauthmodel.Permission{
		{ResourceID: "rs_one", ResourceScopes: []string{"scopeA"}},
		{ResourceID: "rs_two", ResourceScopes: []string{"scopeA"}},
	}, data.Permissions)
	require.Equal(t, []string{"scopeA"}, result.Scopes)
	require.True(t, result.ClientOnly())
	require.False(t, result.SupportRefreshToken)
}

func TestUma_RequestedScopesBoundToResources(t *testing.T) {
	f := newUmaFixture(t)

	result, err := f.process(t, oauthmodel.ParamScope, "scopeB scopeC")
	require.NoError(t, err)
	require.Equal(t, []oauthmodel.Permission{
		{ResourceID: "rs_one", ResourceScopes: []string{"scopeA", "scopeB", "scopeC"}},
		{ResourceID: "rs_two", ResourceScopes: []string{"scopeA", "scopeB"}},
	}, umaData(t, result).Permissions)
}

func TestUma_UpgradesPreviousRPT(t *testing.T) {
	f := newUmaFixture(t)
	previous := f.rpt(t, testClientID, nil, oauthmodel.Permission{ResourceID: "rs_one", ResourceScopes: []string{"scopeB"}})

	result, err := f.process(t, oauthmodel.ParamScope, "scopeD", oauthmodel.ParamRPT, previous)
	require.NoError(t, err)
	data := umaData(t, result)
	require.True(t, data.Upgraded)
	require.Equal(t, []oauthmodel.Permission{
		{ResourceID: "rs_one", ResourceScopes: []string{"scopeA", "scopeB"}},
		{ResourceID: "rs_two", ResourceScopes: []string{"scopeA", "scopeD"}},
	}, data.Permissions)
	require.ElementsMatch(t, []string{"scopeA", "scopeB", "scopeD"}, result.Scopes)
}

func TestUma_KeepsResourcesOnlyInPreviousRPT(t *testing.T) {
	f := newUmaFixture(t)
	f.resources.resources = append(f.resources.resources, uma.Resource{ID: "rs_three", DomainID: testDomainID, ResourceScopes: []string{"scopeX"}})
	previous := f.rpt(t, testClientID, nil, oauthmodel.Permission{ResourceID: "rs_three", ResourceScopes: []string{"scopeX"}})

	result, err := f.process(t, oauthmodel.ParamRPT, previous)
	require.NoError(t, err)
	require.Contains(t, umaData(t, result).Permissions, oauthmodel.Permission{ResourceID: "rs_three", ResourceScopes: []string{"scopeX"}})
}

func TestUma_UpgradeRejectsDeletedPreviousResource(t *testing.T) {
	f := newUmaFixture(t)
	previous := f.rpt(t, testClientID, nil, oauthmodel.Permission{ResourceID: "rs_three", ResourceScopes: []string{"scopeX"}})

	_, err := f.process(t, oauthmodel.ParamRPT, previous)
	requireKind(t, err, oauthmodel.KindInvalidGrant)
	require.Contains(t, err.Error(), "no longer exist")
}

func TestUma_UpgradeEvaluatesPoliciesOfPreviousResources(t *testing.T) {
	f := newUmaFixture(t)
	f.resources.resources = append(f.resources.resources, uma.Resource{ID: "rs_three", DomainID: testDomainID, ResourceScopes: []string{"scopeX"}})
	refusing := uma.AccessPolicy{ID: "p-3", ResourceID: "rs_three", Enabled: true, Type: uma.PolicyTypeCEL, Condition: "false"}
	f.resources.policies = []uma.AccessPolicy{refusing}
	f.rules.err = policy.ErrConditionNotMet
	previous := f.rpt(t, testClientID, nil, oauthmodel.Permission{ResourceID: "rs_three", ResourceScopes: []string{"scopeX"}})

	_, err := f.process(t, oauthmodel.ParamRPT, previous)
	requireKind(t, err, oauthmodel.KindInvalidGrant)
	require.Contains(t, err.Error(), "Policy conditions are not met")
	require.Equal(t, []uma.AccessPolicy{refusing}, f.rules.fired)
}

func TestUma_UpgradeWithRealPolicyEngine(t *testing.T) {
	f := newUmaFixture(t)
	engine, err := policy.NewEngine(0)
	require.NoError(t, err)
	strategy, err := grant.NewUmaStrategy(f.tickets, f.resources, engine, f.verifier, f.users, f.subjects)
	require.NoError(t, err)
	f.resources.resources = append(f.resources.resources, uma.Resource{ID: "rs_three", DomainID: testDomainID, ResourceScopes: []string{"scopeX"}})
	f.resources.policies = []uma.AccessPolicy{{ID: "p-3", ResourceID: "rs_three", Enabled: true, Type: uma.PolicyTypeCEL, Condition: "false"}}
	previous := f.rpt(t, testClientID, nil, oauthmodel.Permission{ResourceID: "rs_three", ResourceScopes: []string{"scopeX"}})

	req := tokenRequest(oauthmodel.UmaGrant, oauthmodel.ParamTicket, "ticket-1", oauthmodel.ParamRPT, previous)
	_, err = strategy.Process(context.Background(), req, f.client, f.domain)
	requireKind(t, err, oauthmodel.KindInvalidGrant)
}

func TestUma_TicketFromAnotherDomain(t *testing.T) {
	f := newUmaFixture(t)
	f.tickets.tickets["ticket-1"].DomainID = "globex"

	_, err := f.process(t)
	requireKind(t, err, oauthmodel.KindInvalidPermissionTicket)
	require.Empty(t, f.tickets.tickets)
	require.Nil(t, f.rules.fired)
}

func TestUma_RPTMismatch(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		audience []string
	}{
		{name: "subject", subject: "someone-else"},
		{name: "audience", subject: testClientID, audience: []string{"client-2"}},
		{name: "several audiences", subject: testClientID, audience: []string{testClientID, "client-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUmaFixture(t)
			_, err := f.process(t, oauthmodel.ParamRPT, f.rpt(t, tt.subject, tt.audience))
			requireKind(t, err, oauthmodel.KindInvalidGrant)
			require.Contains(t, err.Error(), "Requesting Party Token")
		})
	}
}

func TestUma_InvalidRPT(t *testing.T) {
	f := newUmaFixture(t)
	_, err := f.process(t, oauthmodel.ParamRPT, "not-a-jwt")
	requireKind(t, err, oauthmodel.KindInvalidGrant)
}

func TestUma_ResourceNoLongerExists(t *testing.T) {
	f := newUmaFixture(t)
	f.resources.resources = f.resources.resources[:1]

	_, err := f.process(t)
	requireKind(t, err, oauthmodel.KindInvalidGrant)
	require.Contains(t, err.Error(), "no longer exist")
}

func TestUma_TicketIsSingleUse(t *testing.T) {
	f := newUmaFixture(t)
	_, err := f.process(t)
	require.NoError(t, err)

	_, err = f.process(t)
	requireKind(t, err, oauthmodel.KindInvalidPermissionTicket)
}

func TestUma_MissingTicket(t *testing.T) {
	f := newUmaFixture(t)
	_, err := f.strategy.Process(context.Background(), tokenRequest(oauthmodel.UmaGrant), f.client, f.domain)
	requireKind(t, err, oauthmodel.KindInvalidGrant)
	require.Contains(t, err.Error(), "ticket")
}

func TestUma_InvalidScope(t *testing.T) {
	f := newUmaFixture(t)

	_, err := f.process(t, oauthmodel.ParamScope, "unregistered")
	requireKind(t, err, oauthmodel.KindInvalidScope)
	require.Len(t, f.tickets.tickets, 1, "scope validation happens before the ticket is consumed")

	_, err = f.process(t, oauthmodel.ParamScope, "unbound")
	requireKind(t, err, oauthmodel.KindInvalidScope)
}

func TestUma_NeedInfo(t *testing.T) {
	f := newUmaFixture(t)
	tests := []struct {
		name string
		kv   []string
	}{
		{name: "token without format", kv: []string{oauthmodel.ParamClaimToken, "abc"}},
		{name: "format without token", kv: []string{oauthmodel.ParamClaimTokenFormat, oauthmodel.ClaimTokenFormatIDToken}},
		{name: "unsupported format", kv: []string{oauthmodel.ParamClaimToken, "abc", oauthmodel.ParamClaimTokenFormat, "urn:other"}},
		{name: "undecodable token", kv: []string{oauthmodel.ParamClaimToken, "abc", oauthmodel.ParamClaimTokenFormat, oauthmodel.ClaimTokenFormatIDToken}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.process(t, tt.kv...)
			requireKind(t, err, oauthmodel.KindNeedInfo)

			var uerr *oauthmodel.Error
			require.ErrorAs(t, err, &uerr)
			require.Equal(t, "ticket-1", uerr.Ticket)
			require.NotEmpty(t, uerr.RequiredClaims)
		})
	}
	require.Len(t, f.tickets.tickets, 1)
}

func TestUma_ClaimTokenIdentifiesRequestingParty(t *testing.T) {
	f := newUmaFixture(t)
	user := f.addUser(t, "alice", "Passw0rd!")
	idToken, err := f.creator.CreateIDToken(jwt.IDTokenParams{
		Issuer:   f.domain.Issuer,
		DomainID: testDomainID,
		ClientID: testClientID,
		Subject:  f.subjects.GenerateSubFrom(user.SubjectID()),
	})
	require.NoError(t, err)
	f.resources.policies = []uma.AccessPolicy{
		{ID: "p-1", ResourceID: "rs_one", Enabled: true, Type: uma.PolicyTypeCEL, Condition: "true"},
		{ID: "p-2", ResourceID: "rs_two", Enabled: false, Type: uma.PolicyTypeCEL, Condition: "false"},
	}
	previous := f.rpt(t, user.ID, nil, oauthmodel.Permission{ResourceID: "rs_two", ResourceScopes: []string{"scopeB"}})

	result, err := f.process(t,
		oauthmodel.ParamClaimToken, idToken,
		oauthmodel.ParamClaimTokenFormat, oauthmodel.ClaimTokenFormatIDToken,
		oauthmodel.ParamRPT, previous,
	)
	require.NoError(t, err)
	require.Equal(t, user.ID, result.ResourceOwner.ID)
	require.True(t, result.SupportRefreshToken)
	require.True(t, umaData(t, result).Upgraded)

	require.Len(t, f.rules.fired, 1)
	require.Equal(t, "p-1", f.rules.fired[0].ID)
	require.Equal(t, user.ID, f.rules.ec.Subject)
	require.Equal(t, "alice", f.rules.ec.User["username"])
	require.Equal(t, f.subjects.GenerateSubFrom(user.SubjectID()), f.rules.ec.Claims["sub"])
}

func TestUma_PolicyRefusal(t *testing.T) {
	f := newUmaFixture(t)
	f.resources.policies = []uma.AccessPolicy{{ID: "p-1", ResourceID: "rs_one", Enabled: true, Type: uma.PolicyTypeCEL, Condition: "false"}}
	f.rules.err = policy.ErrConditionNotMet

	_, err := f.process(t)
	requireKind(t, err, oauthmodel.KindInvalidGrant)
	require.Contains(t, err.Error(), "Policy conditions are not met")
}

func TestUma_RealPolicyEngine(t *testing.T) {
	f := newUmaFixture(t)
	engine, err := policy.NewEngine(0)
	require.NoError(t, err)
	strategy, err := grant.NewUmaStrategy(f.tickets, f.resources, engine, f.verifier, f.users, f.subjects)
	require.NoError(t, err)
	f.resources.policies = []uma.AccessPolicy{{
		ID:         "p-1",
		ResourceID: "rs_one",
		Enabled:    true,
		Type:       uma.PolicyTypeCEL,
		Condition:  `client_id == "client-1" && "scopeA" in resource.scopes`,
	}}

	_, err = strategy.Process(context.Background(), tokenRequest(oauthmodel.UmaGrant, oauthmodel.ParamTicket, "ticket-1"), f.client, f.domain)
	require.NoError(t, err)
}
