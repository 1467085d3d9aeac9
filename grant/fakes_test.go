package grant_test

import (
	"context"

	"github.com/jrsteele09/go-grant-server/ciba"
	"github.com/jrsteele09/go-grant-server/clients"
	"github.com/jrsteele09/go-grant-server/domains"
	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/policy"
	"github.com/jrsteele09/go-grant-server/tokenexchange"
	"github.com/jrsteele09/go-grant-server/uma"
)

type fakeTickets struct {
	tickets map[string]*uma.PermissionTicket
}

func (f *fakeTickets) Remove(_ context.Context, id string) (*uma.PermissionTicket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, oauthmodel.InvalidPermissionTicket("unknown ticket %s", id)
	}
	delete(f.tickets, id)
	return t, nil
}

type fakeResources struct {
	resources []uma.Resource
	policies  []uma.AccessPolicy
}

func (f *fakeResources) FindByResources(_ context.Context, ids []string) ([]uma.Resource, error) {
	var out []uma.Resource
	for _, r := range f.resources {
		for _, id := range ids {
			if r.ID == id {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeResources) FindAccessPoliciesByResources(_ context.Context, ids []string) ([]uma.AccessPolicy, error) {
	var out []uma.AccessPolicy
	for _, p := range f.policies {
		for _, id := range ids {
			if p.ResourceID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type fakeRules struct {
	err   error
	fired []uma.AccessPolicy
	ec    policy.ExecutionContext
}

func (f *fakeRules) Fire(_ context.Context, policies []uma.AccessPolicy, ec policy.ExecutionContext) error {
	f.fired = policies
	f.ec = ec
	return f.err
}

type fakeExchanger struct {
	result *tokenexchange.Result
	err    error
}

func (f *fakeExchanger) Exchange(context.Context, oauthmodel.TokenRequest, *clients.Client, *domains.Domain, tokenexchange.UserGateway) (*tokenexchange.Result, error) {
	return f.result, f.err
}

// fakeCibaStore answers like a backchannel store whose user never finishes: "slow_down"
// polls too fast, known ids are returned, the rest were denied.
type fakeCibaStore struct {
	requests map[string]*ciba.AuthRequest
}

func (f *fakeCibaStore) Retrieve(_ context.Context, _ string, id, _ string) (*ciba.AuthRequest, error) {
	if id == "slow_down" {
		return nil, oauthmodel.SlowDown("slow down")
	}
	if r, ok := f.requests[id]; ok {
		return r, nil
	}
	return nil, oauthmodel.AuthorizationRejected("denied")
}
