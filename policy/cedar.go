package policy

import (
	"context"

	"github.com/cedar-policy/cedar-go"
	"github.com/jrsteele09/go-grant-server/uma"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// Entity types used to build Cedar requests. A policy such as
//
//	permit(principal == User::"alice", action == Action::"access", resource)
//	when { context.scopes.contains("read") };
//
// grants alice access when read is among the requested scopes.
const (
	CedarUserType     = "User"
	CedarClientType   = "Client"
	CedarActionType   = "Action"
	CedarActionAccess = "access"
	CedarResourceType = "Resource"
)

type cedarEvaluator struct {
	compiled *cache.Cache
}

func newCedarEvaluator(compiled *cache.Cache) *cedarEvaluator {
	return &cedarEvaluator{compiled: compiled}
}

func (c *cedarEvaluator) policySet(condition string) (*cedar.PolicySet, error) {
	key := "cedar:" + condition
	if ps, ok := c.compiled.Get(key); ok {
		return ps.(*cedar.PolicySet), nil
	}
	var p cedar.Policy
	if err := p.UnmarshalCedar([]byte(condition)); err != nil {
		return nil, errors.Wrap(err, "parse cedar policy")
	}
	ps := cedar.NewPolicySet()
	ps.Add(cedar.PolicyID("condition"), &p)
	c.compiled.SetDefault(key, ps)
	return ps, nil
}

func (c *cedarEvaluator) evaluate(_ context.Context, p uma.AccessPolicy, ec ExecutionContext) (bool, error) {
	ps, err := c.policySet(p.Condition)
	if err != nil {
		return false, err
	}

	principal := cedar.NewEntityUID(cedar.EntityType(CedarClientType), cedar.String(ec.ClientID))
	if ec.Subject != "" {
		principal = cedar.NewEntityUID(cedar.EntityType(CedarUserType), cedar.String(ec.Subject))
	}
	perm := ec.permissionFor(p.ResourceID)
	req := cedar.Request{
		Principal: principal,
		Action:    cedar.NewEntityUID(cedar.EntityType(CedarActionType), cedar.String(CedarActionAccess)),
		Resource:  cedar.NewEntityUID(cedar.EntityType(CedarResourceType), cedar.String(p.ResourceID)),
		Context: cedar.NewRecord(cedar.RecordMap{
			"client_id":       cedar.String(ec.ClientID),
			"scopes":          stringSet(ec.Scopes),
			"resource_scopes": stringSet(perm.ResourceScopes),
			"claims":          toRecord(ec.Claims),
		}),
	}

	decision, diag := cedar.Authorize(ps, cedar.EntityMap{}, req)
	if len(diag.Errors) > 0 {
		return false, errors.Errorf("cedar evaluation: %v", diag.Errors)
	}
	return decision == cedar.Allow, nil
}

func stringSet(values []string) cedar.Set {
	out := make([]cedar.Value, 0, len(values))
	for _, v := range values {
		out = append(out, cedar.String(v))
	}
	return cedar.NewSet(out...)
}

func toRecord(m map[string]any) cedar.Record {
	rm := cedar.RecordMap{}
	for k, v := range m {
		if cv := toValue(v); cv != nil {
			rm[cedar.String(k)] = cv
		}
	}
	return cedar.NewRecord(rm)
}

// toValue converts claim values; unsupported types are left out of the record.
func toValue(v any) cedar.Value {
	switch val := v.(type) {
	case string:
		return cedar.String(val)
	case bool:
		if val {
			return cedar.True
		}
		return cedar.False
	case int:
		return cedar.Long(val)
	case int64:
		return cedar.Long(val)
	case float64:
		return cedar.Long(int64(val))
	case []string:
		return stringSet(val)
	case []any:
		out := make([]cedar.Value, 0, len(val))
		for _, e := range val {
			if cv := toValue(e); cv != nil {
				out = append(out, cv)
			}
		}
		return cedar.NewSet(out...)
	case map[string]any:
		return toRecord(val)
	}
	return nil
}
