// Package policy evaluates UMA access policies. A policy condition is either a CEL
// boolean expression or a Cedar policy.
package policy

import (
	"context"
	"time"

	"github.com/jrsteele09/go-grant-server/oauthmodel"
	"github.com/jrsteele09/go-grant-server/uma"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrConditionNotMet is returned by Fire when a policy refuses access.
var ErrConditionNotMet = errors.New("policy condition not met")

// ExecutionContext describes the party asking for an RPT.
type ExecutionContext struct {
	DomainID    string
	ClientID    string
	Subject     string // requesting party user id, empty for a client acting on its own behalf
	Scopes      []string
	Permissions []oauthmodel.Permission
	User        map[string]any // profile of the requesting party
	Claims      map[string]any // claims of the presented claim token
}

func (ec ExecutionContext) permissionFor(resourceID string) oauthmodel.Permission {
	for _, p := range ec.Permissions {
		if p.ResourceID == resourceID {
			return p
		}
	}
	return oauthmodel.Permission{ResourceID: resourceID}
}

type evaluator interface {
	evaluate(ctx context.Context, p uma.AccessPolicy, ec ExecutionContext) (bool, error)
}

// Engine fires policies. Compiled conditions are cached by condition text.
type Engine struct {
	evaluators map[uma.PolicyType]evaluator
}

// NewEngine builds an engine; compiled conditions not used for cacheTTL are dropped.
func NewEngine(cacheTTL time.Duration) (*Engine, error) {
	compiled := cache.New(cacheTTL, cacheTTL)
	celEval, err := newCELEvaluator(compiled)
	if err != nil {
		return nil, errors.Wrap(err, "[NewEngine] cel environment")
	}
	return &Engine{
		evaluators: map[uma.PolicyType]evaluator{
			uma.PolicyTypeCEL:   celEval,
			uma.PolicyTypeCedar: newCedarEvaluator(compiled),
		},
	}, nil
}

// Fire evaluates every policy in order and stops at the first that does not grant access.
func (e *Engine) Fire(ctx context.Context, policies []uma.AccessPolicy, ec ExecutionContext) error {
	for _, p := range policies {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, ok := e.evaluators[p.Type]
		if !ok {
			return errors.Errorf("[Engine.Fire] policy %s has unsupported type %q", p.ID, p.Type)
		}
		granted, err := ev.evaluate(ctx, p, ec)
		if err != nil {
			return errors.Wrapf(err, "[Engine.Fire] policy %s", p.ID)
		}
		if !granted {
			log.Ctx(ctx).Debug().Str("policy", p.ID).Str("resource", p.ResourceID).Msg("policy refused access")
			return errors.Wrapf(ErrConditionNotMet, "policy %s", p.ID)
		}
	}
	return nil
}
