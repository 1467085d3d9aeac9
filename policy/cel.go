package policy

import (
	"context"

	"github.com/google/cel-go/cel"
	"github.com/jrsteele09/go-grant-server/uma"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// Variables visible to CEL conditions.
const (
	celClientID = "client_id"
	celSubject  = "subject"
	celScopes   = "scopes"
	celResource = "resource"
	celUser     = "user"
	celClaims   = "claims"
)

type celEvaluator struct {
	env      *cel.Env
	compiled *cache.Cache
}

func newCELEvaluator(compiled *cache.Cache) (*celEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(celClientID, cel.StringType),
		cel.Variable(celSubject, cel.StringType),
		cel.Variable(celScopes, cel.ListType(cel.StringType)),
		cel.Variable(celResource, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(celUser, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(celClaims, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}
	return &celEvaluator{env: env, compiled: compiled}, nil
}

func (c *celEvaluator) program(condition string) (cel.Program, error) {
	key := "cel:" + condition
	if prg, ok := c.compiled.Get(key); ok {
		return prg.(cel.Program), nil
	}
	ast, iss := c.env.Compile(condition)
	if iss.Err() != nil {
		return nil, errors.Wrap(iss.Err(), "compile")
	}
	if ot := ast.OutputType(); !ot.IsExactType(cel.BoolType) && !ot.IsExactType(cel.DynType) {
		return nil, errors.Errorf("condition must be a boolean expression, got %s", ot)
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "program")
	}
	c.compiled.SetDefault(key, prg)
	return prg, nil
}

func (c *celEvaluator) evaluate(_ context.Context, p uma.AccessPolicy, ec ExecutionContext) (bool, error) {
	prg, err := c.program(p.Condition)
	if err != nil {
		return false, err
	}
	perm := ec.permissionFor(p.ResourceID)
	out, _, err := prg.Eval(map[string]any{
		celClientID: ec.ClientID,
		celSubject:  ec.Subject,
		celScopes:   nonNil(ec.Scopes),
		celResource: map[string]any{"id": perm.ResourceID, "scopes": nonNil(perm.ResourceScopes)},
		celUser:     nonNilMap(ec.User),
		celClaims:   nonNilMap(ec.Claims),
	})
	if err != nil {
		return false, errors.Wrap(err, "eval")
	}
	granted, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("condition returned %T", out.Value())
	}
	return granted, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
