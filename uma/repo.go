package uma

import (
	"context"
)

// ResourceRepo stores resources and the access policies attached to them.
type ResourceRepo interface {
	UpsertResource(ctx context.Context, resource *Resource) error
	DeleteResource(ctx context.Context, id string) error
	// FindByResources returns the resources that still exist among ids. Missing ids are
	// skipped, not reported.
	FindByResources(ctx context.Context, ids []string) ([]Resource, error)
	UpsertPolicy(ctx context.Context, policy *AccessPolicy) error
	FindAccessPoliciesByResources(ctx context.Context, ids []string) ([]AccessPolicy, error)
}
