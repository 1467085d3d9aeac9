package uma

import (
	"context"
	"slices"
	"sort"
	"sync"

	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/pkg/errors"
)

var _ ResourceRepo = (*InMemoryResourceRepo)(nil)

type InMemoryResourceRepo struct {
	resources map[string]Resource
	policies  map[string]AccessPolicy
	lock      sync.RWMutex
}

func NewInMemoryResourceRepo() *InMemoryResourceRepo {
	return &InMemoryResourceRepo{
		resources: make(map[string]Resource),
		policies:  make(map[string]AccessPolicy),
	}
}

func (r *InMemoryResourceRepo) UpsertResource(ctx context.Context, resource *Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if resource == nil || resource.ID == "" {
		return errors.New("[InMemoryResourceRepo.UpsertResource] resource id is required")
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *resource
	cp.ResourceScopes = slices.Clone(resource.ResourceScopes)
	r.resources[cp.ID] = cp
	return nil
}

// DeleteResource removes the resource and its policies.
func (r *InMemoryResourceRepo) DeleteResource(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.resources[id]; !ok {
		return ierrors.ErrResourceNotFound
	}
	delete(r.resources, id)
	for pid, p := range r.policies {
		if p.ResourceID == id {
			delete(r.policies, pid)
		}
	}
	return nil
}

func (r *InMemoryResourceRepo) FindByResources(ctx context.Context, ids []string) ([]Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]Resource, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if res, ok := r.resources[id]; ok {
			res.ResourceScopes = slices.Clone(res.ResourceScopes)
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *InMemoryResourceRepo) UpsertPolicy(ctx context.Context, policy *AccessPolicy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if policy == nil || policy.ID == "" {
		return errors.New("[InMemoryResourceRepo.UpsertPolicy] policy id is required")
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.policies[policy.ID] = *policy
	return nil
}

// FindAccessPoliciesByResources returns the policies of the resources ordered by creation time.
func (r *InMemoryResourceRepo) FindAccessPoliciesByResources(ctx context.Context, ids []string) ([]AccessPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]AccessPolicy, 0)
	for _, p := range r.policies {
		if slices.Contains(ids, p.ResourceID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
