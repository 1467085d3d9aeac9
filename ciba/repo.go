package ciba

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

type Repo interface {
	Create(ctx context.Context, req *AuthRequest) error
	Get(ctx context.Context, id string) (*AuthRequest, error)
	Update(ctx context.Context, req *AuthRequest) error
	// Delete removes the request and reports whether it was still present.
	Delete(ctx context.Context, id string) (bool, error)
}

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps requests in a go-cache, expiring them with the request.
type InMemoryRepo struct {
	requests *cache.Cache
	lock     sync.Mutex
	nowTime  func() time.Time
}

func NewInMemoryRepo(cleanupInterval time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		requests: cache.New(cache.NoExpiration, cleanupInterval),
		nowTime:  time.Now,
	}
}

func copyRequest(r *AuthRequest) *AuthRequest {
	cp := *r
	cp.Scopes = slices.Clone(r.Scopes)
	cp.ExternalInformation = maps.Clone(r.ExternalInformation)
	return &cp
}

func (r *InMemoryRepo) ttl(req *AuthRequest) time.Duration {
	if req.ExpiresAt.IsZero() {
		return cache.NoExpiration
	}
	// kept a little past expiry so a late poll is answered with expired_token
	return req.ExpiresAt.Sub(r.nowTime()) + time.Minute
}

func (r *InMemoryRepo) Create(ctx context.Context, req *AuthRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req == nil || req.ID == "" {
		return errors.New("[InMemoryRepo.Create] request id is required")
	}
	if err := r.requests.Add(req.ID, copyRequest(req), r.ttl(req)); err != nil {
		return errors.Wrap(err, "[InMemoryRepo.Create]")
	}
	return nil
}

func (r *InMemoryRepo) Get(ctx context.Context, id string) (*AuthRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := r.requests.Get(id)
	if !ok {
		return nil, ierrors.ErrNotFound
	}
	return copyRequest(v.(*AuthRequest)), nil
}

// Update replaces a request that is still present.
func (r *InMemoryRepo) Update(ctx context.Context, req *AuthRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.requests.Replace(req.ID, copyRequest(req), r.ttl(req)); err != nil {
		return ierrors.ErrNotFound
	}
	return nil
}

func (r *InMemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.requests.Get(id); !ok {
		return false, nil
	}
	r.requests.Delete(id)
	return true, nil
}
