package authflow

import (
	"context"
	"maps"
	"strconv"
	"time"

	ierrors "github.com/jrsteele09/go-grant-server/internal/errors"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Entries disappear on their own once ExpiresAt has passed.
type InMemoryRepo struct {
	contexts *cache.Cache
	nowTime  func() time.Time
}

// NewInMemoryRepo creates a new in-memory auth flow context repository
func NewInMemoryRepo(cleanupInterval time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		contexts: cache.New(cache.NoExpiration, cleanupInterval),
		nowTime:  time.Now,
	}
}

func key(transactionID string, version int) string {
	return transactionID + "#" + strconv.Itoa(version)
}

// copyContext prevents callers from mutating stored state
func copyContext(c *Context) *Context {
	cp := *c
	cp.Data = maps.Clone(c.Data)
	return &cp
}

// Upsert stores or updates an auth flow context
func (r *InMemoryRepo) Upsert(ctx context.Context, flowContext *Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if flowContext == nil {
		return errors.New("flow context cannot be nil")
	}
	if flowContext.TransactionID == "" {
		return errors.New("transaction id cannot be empty")
	}

	ttl := cache.NoExpiration
	if !flowContext.ExpiresAt.IsZero() {
		ttl = flowContext.ExpiresAt.Sub(r.nowTime())
		if ttl <= 0 {
			return nil
		}
	}
	r.contexts.Set(key(flowContext.TransactionID, flowContext.Version), copyContext(flowContext), ttl)
	return nil
}

// Get retrieves an auth flow context
func (r *InMemoryRepo) Get(ctx context.Context, transactionID string, version int) (*Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := r.contexts.Get(key(transactionID, version))
	if !ok {
		return nil, ierrors.ErrNotFound
	}
	return copyContext(v.(*Context)), nil
}

// RemoveContext deletes the context. Removing an absent context is not an error.
func (r *InMemoryRepo) RemoveContext(ctx context.Context, transactionID string, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.contexts.Delete(key(transactionID, version))
	return nil
}
