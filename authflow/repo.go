package authflow

import (
	"context"
	"time"
)

// Context is the state kept while an end user goes through the login pages,
// keyed by transaction id and version.
type Context struct {
	TransactionID string
	Version       int
	DomainID      string
	Data          map[string]any
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

type Repo interface {
	Upsert(ctx context.Context, flowContext *Context) error
	Get(ctx context.Context, transactionID string, version int) (*Context, error)
	RemoveContext(ctx context.Context, transactionID string, version int) error
}
