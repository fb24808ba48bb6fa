// Package store persists news items and answers "have we seen this id"
// per provider namespace.
package store

import (
	"context"

	"github.com/scipunch/stocknews/fetcher/types"
)

// Store is the dedup store. Inserting an id that already exists in the
// namespace is a no-op, so a restarted run never duplicates items.
type Store interface {
	Exists(ctx context.Context, namespace, id string) (bool, error)
	Insert(ctx context.Context, namespace string, item types.NewsItem) error
	Count(ctx context.Context, namespace string) (int64, error)
	Close(ctx context.Context) error
}
