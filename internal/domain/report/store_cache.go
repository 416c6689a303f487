package report

import "context"

// StoreCache exposes a Store through the Cache contract so a durable backend
// can replace the in-memory or Redis cache without callers noticing.
type StoreCache struct {
	store Store
}

var _ Cache = (*StoreCache)(nil)

func NewStoreCache(store Store) *StoreCache {
	return &StoreCache{store: store}
}

func (c *StoreCache) Get(ctx context.Context, subject string, category Category) (*Report, error) {
	return c.store.Find(ctx, subject, category)
}

func (c *StoreCache) Put(ctx context.Context, subject string, category Category, r *Report) error {
	_, err := c.store.Save(ctx, subject, category, r)
	return err
}
