package report

import (
	"context"
	"time"
)

// Cache holds at most one current report per (subject, category).
// Get returns nil, nil on a miss or when the stored report has expired.
// Put overwrites; last successful write wins.
type Cache interface {
	Get(ctx context.Context, subject string, category Category) (*Report, error)
	Put(ctx context.Context, subject string, category Category, r *Report) error
}

// ListFilter narrows Store.List results
type ListFilter struct {
	Category *Category
	Limit    int
	Since    *time.Time
}

// DefaultListLimit applies when ListFilter.Limit is zero
const DefaultListLimit = 50

// EffectiveLimit returns the limit to apply
func (f ListFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store is the durable, append-only report history.
// Find returns the latest unexpired report or nil, nil.
type Store interface {
	Find(ctx context.Context, subject string, category Category) (*Report, error)
	Save(ctx context.Context, subject string, category Category, r *Report) (*Report, error)
	List(ctx context.Context, subject string, filter ListFilter) ([]*Report, error)
}
