package memory

import (
	"context"
	"sync"
	"time"

	"tradecouncil/internal/domain/report"
)

var _ report.Cache = (*ReportCache)(nil)

type cacheKey struct {
	subject  string
	category report.Category
}

// ReportCache keeps the latest report per (subject, category) in process
type ReportCache struct {
	mu      sync.RWMutex
	reports map[cacheKey]*report.Report
	now     func() time.Time
}

// NewReportCache creates an empty cache. now may be nil.
func NewReportCache(now func() time.Time) *ReportCache {
	if now == nil {
		now = time.Now
	}
	return &ReportCache{
		reports: make(map[cacheKey]*report.Report),
		now:     now,
	}
}

func (c *ReportCache) Get(_ context.Context, subject string, category report.Category) (*report.Report, error) {
	c.mu.RLock()
	r, ok := c.reports[cacheKey{subject, category}]
	c.mu.RUnlock()

	if !ok || !r.Fresh(c.now()) {
		return nil, nil
	}
	return r, nil
}

func (c *ReportCache) Put(_ context.Context, subject string, category report.Category, r *report.Report) error {
	c.mu.Lock()
	c.reports[cacheKey{subject, category}] = r
	c.mu.Unlock()
	return nil
}

// Purge drops expired entries and returns how many were removed
func (c *ReportCache) Purge() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, r := range c.reports {
		if !r.Fresh(now) {
			delete(c.reports, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not
func (c *ReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.reports)
}
