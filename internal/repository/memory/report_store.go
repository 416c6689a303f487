package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradecouncil/internal/domain/report"
)

var _ report.Store = (*ReportStore)(nil)

// ReportStore is the append-only report history used when Postgres is not
// configured. History is unbounded for the life of the process.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string][]*report.Report // subject -> reports in insertion order
	now     func() time.Time
}

func NewReportStore(now func() time.Time) *ReportStore {
	if now == nil {
		now = time.Now
	}
	return &ReportStore{
		reports: make(map[string][]*report.Report),
		now:     now,
	}
}

// Find returns the report of the category with the newest CreatedAt, or nil
// if it has expired. Insertion order only breaks ties.
func (s *ReportStore) Find(_ context.Context, subject string, category report.Category) (*report.Report, error) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *report.Report
	for _, r := range s.reports[subject] {
		if r.Category != category {
			continue
		}
		if latest == nil || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil || !latest.Fresh(now) {
		return nil, nil
	}
	return latest, nil
}

func (s *ReportStore) Save(_ context.Context, subject string, category report.Category, r *report.Report) (*report.Report, error) {
	stored := *r
	stored.SubjectID = subject
	stored.Category = category

	s.mu.Lock()
	s.reports[subject] = append(s.reports[subject], &stored)
	s.mu.Unlock()

	return &stored, nil
}

// List returns reports newest first
func (s *ReportStore) List(_ context.Context, subject string, filter report.ListFilter) ([]*report.Report, error) {
	s.mu.RLock()
	history := append([]*report.Report(nil), s.reports[subject]...)
	s.mu.RUnlock()

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})

	limit := filter.EffectiveLimit()
	out := make([]*report.Report, 0, limit)
	for _, r := range history {
		if filter.Category != nil && r.Category != *filter.Category {
			continue
		}
		if filter.Since != nil && r.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
