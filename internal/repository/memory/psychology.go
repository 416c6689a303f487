package memory

import (
	"context"
	"sync"

	"tradecouncil/internal/domain/psychology"
)

var _ psychology.Repository = (*PsychologyRepository)(nil)

// PsychologyRepository serves profiles loaded at startup or by tests
type PsychologyRepository struct {
	mu       sync.RWMutex
	profiles map[string]*psychology.Profile
}

func NewPsychologyRepository(profiles ...*psychology.Profile) *PsychologyRepository {
	r := &PsychologyRepository{profiles: make(map[string]*psychology.Profile, len(profiles))}
	for _, p := range profiles {
		r.profiles[p.SubjectID] = p
	}
	return r
}

func (r *PsychologyRepository) Find(_ context.Context, subject string) (*psychology.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[subject]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}
