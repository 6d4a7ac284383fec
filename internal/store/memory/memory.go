// Package memory provides in-process provider and job stores.
// Used when no database is configured and in tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/provimport/internal/core"
)

var (
	_ core.ProviderStore = (*ProviderStore)(nil)
	_ core.JobStore      = (*JobStore)(nil)
)

// ProviderStore keeps committed providers in insertion order.
type ProviderStore struct {
	mu        sync.RWMutex
	providers []core.Record
	byNPI     map[string]int
}

func NewProviderStore() *ProviderStore {
	return &ProviderStore{byNPI: make(map[string]int)}
}

// QueryCandidates returns providers that share the NPI, the last name, or
// both state and specialty with hints, up to hints.Limit.
func (s *ProviderStore) QueryCandidates(_ context.Context, hints core.FilterHints) ([]core.Record, error) {
	if hints.Empty() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Record
	for _, p := range s.providers {
		if !matchesHints(p, hints) {
			continue
		}
		out = append(out, p)
		if hints.Limit > 0 && len(out) == hints.Limit {
			break
		}
	}
	return out, nil
}

func matchesHints(p core.Record, h core.FilterHints) bool {
	if h.NPI != "" && p.NPI == h.NPI {
		return true
	}
	if h.LastName != "" && strings.EqualFold(p.LastName, h.LastName) {
		return true
	}
	return h.State != "" && h.Specialty != "" &&
		strings.EqualFold(p.PracticeState, h.State) &&
		strings.EqualFold(p.PrimarySpecialty, h.Specialty)
}

// BulkInsert adds records. A record whose NPI is already stored replaces
// the stored one, matching the Postgres upsert.
func (s *ProviderStore) BulkInsert(_ context.Context, records []core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r.NPI != "" {
			if i, ok := s.byNPI[r.NPI]; ok {
				s.providers[i] = r
				continue
			}
			s.byNPI[r.NPI] = len(s.providers)
		}
		s.providers = append(s.providers, r)
	}
	return nil
}

// Len returns the number of stored providers.
func (s *ProviderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.providers)
}

// JobStore keeps import jobs in a map.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*core.ImportJob
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*core.ImportJob)}
}

// cloneJob copies the job and its slices so callers cannot mutate stored state.
func cloneJob(j *core.ImportJob) *core.ImportJob {
	cp := *j
	cp.Errors = slices.Clone(j.Errors)
	cp.Duplicates = slices.Clone(j.Duplicates)
	cp.Accepted = slices.Clone(j.Accepted)
	return &cp
}

func (s *JobStore) SaveJob(_ context.Context, job *core.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *JobStore) GetJob(_ context.Context, id string) (*core.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, core.ErrJobNotFound
	}
	return cloneJob(job), nil
}

// ListJobs returns up to limit jobs, newest first.
func (s *JobStore) ListJobs(_ context.Context, limit int) ([]*core.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.ImportJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, cloneJob(j))
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *JobStore) ClaimCommit(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return core.ErrJobNotFound
	}
	if job.CommittedAt != nil {
		return core.ErrJobCommitted
	}
	job.CommittedAt = &at
	return nil
}

func (s *JobStore) ReleaseCommit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return core.ErrJobNotFound
	}
	job.CommittedAt = nil
	return nil
}

func (s *JobStore) PurgeJobs(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}
