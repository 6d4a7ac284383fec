package core

import (
	"context"
	"time"
)

// FilterHints narrows the provider store to a candidate window for
// duplicate detection. A stored record is a candidate when it shares the
// NPI, shares the last name, or shares both the practice state and the
// primary specialty. Comparisons other than NPI are case-insensitive.
type FilterHints struct {
	NPI       string
	LastName  string
	State     string
	Specialty string
	Limit     int
}

// Empty reports whether the hints cannot select anything.
func (h FilterHints) Empty() bool {
	return h.NPI == "" && h.LastName == "" && (h.State == "" || h.Specialty == "")
}

// ProviderStore is the persistent provider collaborator.
// The pipeline only reads from it; BulkInsert is called by an explicit commit.
type ProviderStore interface {
	QueryCandidates(ctx context.Context, hints FilterHints) ([]Record, error)
	BulkInsert(ctx context.Context, records []Record) error
}

// JobStore persists import jobs and their accepted records.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportJob) error
	GetJob(ctx context.Context, id string) (*ImportJob, error)
	ListJobs(ctx context.Context, limit int) ([]*ImportJob, error)

	// ClaimCommit marks a job committed. Returns ErrJobCommitted when it
	// already was, or ErrJobNotFound.
	ClaimCommit(ctx context.Context, id string, at time.Time) error
	// ReleaseCommit undoes ClaimCommit after a failed insert.
	ReleaseCommit(ctx context.Context, id string) error

	// PurgeJobs deletes jobs created before cutoff.
	PurgeJobs(ctx context.Context, cutoff time.Time) (int64, error)
}
