//go:build integration

package postgres_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/JonMunkholm/provimport/internal/core"
	"github.com/JonMunkholm/provimport/internal/store/postgres"
)

// Set TEST_DATABASE_URL to a disposable database to run this suite.
type PostgresStoreSuite struct {
	suite.Suite
	pool  *pgxpool.Pool
	store *postgres.Store
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	pool, err := pgxpool.New(s.ctx, os.Getenv("TEST_DATABASE_URL"))
	s.Require().NoError(err)
	s.pool = pool
	s.store = postgres.New(pool)
	s.Require().NoError(s.store.Migrate(s.ctx))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.pool.Close()
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "TRUNCATE providers, import_jobs")
	s.Require().NoError(err)
}

func newProvider(npi, first, last string) core.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return core.Record{
		ID:               uuid.NewString(),
		NPI:              npi,
		FirstName:        first,
		LastName:         last,
		DateOfBirth:      "03/15/1990",
		PracticeState:    "MA",
		PrimarySpecialty: "Internal Medicine",
		SourceType:       core.SourceTemplate,
		Status:           core.StatusValidated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *PostgresStoreSuite) TestBulkInsertAndQuery() {
	s.Require().NoError(s.store.BulkInsert(s.ctx, []core.Record{
		newProvider("1234567890", "Sarah", "Johnson"),
		newProvider("2234567890", "John", "Roe"),
	}))

	s.Run("matches by NPI", func() {
		got, err := s.store.QueryCandidates(s.ctx, core.FilterHints{NPI: "2234567890"})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("Roe", got[0].LastName)
		s.Equal("1990-03-15", got[0].DateOfBirth)
		s.Equal(core.StatusValidated, got[0].Status)
	})

	s.Run("matches last name case-insensitively", func() {
		got, err := s.store.QueryCandidates(s.ctx, core.FilterHints{LastName: "JOHNSON"})
		s.Require().NoError(err)
		s.Len(got, 1)
	})

	s.Run("respects the limit", func() {
		got, err := s.store.QueryCandidates(s.ctx, core.FilterHints{State: "ma", Specialty: "internal medicine", Limit: 1})
		s.Require().NoError(err)
		s.Len(got, 1)
	})
}

func (s *PostgresStoreSuite) TestBulkInsertUpsertsByNPI() {
	s.Require().NoError(s.store.BulkInsert(s.ctx, []core.Record{newProvider("1234567890", "Sarah", "Johnson")}))
	s.Require().NoError(s.store.BulkInsert(s.ctx, []core.Record{
		newProvider("1234567890", "Sarah", "Johnson-Lee"),
		newProvider("1234567890", "Sarah", "Lee"),
	}))

	got, err := s.store.QueryCandidates(s.ctx, core.FilterHints{NPI: "1234567890"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("Lee", got[0].LastName)
}

func (s *PostgresStoreSuite) TestJobLifecycle() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &core.ImportJob{
		ID:        uuid.NewString(),
		Type:      core.JobTemplate,
		Status:    core.JobPartial,
		Source:    "roster.csv",
		CreatedAt: now,
		Errors:    []core.ValidationError{{Row: 2, Field: "lastName", Message: "is required", Severity: core.SeverityError}},
		Accepted:  []core.Record{newProvider("1234567890", "Sarah", "Johnson")},
	}
	s.Require().NoError(s.store.SaveJob(s.ctx, job))

	got, err := s.store.GetJob(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(core.JobPartial, got.Status)
	s.Equal(job.Errors, got.Errors)
	s.Len(got.Accepted, 1)
	s.Nil(got.CommittedAt)

	_, err = s.store.GetJob(s.ctx, uuid.NewString())
	s.ErrorIs(err, core.ErrJobNotFound)

	s.Require().NoError(s.store.ClaimCommit(s.ctx, job.ID, now))
	s.ErrorIs(s.store.ClaimCommit(s.ctx, job.ID, now), core.ErrJobCommitted)
	s.Require().NoError(s.store.ReleaseCommit(s.ctx, job.ID))
	s.NoError(s.store.ClaimCommit(s.ctx, job.ID, now))
	s.ErrorIs(s.store.ClaimCommit(s.ctx, uuid.NewString(), now), core.ErrJobNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentClaimsHaveOneWinner() {
	job := &core.ImportJob{ID: uuid.NewString(), Type: core.JobTemplate, Status: core.JobCompleted, CreatedAt: time.Now()}
	s.Require().NoError(s.store.SaveJob(s.ctx, job))

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.store.ClaimCommit(s.ctx, job.ID, time.Now()) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}

func (s *PostgresStoreSuite) TestListAndPurge() {
	now := time.Now().UTC()
	for _, age := range []time.Duration{72 * time.Hour, time.Hour} {
		s.Require().NoError(s.store.SaveJob(s.ctx, &core.ImportJob{
			ID: uuid.NewString(), Type: core.JobURL, Status: core.JobCompleted, CreatedAt: now.Add(-age),
		}))
	}

	jobs, err := s.store.ListJobs(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)
	s.True(jobs[0].CreatedAt.After(jobs[1].CreatedAt))

	n, err := s.store.PurgeJobs(s.ctx, now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}
