package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/provimport/internal/logging"
)

const (
	DefaultReadTimeout    = 30 * time.Second
	DefaultExtractTimeout = 45 * time.Second
	DefaultListLimit      = 50
)

// Extractor turns a roster page into extracted provider objects.
type Extractor interface {
	Extract(ctx context.Context, u *url.URL) ([]ExtractedRecord, error)
}

// ComplianceChecker decides whether a URL may be fetched for extraction.
// Returns ErrRobotsDisallowed when the site opts out.
type ComplianceChecker interface {
	Check(ctx context.Context, u *url.URL) error
}

// ServiceConfig wires a Service. Jobs is required; the rest are optional.
type ServiceConfig struct {
	Jobs       JobStore
	Providers  ProviderStore // nil disables dedupe and commit
	Extractor  Extractor     // nil disables URL imports
	Compliance ComplianceChecker

	Security       SecurityPolicy
	Rules          RuleConfig
	Clock          Clock
	DedupeEnabled  bool
	CandidateLimit int
	ReadTimeout    time.Duration
	ExtractTimeout time.Duration
	MaxConcurrent  int
	MaxWait        time.Duration
	Metrics        *Metrics
}

// Service provides the import operations used by the web and CLI layers.
type Service struct {
	pipeline   *Pipeline
	jobs       JobStore
	providers  ProviderStore
	extractor  Extractor
	compliance ComplianceChecker
	policy     SecurityPolicy
	limiter    *ImportLimiter
	clock      Clock

	readTimeout    time.Duration
	extractTimeout time.Duration
}

// NewService creates a new Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Jobs == nil {
		return nil, errors.New("new service: job store is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = DefaultExtractTimeout
	}

	return &Service{
		pipeline: NewPipeline(PipelineConfig{
			Rules:          cfg.Rules,
			Clock:          clock,
			Store:          cfg.Providers,
			DedupeEnabled:  cfg.DedupeEnabled,
			CandidateLimit: cfg.CandidateLimit,
			Metrics:        cfg.Metrics,
		}),
		jobs:           cfg.Jobs,
		providers:      cfg.Providers,
		extractor:      cfg.Extractor,
		compliance:     cfg.Compliance,
		policy:         cfg.Security,
		limiter:        NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		clock:          clock,
		readTimeout:    cfg.ReadTimeout,
		extractTimeout: cfg.ExtractTimeout,
	}, nil
}

// Limiter exposes the concurrency limiter for health checks and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// ImportFile validates an uploaded template CSV.
//
// Failures before row processing still produce a saved, failed job. The
// returned error is reserved for problems that prevent a job from existing
// at all: the limiter is full, the context ended, or the job store failed.
func (s *Service) ImportFile(ctx context.Context, name string, size int64, r io.Reader, createdBy string) (*ImportJob, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	b := Batch{
		Type:       JobTemplate,
		SourceType: SourceTemplate,
		Profile:    ProfileTemplate,
		Source:     name,
		CreatedBy:  createdBy,
	}

	if err := s.policy.CheckFile(name, size); err != nil {
		return s.save(ctx, s.pipeline.Fail(ctx, b, err))
	}

	header, rows, hash, err := s.readUpload(ctx, r)
	if err != nil {
		return s.save(ctx, s.pipeline.Fail(ctx, b, err))
	}
	b.Header = header
	b.Rows = rows
	b.SourceHash = hash

	return s.save(ctx, s.pipeline.Run(ctx, b))
}

type readResult struct {
	header []string
	rows   []RawRow
	hash   string
	err    error
}

// readUpload parses r under the read timeout. The reader goroutine is left
// to finish on its own if the timeout fires first.
func (s *Service) readUpload(ctx context.Context, r io.Reader) ([]string, []RawRow, string, error) {
	h := sha256.New()
	decoded, counter := WrapForStreaming(io.TeeReader(r, h), s.policy.MaxFileSize)

	done := make(chan readResult, 1)
	go func() {
		header, rows, err := ReadCSV(decoded)
		done <- readResult{header: header, rows: rows, hash: hex.EncodeToString(h.Sum(nil)), err: err}
	}()

	timer := time.NewTimer(s.readTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		logging.FromContext(ctx).Debug("upload read", "bytes", counter.BytesRead(), "rows", len(res.rows))
		return res.header, res.rows, res.hash, res.err
	case <-timer.C:
		return nil, nil, "", fmt.Errorf("%w after %d bytes", ErrReadTimeout, counter.BytesRead())
	case <-ctx.Done():
		return nil, nil, "", ctx.Err()
	}
}

// ImportExtracted validates objects produced by the AI mapping collaborator.
func (s *Service) ImportExtracted(ctx context.Context, source string, records []ExtractedRecord, createdBy string) (*ImportJob, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	b := Batch{
		Type:       JobAIMap,
		SourceType: SourceAIMap,
		Profile:    ProfileExtracted,
		Source:     source,
		CreatedBy:  createdBy,
	}
	if len(records) == 0 {
		return s.save(ctx, s.pipeline.Fail(ctx, b, ErrNoRecords))
	}
	b.Rows = ExtractedRows(records)
	return s.save(ctx, s.pipeline.Run(ctx, b))
}

// ImportURL checks a roster URL, extracts providers from it, and validates them.
func (s *Service) ImportURL(ctx context.Context, rawURL string, createdBy string) (*ImportJob, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	b := Batch{
		Type:       JobURL,
		SourceType: SourceURL,
		Profile:    ProfileExtracted,
		Source:     rawURL,
		CreatedBy:  createdBy,
	}

	records, err := s.extractURL(ctx, rawURL)
	if err != nil {
		return s.save(ctx, s.pipeline.Fail(ctx, b, err))
	}

	b.Rows = ExtractedRows(records)
	for i := range b.Rows {
		b.Rows[i].Record.SourceURL = rawURL
	}
	return s.save(ctx, s.pipeline.Run(ctx, b))
}

func (s *Service) extractURL(ctx context.Context, rawURL string) ([]ExtractedRecord, error) {
	u, err := s.policy.CheckURL(rawURL)
	if err != nil {
		return nil, err
	}
	if s.extractor == nil {
		return nil, ErrNoExtractor
	}
	if s.compliance != nil {
		if err := s.compliance.Check(ctx, u); err != nil {
			return nil, err
		}
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()

	records, err := s.extractor.Extract(extractCtx, u)
	if err != nil {
		if errors.Is(extractCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrExtractTimeout
		}
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

func (s *Service) save(ctx context.Context, job *ImportJob) (*ImportJob, error) {
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return job, nil
}

// GetJob returns a job by ID, or ErrJobNotFound.
func (s *Service) GetJob(ctx context.Context, id string) (*ImportJob, error) {
	return s.jobs.GetJob(ctx, id)
}

// ListJobs returns the most recent jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, limit int) ([]*ImportJob, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.jobs.ListJobs(ctx, limit)
}

// CheckDuplicates runs a single record against the provider store.
func (s *Service) CheckDuplicates(ctx context.Context, r Record) ([]DuplicateCandidate, error) {
	if s.providers == nil {
		return nil, nil
	}
	SanitizeRecord(&r)
	hints := FilterHintsFor(r, s.pipeline.candidateLimit)
	if hints.Empty() {
		return nil, nil
	}
	window, err := s.providers.QueryCandidates(ctx, hints)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	return FindDuplicates(r, window), nil
}

// CommitJob writes a job's accepted records to the provider store.
// A job can be committed once; a failed insert releases the claim.
func (s *Service) CommitJob(ctx context.Context, id string) (int, error) {
	if s.providers == nil {
		return 0, fmt.Errorf("commit job %s: %w", id, ErrJobNotCommittable)
	}
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return 0, err
	}
	if job.Status == JobFailed || len(job.Accepted) == 0 {
		return 0, ErrJobNotCommittable
	}

	now := s.clock.Now()
	if err := s.jobs.ClaimCommit(ctx, id, now); err != nil {
		return 0, err
	}

	records := make([]Record, len(job.Accepted))
	for i, r := range job.Accepted {
		r.ID = uuid.New().String()
		r.CreatedAt = now
		r.UpdatedAt = now
		records[i] = r
	}

	logger := logging.WithFields(ctx, "job_id", id)
	if err := s.providers.BulkInsert(ctx, records); err != nil {
		if rerr := s.jobs.ReleaseCommit(ctx, id); rerr != nil {
			logger.Error("release commit claim failed", "error", rerr)
		}
		return 0, fmt.Errorf("commit job %s: %w", id, err)
	}

	logger.Info("import committed", "records", len(records))
	return len(records), nil
}

// Template writes the blank import template.
func (s *Service) Template(w io.Writer) error {
	return WriteTemplate(w)
}
