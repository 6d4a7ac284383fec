package core

// job.go drives one batch through the per-row pipeline.
//
// Flow per row, in source order:
//
//	map headers -> sanitize -> validate -> business rules -> (dedupe)
//
// Every issue is tagged with the 1-based row number and appended to the job.
// A row that cannot be processed becomes a single row error; the batch goes
// on. Only batch-level failures (empty input, security rejection, read
// timeout) abort the job, and an aborted job carries exactly one row-0 error.
//
// Each Run allocates its own ImportJob. Nothing on the Pipeline is mutated
// by a run, so one Pipeline can serve concurrent batches.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/provimport/internal/logging"
)

// rowField is the field name used for errors that belong to a whole row.
const rowField = "row"

// Batch is one unit of input for the pipeline.
type Batch struct {
	Type       JobType
	SourceType SourceType
	Profile    Profile
	Source     string // File name or URL
	SourceHash string // sha256 of the uploaded bytes, if any
	CreatedBy  string
	Header     []string // Tabular sources only
	Rows       []RawRow
}

// PipelineConfig wires a Pipeline.
type PipelineConfig struct {
	Rules          RuleConfig
	Clock          Clock         // nil means SystemClock
	Store          ProviderStore // nil disables duplicate detection
	DedupeEnabled  bool
	CandidateLimit int
	Metrics        *Metrics
}

// Pipeline is the import job orchestrator.
type Pipeline struct {
	rules          *RuleEngine
	clock          Clock
	store          ProviderStore
	dedupe         bool
	candidateLimit int
	metrics        *Metrics
	tracer         trace.Tracer
}

// NewPipeline creates a pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock
	}
	limit := cfg.CandidateLimit
	if limit <= 0 {
		limit = 200
	}
	return &Pipeline{
		rules:          NewRuleEngine(cfg.Rules, clock),
		clock:          clock,
		store:          cfg.Store,
		dedupe:         cfg.DedupeEnabled && cfg.Store != nil,
		candidateLimit: limit,
		metrics:        cfg.Metrics,
		tracer:         otel.Tracer("github.com/JonMunkholm/provimport/internal/core"),
	}
}

// newJob creates a job in processing state with zeroed counters.
func newJob(b Batch, now time.Time) *ImportJob {
	return &ImportJob{
		ID:        uuid.New().String(),
		Type:      b.Type,
		Status:    JobProcessing,
		Source:    b.Source,
		CreatedBy: b.CreatedBy,
		CreatedAt: now,
		Errors:    []ValidationError{},
	}
}

// finish sets the terminal status from the counters. No-op once terminal.
func (j *ImportJob) finish(now time.Time) {
	if j.Status.Terminal() {
		return
	}
	j.Status = JobCompleted
	if j.ErrorCount > 0 {
		j.Status = JobPartial
	}
	j.CompletedAt = &now
}

// abort fails the job with a single row-0 error. No-op once terminal.
func (j *ImportJob) abort(field string, err error, now time.Time) {
	if j.Status.Terminal() {
		return
	}
	j.Status = JobFailed
	j.TotalRecords = 0
	j.SuccessCount = 0
	j.WarningCount = 0
	j.ErrorCount = 1
	j.Errors = []ValidationError{{
		Row:      0,
		Field:    field,
		Message:  err.Error(),
		Severity: SeverityError,
	}}
	j.Duplicates = nil
	j.Accepted = nil
	j.CompletedAt = &now
}

func abortField(t JobType) string {
	if t == JobTemplate {
		return "file"
	}
	return "source"
}

// Fail returns a failed job for a batch that never reached row processing,
// e.g. an unreadable upload or a rejected URL.
func (p *Pipeline) Fail(ctx context.Context, b Batch, err error) *ImportJob {
	now := p.clock.Now()
	job := newJob(b, now)
	job.abort(abortField(b.Type), err, now)

	jobLogger(ctx, job).Error("import aborted", "source", b.Source, "error", err)
	p.metrics.ObserveJob(job, 0)
	return job
}

// jobLogger tags entries with the job and, for HTTP imports, the caller's IP.
func jobLogger(ctx context.Context, job *ImportJob) *slog.Logger {
	logger := logging.WithFields(ctx, "job_id", job.ID, "job_type", job.Type)
	if ip := ClientIPFromContext(ctx); ip != "" {
		logger = logger.With("client_ip", ip)
	}
	return logger
}

// Run processes every row of b and returns the finished job.
func (p *Pipeline) Run(ctx context.Context, b Batch) *ImportJob {
	start := time.Now()
	job := newJob(b, p.clock.Now())
	logger := jobLogger(ctx, job)

	ctx, span := p.tracer.Start(ctx, "import.run", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.type", string(job.Type)),
		attribute.Int("job.rows", len(b.Rows)),
	))
	defer span.End()

	logger.Info("import started", "source", b.Source, "rows", len(b.Rows))

	if err := p.preflight(b); err != nil {
		job.abort(abortField(b.Type), err, p.clock.Now())
		span.SetStatus(codes.Error, err.Error())
		logger.Error("import aborted", "source", b.Source, "error", err)
		p.metrics.ObserveJob(job, time.Since(start))
		return job
	}

	hm := MapHeaders(b.Header)
	if b.Header != nil {
		if len(hm.Unmapped) > 0 {
			logger.Debug("dropping unmapped columns", "columns", hm.Unmapped)
		}
		if missing := MissingColumns(hm, b.Profile); len(missing) > 0 {
			logger.Warn("required columns missing from header", "columns", missing)
		}
	}

	seenNPI := make(map[string]int)

	for i, raw := range b.Rows {
		rowNum := raw.Line
		if rowNum == 0 {
			rowNum = i + 1
		}
		job.TotalRecords++

		rec, issues := p.processRow(b, hm, raw)
		if raw.Err != nil || rec == nil {
			logger.Warn("row exception", "row", rowNum, "error", issues[0].Message)
		}

		if rec != nil && rec.NPI != "" {
			if first, dup := seenNPI[rec.NPI]; dup {
				issues = append(issues, ValidationError{
					Field:    string(FieldNPI),
					Message:  fmt.Sprintf("NPI repeats row %d of this file", first),
					Severity: SeverityWarning,
					Value:    rec.NPI,
				})
			} else {
				seenNPI[rec.NPI] = rowNum
			}
		}

		rowErrors := 0
		for _, ve := range issues {
			ve.Row = rowNum
			job.Errors = append(job.Errors, ve)
			p.metrics.IncrementIssue(ve)
			if ve.Severity == SeverityError {
				job.ErrorCount++
				rowErrors++
			} else {
				job.WarningCount++
			}
		}

		p.metrics.IncrementRow(rowErrors == 0)
		if rowErrors > 0 {
			continue
		}

		job.SuccessCount++
		rec.Status = StatusValidated
		job.Accepted = append(job.Accepted, *rec)

		if p.dedupe {
			if cands := p.findDuplicates(ctx, *rec); len(cands) > 0 {
				job.Duplicates = append(job.Duplicates, RowDuplicates{Row: rowNum, Candidates: cands})
			}
		}
	}

	job.finish(p.clock.Now())

	span.SetAttributes(
		attribute.String("job.status", string(job.Status)),
		attribute.Int("job.errors", job.ErrorCount),
		attribute.Int("job.warnings", job.WarningCount),
	)
	logger.Info("import finished",
		"status", job.Status,
		"total", job.TotalRecords,
		"success", job.SuccessCount,
		"errors", job.ErrorCount,
		"warnings", job.WarningCount,
		"duplicates", len(job.Duplicates),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	p.metrics.ObserveJob(job, time.Since(start))
	return job
}

// preflight runs the batch-level checks that must pass before any row.
func (p *Pipeline) preflight(b Batch) error {
	if len(b.Rows) == 0 {
		return ErrEmptyFile
	}
	return ScanForInjection(b.Header, b.Rows)
}

// processRow maps, sanitizes, validates, and rule-checks one row.
// A nil record means the row could not be turned into a record at all.
// Panics are recovered into a single row error.
func (p *Pipeline) processRow(b Batch, hm HeaderMap, raw RawRow) (rec *Record, issues []ValidationError) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			issues = []ValidationError{rowError(fmt.Sprintf("row processing failed: %v", r), "")}
		}
	}()

	if raw.Err != nil {
		return nil, []ValidationError{rowError("malformed row: "+raw.Err.Error(), "")}
	}

	var r Record
	switch {
	case raw.Record != nil:
		r = *raw.Record
	case len(raw.Cells) != hm.Width():
		return nil, []ValidationError{rowError(
			fmt.Sprintf("expected %d columns, got %d", hm.Width(), len(raw.Cells)),
			strings.Join(raw.Cells, ","),
		)}
	default:
		r = hm.Apply(raw.Cells)
	}

	r.SourceType = b.SourceType
	r.Status = StatusPending
	if r.SourceArtifact == "" {
		r.SourceArtifact = b.Source
	}
	if r.SourceHash == "" {
		r.SourceHash = b.SourceHash
	}
	if r.EnteredBy == "" {
		r.EnteredBy = b.CreatedBy
	}

	SanitizeRecord(&r)

	res := ValidateAt(r, b.Profile, p.clock.Now())
	issues = append(issues, res.Errors...)
	issues = append(issues, p.rules.Check(r)...)
	return &r, issues
}

const maxErrorValueRunes = 200

// rowError builds a row-level error. The echoed value is sanitized and cut
// to maxErrorValueRunes.
func rowError(msg, value string) ValidationError {
	value = Sanitize(value)
	if utf8.RuneCountInString(value) > maxErrorValueRunes {
		value = string([]rune(value)[:maxErrorValueRunes])
	}
	return ValidationError{Field: rowField, Message: msg, Severity: SeverityError, Value: value}
}

// findDuplicates queries the store's candidate window for rec and runs the
// detector over it. Store failures are logged and yield no candidates.
func (p *Pipeline) findDuplicates(ctx context.Context, rec Record) []DuplicateCandidate {
	hints := FilterHintsFor(rec, p.candidateLimit)
	if hints.Empty() {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "import.dedupe")
	defer span.End()

	window, err := p.store.QueryCandidates(ctx, hints)
	if err != nil {
		span.RecordError(err)
		logging.FromContext(ctx).Warn("candidate query failed", "npi", rec.NPI, "error", err)
		return nil
	}
	span.SetAttributes(attribute.Int("dedupe.window", len(window)))

	cands := FindDuplicates(rec, window)
	p.metrics.IncrementDuplicates(cands)
	return cands
}
