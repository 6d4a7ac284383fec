// Package postgres implements the provider and job stores on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/provimport/internal/core"
)

//go:embed schema.sql
var schemaSQL string

var (
	_ core.ProviderStore = (*Store)(nil)
	_ core.JobStore      = (*Store)(nil)
)

// Store persists providers and import jobs in one database.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// column maps a string field of core.Record to its table column.
type column struct {
	name  string
	field core.Field
	date  bool
}

var fieldColumns = []column{
	{"npi", core.FieldNPI, false},
	{"first_name", core.FieldFirstName, false},
	{"middle_name", core.FieldMiddleName, false},
	{"last_name", core.FieldLastName, false},
	{"credentials", core.FieldCredentials, false},
	{"gender", core.FieldGender, false},
	{"date_of_birth", core.FieldDateOfBirth, true},
	{"email", core.FieldEmail, false},
	{"phone", core.FieldPhone, false},
	{"practice_address1", core.FieldPracticeAddress1, false},
	{"practice_address2", core.FieldPracticeAddress2, false},
	{"practice_city", core.FieldPracticeCity, false},
	{"practice_state", core.FieldPracticeState, false},
	{"practice_zip", core.FieldPracticeZip, false},
	{"mailing_address1", core.FieldMailingAddress1, false},
	{"mailing_address2", core.FieldMailingAddress2, false},
	{"mailing_city", core.FieldMailingCity, false},
	{"mailing_state", core.FieldMailingState, false},
	{"mailing_zip", core.FieldMailingZip, false},
	{"primary_specialty", core.FieldPrimarySpecialty, false},
	{"secondary_specialty", core.FieldSecondarySpecialty, false},
	{"taxonomy_code", core.FieldTaxonomyCode, false},
	{"license_state", core.FieldLicenseState, false},
	{"license_number", core.FieldLicenseNumber, false},
	{"license_issue_date", core.FieldLicenseIssueDate, true},
	{"license_expire_date", core.FieldLicenseExpireDate, true},
	{"board_name", core.FieldBoardName, false},
	{"board_certification_date", core.FieldBoardCertificationDate, true},
	{"board_expiration_date", core.FieldBoardExpirationDate, true},
	{"program_name", core.FieldProgramName, false},
	{"institution", core.FieldInstitution, false},
	{"program_type", core.FieldProgramType, false},
	{"training_start_date", core.FieldTrainingStartDate, true},
	{"training_end_date", core.FieldTrainingEndDate, true},
	{"pgy_year", core.FieldPGYYear, false},
	{"dea_number", core.FieldDEANumber, false},
	{"medicare_number", core.FieldMedicareNumber, false},
	{"medicaid_number", core.FieldMedicaidNumber, false},
	{"sole_proprietor", core.FieldSoleProprietor, false},
	{"source_artifact", core.FieldSourceArtifact, false},
	{"source_url", core.FieldSourceURL, false},
	{"source_hash", core.FieldSourceHash, false},
	{"entered_by", core.FieldEnteredBy, false},
}

// providerColumns lists every providers column in scan and copy order.
var providerColumns = func() []string {
	cols := []string{"id"}
	for _, c := range fieldColumns {
		cols = append(cols, c.name)
	}
	return append(cols, "source_type", "status", "confidence", "created_at", "updated_at")
}()

var providerColumnList = strings.Join(providerColumns, ", ")

// providerValues returns r in providerColumns order.
func providerValues(r core.Record) []any {
	vals := make([]any, 0, len(providerColumns))
	vals = append(vals, toPgUUID(r.ID))
	for _, c := range fieldColumns {
		if c.date {
			vals = append(vals, toPgDate(r.Get(c.field)))
		} else {
			vals = append(vals, toPgText(r.Get(c.field)))
		}
	}
	return append(vals,
		string(r.SourceType),
		string(r.Status),
		toPgFloat8(r.Confidence),
		r.CreatedAt,
		r.UpdatedAt,
	)
}

func scanProvider(row pgx.Row) (core.Record, error) {
	var (
		id         pgtype.UUID
		sourceType string
		status     string
		confidence pgtype.Float8
		r          core.Record
	)
	texts := make([]pgtype.Text, len(fieldColumns))
	dates := make([]pgtype.Date, len(fieldColumns))
	dest := make([]any, 0, len(providerColumns))
	dest = append(dest, &id)
	for i, c := range fieldColumns {
		if c.date {
			dest = append(dest, &dates[i])
		} else {
			dest = append(dest, &texts[i])
		}
	}
	dest = append(dest, &sourceType, &status, &confidence, &r.CreatedAt, &r.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return core.Record{}, err
	}

	r.ID = pgUUIDToString(id)
	for i, c := range fieldColumns {
		if c.date {
			r.Set(c.field, pgDateToString(dates[i]))
		} else {
			r.Set(c.field, pgTextToString(texts[i]))
		}
	}
	r.SourceType = core.SourceType(sourceType)
	r.Status = core.RecordStatus(status)
	r.Confidence = pgFloat8ToPtr(confidence)
	return r, nil
}

// QueryCandidates selects providers sharing the NPI, the last name, or both
// state and specialty with hints.
func (s *Store) QueryCandidates(ctx context.Context, hints core.FilterHints) ([]core.Record, error) {
	if hints.Empty() {
		return nil, nil
	}

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if hints.NPI != "" {
		conds = append(conds, "npi = "+arg(hints.NPI))
	}
	if hints.LastName != "" {
		conds = append(conds, "lower(last_name) = lower("+arg(hints.LastName)+")")
	}
	if hints.State != "" && hints.Specialty != "" {
		conds = append(conds, fmt.Sprintf("(lower(practice_state) = lower(%s) AND lower(primary_specialty) = lower(%s))",
			arg(hints.State), arg(hints.Specialty)))
	}

	query := "SELECT " + providerColumnList + " FROM providers WHERE " + strings.Join(conds, " OR ") + " ORDER BY created_at, id"
	if hints.Limit > 0 {
		query += " LIMIT " + arg(hints.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		r, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	return out, nil
}

// BulkInsert copies records into a staging table and upserts them on NPI in
// one transaction. When a batch repeats an NPI the later record wins.
func (s *Store) BulkInsert(ctx context.Context, records []core.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if _, err := tx.Exec(ctx,
		`CREATE TEMP TABLE providers_stage (LIKE providers INCLUDING DEFAULTS, ord INTEGER) ON COMMIT DROP`); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}

	copyCols := append(append([]string{}, providerColumns...), "ord")
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"providers_stage"}, copyCols,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return append(providerValues(records[i]), int32(i)), nil
		}))
	if err != nil {
		return fmt.Errorf("copy providers: %w", err)
	}

	var updates []string
	for _, c := range providerColumns {
		if c == "id" || c == "created_at" {
			continue
		}
		updates = append(updates, c+" = EXCLUDED."+c)
	}
	upsert := fmt.Sprintf(`INSERT INTO providers (%[1]s)
SELECT DISTINCT ON (COALESCE(npi, id::text)) %[1]s FROM providers_stage
ORDER BY COALESCE(npi, id::text), ord DESC
ON CONFLICT (npi) DO UPDATE SET %[2]s`, providerColumnList, strings.Join(updates, ", "))

	if _, err := tx.Exec(ctx, upsert); err != nil {
		return fmt.Errorf("upsert providers: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const jobColumns = `id, type, status, source, total_records, success_count, error_count, warning_count,
errors, duplicates, accepted, created_by, created_at, completed_at, committed_at`

func (s *Store) SaveJob(ctx context.Context, job *core.ImportJob) error {
	errs, err := marshalJSON(job.Errors)
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}
	dups, err := marshalJSON(job.Duplicates)
	if err != nil {
		return fmt.Errorf("encode duplicates: %w", err)
	}
	accepted, err := marshalJSON(job.Accepted)
	if err != nil {
		return fmt.Errorf("encode accepted: %w", err)
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO import_jobs (`+jobColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	total_records = EXCLUDED.total_records,
	success_count = EXCLUDED.success_count,
	error_count = EXCLUDED.error_count,
	warning_count = EXCLUDED.warning_count,
	errors = EXCLUDED.errors,
	duplicates = EXCLUDED.duplicates,
	accepted = EXCLUDED.accepted,
	completed_at = EXCLUDED.completed_at,
	committed_at = EXCLUDED.committed_at`,
		toPgUUID(job.ID), string(job.Type), string(job.Status), job.Source,
		job.TotalRecords, job.SuccessCount, job.ErrorCount, job.WarningCount,
		errs, dups, accepted, toPgText(job.CreatedBy),
		job.CreatedAt, job.CompletedAt, job.CommittedAt,
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// marshalJSON encodes nil slices as an empty array to satisfy NOT NULL.
func marshalJSON[T any](v []T) ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

func scanJob(row pgx.Row) (*core.ImportJob, error) {
	var (
		job                   core.ImportJob
		id                    pgtype.UUID
		jobType, status       string
		createdBy             pgtype.Text
		errs, dups, accepted  []byte
		completedAt, commitAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &jobType, &status, &job.Source,
		&job.TotalRecords, &job.SuccessCount, &job.ErrorCount, &job.WarningCount,
		&errs, &dups, &accepted, &createdBy, &job.CreatedAt, &completedAt, &commitAt)
	if err != nil {
		return nil, err
	}

	job.ID = pgUUIDToString(id)
	job.Type = core.JobType(jobType)
	job.Status = core.JobStatus(status)
	job.CreatedBy = pgTextToString(createdBy)
	job.CompletedAt = pgTimeToPtr(completedAt)
	job.CommittedAt = pgTimeToPtr(commitAt)

	if err := json.Unmarshal(errs, &job.Errors); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	if err := json.Unmarshal(dups, &job.Duplicates); err != nil {
		return nil, fmt.Errorf("decode duplicates: %w", err)
	}
	if err := json.Unmarshal(accepted, &job.Accepted); err != nil {
		return nil, fmt.Errorf("decode accepted: %w", err)
	}
	return &job, nil
}

func pgTimeToPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (s *Store) GetJob(ctx context.Context, id string) (*core.ImportJob, error) {
	uid := toPgUUID(id)
	if !uid.Valid {
		return nil, core.ErrJobNotFound
	}
	job, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM import_jobs WHERE id = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns up to limit jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*core.ImportJob, error) {
	query := `SELECT ` + jobColumns + ` FROM import_jobs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*core.ImportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return out, nil
}

// ClaimCommit sets committed_at only if it is still NULL, so concurrent
// commits of one job have a single winner.
func (s *Store) ClaimCommit(ctx context.Context, id string, at time.Time) error {
	uid := toPgUUID(id)
	if !uid.Valid {
		return core.ErrJobNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_jobs SET committed_at = $2 WHERE id = $1 AND committed_at IS NULL`, uid, at)
	if err != nil {
		return fmt.Errorf("claim commit: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM import_jobs WHERE id = $1)`, uid).Scan(&exists); err != nil {
		return fmt.Errorf("claim commit: %w", err)
	}
	if exists {
		return core.ErrJobCommitted
	}
	return core.ErrJobNotFound
}

func (s *Store) ReleaseCommit(ctx context.Context, id string) error {
	uid := toPgUUID(id)
	if !uid.Valid {
		return core.ErrJobNotFound
	}
	tag, err := s.pool.Exec(ctx, `UPDATE import_jobs SET committed_at = NULL WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("release commit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrJobNotFound
	}
	return nil
}

func (s *Store) PurgeJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM import_jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
