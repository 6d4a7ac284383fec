// Command validate checks template CSV files offline and prints each
// resulting import job as JSON. Nothing is committed.
//
// Usage:
//
//	validate [-errors dir] [-strict] file.csv [file.csv ...]
//
// With DATABASE_URL set, rows are also checked for duplicates against the
// provider table. Exit status is 1 when any file fails (or, with -strict,
// has row errors).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/provimport/internal/config"
	"github.com/JonMunkholm/provimport/internal/core"
	"github.com/JonMunkholm/provimport/internal/logging"
	"github.com/JonMunkholm/provimport/internal/store/memory"
	"github.com/JonMunkholm/provimport/internal/store/postgres"
)

func main() {
	var (
		errorsDir = flag.String("errors", "", "write an error report per file into this directory")
		strict    = flag.Bool("strict", false, "exit non-zero when any row has errors")
	)
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: validate [-errors dir] [-strict] file.csv [file.csv ...]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// Logs go to stderr so stdout stays valid JSON.
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	ctx := context.Background()
	svcCfg := core.ServiceConfig{
		Jobs: memory.NewJobStore(),
		Security: core.SecurityPolicy{
			MaxFileSize:       cfg.Import.MaxFileSize,
			AllowedExtensions: cfg.Import.AllowedExtensions,
		},
		Rules: core.RuleConfig{
			LicenseWindowMonths: cfg.Rules.LicenseWindowMonths,
			ResidencyMinYears:   cfg.Rules.ResidencyMinYears,
			ResidencyMaxYears:   cfg.Rules.ResidencyMaxYears,
			ConfidenceFloor:     cfg.Rules.ConfidenceFloor,
		},
		ReadTimeout:   cfg.Import.FileReadTimeout,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWait,
	}
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(2)
		}
		defer pool.Close()
		svcCfg.Providers = postgres.New(pool)
		svcCfg.DedupeEnabled = cfg.Dedupe.Enabled
		svcCfg.CandidateLimit = cfg.Dedupe.CandidateLimit
	}

	service, err := core.NewService(svcCfg)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(2)
	}

	paths := flag.Args()
	jobs := make([]*core.ImportJob, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Import.MaxConcurrent)
	for i, path := range paths {
		g.Go(func() error {
			job, err := validateFile(gctx, service, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			jobs[i] = job
			if *errorsDir != "" && len(job.Errors) > 0 {
				return writeReport(*errorsDir, path, job)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("validation aborted", "error", err)
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	exit := 0
	for i, job := range jobs {
		if err := enc.Encode(job); err != nil {
			slog.Error("encode job", "error", err)
			os.Exit(2)
		}
		summarize(os.Stderr, paths[i], job)
		if job.Status == core.JobFailed || (*strict && job.ErrorCount > 0) {
			exit = 1
		}
	}
	os.Exit(exit)
}

// summarize prints a one-line result for path. A failed job adds the
// user-facing reason on a second line.
func summarize(w io.Writer, path string, job *core.ImportJob) {
	fmt.Fprintf(w, "%s: %s, %d rows, %d accepted, %d errors, %d warnings\n",
		path, job.Status, job.TotalRecords, job.SuccessCount, job.ErrorCount, job.WarningCount)
	if job.Status == core.JobFailed && len(job.Errors) > 0 {
		fmt.Fprintf(w, "  %s\n", core.FormatUserError(job.Errors[0]))
	}
}

// describe renders a fatal error with its support code when one applies.
func describe(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}

func validateFile(ctx context.Context, service *core.Service, path string) (*core.ImportJob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return service.ImportFile(ctx, filepath.Base(path), info.Size(), f, "cli")
}

// writeReport saves the job's errors as <dir>/<file>.errors.csv.
func writeReport(dir, path string, job *core.ImportJob) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".errors.csv"
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := core.WriteErrorReport(out, job.Errors); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return out.Close()
}
