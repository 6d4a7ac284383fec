package core

import "errors"

// Batch-level failures. Each aborts the whole job with a single row-0 error.
var (
	ErrNoFile            = errors.New("no file provided")
	ErrEmptyFile         = errors.New("empty file: no data rows")
	ErrFileTooLarge      = errors.New("file too large")
	ErrFileType          = errors.New("file type not allowed")
	ErrInvalidCSV        = errors.New("invalid csv")
	ErrCSVInjection      = errors.New("csv injection: cell begins with a formula character")
	ErrInvalidURL        = errors.New("invalid url")
	ErrDomainBlocked     = errors.New("extraction domain blocked")
	ErrRobotsDisallowed  = errors.New("robots.txt disallows access")
	ErrRobotsUnavailable = errors.New("robots.txt unavailable")
	ErrReadTimeout       = errors.New("file read timeout")
	ErrExtractTimeout    = errors.New("extraction timeout")
	ErrNoRecords         = errors.New("extraction returned no records")
	ErrNoExtractor       = errors.New("extraction service not configured")
)

// Job lookups and commits.
var (
	ErrJobNotFound       = errors.New("import job not found")
	ErrJobCommitted      = errors.New("import job already committed")
	ErrJobNotCommittable = errors.New("import job has no committable records")
)
