package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "csv injection", err: fmt.Errorf("%w: row 3 column 2", ErrCSVInjection), wantCode: "SEC001"},
		{name: "file type", err: ErrFileType, wantCode: "SEC002"},
		{name: "blocked domain", err: fmt.Errorf("%w: 10.0.0.1", ErrDomainBlocked), wantCode: "SEC003"},
		{name: "invalid url", err: ErrInvalidURL, wantCode: "SEC004"},
		{name: "file too large", err: fmt.Errorf("%w: 20971520 bytes", ErrFileTooLarge), wantCode: "FILE001"},
		{name: "invalid csv header", err: fmt.Errorf("%w: header: bad quote", ErrInvalidCSV), wantCode: "FILE002"},
		{name: "no file", err: ErrNoFile, wantCode: "FILE003"},
		{name: "empty file", err: ErrEmptyFile, wantCode: "FILE004"},
		{name: "read timeout is not a db timeout", err: ErrReadTimeout, wantCode: "FILE005"},
		{name: "robots", err: ErrRobotsDisallowed, wantCode: "EXT001"},
		{name: "robots unreachable", err: fmt.Errorf("%w: status 503", ErrRobotsUnavailable), wantCode: "EXT005"},
		{name: "extraction timeout is not a db timeout", err: ErrExtractTimeout, wantCode: "EXT002"},
		{name: "no records", err: ErrNoRecords, wantCode: "EXT003"},
		{name: "extraction service", err: errors.New("extraction service: status 502"), wantCode: "EXT004"},
		{name: "busy", err: ErrTooManyImports, wantCode: "IMP001"},
		{name: "job not found", err: ErrJobNotFound, wantCode: "IMP002"},
		{name: "committed", err: ErrJobCommitted, wantCode: "IMP003"},
		{name: "not committable", err: ErrJobNotCommittable, wantCode: "IMP004"},
		{name: "cancelled", err: fmt.Errorf("query: %w", errors.New("context canceled")), wantCode: "IMP005"},
		{name: "duplicate key", err: errors.New("ERROR: duplicate key value violates unique constraint \"providers_npi_key\""), wantCode: "DB001"},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), wantCode: "DB004"},
		{name: "generic timeout", err: errors.New("i/o timeout"), wantCode: "DB006"},
		{name: "bad request body", err: errors.New("invalid request: unexpected EOF"), wantCode: "REQ001"},
		{name: "rate limit", err: errors.New("rate limit exceeded"), wantCode: "RATE001"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
		{name: "case insensitive matching", err: errors.New("DUPLICATE KEY value"), wantCode: "DB001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v) code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrEmptyFile)

	expected := "The uploaded file has no data rows (Code: FILE004). Add provider rows below the header and upload again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrJobCommitted, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("claim commit: %w", ErrJobCommitted)
		userErr := NewUserError(techErr)

		if userErr.Error() != "This import has already been committed" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrJobCommitted) {
			t.Error("Unwrap() should expose the original error")
		}
	})
}
