package core

// error_messages.go maps technical errors to messages an import operator can
// act on. Each message carries a code to quote to support.
//
// # Error Codes
//
//	SEC001-SEC099   Security gates (injection, file type, blocked URLs)
//	FILE001-FILE099 Upload files (size, format, empty, read timeout)
//	EXT001-EXT099   URL extraction (robots.txt, extractor failures)
//	IMP001-IMP099   Import jobs (concurrency, lookup, commit)
//	DB001-DB099     Provider store
//	REQ001          Malformed API requests
//	RATE001         Request throttling
//	ERR000          Anything else; check the logs for the original error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins. Several sentinel messages contain "timeout", so every
// specific pattern must come before the generic DB006 entry.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Security
	{
		pattern: "csv injection",
		msg: UserMessage{
			Message: "The file contains a cell that starts with a formula character (=, +, -, @)",
			Action:  "Remove or quote the formula and upload again; the whole file was rejected",
			Code:    "SEC001",
		},
	},
	{
		pattern: "file type not allowed",
		msg: UserMessage{
			Message: "This file type is not accepted",
			Action:  "Download the template and upload a .csv file",
			Code:    "SEC002",
		},
	},
	{
		pattern: "extraction domain blocked",
		msg: UserMessage{
			Message: "Extraction from this address is not allowed",
			Action:  "Use a public program roster page",
			Code:    "SEC003",
		},
	},
	{
		pattern: "invalid url",
		msg: UserMessage{
			Message: "The address is not a valid http or https URL",
			Action:  "Check the URL and try again",
			Code:    "SEC004",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit (10MB)",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE003",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no data rows",
			Action:  "Add provider rows below the header and upload again",
			Code:    "FILE004",
		},
	},
	{
		pattern: "file read timeout",
		msg: UserMessage{
			Message: "Reading the file took too long",
			Action:  "Check your connection or upload a smaller file",
			Code:    "FILE005",
		},
	},

	// Extraction
	{
		pattern: "robots.txt disallows",
		msg: UserMessage{
			Message: "The site does not allow automated access to this page",
			Action:  "Download the roster and use the template upload instead",
			Code:    "EXT001",
		},
	},
	{
		pattern: "robots.txt unavailable",
		msg: UserMessage{
			Message: "Could not confirm the site allows automated access",
			Action:  "Try again later or use the template upload",
			Code:    "EXT005",
		},
	},
	{
		pattern: "extraction timeout",
		msg: UserMessage{
			Message: "Extracting records from the page took too long",
			Action:  "Try again later or use the template upload",
			Code:    "EXT002",
		},
	},
	{
		pattern: "extraction returned no records",
		msg: UserMessage{
			Message: "No provider records were found on the page",
			Action:  "Check that the URL points at a roster page",
			Code:    "EXT003",
		},
	},
	{
		pattern: "extraction service",
		msg: UserMessage{
			Message: "The extraction service is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "EXT004",
		},
	},

	// Import jobs
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "import job not found",
		msg: UserMessage{
			Message: "Import job not found",
			Action:  "The job may have expired. Please run the import again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "already committed",
		msg: UserMessage{
			Message: "This import has already been committed",
			Action:  "No action needed; the records are saved",
			Code:    "IMP003",
		},
	},
	{
		pattern: "no committable records",
		msg: UserMessage{
			Message: "This import has no valid records to save",
			Action:  "Fix the errors in the report and import again",
			Code:    "IMP004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "IMP006",
		},
	},

	// Provider store
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A provider with this NPI already exists",
			Action:  "Review the duplicate candidates before committing",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate NPIs",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the request body and parameters",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
