// Package core provides the business logic for provider import operations.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"time"
)

// SourceType records which adapter produced a record.
type SourceType string

const (
	SourceTemplate SourceType = "Template"
	SourceAIMap    SourceType = "AI-Map"
	SourceURL      SourceType = "URL"
)

// RecordStatus is the review state of a provider record.
type RecordStatus string

const (
	StatusPending   RecordStatus = "pending"
	StatusValidated RecordStatus = "validated"
	StatusApproved  RecordStatus = "approved"
	StatusRejected  RecordStatus = "rejected"
)

// Record is a resident/fellow provider record in canonical form.
// Dates are kept as the source strings; ParseDate interprets them when a rule needs a time.
type Record struct {
	ID string `json:"id,omitempty"`

	NPI         string `json:"npi"`
	FirstName   string `json:"firstName"`
	MiddleName  string `json:"middleName,omitempty"`
	LastName    string `json:"lastName"`
	Credentials string `json:"credentials"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`

	PracticeAddress1 string `json:"practiceAddress1"`
	PracticeAddress2 string `json:"practiceAddress2,omitempty"`
	PracticeCity     string `json:"practiceCity"`
	PracticeState    string `json:"practiceState"`
	PracticeZip      string `json:"practiceZip"`

	MailingAddress1 string `json:"mailingAddress1"`
	MailingAddress2 string `json:"mailingAddress2,omitempty"`
	MailingCity     string `json:"mailingCity"`
	MailingState    string `json:"mailingState"`
	MailingZip      string `json:"mailingZip"`

	PrimarySpecialty   string `json:"primarySpecialty"`
	SecondarySpecialty string `json:"secondarySpecialty,omitempty"`
	TaxonomyCode       string `json:"taxonomyCode,omitempty"`

	LicenseState      string `json:"licenseState"`
	LicenseNumber     string `json:"licenseNumber"`
	LicenseIssueDate  string `json:"licenseIssueDate,omitempty"`
	LicenseExpireDate string `json:"licenseExpireDate,omitempty"`

	BoardName              string `json:"boardName,omitempty"`
	BoardCertificationDate string `json:"boardCertificationDate,omitempty"`
	BoardExpirationDate    string `json:"boardExpirationDate,omitempty"`

	ProgramName       string `json:"programName,omitempty"`
	Institution       string `json:"institution,omitempty"`
	ProgramType       string `json:"programType,omitempty"`
	TrainingStartDate string `json:"trainingStartDate,omitempty"`
	TrainingEndDate   string `json:"trainingEndDate,omitempty"`
	PGYYear           string `json:"pgyYear,omitempty"`

	DEANumber      string `json:"deaNumber,omitempty"`
	MedicareNumber string `json:"medicareNumber,omitempty"`
	MedicaidNumber string `json:"medicaidNumber,omitempty"`
	SoleProprietor string `json:"soleProprietor,omitempty"`

	SourceType     SourceType   `json:"sourceType"`
	Status         RecordStatus `json:"status"`
	SourceArtifact string       `json:"sourceArtifact,omitempty"`
	SourceURL      string       `json:"sourceUrl,omitempty"`
	SourceHash     string       `json:"sourceHash,omitempty"`
	EnteredBy      string       `json:"enteredBy,omitempty"`
	Confidence     *float64     `json:"confidence,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Severity distinguishes blocking errors from advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is a single issue found on one row of a batch.
// Row is 1-based; Row 0 is reserved for batch-level failures.
type ValidationError struct {
	Row      int      `json:"row"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Value    string   `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// ValidationResult contains the result of validating a record.
type ValidationResult struct {
	Valid  bool              `json:"isValid"`
	Errors []ValidationError `json:"errors"`
}

// JobType identifies the kind of batch an ImportJob processed.
type JobType string

const (
	JobTemplate JobType = "template"
	JobAIMap    JobType = "ai-map"
	JobURL      JobType = "url"
)

// JobStatus is the lifecycle state of an ImportJob.
// processing is the only non-terminal state.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobPartial    JobStatus = "partial"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobPartial || s == JobFailed
}

// MatchType names the duplicate detection tier that produced a candidate.
type MatchType string

const (
	MatchNPI     MatchType = "npi"
	MatchNameDOB MatchType = "name-dob"
	MatchFuzzy   MatchType = "fuzzy"
)

// SuggestedAction is the reviewer hint attached to a duplicate candidate.
type SuggestedAction string

const (
	ActionMerge     SuggestedAction = "merge"
	ActionSkip      SuggestedAction = "skip"
	ActionCreateNew SuggestedAction = "create-new"
)

// DuplicateCandidate pairs an incoming record with a stored record it may duplicate.
type DuplicateCandidate struct {
	Existing        Record          `json:"existing"`
	Incoming        Record          `json:"incoming"`
	MatchType       MatchType       `json:"matchType"`
	Confidence      float64         `json:"confidence"`
	SuggestedAction SuggestedAction `json:"suggestedAction"`
}

// RowDuplicates groups the duplicate candidates found for one row of a batch.
type RowDuplicates struct {
	Row        int                  `json:"row"`
	Candidates []DuplicateCandidate `json:"candidates"`
}

// ImportJob is the unit of work for one batch.
// A job is owned by the run that created it; nothing else mutates it until it is terminal.
type ImportJob struct {
	ID           string            `json:"id"`
	Type         JobType           `json:"type"`
	Status       JobStatus         `json:"status"`
	Source       string            `json:"source"`
	TotalRecords int               `json:"totalRecords"`
	SuccessCount int               `json:"successCount"`
	ErrorCount   int               `json:"errorCount"`
	WarningCount int               `json:"warningCount"`
	Errors       []ValidationError `json:"errors"`
	Duplicates   []RowDuplicates   `json:"duplicates,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	CreatedBy    string            `json:"createdBy,omitempty"`
	CommittedAt  *time.Time        `json:"committedAt,omitempty"`

	// Accepted holds the rows that produced no blocking errors, in source order.
	Accepted []Record `json:"-"`
}

// ExtractedRecord is the shape produced by the external AI extraction collaborator.
type ExtractedRecord struct {
	Name       string  `json:"name"`
	Specialty  string  `json:"specialty"`
	PGYYear    string  `json:"pgyYear"`
	Email      string  `json:"email,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Confidence float64 `json:"confidence"`
}
