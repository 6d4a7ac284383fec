package core

// validation.go provides record-level schema validation.
//
// Validation happens at two levels:
//  1. Field rules: a declarative list of FieldRule values (required, pattern,
//     date, integer range) evaluated by one generic runner
//  2. Invariants: named whole-record checks run after the field rules, each
//     producing at most one error attached to the later-dated field
//
// Validate never stops at the first failure. Every violation is collected so a
// row's error list is complete. All schema issues are blocking errors.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Profile selects which fields are required.
// Format rules are identical across profiles.
type Profile int

const (
	// ProfileTemplate requires the full template field set.
	ProfileTemplate Profile = iota
	// ProfileExtracted requires only what AI extraction can produce.
	ProfileExtracted
)

func (p Profile) String() string {
	switch p {
	case ProfileTemplate:
		return "template"
	case ProfileExtracted:
		return "extracted"
	default:
		return "unknown"
	}
}

// FieldRule is one declarative constraint on a single field.
type FieldRule struct {
	Field    Field
	Required bool
	Pattern  *regexp.Regexp // Checked when the value is non-empty
	Message  string         // Reported when Pattern, Date, or range fails
	Date     bool           // Value must parse with ParseDate
	Min, Max int            // Inclusive integer range, checked when Max > 0
}

// check returns a failure message for a non-empty value, or "".
func (rule FieldRule) check(value string, now time.Time) string {
	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		return rule.Message
	}
	if rule.Date {
		if _, ok := ParseDateAt(value, now); !ok {
			return rule.Message
		}
	}
	if rule.Max > 0 {
		n, err := strconv.Atoi(value)
		if err != nil || n < rule.Min || n > rule.Max {
			return rule.Message
		}
	}
	return ""
}

var (
	npiPattern   = regexp.MustCompile(`^\d{10}$`)
	phonePattern = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
	statePattern = regexp.MustCompile(`^[A-Z]{2}$`)
	zipPattern   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const (
	msgRequired = "required field is empty"
	msgNPI      = "NPI must be exactly 10 digits"
	msgPhone    = "phone must be formatted as (XXX) XXX-XXXX"
	msgState    = "state must be 2 uppercase letters"
	msgZip      = "ZIP must be 12345 or 12345-6789"
	msgEmail    = "invalid email address"
	msgDate     = "invalid date format (use YYYY-MM-DD or similar)"
	msgPGY      = "PGY year must be a whole number from 1 to 10"
)

// formatRules holds the per-field format constraints shared by all profiles.
var formatRules = map[Field]FieldRule{
	FieldNPI:                    {Pattern: npiPattern, Message: msgNPI},
	FieldPhone:                  {Pattern: phonePattern, Message: msgPhone},
	FieldEmail:                  {Pattern: emailPattern, Message: msgEmail},
	FieldPracticeState:          {Pattern: statePattern, Message: msgState},
	FieldMailingState:           {Pattern: statePattern, Message: msgState},
	FieldLicenseState:           {Pattern: statePattern, Message: msgState},
	FieldPracticeZip:            {Pattern: zipPattern, Message: msgZip},
	FieldMailingZip:             {Pattern: zipPattern, Message: msgZip},
	FieldDateOfBirth:            {Date: true, Message: msgDate},
	FieldLicenseIssueDate:       {Date: true, Message: msgDate},
	FieldLicenseExpireDate:      {Date: true, Message: msgDate},
	FieldBoardCertificationDate: {Date: true, Message: msgDate},
	FieldBoardExpirationDate:    {Date: true, Message: msgDate},
	FieldTrainingStartDate:      {Date: true, Message: msgDate},
	FieldTrainingEndDate:        {Date: true, Message: msgDate},
	FieldPGYYear:                {Min: 1, Max: 10, Message: msgPGY},
}

var templateRequired = []Field{
	FieldNPI, FieldFirstName, FieldLastName, FieldCredentials,
	FieldPracticeAddress1, FieldPracticeCity, FieldPracticeState, FieldPracticeZip,
	FieldMailingAddress1, FieldMailingCity, FieldMailingState, FieldMailingZip,
	FieldPrimarySpecialty, FieldLicenseState, FieldLicenseNumber,
}

var extractedRequired = []Field{
	FieldFirstName, FieldLastName, FieldPrimarySpecialty,
}

var profileRules = map[Profile][]FieldRule{
	ProfileTemplate:  buildRules(templateRequired),
	ProfileExtracted: buildRules(extractedRequired),
}

// buildRules merges the required set with the shared format rules, in
// template column order so errors come out in a stable, familiar order.
func buildRules(required []Field) []FieldRule {
	req := make(map[Field]bool, len(required))
	for _, f := range required {
		req[f] = true
	}

	var rules []FieldRule
	for _, col := range TemplateColumns {
		rule, hasFormat := formatRules[col.Field]
		if !hasFormat && !req[col.Field] {
			continue
		}
		rule.Field = col.Field
		rule.Required = req[col.Field]
		rules = append(rules, rule)
	}
	return rules
}

// Rules returns the field rules of a profile.
func (p Profile) Rules() []FieldRule {
	return profileRules[p]
}

// RequiredFields returns the fields a profile requires.
func (p Profile) RequiredFields() []Field {
	var out []Field
	for _, rule := range p.Rules() {
		if rule.Required {
			out = append(out, rule.Field)
		}
	}
	return out
}

// Invariant is a named whole-record check.
type Invariant struct {
	Name  string
	Check func(r *Record, now time.Time) *ValidationError
}

// Invariants run after the field rules.
var Invariants = []Invariant{
	{
		Name: "license expiration after issue",
		Check: func(r *Record, now time.Time) *ValidationError {
			return mustFollow(r.LicenseIssueDate, r.LicenseExpireDate, now, FieldLicenseExpireDate,
				"license expiration date must be after issue date")
		},
	},
	{
		Name: "training end after start",
		Check: func(r *Record, now time.Time) *ValidationError {
			return mustFollow(r.TrainingStartDate, r.TrainingEndDate, now, FieldTrainingEndDate,
				"training end date must be after start date")
		},
	},
}

// mustFollow reports an error on field when both dates parse and later is
// not strictly after earlier. Unparseable dates are left to the field rules.
func mustFollow(earlier, later string, now time.Time, field Field, msg string) *ValidationError {
	start, ok := ParseDateAt(earlier, now)
	if !ok {
		return nil
	}
	end, ok := ParseDateAt(later, now)
	if !ok {
		return nil
	}
	if end.After(start) {
		return nil
	}
	return &ValidationError{
		Field:    string(field),
		Message:  msg,
		Severity: SeverityError,
		Value:    later,
	}
}

// Validate checks a record against a profile's field rules and the
// cross-field invariants. Row numbers are left at zero for the caller to set.
func Validate(r Record, p Profile) ValidationResult {
	return ValidateAt(r, p, time.Now())
}

// ValidateAt is Validate with two-digit years pivoted on now.
func ValidateAt(r Record, p Profile, now time.Time) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, rule := range p.Rules() {
		value := strings.TrimSpace(r.Get(rule.Field))

		if value == "" {
			if rule.Required {
				result.add(ValidationError{Field: string(rule.Field), Message: msgRequired})
			}
			continue
		}

		if msg := rule.check(value, now); msg != "" {
			result.add(ValidationError{Field: string(rule.Field), Message: msg, Value: value})
		}
	}

	for _, inv := range Invariants {
		if ve := inv.Check(&r, now); ve != nil {
			result.add(*ve)
		}
	}

	return result
}

func (res *ValidationResult) add(ve ValidationError) {
	ve.Severity = SeverityError
	res.Valid = false
	res.Errors = append(res.Errors, ve)
}

// MissingColumns returns the required fields of p that no header column feeds.
func MissingColumns(hm HeaderMap, p Profile) []Field {
	var missing []Field
	for _, f := range p.RequiredFields() {
		if !hm.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}
