package core

import (
	"testing"
)

// validRecord returns a record that satisfies every template rule.
func validRecord() Record {
	return Record{
		NPI:               "1234567890",
		FirstName:         "Sarah",
		LastName:          "Johnson",
		Credentials:       "MD",
		Email:             "sarah.johnson@example.org",
		Phone:             "(555) 123-4567",
		DateOfBirth:       "1992-04-18",
		PracticeAddress1:  "100 Main St",
		PracticeCity:      "Boston",
		PracticeState:     "MA",
		PracticeZip:       "02115",
		MailingAddress1:   "PO Box 42",
		MailingCity:       "Boston",
		MailingState:      "MA",
		MailingZip:        "02115-1234",
		PrimarySpecialty:  "Internal Medicine",
		LicenseState:      "MA",
		LicenseNumber:     "MD123456",
		LicenseIssueDate:  "2021-07-01",
		LicenseExpireDate: "2029-06-30",
		ProgramType:       "Residency",
		TrainingStartDate: "2023-07-01",
		TrainingEndDate:   "2026-06-30",
		PGYYear:           "2",
		SourceType:        SourceTemplate,
		Status:            StatusPending,
	}
}

// errorFields returns the Field of every error, in order.
func errorFields(errs []ValidationError) []string {
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	return fields
}

func hasField(errs []ValidationError, field Field) bool {
	for _, e := range errs {
		if e.Field == string(field) {
			return true
		}
	}
	return false
}

func TestValidate_ValidRecord(t *testing.T) {
	res := Validate(validRecord(), ProfileTemplate)
	if !res.Valid {
		t.Fatalf("Validate(valid) Valid = false, errors = %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Validate(valid) errors = %v, want none", res.Errors)
	}
}

func TestValidate_OptionalFieldsMayBeEmpty(t *testing.T) {
	r := validRecord()
	r.Email = ""
	r.Phone = ""
	r.DateOfBirth = ""
	r.LicenseIssueDate = ""
	r.LicenseExpireDate = ""
	r.TrainingStartDate = ""
	r.TrainingEndDate = ""
	r.PGYYear = ""

	if res := Validate(r, ProfileTemplate); !res.Valid {
		t.Errorf("Validate() errors = %v, want none", res.Errors)
	}
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *Record)
		wantField Field
	}{
		{"NPI too short", func(r *Record) { r.NPI = "123456789" }, FieldNPI},
		{"NPI too long", func(r *Record) { r.NPI = "12345678901" }, FieldNPI},
		{"NPI with letters", func(r *Record) { r.NPI = "12345abcde" }, FieldNPI},
		{"NPI with dashes", func(r *Record) { r.NPI = "123-456-7890" }, FieldNPI},
		{"NPI missing", func(r *Record) { r.NPI = "" }, FieldNPI},
		{"first name missing", func(r *Record) { r.FirstName = "" }, FieldFirstName},
		{"last name whitespace", func(r *Record) { r.LastName = "   " }, FieldLastName},
		{"credentials missing", func(r *Record) { r.Credentials = "" }, FieldCredentials},
		{"phone without parens", func(r *Record) { r.Phone = "555-123-4567" }, FieldPhone},
		{"phone digits only", func(r *Record) { r.Phone = "5551234567" }, FieldPhone},
		{"email without at", func(r *Record) { r.Email = "sarah.example.org" }, FieldEmail},
		{"email without domain dot", func(r *Record) { r.Email = "sarah@example" }, FieldEmail},
		{"practice state lowercase", func(r *Record) { r.PracticeState = "ma" }, FieldPracticeState},
		{"mailing state too long", func(r *Record) { r.MailingState = "MAS" }, FieldMailingState},
		{"license state missing", func(r *Record) { r.LicenseState = "" }, FieldLicenseState},
		{"practice zip four digits", func(r *Record) { r.PracticeZip = "0211" }, FieldPracticeZip},
		{"mailing zip bad plus4", func(r *Record) { r.MailingZip = "02115-12" }, FieldMailingZip},
		{"practice address missing", func(r *Record) { r.PracticeAddress1 = "" }, FieldPracticeAddress1},
		{"mailing city missing", func(r *Record) { r.MailingCity = "" }, FieldMailingCity},
		{"specialty missing", func(r *Record) { r.PrimarySpecialty = "" }, FieldPrimarySpecialty},
		{"license number missing", func(r *Record) { r.LicenseNumber = "" }, FieldLicenseNumber},
		{"bad date of birth", func(r *Record) { r.DateOfBirth = "someday" }, FieldDateOfBirth},
		{"PGY zero", func(r *Record) { r.PGYYear = "0" }, FieldPGYYear},
		{"PGY eleven", func(r *Record) { r.PGYYear = "11" }, FieldPGYYear},
		{"PGY not numeric", func(r *Record) { r.PGYYear = "two" }, FieldPGYYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)

			res := Validate(r, ProfileTemplate)
			if res.Valid {
				t.Fatal("Validate() Valid = true, want false")
			}
			if len(res.Errors) != 1 {
				t.Fatalf("Validate() errors = %v, want exactly one", errorFields(res.Errors))
			}
			got := res.Errors[0]
			if got.Field != string(tt.wantField) {
				t.Errorf("error field = %q, want %q", got.Field, tt.wantField)
			}
			if got.Severity != SeverityError {
				t.Errorf("error severity = %q, want %q", got.Severity, SeverityError)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	r := validRecord()
	r.NPI = "abc"
	r.FirstName = ""
	r.PracticeState = "Massachusetts"
	r.Phone = "555"

	res := Validate(r, ProfileTemplate)
	want := []string{"npi", "firstName", "phone", "practiceState"}
	got := errorFields(res.Errors)
	if len(got) != len(want) {
		t.Fatalf("error fields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("error[%d].Field = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidate_ErrorCarriesValue(t *testing.T) {
	r := validRecord()
	r.NPI = "12345"

	res := Validate(r, ProfileTemplate)
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want one", res.Errors)
	}
	if res.Errors[0].Value != "12345" {
		t.Errorf("Value = %q, want %q", res.Errors[0].Value, "12345")
	}
	if res.Errors[0].Message != msgNPI {
		t.Errorf("Message = %q, want %q", res.Errors[0].Message, msgNPI)
	}
}

func TestValidate_Invariants(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *Record)
		wantField Field
		wantErr   bool
	}{
		{
			name:      "license expire equals issue",
			mutate:    func(r *Record) { r.LicenseIssueDate, r.LicenseExpireDate = "2024-01-01", "2024-01-01" },
			wantField: FieldLicenseExpireDate,
			wantErr:   true,
		},
		{
			name:      "license expire before issue",
			mutate:    func(r *Record) { r.LicenseIssueDate, r.LicenseExpireDate = "2024-01-01", "2023-12-31" },
			wantField: FieldLicenseExpireDate,
			wantErr:   true,
		},
		{
			name:    "license dates in mixed formats",
			mutate:  func(r *Record) { r.LicenseIssueDate, r.LicenseExpireDate = "07/01/2021", "2029-06-30" },
			wantErr: false,
		},
		{
			name:      "training end before start",
			mutate:    func(r *Record) { r.TrainingStartDate, r.TrainingEndDate = "2023-07-01", "2022-06-30" },
			wantField: FieldTrainingEndDate,
			wantErr:   true,
		},
		{
			name:    "only issue date present",
			mutate:  func(r *Record) { r.LicenseExpireDate = "" },
			wantErr: false,
		},
		{
			name:    "only training end present",
			mutate:  func(r *Record) { r.TrainingStartDate = "" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)

			res := Validate(r, ProfileTemplate)
			if !tt.wantErr {
				if !res.Valid {
					t.Errorf("Validate() errors = %v, want none", res.Errors)
				}
				return
			}
			if len(res.Errors) != 1 || res.Errors[0].Field != string(tt.wantField) {
				t.Errorf("Validate() error fields = %v, want [%s]", errorFields(res.Errors), tt.wantField)
			}
		})
	}
}

func TestValidate_UnparseableDateSkipsInvariant(t *testing.T) {
	r := validRecord()
	r.LicenseExpireDate = "never"

	res := Validate(r, ProfileTemplate)
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want only the date format error", errorFields(res.Errors))
	}
	if res.Errors[0].Message != msgDate {
		t.Errorf("Message = %q, want %q", res.Errors[0].Message, msgDate)
	}
}

func TestValidate_ExtractedProfile(t *testing.T) {
	r := Record{
		FirstName:        "Sarah",
		LastName:         "Johnson",
		PrimarySpecialty: "Surgery",
		PGYYear:          "3",
	}
	if res := Validate(r, ProfileExtracted); !res.Valid {
		t.Errorf("Validate(extracted) errors = %v, want none", res.Errors)
	}

	r.PGYYear = "PGY-3"
	r.Email = "bad"
	res := Validate(r, ProfileExtracted)
	if !hasField(res.Errors, FieldPGYYear) || !hasField(res.Errors, FieldEmail) {
		t.Errorf("Validate(extracted) fields = %v, want pgyYear and email", errorFields(res.Errors))
	}

	if res := Validate(Record{}, ProfileExtracted); len(res.Errors) != 3 {
		t.Errorf("Validate(empty, extracted) fields = %v, want 3 required errors", errorFields(res.Errors))
	}
}

func TestValidate_Idempotent(t *testing.T) {
	r := validRecord()
	r.NPI = "bad"
	r.LicenseExpireDate = "2020-01-01"

	first := Validate(r, ProfileTemplate)
	second := Validate(r, ProfileTemplate)
	if len(first.Errors) != len(second.Errors) {
		t.Fatalf("error counts differ: %d vs %d", len(first.Errors), len(second.Errors))
	}
	for i := range first.Errors {
		if first.Errors[i] != second.Errors[i] {
			t.Errorf("error[%d] differs: %+v vs %+v", i, first.Errors[i], second.Errors[i])
		}
	}
}

func TestProfile_RequiredFields(t *testing.T) {
	if got := len(ProfileTemplate.RequiredFields()); got != len(templateRequired) {
		t.Errorf("template required = %d, want %d", got, len(templateRequired))
	}
	got := ProfileExtracted.RequiredFields()
	want := []Field{FieldFirstName, FieldLastName, FieldPrimarySpecialty}
	if len(got) != len(want) {
		t.Fatalf("extracted required = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("extracted required[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMissingColumns(t *testing.T) {
	hm := MapHeaders([]string{"First Name", "Last Name"})
	missing := MissingColumns(hm, ProfileExtracted)
	if len(missing) != 1 || missing[0] != FieldPrimarySpecialty {
		t.Errorf("MissingColumns() = %v, want [primarySpecialty]", missing)
	}
}
