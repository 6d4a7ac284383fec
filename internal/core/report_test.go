package core

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
)

func TestWriteErrorReport(t *testing.T) {
	errs := []ValidationError{
		{Row: 0, Field: "file", Message: "empty file", Severity: SeverityError},
		{Row: 2, Field: "npi", Message: msgNPI, Severity: SeverityError, Value: "12, 34"},
		{Row: 3, Field: "boardName", Message: "needs board", Severity: SeverityWarning},
		{Row: 4, Field: "row", Message: "malformed", Severity: SeverityError, Value: "=cmd()"},
	}

	var buf bytes.Buffer
	if err := WriteErrorReport(&buf, errs); err != nil {
		t.Fatalf("WriteErrorReport() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("report is not valid CSV: %v", err)
	}
	if len(records) != len(errs)+1 {
		t.Fatalf("report rows = %d, want %d", len(records), len(errs)+1)
	}
	if strings.Join(records[0], ",") != "Row,Field,Severity,Message,Value" {
		t.Errorf("header = %v", records[0])
	}
	if records[2][0] != "2" || records[2][1] != "npi" || records[2][4] != "12, 34" {
		t.Errorf("row 2 = %v", records[2])
	}
	if records[3][2] != "warning" {
		t.Errorf("severity = %q, want warning", records[3][2])
	}
	if records[4][4] != "'=cmd()" {
		t.Errorf("formula value = %q, want it escaped", records[4][4])
	}
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		t.Fatalf("WriteTemplate() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("template is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("template rows = %d, want 2", len(records))
	}
	if len(records[0]) != 39 {
		t.Errorf("template columns = %d, want 39", len(records[0]))
	}
	if records[0][0] != "NPI" || records[0][38] != "Sole Proprietor" {
		t.Errorf("header ends = %q..%q", records[0][0], records[0][38])
	}
	if len(records[1]) != len(records[0]) {
		t.Errorf("example row has %d cells, header has %d", len(records[1]), len(records[0]))
	}
}

func TestTemplateExampleRowIsValid(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		t.Fatal(err)
	}
	header, rows, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV(template) error = %v", err)
	}

	rec := MapHeaders(header).Apply(rows[0].Cells)
	if res := Validate(rec, ProfileTemplate); !res.Valid {
		t.Errorf("template example row fails validation: %v", res.Errors)
	}
}
