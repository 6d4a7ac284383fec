package core

// extracted.go adapts AI-extracted objects into pipeline rows.

import (
	"regexp"
	"strings"
)

// trailingCredential matches one credential token at the end of a name,
// with optional dots and a leading comma: "Jane Doe, M.D." or "John Roe DO".
var trailingCredential = regexp.MustCompile(`(?i)[\s,]+(m\.?\s?d\.?|d\.?\s?o\.?|m\.?b\.?b\.?s\.?)[\s.,]*$`)

// SplitName splits a display name into first, middle, and last names and
// strips trailing MD/DO/MBBS tokens into credentials.
func SplitName(name string) (first, middle, last, credentials string) {
	name = strings.TrimSpace(name)

	var creds []string
	for {
		m := trailingCredential.FindStringSubmatchIndex(name)
		if m == nil {
			break
		}
		token := strings.ToUpper(strings.NewReplacer(".", "", " ", "").Replace(name[m[2]:m[3]]))
		creds = append([]string{token}, creds...)
		name = strings.TrimSpace(name[:m[0]])
	}
	credentials = strings.Join(creds, ", ")

	parts := strings.Fields(strings.TrimRight(name, ","))
	switch len(parts) {
	case 0:
	case 1:
		first = parts[0]
	default:
		first = parts[0]
		last = parts[len(parts)-1]
		middle = strings.Join(parts[1:len(parts)-1], " ")
	}
	return first, middle, last, credentials
}

// ToRecord converts an extracted object into a canonical record.
func (e ExtractedRecord) ToRecord() Record {
	first, middle, last, creds := SplitName(e.Name)
	conf := e.Confidence
	return Record{
		FirstName:        first,
		MiddleName:       middle,
		LastName:         last,
		Credentials:      creds,
		PrimarySpecialty: e.Specialty,
		PGYYear:          normalizePGY(e.PGYYear),
		Email:            e.Email,
		Phone:            e.Phone,
		Confidence:       &conf,
	}
}

var pgyPrefix = regexp.MustCompile(`(?i)^\s*pgy[\s-]*`)

// normalizePGY turns "PGY-2" or "pgy 2" into "2". Other values pass through.
func normalizePGY(s string) string {
	return strings.TrimSpace(pgyPrefix.ReplaceAllString(s, ""))
}

// ExtractedRows wraps extracted objects as pipeline rows.
func ExtractedRows(records []ExtractedRecord) []RawRow {
	rows := make([]RawRow, len(records))
	for i, e := range records {
		r := e.ToRecord()
		rows[i] = RawRow{Record: &r}
	}
	return rows
}
