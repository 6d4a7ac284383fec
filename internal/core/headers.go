package core

// headers.go maps source column labels onto canonical record fields.
//
// Every template label maps to its field, and a fixed table of synonyms
// covers the labels commonly seen in residency rosters and credentialing
// exports. Unknown labels are dropped, never guessed.

import (
	"strings"
)

// headerSynonyms holds the non-template labels accepted for each field.
// Keys are lowercase.
var headerSynonyms = map[string]Field{
	"npi number":           FieldNPI,
	"npi #":                FieldNPI,
	"npi no":               FieldNPI,
	"national provider id": FieldNPI,
	"first":                FieldFirstName,
	"firstname":            FieldFirstName,
	"given name":           FieldFirstName,
	"middle":               FieldMiddleName,
	"middle initial":       FieldMiddleName,
	"last":                 FieldLastName,
	"lastname":             FieldLastName,
	"surname":              FieldLastName,
	"family name":          FieldLastName,
	"degree":               FieldCredentials,
	"credential":           FieldCredentials,
	"sex":                  FieldGender,
	"dob":                  FieldDateOfBirth,
	"birth date":           FieldDateOfBirth,
	"birthdate":            FieldDateOfBirth,
	"email address":        FieldEmail,
	"e-mail":               FieldEmail,
	"phone number":         FieldPhone,
	"telephone":            FieldPhone,
	"address":              FieldPracticeAddress1,
	"address 1":            FieldPracticeAddress1,
	"practice address":     FieldPracticeAddress1,
	"address 2":            FieldPracticeAddress2,
	"city":                 FieldPracticeCity,
	"state":                FieldPracticeState,
	"zip":                  FieldPracticeZip,
	"zip code":             FieldPracticeZip,
	"postal code":          FieldPracticeZip,
	"practice zip code":    FieldPracticeZip,
	"mailing address":      FieldMailingAddress1,
	"mailing zip code":     FieldMailingZip,
	"specialty":            FieldPrimarySpecialty,
	"speciality":           FieldPrimarySpecialty,
	"secondary speciality": FieldSecondarySpecialty,
	"taxonomy":             FieldTaxonomyCode,
	"license":              FieldLicenseNumber,
	"license #":            FieldLicenseNumber,
	"license no":           FieldLicenseNumber,
	"license issued":       FieldLicenseIssueDate,
	"license expiration":   FieldLicenseExpireDate,
	"license expiry":       FieldLicenseExpireDate,
	"license exp date":     FieldLicenseExpireDate,
	"board":                FieldBoardName,
	"board certification":  FieldBoardName,
	"board cert date":      FieldBoardCertificationDate,
	"board expiration":     FieldBoardExpirationDate,
	"program":              FieldProgramName,
	"residency program":    FieldProgramName,
	"hospital":             FieldInstitution,
	"institution name":     FieldInstitution,
	"training type":        FieldProgramType,
	"start date":           FieldTrainingStartDate,
	"end date":             FieldTrainingEndDate,
	"graduation date":      FieldTrainingEndDate,
	"pgy":                  FieldPGYYear,
	"pgy level":            FieldPGYYear,
	"training year":        FieldPGYYear,
	"dea":                  FieldDEANumber,
	"dea #":                FieldDEANumber,
	"medicare":             FieldMedicareNumber,
	"medicare id":          FieldMedicareNumber,
	"medicaid":             FieldMedicaidNumber,
	"medicaid id":          FieldMedicaidNumber,
	"sole prop":            FieldSoleProprietor,
}

// headerLookup is the full label table: template labels, canonical field
// names, and synonyms.
var headerLookup = buildHeaderLookup()

func buildHeaderLookup() map[string]Field {
	m := make(map[string]Field, len(TemplateColumns)*2+len(headerSynonyms))
	for _, col := range TemplateColumns {
		m[strings.ToLower(col.Label)] = col.Field
		m[strings.ToLower(string(col.Field))] = col.Field
	}
	for label, f := range headerSynonyms {
		m[label] = f
	}
	return m
}

// MapHeader returns the canonical field for a column label.
// Matching is case-insensitive and ignores surrounding whitespace.
func MapHeader(label string) (Field, bool) {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(label, "\ufeff")))
	if key == "" {
		return "", false
	}
	f, ok := headerLookup[key]
	return f, ok
}

// HeaderMap records, for each source column position, the field it feeds.
// Dropped columns hold the empty Field.
type HeaderMap struct {
	Fields   []Field
	Unmapped []string // Labels that had no canonical field
}

// MapHeaders maps a whole header row.
// When two columns map to the same field, the first one wins.
func MapHeaders(header []string) HeaderMap {
	hm := HeaderMap{Fields: make([]Field, len(header))}
	seen := make(map[Field]bool, len(header))
	for i, label := range header {
		f, ok := MapHeader(label)
		if !ok {
			if strings.TrimSpace(label) != "" {
				hm.Unmapped = append(hm.Unmapped, label)
			}
			continue
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		hm.Fields[i] = f
	}
	return hm
}

// Width returns the number of columns in the source header.
func (m HeaderMap) Width() int {
	return len(m.Fields)
}

// Has reports whether some column feeds field f.
func (m HeaderMap) Has(f Field) bool {
	for _, mf := range m.Fields {
		if mf == f {
			return true
		}
	}
	return false
}

// Apply copies cells into a new record according to the mapping.
func (m HeaderMap) Apply(cells []string) Record {
	var r Record
	for i, f := range m.Fields {
		if f == "" || i >= len(cells) {
			continue
		}
		r.Set(f, cells[i])
	}
	return r
}
