package core

// fields.go defines the canonical field names of a provider record and the
// fixed 39-column order of the downloadable import template.
//
// Every canonical field has an accessor, so records can be read and written
// by field name without reflection. Header mapping, sanitization, and the
// validation rule table all go through these accessors.

// Field is the canonical name of a record attribute.
type Field string

const (
	FieldNPI                    Field = "npi"
	FieldFirstName              Field = "firstName"
	FieldMiddleName             Field = "middleName"
	FieldLastName               Field = "lastName"
	FieldCredentials            Field = "credentials"
	FieldGender                 Field = "gender"
	FieldDateOfBirth            Field = "dateOfBirth"
	FieldEmail                  Field = "email"
	FieldPhone                  Field = "phone"
	FieldPracticeAddress1       Field = "practiceAddress1"
	FieldPracticeAddress2       Field = "practiceAddress2"
	FieldPracticeCity           Field = "practiceCity"
	FieldPracticeState          Field = "practiceState"
	FieldPracticeZip            Field = "practiceZip"
	FieldMailingAddress1        Field = "mailingAddress1"
	FieldMailingAddress2        Field = "mailingAddress2"
	FieldMailingCity            Field = "mailingCity"
	FieldMailingState           Field = "mailingState"
	FieldMailingZip             Field = "mailingZip"
	FieldPrimarySpecialty       Field = "primarySpecialty"
	FieldSecondarySpecialty     Field = "secondarySpecialty"
	FieldTaxonomyCode           Field = "taxonomyCode"
	FieldLicenseState           Field = "licenseState"
	FieldLicenseNumber          Field = "licenseNumber"
	FieldLicenseIssueDate       Field = "licenseIssueDate"
	FieldLicenseExpireDate      Field = "licenseExpireDate"
	FieldBoardName              Field = "boardName"
	FieldBoardCertificationDate Field = "boardCertificationDate"
	FieldBoardExpirationDate    Field = "boardExpirationDate"
	FieldProgramName            Field = "programName"
	FieldInstitution            Field = "institution"
	FieldProgramType            Field = "programType"
	FieldTrainingStartDate      Field = "trainingStartDate"
	FieldTrainingEndDate        Field = "trainingEndDate"
	FieldPGYYear                Field = "pgyYear"
	FieldDEANumber              Field = "deaNumber"
	FieldMedicareNumber         Field = "medicareNumber"
	FieldMedicaidNumber         Field = "medicaidNumber"
	FieldSoleProprietor         Field = "soleProprietor"

	// Not template columns.
	FieldConfidence     Field = "confidence"
	FieldSourceArtifact Field = "sourceArtifact"
	FieldSourceURL      Field = "sourceUrl"
	FieldSourceHash     Field = "sourceHash"
	FieldEnteredBy      Field = "enteredBy"
)

// TemplateColumn is one column of the import template.
type TemplateColumn struct {
	Label   string // Header label as written in the template
	Field   Field
	Example string // Value used in the template's example row
}

// TemplateColumns is the canonical header order of the import template.
var TemplateColumns = []TemplateColumn{
	{Label: "NPI", Field: FieldNPI, Example: "1234567890"},
	{Label: "First Name", Field: FieldFirstName, Example: "Sarah"},
	{Label: "Middle Name", Field: FieldMiddleName, Example: "A"},
	{Label: "Last Name", Field: FieldLastName, Example: "Johnson"},
	{Label: "Credentials", Field: FieldCredentials, Example: "MD"},
	{Label: "Gender", Field: FieldGender, Example: "F"},
	{Label: "Date of Birth", Field: FieldDateOfBirth, Example: "1992-04-18"},
	{Label: "Email", Field: FieldEmail, Example: "sarah.johnson@example.org"},
	{Label: "Phone", Field: FieldPhone, Example: "(555) 123-4567"},
	{Label: "Practice Address 1", Field: FieldPracticeAddress1, Example: "100 Main St"},
	{Label: "Practice Address 2", Field: FieldPracticeAddress2, Example: "Suite 200"},
	{Label: "Practice City", Field: FieldPracticeCity, Example: "Boston"},
	{Label: "Practice State", Field: FieldPracticeState, Example: "MA"},
	{Label: "Practice ZIP", Field: FieldPracticeZip, Example: "02115"},
	{Label: "Mailing Address 1", Field: FieldMailingAddress1, Example: "PO Box 42"},
	{Label: "Mailing Address 2", Field: FieldMailingAddress2, Example: ""},
	{Label: "Mailing City", Field: FieldMailingCity, Example: "Boston"},
	{Label: "Mailing State", Field: FieldMailingState, Example: "MA"},
	{Label: "Mailing ZIP", Field: FieldMailingZip, Example: "02115-1234"},
	{Label: "Primary Specialty", Field: FieldPrimarySpecialty, Example: "Internal Medicine"},
	{Label: "Secondary Specialty", Field: FieldSecondarySpecialty, Example: ""},
	{Label: "Taxonomy Code", Field: FieldTaxonomyCode, Example: "207R00000X"},
	{Label: "License State", Field: FieldLicenseState, Example: "MA"},
	{Label: "License Number", Field: FieldLicenseNumber, Example: "MD123456"},
	{Label: "License Issue Date", Field: FieldLicenseIssueDate, Example: "2021-07-01"},
	{Label: "License Expire Date", Field: FieldLicenseExpireDate, Example: "2027-06-30"},
	{Label: "Board Name", Field: FieldBoardName, Example: "American Board of Internal Medicine"},
	{Label: "Board Certification Date", Field: FieldBoardCertificationDate, Example: ""},
	{Label: "Board Expiration Date", Field: FieldBoardExpirationDate, Example: ""},
	{Label: "Program Name", Field: FieldProgramName, Example: "Internal Medicine Residency"},
	{Label: "Institution", Field: FieldInstitution, Example: "Boston Medical Center"},
	{Label: "Program Type", Field: FieldProgramType, Example: "Residency"},
	{Label: "Training Start Date", Field: FieldTrainingStartDate, Example: "2023-07-01"},
	{Label: "Training End Date", Field: FieldTrainingEndDate, Example: "2026-06-30"},
	{Label: "PGY Year", Field: FieldPGYYear, Example: "2"},
	{Label: "DEA Number", Field: FieldDEANumber, Example: ""},
	{Label: "Medicare Number", Field: FieldMedicareNumber, Example: ""},
	{Label: "Medicaid Number", Field: FieldMedicaidNumber, Example: ""},
	{Label: "Sole Proprietor", Field: FieldSoleProprietor, Example: "No"},
}

// fieldAccessors maps each string-valued field to a pointer into the record.
var fieldAccessors = map[Field]func(*Record) *string{
	FieldNPI:                    func(r *Record) *string { return &r.NPI },
	FieldFirstName:              func(r *Record) *string { return &r.FirstName },
	FieldMiddleName:             func(r *Record) *string { return &r.MiddleName },
	FieldLastName:               func(r *Record) *string { return &r.LastName },
	FieldCredentials:            func(r *Record) *string { return &r.Credentials },
	FieldGender:                 func(r *Record) *string { return &r.Gender },
	FieldDateOfBirth:            func(r *Record) *string { return &r.DateOfBirth },
	FieldEmail:                  func(r *Record) *string { return &r.Email },
	FieldPhone:                  func(r *Record) *string { return &r.Phone },
	FieldPracticeAddress1:       func(r *Record) *string { return &r.PracticeAddress1 },
	FieldPracticeAddress2:       func(r *Record) *string { return &r.PracticeAddress2 },
	FieldPracticeCity:           func(r *Record) *string { return &r.PracticeCity },
	FieldPracticeState:          func(r *Record) *string { return &r.PracticeState },
	FieldPracticeZip:            func(r *Record) *string { return &r.PracticeZip },
	FieldMailingAddress1:        func(r *Record) *string { return &r.MailingAddress1 },
	FieldMailingAddress2:        func(r *Record) *string { return &r.MailingAddress2 },
	FieldMailingCity:            func(r *Record) *string { return &r.MailingCity },
	FieldMailingState:           func(r *Record) *string { return &r.MailingState },
	FieldMailingZip:             func(r *Record) *string { return &r.MailingZip },
	FieldPrimarySpecialty:       func(r *Record) *string { return &r.PrimarySpecialty },
	FieldSecondarySpecialty:     func(r *Record) *string { return &r.SecondarySpecialty },
	FieldTaxonomyCode:           func(r *Record) *string { return &r.TaxonomyCode },
	FieldLicenseState:           func(r *Record) *string { return &r.LicenseState },
	FieldLicenseNumber:          func(r *Record) *string { return &r.LicenseNumber },
	FieldLicenseIssueDate:       func(r *Record) *string { return &r.LicenseIssueDate },
	FieldLicenseExpireDate:      func(r *Record) *string { return &r.LicenseExpireDate },
	FieldBoardName:              func(r *Record) *string { return &r.BoardName },
	FieldBoardCertificationDate: func(r *Record) *string { return &r.BoardCertificationDate },
	FieldBoardExpirationDate:    func(r *Record) *string { return &r.BoardExpirationDate },
	FieldProgramName:            func(r *Record) *string { return &r.ProgramName },
	FieldInstitution:            func(r *Record) *string { return &r.Institution },
	FieldProgramType:            func(r *Record) *string { return &r.ProgramType },
	FieldTrainingStartDate:      func(r *Record) *string { return &r.TrainingStartDate },
	FieldTrainingEndDate:        func(r *Record) *string { return &r.TrainingEndDate },
	FieldPGYYear:                func(r *Record) *string { return &r.PGYYear },
	FieldDEANumber:              func(r *Record) *string { return &r.DEANumber },
	FieldMedicareNumber:         func(r *Record) *string { return &r.MedicareNumber },
	FieldMedicaidNumber:         func(r *Record) *string { return &r.MedicaidNumber },
	FieldSoleProprietor:         func(r *Record) *string { return &r.SoleProprietor },
	FieldSourceArtifact:         func(r *Record) *string { return &r.SourceArtifact },
	FieldSourceURL:              func(r *Record) *string { return &r.SourceURL },
	FieldSourceHash:             func(r *Record) *string { return &r.SourceHash },
	FieldEnteredBy:              func(r *Record) *string { return &r.EnteredBy },
}

// Get returns the value of a string field, or "" for unknown fields.
func (r *Record) Get(f Field) string {
	if acc, ok := fieldAccessors[f]; ok {
		return *acc(r)
	}
	return ""
}

// Set assigns a string field. Returns false if the field is not a settable string field.
func (r *Record) Set(f Field, value string) bool {
	acc, ok := fieldAccessors[f]
	if !ok {
		return false
	}
	*acc(r) = value
	return true
}

// TemplateHeader returns the template header labels in canonical order.
func TemplateHeader() []string {
	labels := make([]string, len(TemplateColumns))
	for i, col := range TemplateColumns {
		labels[i] = col.Label
	}
	return labels
}
