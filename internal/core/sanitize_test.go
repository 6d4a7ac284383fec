package core

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text untouched", "Sarah Johnson", "Sarah Johnson"},
		{"trims whitespace", "  Boston \t", "Boston"},
		{"strips angle brackets", "<script>alert(1)</script>", "scriptalert(1)/script"},
		{"strips javascript prefix", "javascript:alert(1)", "alert(1)"},
		{"javascript prefix case insensitive", "JavaScript:void(0)", "void(0)"},
		{"strips event handler", `x onerror=alert(1)`, "x alert(1)"},
		{"event handler case insensitive", `OnClick=doIt()`, "doIt()"},
		{"event handler with spaces before equals", `onload  =run()`, "run()"},
		{"keeps words starting with on", "Oncology", "Oncology"},
		{"nested javascript prefix", "javajavascript:script:alert(1)", "alert(1)"},
		{"nested event handler", "oonclick=nclick=alert(1)", "alert(1)"},
		{"brackets hiding a prefix", "java<script:>alert(1)", "alert(1)"},
		{"combined vectors", ` <img src=x onerror=javascript:steal()> `, "img src=x steal()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"<b>Dr. Smith</b>",
		"javascript:javascript:x",
		" onmouseover=go() ",
		"plain",
		"javajavascript:script:alert(1)",
		"oonclick=nclick=alert(1)",
		"on<>click=x",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSanitizeRecord(t *testing.T) {
	r := Record{
		NPI:            " 1234567890 ",
		FirstName:      "<b>Sarah</b>",
		LastName:       "Johnson onclick=x()",
		PracticeCity:   "javascript:Boston",
		SourceArtifact: "  upload.csv  ",
	}

	SanitizeRecord(&r)

	checks := map[string][2]string{
		"NPI":            {r.NPI, "1234567890"},
		"FirstName":      {r.FirstName, "bSarah/b"},
		"LastName":       {r.LastName, "Johnson x()"},
		"PracticeCity":   {r.PracticeCity, "Boston"},
		"SourceArtifact": {r.SourceArtifact, "upload.csv"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
}
