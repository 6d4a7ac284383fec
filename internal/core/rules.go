package core

// rules.go evaluates non-blocking business heuristics.
//
// Each rule is an independent pure function of the record, the current time,
// and the rule thresholds. Rules only ever produce warnings: a row with
// warnings and no errors still counts as a success.

import (
	"fmt"
	"strings"
	"time"
)

// Clock supplies the current time to time-sensitive rules.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// RuleConfig holds business rule thresholds.
type RuleConfig struct {
	LicenseWindowMonths int     // Warn when a license expires within this many months
	ResidencyMinYears   float64 // Shortest plausible residency
	ResidencyMaxYears   float64 // Longest plausible residency
	ConfidenceFloor     float64 // Warn when extraction confidence is below this
}

// DefaultRuleConfig returns the standard thresholds.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		LicenseWindowMonths: 6,
		ResidencyMinYears:   2,
		ResidencyMaxYears:   7,
		ConfidenceFloor:     0.6,
	}
}

// BusinessRule is one named heuristic.
type BusinessRule struct {
	Name  string
	Check func(r *Record, now time.Time, cfg RuleConfig) *ValidationError
}

// BusinessRules is the ordered rule set.
var BusinessRules = []BusinessRule{
	{Name: "license expiring", Check: checkLicenseExpiring},
	{Name: "surgery without board", Check: checkSurgeryBoard},
	{Name: "residency duration", Check: checkResidencyDuration},
	{Name: "low extraction confidence", Check: checkConfidence},
}

// checkLicenseExpiring warns when the license expires before now + window.
// An already-expired license gets its own message.
func checkLicenseExpiring(r *Record, now time.Time, cfg RuleConfig) *ValidationError {
	exp, ok := ParseDateAt(r.LicenseExpireDate, now)
	if !ok {
		return nil
	}
	if exp.Before(now) {
		return warning(FieldLicenseExpireDate, "license has expired", r.LicenseExpireDate)
	}
	if exp.Before(now.AddDate(0, cfg.LicenseWindowMonths, 0)) {
		return warning(FieldLicenseExpireDate,
			fmt.Sprintf("license expires within %d months", cfg.LicenseWindowMonths), r.LicenseExpireDate)
	}
	return nil
}

func checkSurgeryBoard(r *Record, _ time.Time, _ RuleConfig) *ValidationError {
	if strings.EqualFold(strings.TrimSpace(r.PrimarySpecialty), "Surgery") && strings.TrimSpace(r.BoardName) == "" {
		return warning(FieldBoardName, "surgery providers usually list a board certification", "")
	}
	return nil
}

// checkResidencyDuration compares the end date with calendar anniversaries of
// the start. An end date on the day before an anniversary counts as reaching
// it, so a July 1 to June 30 residency is a whole number of years.
func checkResidencyDuration(r *Record, now time.Time, cfg RuleConfig) *ValidationError {
	if !strings.EqualFold(strings.TrimSpace(r.ProgramType), "Residency") {
		return nil
	}
	start, ok := ParseDateAt(r.TrainingStartDate, now)
	if !ok {
		return nil
	}
	end, ok := ParseDateAt(r.TrainingEndDate, now)
	if !ok {
		return nil
	}
	through := end.AddDate(0, 0, 1)
	if through.Before(addYears(start, cfg.ResidencyMinYears)) || through.After(addYears(start, cfg.ResidencyMaxYears)) {
		years := through.Sub(start).Hours() / 24 / 365.25
		return warning(FieldTrainingEndDate,
			fmt.Sprintf("residency duration of %.1f years is outside %g-%g years", years, cfg.ResidencyMinYears, cfg.ResidencyMaxYears),
			r.TrainingEndDate)
	}
	return nil
}

// addYears adds whole years on the calendar and any fraction as days.
func addYears(t time.Time, years float64) time.Time {
	whole := int(years)
	t = t.AddDate(whole, 0, 0)
	return t.AddDate(0, 0, int((years-float64(whole))*365.25))
}

func checkConfidence(r *Record, _ time.Time, cfg RuleConfig) *ValidationError {
	if r.Confidence == nil || *r.Confidence >= cfg.ConfidenceFloor {
		return nil
	}
	return warning(FieldConfidence,
		fmt.Sprintf("extraction confidence %.2f is below %.2f; review this record", *r.Confidence, cfg.ConfidenceFloor),
		fmt.Sprintf("%.2f", *r.Confidence))
}

func warning(f Field, msg, value string) *ValidationError {
	return &ValidationError{
		Field:    string(f),
		Message:  msg,
		Severity: SeverityWarning,
		Value:    value,
	}
}

// RuleEngine runs BusinessRules with a fixed configuration and clock.
type RuleEngine struct {
	cfg   RuleConfig
	clock Clock
}

// NewRuleEngine creates a rule engine. A nil clock means SystemClock.
func NewRuleEngine(cfg RuleConfig, clock Clock) *RuleEngine {
	if clock == nil {
		clock = SystemClock
	}
	return &RuleEngine{cfg: cfg, clock: clock}
}

// Check evaluates every rule against r at the engine's current time.
func (e *RuleEngine) Check(r Record) []ValidationError {
	return checkBusinessRules(r, e.clock.Now(), e.cfg)
}

// CheckBusinessRules evaluates every rule with the default thresholds.
func CheckBusinessRules(r Record, now time.Time) []ValidationError {
	return checkBusinessRules(r, now, DefaultRuleConfig())
}

func checkBusinessRules(r Record, now time.Time, cfg RuleConfig) []ValidationError {
	var warnings []ValidationError
	for _, rule := range BusinessRules {
		if w := rule.Check(&r, now, cfg); w != nil {
			warnings = append(warnings, *w)
		}
	}
	return warnings
}
