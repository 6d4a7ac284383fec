package core

// dedupe.go finds stored records that an incoming record may duplicate.
//
// Each existing record is tested against three ordered strategies and the
// first that matches wins:
//
//  1. Exact NPI: both NPIs present and equal (confidence 1.0, merge)
//  2. Name + DOB: normalized first and last names equal and the same date of
//     birth (confidence 0.95, merge)
//  3. Fuzzy name + specialty: first and last name similarity both above 0.8
//     and the same normalized primary specialty (confidence is the mean of
//     the two similarities; merge above 0.9, otherwise create-new)
//
// Levenshtein is O(n*m) per pair, so the existing set must be a candidate
// window pre-filtered by the store, never the full table.

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	npiMatchConfidence     = 1.0
	nameDOBMatchConfidence = 0.95
	fuzzyNameThreshold     = 0.8
	fuzzyMergeThreshold    = 0.9
)

// FindDuplicates compares incoming against every existing record and returns
// the candidates sorted by confidence, highest first.
func FindDuplicates(incoming Record, existing []Record) []DuplicateCandidate {
	var candidates []DuplicateCandidate
	for _, ex := range existing {
		if c, ok := matchRecord(incoming, ex); ok {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

func matchRecord(incoming, existing Record) (DuplicateCandidate, bool) {
	c := DuplicateCandidate{Existing: existing, Incoming: incoming}

	inNPI := strings.TrimSpace(incoming.NPI)
	if inNPI != "" && inNPI == strings.TrimSpace(existing.NPI) {
		c.MatchType = MatchNPI
		c.Confidence = npiMatchConfidence
		c.SuggestedAction = ActionMerge
		return c, true
	}

	inFirst, inLast := NormalizeName(incoming.FirstName), NormalizeName(incoming.LastName)
	exFirst, exLast := NormalizeName(existing.FirstName), NormalizeName(existing.LastName)

	if inFirst != "" && inLast != "" &&
		inFirst == exFirst && inLast == exLast && sameDate(incoming.DateOfBirth, existing.DateOfBirth) {
		c.MatchType = MatchNameDOB
		c.Confidence = nameDOBMatchConfidence
		c.SuggestedAction = ActionMerge
		return c, true
	}

	spec := NormalizeName(incoming.PrimarySpecialty)
	if spec == "" || spec != NormalizeName(existing.PrimarySpecialty) {
		return c, false
	}
	firstSim := similarity(inFirst, exFirst)
	lastSim := similarity(inLast, exLast)
	if firstSim > fuzzyNameThreshold && lastSim > fuzzyNameThreshold {
		c.MatchType = MatchFuzzy
		c.Confidence = (firstSim + lastSim) / 2
		c.SuggestedAction = ActionCreateNew
		if c.Confidence > fuzzyMergeThreshold {
			c.SuggestedAction = ActionMerge
		}
		return c, true
	}
	return c, false
}

// sameDate reports whether two non-empty date strings name the same day.
// Values that both parse are compared as dates, so "04/18/1992" matches a
// stored "1992-04-18". Otherwise the trimmed strings must be equal.
func sameDate(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	ta, okA := ParseDate(a)
	tb, okB := ParseDate(b)
	if okA && okB {
		return ta.Year() == tb.Year() && ta.YearDay() == tb.YearDay()
	}
	return a == b
}

// NormalizeName lowercases s, strips diacritics, and drops every rune that
// is not a letter or digit.
func NormalizeName(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) over the
// normalized forms of a and b. Identical or both-empty inputs score 1.0.
func Similarity(a, b string) float64 {
	return similarity(NormalizeName(a), NormalizeName(b))
}

// similarity expects already-normalized input.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(longest)
}

// Levenshtein returns the edit distance between a and b, counting runes,
// with unit cost for insert, delete, and substitute.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// matrix[i][j] is the distance between rb[:i] and ra[:j].
	matrix := make([][]int, len(rb)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(ra)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(ra); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(rb); i++ {
		for j := 1; j <= len(ra); j++ {
			if rb[i-1] == ra[j-1] {
				matrix[i][j] = matrix[i-1][j-1]
				continue
			}
			matrix[i][j] = 1 + min(
				matrix[i-1][j-1], // substitute
				matrix[i][j-1],   // insert
				matrix[i-1][j],   // delete
			)
		}
	}
	return matrix[len(rb)][len(ra)]
}

// FilterHintsFor builds the store pre-filter for an incoming record.
func FilterHintsFor(r Record, limit int) FilterHints {
	return FilterHints{
		NPI:       Sanitize(r.NPI),
		LastName:  Sanitize(r.LastName),
		State:     Sanitize(r.PracticeState),
		Specialty: Sanitize(r.PrimarySpecialty),
		Limit:     limit,
	}
}
