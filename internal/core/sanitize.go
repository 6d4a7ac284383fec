package core

// sanitize.go strips markup and script vectors from user-supplied text.
//
// Every string field of a record passes through Sanitize before validation,
// so a value that reaches the store or a review screen never carries angle
// brackets, javascript: URLs, or inline event handlers.

import (
	"regexp"
	"strings"
)

var (
	javascriptProtocol = regexp.MustCompile(`(?i)javascript\s*:`)
	inlineEventHandler = regexp.MustCompile(`(?i)on\w+\s*=`)
	angleBrackets      = strings.NewReplacer("<", "", ">", "")
)

// Sanitize removes angle brackets, javascript: prefixes, and on*= event
// handler patterns, then trims surrounding whitespace. Removal repeats until
// nothing changes so nested payloads cannot reassemble a vector.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	for {
		next := angleBrackets.Replace(s)
		next = javascriptProtocol.ReplaceAllString(next, "")
		next = inlineEventHandler.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

// SanitizeRecord applies Sanitize to every string field of r in place.
func SanitizeRecord(r *Record) {
	for _, acc := range fieldAccessors {
		p := acc(r)
		*p = Sanitize(*p)
	}
}
