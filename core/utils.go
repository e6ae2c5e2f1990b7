package core

import (
	"regexp"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

var (
	nonCodeRegex   = regexp.MustCompile(`[^A-Z0-9 ]+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// NormalizeSQACode lowers a qualification code and strips its spaces,
// e.g. "C847 75" -> "c84775". Course document ids are "course_" + this.
func NormalizeSQACode(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}

// CodeName turns a free-text title into a unit-code suffix:
// uppercase, non-alphanumerics stripped, whitespace runs collapsed to single
// underscores, e.g. "Working with surds" -> "WORKING_WITH_SURDS".
func CodeName(title string) string {
	s := strings.ToUpper(strings.TrimSpace(title))
	s = nonCodeRegex.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, "_")
}
