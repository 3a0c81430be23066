// Package slug normalizes human input into URL-safe catalog slugs.
package slug

import (
	"regexp"
	"strings"
)

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9]+`)
	edgeDashes   = regexp.MustCompile(`^-+|-+$`)
)

// Normalize lowercases and trims the input. It is applied to every slug
// before any lookup or write so equality checks are case-insensitive.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Generate derives a slug from a display name: lowercase, runs of
// non-alphanumeric characters collapsed to single dashes, edges trimmed.
func Generate(name string) string {
	s := Normalize(name)
	s = invalidChars.ReplaceAllString(s, "-")
	s = edgeDashes.ReplaceAllString(s, "")
	return s
}
