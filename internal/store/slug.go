package store

import (
	"regexp"
	"strings"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9-]`)

// Slugify derives a URL slug from a free-text name: lowercase, runs of
// whitespace become one hyphen, everything outside [a-z0-9-] is dropped.
// The result is the dedup key for neighborhoods within a city.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "-")
	return slugStrip.ReplaceAllString(s, "")
}
