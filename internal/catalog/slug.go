package catalog

import (
	"regexp"
	"strings"
)

const maxSlugLength = 64

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugWords    = strings.NewReplacer("&", " and ", "+", " plus ", "'", "")
)

// Slug derives the per-provider unique key of a service from its name.
func Slug(name string) string {
	s := slugWords.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = strings.Trim(nonSlugChars.ReplaceAllString(s, "-"), "-")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	return s
}
