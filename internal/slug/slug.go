// Package slug normalizes news article slugs.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	invalidChars    = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	whitespace      = regexp.MustCompile(`[\s_]+`)
)

// Slugify converts s to a lowercase, hyphen separated ASCII slug.
// Accents are stripped first; any remaining non-Latin text is transliterated.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	result = unidecode.Unidecode(result)

	result = strings.ToLower(strings.TrimSpace(result))
	result = whitespace.ReplaceAllString(result, "-")
	result = invalidChars.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")

	return strings.Trim(result, "-")
}

// Valid reports whether s is already in slug form.
func Valid(s string) bool {
	return s != "" && Slugify(s) == s
}
