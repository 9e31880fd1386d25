package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent strips combining marks, so "Öffentlich" folds to "Offentlich".
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify turns a category display name into its identity slug: transliterate
// German sharp s, drop diacritics, lowercase, collapse non-alphanumeric runs
// to a single dash. Empty input falls back to "kategorie" so a blank label
// can never produce an empty identity.
func Slugify(value string) string {
	v := strings.TrimSpace(value)
	v = strings.ReplaceAll(v, "ß", "ss")
	if folded, _, err := transform.String(deaccent, v); err == nil {
		v = folded
	}
	v = strings.ToLower(v)

	var b strings.Builder
	b.Grow(len(v))
	prevDash := false
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevDash = false
			continue
		}
		if !prevDash && b.Len() > 0 {
			b.WriteByte('-')
			prevDash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "kategorie"
	}
	return slug
}
