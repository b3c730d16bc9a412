// Package naming canonicalizes identity names so that "Jiří", "jiri" and
// " JIRI " refer to the same person.
package naming

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidName is returned for names that are empty after trimming or
// contain control characters or path separators.
var ErrInvalidName = errors.New("invalid identity name")

// RemoveDiacritics strips combining marks (e.g. "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Key returns the comparison key for name: trimmed, diacritics removed,
// case-folded and with inner whitespace collapsed.
func Key(name string) string {
	name = RemoveDiacritics(strings.TrimSpace(name))
	name = cases.Fold().String(name)
	return strings.Join(strings.Fields(name), " ")
}

// Clean trims name and validates it for use as a display name and a
// storage path segment.
func Clean(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == '/' || r == '\\' {
			return "", ErrInvalidName
		}
	}
	return norm.NFC.String(name), nil
}
