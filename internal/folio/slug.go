package folio

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify lower-cases s, drops everything but letters, digits, underscores,
// whitespace and hyphens, and collapses each run of whitespace or hyphens into
// one underscore. Leading and trailing underscores are trimmed; an empty
// result becomes "untitled".
func Slugify(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	var b strings.Builder
	sep := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '-':
			sep = true
			continue
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_':
		default:
			continue
		}
		if sep {
			b.WriteByte('_')
			sep = false
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "untitled"
	}
	return out
}

// ShortHash returns the first eight hex digits of the SHA-256 of s.
func ShortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:4])
}

// UniqueID derives a stable id from a human label and a disambiguating
// context such as a path.
func UniqueID(base, context string) string {
	return Slugify(base) + "_" + ShortHash(base+"_"+context)
}
