package region

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug converts a free-text geographic name into a stable key:
// lower-case, accents folded, every run of characters outside [a-z0-9]
// collapsed into a single hyphen, no leading or trailing hyphen.
// Empty or all-punctuation input yields "".
func Slug(s string) string {
	s = foldAccents(strings.ToLower(s))

	var sb strings.Builder
	sb.Grow(len(s))
	pending := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			if pending && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pending = false
			sb.WriteByte(c)
			continue
		}
		pending = true
	}
	return sb.String()
}

// foldAccents strips combining marks ("são" -> "sao"). The chain is built
// per call because transform.Transformer values are stateful.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CodeFor returns the lookup key for a raw value of the given tier.
// Zip codes are used as-is, states are lower-cased, city names are
// slugged. County names lose a trailing " County" before slugging, the
// same way Decompose reads them. An empty result means there is no
// usable key.
func CodeFor(t Type, raw string) string {
	switch t {
	case TypeZIP:
		return strings.TrimSpace(raw)
	case TypeState:
		return strings.ToLower(strings.TrimSpace(raw))
	case TypeCity:
		return Slug(raw)
	case TypeCounty:
		name, _ := TrimCountySuffix(strings.TrimSpace(raw))
		return Slug(name)
	default:
		return ""
	}
}
