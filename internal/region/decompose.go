package region

import (
	"regexp"
	"strings"
)

var (
	// A five-digit run that is not part of a longer one.
	zipPattern = regexp.MustCompile(`(?:^|\D)(\d{5})(?:\D|$)`)

	// Two letters right after a comma, followed either by a ZIP (or
	// ZIP+4) or by a comma or the end of the string.
	statePattern = regexp.MustCompile(`,\s*([A-Za-z]{2})(?:\s*\d{5}(?:-\d{4})?\b|\s*(?:,|$))`)

	// "Houston TX 77001" inside a comma segment: the state shares the
	// segment with the city and is only recognised when a ZIP follows.
	inlineStatePattern = regexp.MustCompile(`,([^,]*\S)\s+([A-Za-z]{2})\s+\d{5}(?:-\d{4})?\b`)
)

const countySuffix = " county"

// Decompose extracts geographic parts from a single formatted address.
// It is a heuristic fallback for when no structured geocoder result is
// available: "123 Main St, Houston, TX 77001" yields zip 77001, city
// Houston and state tx. City and county are only read from the segment
// before a recognised state token; without one only the ZIP is returned.
func Decompose(address string) GeoParts {
	var g GeoParts

	if m := zipPattern.FindStringSubmatch(address); m != nil {
		g.ZIP = m[1]
	}

	var segment string
	if loc := statePattern.FindStringSubmatchIndex(address); loc != nil {
		g.State = strings.ToLower(address[loc[2]:loc[3]])

		// loc[0] is the comma that precedes the state token.
		head := address[:loc[0]]
		if i := strings.LastIndexByte(head, ','); i >= 0 {
			head = head[i+1:]
		}
		segment = strings.TrimSpace(head)
	} else if m := inlineStatePattern.FindStringSubmatch(address); m != nil {
		g.State = strings.ToLower(m[2])
		segment = strings.TrimSpace(m[1])
	} else {
		return g
	}
	if segment == "" {
		return g
	}

	if county, ok := TrimCountySuffix(segment); ok {
		g.County = county
	} else {
		g.City = segment
	}
	return g
}

// TrimCountySuffix strips a trailing " County" (any case) from name.
// It reports false when name has no such suffix or nothing precedes it.
func TrimCountySuffix(name string) (string, bool) {
	n := len(name) - len(countySuffix)
	if n <= 0 || !strings.EqualFold(name[n:], countySuffix) {
		return name, false
	}
	trimmed := strings.TrimSpace(name[:n])
	if trimmed == "" {
		return name, false
	}
	return trimmed, true
}
