package supervisor

import "strings"

const (
	// DefaultMarker is the phrase a service prints once it accepts traffic.
	DefaultMarker = "Now listening on"
	// DefaultScheme must appear after the marker on the same line.
	DefaultScheme = "http"
)

// Matcher detects the readiness line in a service's output.
type Matcher struct {
	Marker string
	Scheme string
}

// DefaultMatcher matches lines like "Now listening on: http://localhost:5000".
func DefaultMatcher() Matcher {
	return Matcher{Marker: DefaultMarker, Scheme: DefaultScheme}
}

// Match reports whether line announces a binding and returns the announced
// address, starting at the scheme.
func (m Matcher) Match(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if m.Marker == "" || !strings.HasPrefix(trimmed, m.Marker) {
		return "", false
	}

	rest := trimmed[len(m.Marker):]
	idx := strings.Index(rest, m.Scheme)
	if idx < 0 {
		return "", false
	}

	fields := strings.Fields(rest[idx:])
	if len(fields) == 0 {
		return "", false
	}
	return strings.Trim(fields[0], `"'`), true
}
