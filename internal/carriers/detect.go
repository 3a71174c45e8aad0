package carriers

import (
	"regexp"
	"strings"
)

// Code identifies a supported carrier.
type Code string

const (
	UPS   Code = "UPS"
	FedEx Code = "FEDEX"
	USPS  Code = "USPS"
)

// Ordered detection table. Order matters: patterns are tried top to bottom
// and the first match wins, so if two patterns ever overlap the earlier
// carrier takes the number. Patterns are matched against the normalized
// (trimmed, uppercased) tracking number.
var detectionOrder = []struct {
	code    Code
	pattern *regexp.Regexp
}{
	{UPS, regexp.MustCompile(`^1Z[0-9A-Z]{15,16}$`)},
	{FedEx, regexp.MustCompile(`^[0-9]{12,14}$`)},
	{USPS, regexp.MustCompile(`^9[0-9]{3}[0-9]{15,18}$`)},
}

// Normalize trims whitespace and uppercases a raw tracking number.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Detect maps a raw tracking number to its carrier by format. The second
// return is false when no pattern matches; Detect itself never fails.
func Detect(raw string) (Code, bool) {
	n := Normalize(raw)
	for _, d := range detectionOrder {
		if d.pattern.MatchString(n) {
			return d.code, true
		}
	}
	return "", false
}

// IsValid reports whether the number matches any supported carrier format.
func IsValid(raw string) bool {
	_, ok := Detect(raw)
	return ok
}

// Codes returns the supported carriers in detection order.
func Codes() []Code {
	out := make([]Code, 0, len(detectionOrder))
	for _, d := range detectionOrder {
		out = append(out, d.code)
	}
	return out
}
