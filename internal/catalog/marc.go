package catalog

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const marcLayout = "200601021504"

// ParseMARCTime parses a MARC modification stamp (YYYYMMDDhhmm, optionally
// followed by seconds) in the catalog's local zone. Separators are ignored so
// the driver's rendering of a datetime column parses too.
func ParseMARCTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	if len(digits) < len(marcLayout) {
		return time.Time{}, fmt.Errorf("marc timestamp %q too short", s)
	}
	t, err := time.ParseInLocation(marcLayout, digits[:len(marcLayout)], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse marc timestamp %q: %w", s, err)
	}
	return t, nil
}
