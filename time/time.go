// Package time holds small duration helpers for terminal output.
package time

import (
	"strings"
	"time"
)

// ShortDur shortens the string representation of a time.Duration, dropping
// the trailing zero unit d.String() produces ("1m0s" -> "1m").
func ShortDur(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}
