package footprint

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseField converts raw form text into a number the way a browser's
// parseFloat(text) || 0 does: leading whitespace is skipped, the longest
// numeric prefix wins, and empty, unparseable or NaN input yields 0.
// Negative zero also collapses to 0.
func ParseField(text string) float64 {
	s := strings.TrimLeftFunc(text, isLeadingSpace)
	prefix := numericPrefix(s)
	if prefix == "" {
		return 0
	}

	var v float64
	switch strings.TrimLeft(prefix, "+-") {
	case "Infinity":
		v = math.Inf(1)
		if prefix[0] == '-' {
			v = math.Inf(-1)
		}
	default:
		var err error
		v, err = strconv.ParseFloat(prefix, 64)
		if err != nil && !math.IsInf(v, 0) {
			return 0
		}
	}

	if math.IsNaN(v) || v == 0 {
		return 0
	}
	return v
}

// numericPrefix returns the longest leading substring of s that forms a
// decimal literal: [sign] digits [. digits] [e [sign] digits], or
// [sign] Infinity.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		return s[:i+len("Infinity")]
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	return s[:i]
}

// isLeadingSpace covers the whitespace parseFloat skips, which includes the
// byte order mark.
func isLeadingSpace(r rune) bool {
	return r == '\uFEFF' || unicode.IsSpace(r)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
