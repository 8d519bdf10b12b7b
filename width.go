package headlessterm

import "github.com/unilibs/uniwidth"

// runeWidth reports how many columns r occupies: 2 for CJK and other
// east-asian-wide runes, 0 for combining marks and controls, 1 otherwise.
func runeWidth(r rune) int {
	return uniwidth.RuneWidth(r)
}

// StringWidth sums the column widths of every rune in s.
func StringWidth(s string) int {
	return uniwidth.StringWidth(s)
}

// TruncateToWidth returns the longest prefix of s that fits in maxWidth
// display columns, never splitting a wide rune. It bounds strings the
// byte stream controls (window titles, OSC payloads) before they reach
// an observer.
func TruncateToWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	used := 0
	for i, r := range s {
		w := runeWidth(r)
		if used+w > maxWidth {
			return s[:i]
		}
		used += w
	}
	return s
}
