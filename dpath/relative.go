package dpath

import "strings"

// IsRelative reports whether s is a relative path (leading dot). Relative
// paths appear only as link values, never as request paths.
func IsRelative(s string) bool { return strings.HasPrefix(s, ".") }

// ParseRelative splits a relative path into its ascent count and suffix.
// k leading dots mean: ascend k levels from the slot path of the object
// holding the reference, then apply the suffix.
func ParseRelative(s string) (up int, suffix Path, err error) {
	for up < len(s) && s[up] == '.' {
		up++
	}
	suffix, err = Parse(s[up:])
	return up, suffix, err
}

// Relative renders a back-reference: up dots followed by the suffix.
func Relative(up int, suffix Path) string {
	return strings.Repeat(".", up) + suffix.String()
}
