// Package security guards the paths the tool writes to.
package security

import "strings"

const maxFilenameLen = 128

// SanitizeFilename turns an arbitrary identifier into a safe file name stem.
// Runs of characters other than ASCII letters, digits, '.', '_' and '-'
// become a single underscore; leading and trailing dots and underscores are
// trimmed so the result can never name a parent directory.
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
