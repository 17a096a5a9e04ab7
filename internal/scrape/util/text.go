package util

import "strings"

// UserAgent is sent on every source request. Some boards serve stripped-down
// markup to unknown agents.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0 Safari/537.36"

// CleanText collapses runs of whitespace (including NBSP) into single spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// ContainsAny reports whether text contains any of the needles,
// case-insensitively. Empty needles are skipped.
func ContainsAny(text string, needles []string) bool {
	low := strings.ToLower(text)
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if strings.Contains(low, n) {
			return true
		}
	}
	return false
}
