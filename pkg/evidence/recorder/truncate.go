package recorder

import "unicode/utf8"

// TruncateString shortens s to at most maxLen bytes, appending "..." when
// there is room. It never splits a UTF-8 sequence. A maxLen of zero or less
// disables truncation.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}

	suffix := "..."
	if maxLen <= len(suffix) {
		suffix = ""
	}

	cut := maxLen - len(suffix)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
