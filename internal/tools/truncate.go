package tools

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncateChars cuts s at limit characters, appending a marker that states
// the true size so the caller knows content was withheld. The cut never
// splits a rune, so the kept prefix may be slightly under the limit. A
// non-positive limit disables truncation.
func TruncateChars(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := cutAtRune(s, limit)
	return cut + fmt.Sprintf("\n[output truncated: showing first %d of %d characters]", len(cut), len(s))
}

// TruncateFileContent cuts file content at limit characters with a marker
// that reports the file's full character and line counts and points at the
// line-range read path for fetching the rest.
func TruncateFileContent(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	totalLines := strings.Count(s, "\n") + 1
	cut := cutAtRune(s, limit)
	return cut + fmt.Sprintf(
		"\n[truncated: showing first %d of %d characters; the file has %d lines; call read_file with line_start and line_end to read the rest]",
		len(cut), len(s), totalLines)
}

// cutAtRune returns s cut at or just below limit bytes, backed up to a rune
// boundary. Callers guarantee limit < len(s).
func cutAtRune(s string, limit int) string {
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
