// Package editor implements the unique-match text substitution used for
// incremental file edits. An edit applies only when the search text matches
// exactly one location in the content; zero matches and multiple matches are
// both hard failures so an edit can never land in the wrong place. The caller
// is expected to widen the search text with surrounding context until it is
// unambiguous.
package editor

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PreviewLimit is the maximum number of characters echoed back for the
// replaced and inserted text in an Edit. Full text is never echoed for
// large spans.
const PreviewLimit = 200

// AmbiguousError reports that the search text matched an unexpected number
// of locations. Count is zero when the text was not found at all.
type AmbiguousError struct {
	Count int
}

func (e *AmbiguousError) Error() string {
	if e.Count == 0 {
		return "search text matched 0 locations, expected exactly 1"
	}
	return fmt.Sprintf("search text matched %d locations, expected exactly 1", e.Count)
}

// Edit describes a successfully applied substitution.
type Edit struct {
	// Content is the full content after the substitution.
	Content string
	// Offset is the byte offset at which the substitution was applied.
	Offset int
	// Replaced is a truncated preview of the text that was removed.
	Replaced string
	// Inserted is a truncated preview of the text that was inserted.
	Inserted string
}

// ReplaceUnique replaces oldText with newText if and only if oldText occurs
// exactly once in content. On failure the original content is untouched and
// an *AmbiguousError carries the actual match count. oldText must be
// non-empty; an empty search matches everywhere and can never be unique.
func ReplaceUnique(content, oldText, newText string) (*Edit, error) {
	if oldText == "" {
		return nil, fmt.Errorf("search text must not be empty")
	}

	count := strings.Count(content, oldText)
	if count != 1 {
		return nil, &AmbiguousError{Count: count}
	}

	offset := strings.Index(content, oldText)
	updated := content[:offset] + newText + content[offset+len(oldText):]

	return &Edit{
		Content:  updated,
		Offset:   offset,
		Replaced: Preview(oldText),
		Inserted: Preview(newText),
	}, nil
}

// Preview truncates s to PreviewLimit characters, appending an ellipsis
// marker when anything was cut. The cut backs up to a rune boundary so the
// preview is always valid UTF-8.
func Preview(s string) string {
	if len(s) <= PreviewLimit {
		return s
	}
	cut := PreviewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + fmt.Sprintf("... (%d more characters)", len(s)-cut)
}
