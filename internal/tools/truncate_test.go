package tools

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateCharsUnderLimit(t *testing.T) {
	if got := TruncateChars("short", 100); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := TruncateChars("anything", 0); got != "anything" {
		t.Errorf("zero limit disables truncation, got %q", got)
	}
}

func TestTruncateCharsMarkerStatesTrueSize(t *testing.T) {
	out := TruncateChars(strings.Repeat("a", 500), 100)
	if !strings.Contains(out, "100 of 500 characters") {
		t.Errorf("marker should state kept and true sizes: %q", out)
	}
}

func TestTruncateCharsNeverSplitsRune(t *testing.T) {
	// Every character is 3 bytes; most limits land mid-rune.
	s := strings.Repeat("日", 50)
	for limit := 1; limit < 20; limit++ {
		out := TruncateChars(s, limit)
		if !utf8.ValidString(out) {
			t.Fatalf("limit %d produced invalid UTF-8: %q", limit, out)
		}
	}
}

func TestTruncateFileContentNeverSplitsRune(t *testing.T) {
	s := "line one ééé\nline two 日日日"
	for limit := 1; limit < len(s); limit++ {
		out := TruncateFileContent(s, limit)
		if !utf8.ValidString(out) {
			t.Fatalf("limit %d produced invalid UTF-8: %q", limit, out)
		}
	}
}

func TestTruncateFileContentMarker(t *testing.T) {
	content := strings.Repeat("x", 50) + "\n" + strings.Repeat("y", 50)
	out := TruncateFileContent(content, 30)
	for _, want := range []string{"30 of 101 characters", "2 lines", "line_start"} {
		if !strings.Contains(out, want) {
			t.Errorf("marker missing %q: %q", want, out)
		}
	}
}
