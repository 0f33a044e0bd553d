package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/thruflo/drover/internal/model"
	"github.com/thruflo/drover/internal/sandbox"
)

func runTool(t *testing.T, tool model.Tool, input interface{}) model.ToolOutput {
	t.Helper()
	raw, err := json.Marshal(input)
	if err != nil {
		t.Fatalf("marshaling input: %v", err)
	}
	return tool.Execute(context.Background(), raw)
}

func TestReadFileWhole(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetFile("/app/index.js", []byte("console.log('hi')\n"))

	out := runTool(t, NewReadFileTool(mock, Options{}), map[string]string{"path": "index.js"})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if !strings.Contains(out.Content, "console.log") {
		t.Errorf("content missing from payload: %q", out.Content)
	}
}

func TestReadFileLineRange(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetFile("/app/lines.txt", []byte("one\ntwo\nthree\nfour\nfive"))

	out := runTool(t, NewReadFileTool(mock, Options{}), map[string]interface{}{
		"path": "lines.txt", "line_start": 2, "line_end": 4,
	})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	want := "2: two\n3: three\n4: four"
	if out.Content != want {
		t.Errorf("got %q, want %q", out.Content, want)
	}
}

func TestReadFileRangeBeyondEnd(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetFile("/app/short.txt", []byte("only\ntwo lines"))

	out := runTool(t, NewReadFileTool(mock, Options{}), map[string]interface{}{
		"path": "short.txt", "line_start": 10, "line_end": 20,
	})
	if !out.IsError {
		t.Fatal("expected an error for a range past the end of the file")
	}
	if !strings.Contains(out.Content, "2 lines") {
		t.Errorf("reason should state the file's length: %q", out.Content)
	}
}

func TestReadFileMissing(t *testing.T) {
	mock := sandbox.NewMockClient()

	out := runTool(t, NewReadFileTool(mock, Options{}), map[string]string{"path": "gone.txt"})
	if !out.IsError {
		t.Fatal("expected an error for a missing file")
	}
	if !strings.Contains(out.Content, "not found") {
		t.Errorf("reason should mention not found: %q", out.Content)
	}
}

func TestReadFileTruncation(t *testing.T) {
	content := strings.Repeat("x", 50) + "\n" + strings.Repeat("y", 50)
	mock := sandbox.NewMockClient()
	mock.SetFile("/app/big.txt", []byte(content))

	out := runTool(t, NewReadFileTool(mock, Options{OutputLimit: 30}), map[string]string{"path": "big.txt"})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if !strings.Contains(out.Content, "truncated") {
		t.Fatalf("expected a truncation marker: %q", out.Content)
	}
	if !strings.Contains(out.Content, "101 characters") {
		t.Errorf("marker should state the true size: %q", out.Content)
	}
	if !strings.Contains(out.Content, "2 lines") {
		t.Errorf("marker should state the line count: %q", out.Content)
	}
}

func TestWriteFileCreatesParent(t *testing.T) {
	mock := sandbox.NewMockClient()

	out := runTool(t, NewWriteFileTool(mock, Options{}), map[string]string{
		"path": "src/deep/app.js", "content": "export {}",
	})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if content, ok := mock.GetFile("/app/src/deep/app.js"); !ok || string(content) != "export {}" {
		t.Errorf("file content = %q, present = %t", content, ok)
	}
	calls := mock.ExecCalls()
	if len(calls) != 1 || calls[0].Args[0] != "mkdir" {
		t.Errorf("expected a mkdir call, got %v", calls)
	}
}

func TestEditFileUniqueMatch(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetFile("/app/app.js", []byte("const a = 1;\nconst b = 2;\n"))

	out := runTool(t, NewEditFileTool(mock, Options{}), map[string]string{
		"path": "app.js", "old_text": "const b = 2;", "new_text": "const b = 3;",
	})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if content, _ := mock.GetFile("/app/app.js"); string(content) != "const a = 1;\nconst b = 3;\n" {
		t.Errorf("file content = %q", content)
	}
}

func TestEditFileAmbiguousReportsCount(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetFile("/app/app.js", []byte("let x = 0;\nlet x = 0;\n"))

	out := runTool(t, NewEditFileTool(mock, Options{}), map[string]string{
		"path": "app.js", "old_text": "let x = 0;", "new_text": "let x = 1;",
	})
	if !out.IsError {
		t.Fatal("expected an error for an ambiguous match")
	}
	if !strings.Contains(out.Content, "2") {
		t.Errorf("reason should state the match count: %q", out.Content)
	}
	if content, _ := mock.GetFile("/app/app.js"); string(content) != "let x = 0;\nlet x = 0;\n" {
		t.Errorf("file must be untouched after a failed edit, got %q", content)
	}
}

func TestEditFileNoMatch(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetFile("/app/app.js", []byte("const a = 1;\n"))

	out := runTool(t, NewEditFileTool(mock, Options{}), map[string]string{
		"path": "app.js", "old_text": "const z = 9;", "new_text": "const z = 10;",
	})
	if !out.IsError {
		t.Fatal("expected an error when nothing matches")
	}
}

func TestDeleteFileAbsentSucceeds(t *testing.T) {
	mock := sandbox.NewMockClient()

	out := runTool(t, NewDeleteFileTool(mock, Options{}), map[string]string{"path": "never-existed.txt"})
	if out.IsError {
		t.Fatalf("deleting an absent file should succeed: %s", out.Content)
	}
}

func TestListFilesTrimsAndCaps(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetExecFunc(func(ctx context.Context, dir string, env []string, args ...string) ([]byte, []byte, int, error) {
		return []byte("./src/app.js\n./package.json\n"), nil, 0, nil
	})

	out := runTool(t, NewListFilesTool(mock, Options{}), map[string]string{})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if out.Content != "src/app.js\npackage.json" {
		t.Errorf("got %q", out.Content)
	}
}

func TestListFilesEmpty(t *testing.T) {
	mock := sandbox.NewMockClient()

	out := runTool(t, NewListFilesTool(mock, Options{}), map[string]string{"pattern": "*.zig"})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if out.Content != "no files matched" {
		t.Errorf("got %q", out.Content)
	}
}
