package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/thruflo/drover/internal/sandbox"
)

func TestRunCommandSuccess(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetExecResult("sh -c npm test", sandbox.ExecResult{Stdout: []byte("all green\n")})

	out := runTool(t, NewRunCommandTool(mock, Options{}), map[string]string{"command": "npm test"})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if !strings.Contains(out.Content, "exit code 0") {
		t.Errorf("payload should carry the exit code: %q", out.Content)
	}
	if !strings.Contains(out.Content, "all green") {
		t.Errorf("payload should carry the output: %q", out.Content)
	}
}

func TestRunCommandNonZeroExit(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetExecResult("sh -c npm test", sandbox.ExecResult{
		Stdout:   []byte("1 failing\n"),
		Stderr:   []byte("Error: expected 2 to equal 3\n"),
		ExitCode: 1,
	})

	out := runTool(t, NewRunCommandTool(mock, Options{}), map[string]string{"command": "npm test"})
	if !out.IsError {
		t.Fatal("expected a failure for a non-zero exit")
	}
	if !strings.Contains(out.Content, "code 1") {
		t.Errorf("reason should carry the exit code: %q", out.Content)
	}
	if !strings.Contains(out.Content, "1 failing") || !strings.Contains(out.Content, "expected 2 to equal 3") {
		t.Errorf("reason should merge stdout and stderr: %q", out.Content)
	}
}

func TestRunCommandTransportError(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetExecResult("sh -c ls", sandbox.ExecResult{Err: errors.New("connection reset")})

	out := runTool(t, NewRunCommandTool(mock, Options{}), map[string]string{"command": "ls"})
	if !out.IsError {
		t.Fatal("expected a failure for a transport error")
	}
	if !strings.Contains(out.Content, "connection reset") {
		t.Errorf("reason should carry the underlying error: %q", out.Content)
	}
}

func TestRunCommandEmpty(t *testing.T) {
	mock := sandbox.NewMockClient()

	out := runTool(t, NewRunCommandTool(mock, Options{}), map[string]string{"command": "  "})
	if !out.IsError {
		t.Fatal("expected a failure for an empty command")
	}
	if len(mock.ExecCalls()) != 0 {
		t.Error("nothing should reach the sandbox for an empty command")
	}
}

func TestRunCommandOutputTruncated(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetExecResult("sh -c cat big.log", sandbox.ExecResult{Stdout: []byte(strings.Repeat("z", 500))})

	out := runTool(t, NewRunCommandTool(mock, Options{OutputLimit: 100}), map[string]string{"command": "cat big.log"})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if !strings.Contains(out.Content, "truncated") || !strings.Contains(out.Content, "500") {
		t.Errorf("marker should state the true size: %q", out.Content)
	}
}

func TestBrowserTestReportsFailureAsPayload(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetExecResult("sh -c node tests/flow.js", sandbox.ExecResult{
		Stdout:   []byte("step 3 failed\n"),
		ExitCode: 1,
	})

	out := runTool(t, NewBrowserTestTool(mock, Options{}), map[string]string{"path": "tests/flow.js"})
	if out.IsError {
		t.Fatalf("a failing test is information, not a tool error: %s", out.Content)
	}
	if !strings.Contains(out.Content, "exit code 1") || !strings.Contains(out.Content, "step 3 failed") {
		t.Errorf("payload should carry exit code and output: %q", out.Content)
	}
}

func TestCurlSuccess(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetExecResult("curl -s -S -X GET http://localhost:3000/", sandbox.ExecResult{
		Stdout: []byte("<html>ok</html>"),
	})

	out := runTool(t, NewCurlTool(mock, Options{}), map[string]string{"url": "http://localhost:3000/"})
	if out.IsError {
		t.Fatalf("unexpected error: %s", out.Content)
	}
	if out.Content != "<html>ok</html>" {
		t.Errorf("got %q", out.Content)
	}
}

func TestCurlConnectionRefused(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetExecResult("curl -s -S -X GET http://localhost:3000/", sandbox.ExecResult{
		Stderr:   []byte("curl: (7) Failed to connect\n"),
		ExitCode: 7,
	})

	out := runTool(t, NewCurlTool(mock, Options{}), map[string]string{"url": "http://localhost:3000/"})
	if !out.IsError {
		t.Fatal("expected a failure when the connection is refused")
	}
	if !strings.Contains(out.Content, "Failed to connect") {
		t.Errorf("reason should carry the curl error: %q", out.Content)
	}
}

func TestToolPanicBecomesFailure(t *testing.T) {
	tool := New("exploder", "always panics", func(ctx context.Context, input struct{}) Result {
		panic("boom")
	})
	out := tool.Execute(context.Background(), nil)
	if !out.IsError {
		t.Fatal("a panicking handler must surface as a failed result")
	}
	if !strings.Contains(out.Content, "boom") {
		t.Errorf("reason should carry the panic value: %q", out.Content)
	}
}

func TestToolMalformedInput(t *testing.T) {
	mock := sandbox.NewMockClient()
	tool := NewReadFileTool(mock, Options{})
	out := tool.Execute(context.Background(), []byte(`{"path": 42}`))
	if !out.IsError {
		t.Fatal("malformed input must surface as a failed result")
	}
}
