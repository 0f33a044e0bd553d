package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ExecResult is a canned response for MockClient.ExecuteOutput.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error
}

// MockExecCall records an ExecuteOutput call.
type MockExecCall struct {
	Dir  string
	Env  []string
	Args []string
}

// MockWriteCall records a WriteFile call.
type MockWriteCall struct {
	Path    string
	Content []byte
}

// MockClient implements Client for tests. It keeps an in-memory filesystem,
// returns scripted command results, and records every call for assertions.
type MockClient struct {
	mu sync.Mutex

	files map[string][]byte

	// execResults maps a space-joined command line to a canned result.
	execResults map[string]ExecResult
	// execFunc, when set, takes precedence over execResults.
	execFunc func(ctx context.Context, dir string, env []string, args ...string) ([]byte, []byte, int, error)

	baseURL string

	execCalls  []MockExecCall
	writeCalls []MockWriteCall
	readCalls  []string
}

// NewMockClient creates a MockClient with an empty filesystem. Unscripted
// commands succeed with empty output.
func NewMockClient() *MockClient {
	return &MockClient{
		files:       make(map[string][]byte),
		execResults: make(map[string]ExecResult),
	}
}

// ExecuteOutput returns the scripted result for the command, or empty
// success when nothing is scripted.
func (m *MockClient) ExecuteOutput(ctx context.Context, dir string, env []string, args ...string) ([]byte, []byte, int, error) {
	m.mu.Lock()
	m.execCalls = append(m.execCalls, MockExecCall{Dir: dir, Env: env, Args: args})
	execFn := m.execFunc
	result, scripted := m.execResults[strings.Join(args, " ")]
	m.mu.Unlock()

	if execFn != nil {
		return execFn(ctx, dir, env, args...)
	}
	if scripted {
		return result.Stdout, result.Stderr, result.ExitCode, result.Err
	}
	return nil, nil, 0, nil
}

// ReadFile returns content from the mock filesystem, or ErrNotFound.
func (m *MockClient) ReadFile(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readCalls = append(m.readCalls, path)

	if content, ok := m.files[path]; ok {
		return content, nil
	}
	return nil, ErrNotFound
}

// WriteFile stores content in the mock filesystem.
func (m *MockClient) WriteFile(ctx context.Context, path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls = append(m.writeCalls, MockWriteCall{Path: path, Content: content})
	m.files[path] = content
	return nil
}

// URL returns the configured base URL, or a localhost address.
func (m *MockClient) URL(port int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseURL != "" {
		return m.baseURL
	}
	return fmt.Sprintf("http://localhost:%d", port)
}

// SetFile seeds a file in the mock filesystem.
func (m *MockClient) SetFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

// GetFile reads a file from the mock filesystem without recording a call.
func (m *MockClient) GetFile(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	return content, ok
}

// RemoveFile deletes a file from the mock filesystem.
func (m *MockClient) RemoveFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// SetExecResult scripts the result for an exact command line (args joined
// with single spaces).
func (m *MockClient) SetExecResult(commandLine string, result ExecResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execResults[commandLine] = result
}

// SetExecFunc installs a custom handler for all ExecuteOutput calls.
func (m *MockClient) SetExecFunc(fn func(ctx context.Context, dir string, env []string, args ...string) ([]byte, []byte, int, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execFunc = fn
}

// SetBaseURL configures the URL returned by URL.
func (m *MockClient) SetBaseURL(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseURL = url
}

// ExecCalls returns a copy of the recorded ExecuteOutput calls.
func (m *MockClient) ExecCalls() []MockExecCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockExecCall, len(m.execCalls))
	copy(out, m.execCalls)
	return out
}

// WriteCalls returns a copy of the recorded WriteFile calls.
func (m *MockClient) WriteCalls() []MockWriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockWriteCall, len(m.writeCalls))
	copy(out, m.writeCalls)
	return out
}

// ReadCalls returns a copy of the recorded ReadFile paths.
func (m *MockClient) ReadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.readCalls))
	copy(out, m.readCalls)
	return out
}

// Verify MockClient implements Client.
var _ Client = (*MockClient)(nil)
