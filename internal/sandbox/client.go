// Package sandbox wraps the ephemeral remote execution environment the
// agent works in. The core depends only on the Client interface: command
// execution with captured output, file read/write, and an externally
// reachable URL for one pre-declared port. The real implementation runs on
// Sprites; MockClient backs the tests.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	sprites "github.com/superfly/sprites-go"
)

// ErrNotFound is returned by ReadFile when the path does not exist in the
// sandbox.
var ErrNotFound = errors.New("file not found")

// Client defines the sandbox operations the core needs.
type Client interface {
	// ExecuteOutput runs a command in the sandbox and returns its captured
	// stdout, stderr, and exit code. A non-zero exit code is not an error;
	// err reports transport-level failures only.
	ExecuteOutput(ctx context.Context, dir string, env []string, args ...string) (stdout, stderr []byte, exitCode int, err error)

	// ReadFile reads a file from the sandbox. Returns ErrNotFound when the
	// path does not exist.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile writes content to a path in the sandbox.
	WriteFile(ctx context.Context, path string, content []byte) error

	// URL returns the externally reachable URL for the sandbox's
	// pre-declared network port.
	URL(port int) string
}

// SpriteClient implements Client using the sprites-go SDK, bound to a
// single named Sprite.
type SpriteClient struct {
	client  *sprites.Client
	name    string
	baseURL string
}

// NewSpriteClient creates a SpriteClient for the named Sprite. baseURL is
// the externally reachable address for the Sprite's declared port; when
// empty, URL falls back to a localhost address usable from inside the
// sandbox.
func NewSpriteClient(token, name, baseURL string) *SpriteClient {
	return &SpriteClient{
		client:  sprites.New(token),
		name:    name,
		baseURL: baseURL,
	}
}

// ExecuteOutput runs a command on the Sprite and captures its output.
func (c *SpriteClient) ExecuteOutput(ctx context.Context, dir string, env []string, args ...string) ([]byte, []byte, int, error) {
	if len(args) == 0 {
		return nil, nil, 0, fmt.Errorf("no command specified")
	}

	sprite := c.client.Sprite(c.name)
	cmd := sprite.CommandContext(ctx, args[0], args[1:]...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(env) > 0 {
		cmd.Env = env
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, 0, fmt.Errorf("failed to start command: %w", err)
	}

	stdout, readErr := io.ReadAll(stdoutPipe)
	stderr, _ := io.ReadAll(stderrPipe)

	waitErr := cmd.Wait()
	if waitErr != nil {
		var exitErr *sprites.ExitError
		if errors.As(waitErr, &exitErr) {
			return stdout, stderr, exitErr.ExitCode(), nil
		}
		return stdout, stderr, -1, fmt.Errorf("command failed: %w", waitErr)
	}
	if readErr != nil {
		return stdout, stderr, -1, fmt.Errorf("failed to read command output: %w", readErr)
	}

	return stdout, stderr, 0, nil
}

// ReadFile reads a file from the Sprite's filesystem.
func (c *SpriteClient) ReadFile(ctx context.Context, path string) ([]byte, error) {
	sprite := c.client.Sprite(c.name)
	fs := sprite.Filesystem()

	data, err := fs.ReadFile(path)
	if err != nil {
		// The SDK reports missing files with various error shapes.
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "not found") ||
			strings.Contains(msg, "no such file") ||
			strings.Contains(msg, "404") {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// WriteFile writes content to the Sprite's filesystem.
func (c *SpriteClient) WriteFile(ctx context.Context, path string, content []byte) error {
	sprite := c.client.Sprite(c.name)
	fs := sprite.Filesystem()

	if err := fs.WriteFileContext(ctx, path, content, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

// URL returns the reachable address for the Sprite's declared port.
func (c *SpriteClient) URL(port int) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("http://localhost:%d", port)
}

// Verify SpriteClient implements Client.
var _ Client = (*SpriteClient)(nil)
