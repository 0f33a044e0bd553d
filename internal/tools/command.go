package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/thruflo/drover/internal/model"
	"github.com/thruflo/drover/internal/sandbox"
)

type runCommandInput struct {
	Command string `json:"command" jsonschema_description:"Shell command to run in the project directory."`
}

type curlInput struct {
	URL    string `json:"url" jsonschema_description:"URL to request."`
	Method string `json:"method,omitempty" jsonschema_description:"HTTP method. Defaults to GET."`
}

type browserTestInput struct {
	Path string   `json:"path" jsonschema_description:"Path to the test script, relative to the project root."`
	Args []string `json:"args,omitempty" jsonschema_description:"Extra arguments passed to the script."`
}

type screenshotInput struct {
	URL        string `json:"url" jsonschema_description:"Page URL to capture."`
	OutputPath string `json:"output_path,omitempty" jsonschema_description:"Where to save the image. Defaults to /tmp/screenshot.png."`
}

// mergeOutput interleaving is not preserved across the two pipes; stdout
// first, then stderr.
func mergeOutput(stdout, stderr []byte) string {
	out := strings.TrimRight(string(stdout), "\n")
	errOut := strings.TrimRight(string(stderr), "\n")
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// NewRunCommandTool runs a shell command in the sandbox. A non-zero exit is
// reported as a failure carrying the exit code and output; only transport
// errors to the sandbox are indistinguishable from the command itself.
func NewRunCommandTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("run_command",
		"Run a shell command in the project directory. Output is returned with the exit code.",
		func(ctx context.Context, input runCommandInput) Result {
			if strings.TrimSpace(input.Command) == "" {
				return Failure("command is required")
			}
			stdout, stderr, exitCode, err := c.ExecuteOutput(ctx, opts.WorkDir, nil, "sh", "-c", input.Command)
			if err != nil {
				return Failuref("sandbox execution failed: %v", err)
			}
			merged := TruncateChars(mergeOutput(stdout, stderr), opts.OutputLimit)
			if exitCode != 0 {
				return Failuref("command exited with code %d\n%s", exitCode, merged)
			}
			return Success(fmt.Sprintf("exit code 0\n%s", merged))
		})
}

// NewCurlTool probes an HTTP endpoint from inside the sandbox.
func NewCurlTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("curl",
		"Make an HTTP request from inside the sandbox and return the response body.",
		func(ctx context.Context, input curlInput) Result {
			if input.URL == "" {
				return Failure("url is required")
			}
			method := input.Method
			if method == "" {
				method = "GET"
			}
			stdout, stderr, exitCode, err := c.ExecuteOutput(ctx, opts.WorkDir, nil,
				"curl", "-s", "-S", "-X", method, input.URL)
			if err != nil {
				return Failuref("sandbox execution failed: %v", err)
			}
			if exitCode != 0 {
				return Failuref("request failed with exit code %d: %s", exitCode, strings.TrimSpace(string(stderr)))
			}
			return Success(TruncateChars(string(stdout), opts.OutputLimit))
		})
}

// NewBrowserTestTool runs a browser test script. The exit code is reported
// in the payload either way; a failing test is information, not an error.
func NewBrowserTestTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("run_browser_test",
		"Run a browser test script with node and return its output and exit code.",
		func(ctx context.Context, input browserTestInput) Result {
			if input.Path == "" {
				return Failure("path is required")
			}
			parts := append([]string{"node", input.Path}, input.Args...)
			stdout, stderr, exitCode, err := c.ExecuteOutput(ctx, opts.WorkDir, nil,
				"sh", "-c", strings.Join(parts, " "))
			if err != nil {
				return Failuref("sandbox execution failed: %v", err)
			}
			merged := TruncateChars(mergeOutput(stdout, stderr), opts.OutputLimit)
			return Success(fmt.Sprintf("exit code %d\n%s", exitCode, merged))
		})
}

// NewScreenshotTool captures a page screenshot via playwright.
func NewScreenshotTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("take_screenshot",
		"Capture a screenshot of a page and save it inside the sandbox.",
		func(ctx context.Context, input screenshotInput) Result {
			if input.URL == "" {
				return Failure("url is required")
			}
			out := input.OutputPath
			if out == "" {
				out = "/tmp/screenshot.png"
			}
			_, stderr, exitCode, err := c.ExecuteOutput(ctx, opts.WorkDir, nil,
				"npx", "playwright", "screenshot", input.URL, out)
			if err != nil {
				return Failuref("sandbox execution failed: %v", err)
			}
			if exitCode != 0 {
				return Failuref("screenshot failed with exit code %d: %s", exitCode, strings.TrimSpace(string(stderr)))
			}
			return Success(fmt.Sprintf("screenshot saved to %s", out))
		})
}
