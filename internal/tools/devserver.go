package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/model"
	"github.com/thruflo/drover/internal/sandbox"
)

type startDevServerInput struct {
	Command string `json:"command,omitempty" jsonschema_description:"Start command to run. Detected from the project manifest when omitted."`
}

// DetectStartCommand inspects the project manifest for a start command. The
// dev script wins over start; an empty string means nothing was found.
func DetectStartCommand(ctx context.Context, c sandbox.Client, workDir, manifestPath string) (string, error) {
	data, err := c.ReadFile(ctx, resolve(workDir, manifestPath))
	if errors.Is(err, sandbox.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if gjson.GetBytes(data, "scripts.dev").Exists() {
		return "npm run dev", nil
	}
	if gjson.GetBytes(data, "scripts.start").Exists() {
		return "npm run start", nil
	}
	return "", nil
}

// NewStartDevServerTool launches the project's dev server detached so it
// survives the tool call, then reports the URL it is expected to serve on.
// Server output goes to a log file readable with the other tools.
func NewStartDevServerTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("start_dev_server",
		"Start the project's development server in the background and return its URL. Detects the start command from the manifest when none is given.",
		func(ctx context.Context, input startDevServerInput) Result {
			command := input.Command
			if command == "" {
				detected, err := DetectStartCommand(ctx, c, opts.WorkDir, opts.ManifestPath)
				if err != nil {
					return Failuref("reading %s: %v", opts.ManifestPath, err)
				}
				command = detected
			}
			if command == "" {
				return Failuref("no start command: pass one explicitly or add a dev or start script to %s", opts.ManifestPath)
			}

			script := fmt.Sprintf("nohup %s > %s 2>&1 &", command, opts.DevServerLog)
			_, stderr, exitCode, err := c.ExecuteOutput(ctx, opts.WorkDir, nil, "sh", "-c", script)
			if err != nil {
				return Failuref("sandbox execution failed: %v", err)
			}
			if exitCode != 0 {
				return Failuref("launch exited with code %d: %s", exitCode, string(stderr))
			}
			logging.Info("dev server launched", "command", command, "log", opts.DevServerLog)

			// Give the process a moment to bind before the agent probes it.
			select {
			case <-time.After(opts.DevServerDelay):
			case <-ctx.Done():
				return Failuref("canceled while waiting for the server to start: %v", ctx.Err())
			}

			return Success(fmt.Sprintf("server starting\nurl: %s\ncommand: %s\nlog: %s",
				c.URL(opts.DevServerPort), command, opts.DevServerLog))
		})
}
