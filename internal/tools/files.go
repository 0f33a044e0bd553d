package tools

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/thruflo/drover/internal/editor"
	"github.com/thruflo/drover/internal/model"
	"github.com/thruflo/drover/internal/sandbox"
)

type listFilesInput struct {
	Pattern string `json:"pattern,omitempty" jsonschema_description:"Filename glob to match, e.g. *.ts. Defaults to all files."`
}

type readFileInput struct {
	Path      string `json:"path" jsonschema_description:"Path to the file, relative to the project root."`
	LineStart int    `json:"line_start,omitempty" jsonschema_description:"First line to read, 1-indexed inclusive."`
	LineEnd   int    `json:"line_end,omitempty" jsonschema_description:"Last line to read, 1-indexed inclusive."`
}

type writeFileInput struct {
	Path    string `json:"path" jsonschema_description:"Path to the file, relative to the project root."`
	Content string `json:"content" jsonschema_description:"Full content to write. Parent directories are created as needed."`
}

type editFileInput struct {
	Path    string `json:"path" jsonschema_description:"Path to the file, relative to the project root."`
	OldText string `json:"old_text" jsonschema_description:"Exact text to replace. Must match exactly one location in the file."`
	NewText string `json:"new_text" jsonschema_description:"Replacement text."`
}

type deleteFileInput struct {
	Path string `json:"path" jsonschema_description:"Path to the file, relative to the project root."`
}

// resolve anchors a tool-supplied path under the working directory. Absolute
// paths pass through untouched.
func resolve(workDir, p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(workDir, p)
}

// NewListFilesTool lists project files matching an optional glob. Listings
// are capped and skip dependency and VCS directories.
func NewListFilesTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("list_files",
		"List files in the project, optionally filtered by a filename glob. Skips node_modules and .git.",
		func(ctx context.Context, input listFilesInput) Result {
			pattern := input.Pattern
			if pattern == "" {
				pattern = "*"
			}
			script := fmt.Sprintf(
				`find . \( -name node_modules -o -name .git \) -prune -o -type f -name %q -print | head -n %d`,
				pattern, opts.ListLimit)
			stdout, stderr, exitCode, err := c.ExecuteOutput(ctx, opts.WorkDir, nil, "sh", "-c", script)
			if err != nil {
				return Failuref("listing failed: %v", err)
			}
			if exitCode != 0 {
				return Failuref("listing exited with code %d: %s", exitCode, strings.TrimSpace(string(stderr)))
			}
			lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
			var paths []string
			for _, l := range lines {
				l = strings.TrimPrefix(strings.TrimSpace(l), "./")
				if l != "" {
					paths = append(paths, l)
				}
			}
			if len(paths) == 0 {
				return Success("no files matched")
			}
			payload := strings.Join(paths, "\n")
			if len(paths) == opts.ListLimit {
				payload += fmt.Sprintf("\n[listing capped at %d entries; narrow the pattern to see more]", opts.ListLimit)
			}
			return Success(payload)
		})
}

// NewReadFileTool reads a file, whole or by an inclusive 1-indexed line
// range. Ranged reads come back with line numbers prefixed.
func NewReadFileTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("read_file",
		"Read a file from the project. Pass line_start and line_end to read a specific line range.",
		func(ctx context.Context, input readFileInput) Result {
			if input.Path == "" {
				return Failure("path is required")
			}
			data, err := c.ReadFile(ctx, resolve(opts.WorkDir, input.Path))
			if errors.Is(err, sandbox.ErrNotFound) {
				return Failuref("file not found: %s", input.Path)
			}
			if err != nil {
				return Failuref("read failed for %s: %v", input.Path, err)
			}
			content := string(data)

			if input.LineStart == 0 && input.LineEnd == 0 {
				return Success(TruncateFileContent(content, opts.OutputLimit))
			}

			lines := strings.Split(content, "\n")
			start, end := input.LineStart, input.LineEnd
			if start < 1 {
				start = 1
			}
			if end == 0 || end > len(lines) {
				end = len(lines)
			}
			if start > len(lines) {
				return Failuref("line_start %d is beyond the end of %s (%d lines)", input.LineStart, input.Path, len(lines))
			}
			if end < start {
				return Failuref("line_end %d is before line_start %d", input.LineEnd, input.LineStart)
			}
			var b strings.Builder
			for i := start; i <= end; i++ {
				fmt.Fprintf(&b, "%d: %s\n", i, lines[i-1])
			}
			payload := strings.TrimSuffix(b.String(), "\n")
			return Success(TruncateChars(payload, opts.OutputLimit))
		})
}

// NewWriteFileTool writes full file content, creating parent directories.
func NewWriteFileTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("write_file",
		"Create or overwrite a file with the given content.",
		func(ctx context.Context, input writeFileInput) Result {
			if input.Path == "" {
				return Failure("path is required")
			}
			target := resolve(opts.WorkDir, input.Path)
			if dir := path.Dir(target); dir != "." && dir != "/" {
				if _, _, _, err := c.ExecuteOutput(ctx, "", nil, "mkdir", "-p", dir); err != nil {
					return Failuref("creating parent directory for %s: %v", input.Path, err)
				}
			}
			if err := c.WriteFile(ctx, target, []byte(input.Content)); err != nil {
				return Failuref("write failed for %s: %v", input.Path, err)
			}
			return Success(fmt.Sprintf("wrote %d bytes to %s", len(input.Content), input.Path))
		})
}

// NewEditFileTool replaces a uniquely-matching span of a file. Zero or
// multiple matches fail with the match count so the caller can add context.
func NewEditFileTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("edit_file",
		"Replace text in a file. old_text must match exactly one location; include surrounding lines to disambiguate.",
		func(ctx context.Context, input editFileInput) Result {
			if input.Path == "" {
				return Failure("path is required")
			}
			target := resolve(opts.WorkDir, input.Path)
			data, err := c.ReadFile(ctx, target)
			if errors.Is(err, sandbox.ErrNotFound) {
				return Failuref("file not found: %s", input.Path)
			}
			if err != nil {
				return Failuref("read failed for %s: %v", input.Path, err)
			}
			edit, err := editor.ReplaceUnique(string(data), input.OldText, input.NewText)
			if err != nil {
				return Failuref("edit failed for %s: %v; include more surrounding context in old_text", input.Path, err)
			}
			if err := c.WriteFile(ctx, target, []byte(edit.Content)); err != nil {
				return Failuref("write failed for %s: %v", input.Path, err)
			}
			return Success(fmt.Sprintf("edited %s\nreplaced: %s\ninserted: %s",
				input.Path, editor.Preview(edit.Replaced), editor.Preview(edit.Inserted)))
		})
}

// NewDeleteFileTool removes a file. Deleting an absent file succeeds.
func NewDeleteFileTool(c sandbox.Client, opts Options) model.Tool {
	opts = opts.withDefaults()
	return New("delete_file",
		"Delete a file from the project. Deleting a file that does not exist is not an error.",
		func(ctx context.Context, input deleteFileInput) Result {
			if input.Path == "" {
				return Failure("path is required")
			}
			target := resolve(opts.WorkDir, input.Path)
			_, stderr, exitCode, err := c.ExecuteOutput(ctx, "", nil, "rm", "-f", target)
			if err != nil {
				return Failuref("delete failed for %s: %v", input.Path, err)
			}
			if exitCode != 0 {
				return Failuref("delete exited with code %d: %s", exitCode, strings.TrimSpace(string(stderr)))
			}
			return Success(fmt.Sprintf("deleted %s", input.Path))
		})
}
