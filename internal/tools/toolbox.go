package tools

import (
	"github.com/thruflo/drover/internal/model"
	"github.com/thruflo/drover/internal/sandbox"
)

// WorkerToolbox is the full capability surface handed to the worker agent.
func WorkerToolbox(c sandbox.Client, rec *ClaimRecorder, opts Options) []model.Tool {
	return []model.Tool{
		NewListFilesTool(c, opts),
		NewReadFileTool(c, opts),
		NewWriteFileTool(c, opts),
		NewEditFileTool(c, opts),
		NewDeleteFileTool(c, opts),
		NewRunCommandTool(c, opts),
		NewStartDevServerTool(c, opts),
		NewCurlTool(c, opts),
		NewBrowserTestTool(c, opts),
		NewScreenshotTool(c, opts),
		NewMarkCompleteTool(rec),
	}
}

// InspectionToolbox is the read-and-verify subset used when reviewing work:
// no file mutation, no completion claims.
func InspectionToolbox(c sandbox.Client, opts Options) []model.Tool {
	return []model.Tool{
		NewListFilesTool(c, opts),
		NewReadFileTool(c, opts),
		NewRunCommandTool(c, opts),
		NewStartDevServerTool(c, opts),
		NewCurlTool(c, opts),
		NewBrowserTestTool(c, opts),
		NewScreenshotTool(c, opts),
	}
}
