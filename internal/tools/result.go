package tools

import (
	"fmt"

	"github.com/thruflo/drover/internal/model"
)

// Result is the tagged outcome of a tool invocation. OK carries a payload;
// failure carries a reason the deciding agent can act on. A failed tool call
// never aborts the run.
type Result struct {
	OK      bool
	Payload string
	Reason  string
}

// Success builds a successful Result with the given payload.
func Success(payload string) Result {
	return Result{OK: true, Payload: payload}
}

// Failure builds a failed Result with the given reason.
func Failure(reason string) Result {
	return Result{Reason: reason}
}

// Failuref builds a failed Result with a formatted reason.
func Failuref(format string, args ...interface{}) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Output converts the Result to the wire form the model layer expects.
func (r Result) Output() model.ToolOutput {
	if r.OK {
		return model.ToolOutput{Content: r.Payload}
	}
	return model.ToolOutput{Content: r.Reason, IsError: true}
}
