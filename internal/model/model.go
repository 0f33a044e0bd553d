// Package model defines the model-invocation collaborator: a Client that
// runs one agentic generation round-trip, executing any requested tools
// internally and returning the full step transcript. The loop consumes this
// interface only; it never talks to a provider SDK directly.
package model

import (
	"context"
	"encoding/json"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser is a message authored by the orchestrator on behalf of the task.
	RoleUser Role = "user"
	// RoleAssistant is a message authored by the model.
	RoleAssistant Role = "assistant"
)

// Message is one turn of model-visible conversation history.
type Message struct {
	Role    Role
	Content string
}

// ToolOutput is the result of executing a single tool call. Content is what
// the model sees; IsError marks the output as a failure so the model can
// adapt rather than assume success.
type ToolOutput struct {
	Content string
	IsError bool
}

// Tool is a capability offered to the model for one generation. Schema is a
// JSON-schema object describing Input. Execute must never panic; failures
// are reported through ToolOutput.IsError.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]interface{}
	Execute     func(ctx context.Context, input json.RawMessage) ToolOutput
}

// ToolCall records a tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult records the outcome of a ToolCall.
type ToolResult struct {
	ID      string
	Name    string
	Output  string
	IsError bool
}

// Step is one internal model round: any text produced plus the tool calls
// made and their results. A step with no tool calls ends the generation.
type Step struct {
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Request describes one generation: a system prompt, prior conversation,
// the tool surface, and a bound on internal steps.
type Request struct {
	System    string
	Messages  []Message
	Tools     []Tool
	StepLimit int
}

// Stop reasons reported in Response.StopReason.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonStepLimit = "step_limit"
)

// Response is the outcome of one generation.
type Response struct {
	// Text is the concatenated text of all steps.
	Text string
	// Steps is the ordered transcript of internal rounds.
	Steps []Step
	// StopReason is why the generation ended.
	StopReason string
}

// Client invokes the model. Implementations run the internal tool-use rounds
// themselves: callers see only the finished transcript.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
