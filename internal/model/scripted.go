package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ScriptedCall names a tool the scripted client should invoke against the
// request's tool surface, with a literal JSON input.
type ScriptedCall struct {
	Tool  string
	Input string
}

// ScriptedTurn is one pre-programmed Generate outcome. Calls are executed
// for real against the tools in the request, so side effects (file writes,
// completion claims) happen exactly as they would with a live model.
type ScriptedTurn struct {
	Text  string
	Calls []ScriptedCall
	Err   error
}

// ScriptedClient implements Client for tests. It replays a fixed sequence of
// turns and records every request it receives.
type ScriptedClient struct {
	mu       sync.Mutex
	turns    []ScriptedTurn
	next     int
	requests []Request
}

// NewScriptedClient creates a ScriptedClient that replays the given turns in
// order. Once the script is exhausted, Generate returns an empty end-turn
// response.
func NewScriptedClient(turns ...ScriptedTurn) *ScriptedClient {
	return &ScriptedClient{turns: turns}
}

// Generate replays the next scripted turn, executing its tool calls against
// the request's tools.
func (c *ScriptedClient) Generate(ctx context.Context, req Request) (*Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	var turn ScriptedTurn
	if c.next < len(c.turns) {
		turn = c.turns[c.next]
		c.next++
	}
	c.mu.Unlock()

	if turn.Err != nil {
		return nil, turn.Err
	}

	toolsByName := make(map[string]Tool, len(req.Tools))
	for _, t := range req.Tools {
		toolsByName[t.Name] = t
	}

	step := Step{Text: turn.Text}
	for i, call := range turn.Calls {
		id := fmt.Sprintf("scripted-%d-%d", len(c.requests), i)
		step.ToolCalls = append(step.ToolCalls, ToolCall{
			ID:    id,
			Name:  call.Tool,
			Input: json.RawMessage(call.Input),
		})

		tool, ok := toolsByName[call.Tool]
		if !ok {
			step.ToolResults = append(step.ToolResults, ToolResult{
				ID:      id,
				Name:    call.Tool,
				Output:  fmt.Sprintf("unknown tool: %s", call.Tool),
				IsError: true,
			})
			continue
		}

		output := tool.Execute(ctx, json.RawMessage(call.Input))
		step.ToolResults = append(step.ToolResults, ToolResult{
			ID:      id,
			Name:    call.Tool,
			Output:  output.Content,
			IsError: output.IsError,
		})
	}

	return &Response{
		Text:       turn.Text,
		Steps:      []Step{step},
		StopReason: StopReasonEndTurn,
	}, nil
}

// Requests returns a copy of the recorded requests.
func (c *ScriptedClient) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Verify ScriptedClient implements Client.
var _ Client = (*ScriptedClient)(nil)
