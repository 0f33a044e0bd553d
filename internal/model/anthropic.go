package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/thruflo/drover/internal/logging"
)

// Default generation settings for the Anthropic client.
const (
	DefaultAnthropicModel     = "claude-sonnet-4-20250514"
	DefaultAnthropicMaxTokens = 8192
)

// AnthropicConfig holds settings for AnthropicClient.
type AnthropicConfig struct {
	// Model is the model name to invoke.
	Model string
	// MaxTokens bounds each internal round's output.
	MaxTokens int64
	// BaseURL overrides the API endpoint (for testing against a fake server).
	BaseURL string
}

// AnthropicClient implements Client on the Anthropic Messages API. Each
// Generate call runs the internal agentic rounds: when the model requests
// tools, they are executed and their results fed back until the model stops
// or the step limit is reached.
type AnthropicClient struct {
	client *anthropic.Client
	cfg    AnthropicConfig
}

// NewAnthropicClient creates an AnthropicClient. The API key is required;
// zero-value config fields fall back to package defaults.
func NewAnthropicClient(apiKey string, cfg AnthropicConfig) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultAnthropicMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

// Generate runs one bounded agentic generation.
func (c *AnthropicClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.StepLimit <= 0 {
		return nil, fmt.Errorf("step limit must be positive")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	toolsByName := make(map[string]Tool, len(req.Tools))
	for _, t := range req.Tools {
		toolsByName[t.Name] = t
	}

	conversation := transformMessages(req.Messages)
	anthropicTools := transformTools(req.Tools)

	resp := &Response{StopReason: StopReasonStepLimit}
	var text strings.Builder

	for step := 0; step < req.StepLimit; step++ {
		params := anthropic.MessageNewParams{
			Model:     anthropic.F(c.cfg.Model),
			MaxTokens: anthropic.F(c.cfg.MaxTokens),
			System: anthropic.F([]anthropic.TextBlockParam{
				{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(req.System),
				},
			}),
			Messages: anthropic.F(conversation),
		}
		if len(anthropicTools) > 0 {
			params.Tools = anthropic.F(anthropicTools)
			params.ToolChoice = anthropic.F(anthropic.ToolChoiceUnionParam(
				anthropic.ToolChoiceAutoParam{Type: anthropic.F(anthropic.ToolChoiceAutoTypeAuto)},
			))
		}

		message, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("anthropic generate failed: %w", err)
		}

		current := Step{}
		var assistantBlocks []anthropic.ContentBlockParamUnion

		for _, block := range message.Content {
			switch block := block.AsUnion().(type) {
			case anthropic.TextBlock:
				current.Text += block.Text
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(block.Text))
			case anthropic.ToolUseBlock:
				current.ToolCalls = append(current.ToolCalls, ToolCall{
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				})
				assistantBlocks = append(assistantBlocks, anthropic.NewToolUseBlockParam(block.ID, block.Name, block.Input))
			}
		}

		if current.Text != "" {
			text.WriteString(current.Text)
		}

		if len(current.ToolCalls) == 0 {
			resp.Steps = append(resp.Steps, current)
			resp.StopReason = StopReasonEndTurn
			break
		}

		conversation = append(conversation, anthropic.NewAssistantMessage(assistantBlocks...))

		var resultBlocks []anthropic.ContentBlockParamUnion
		for _, call := range current.ToolCalls {
			output := c.dispatch(ctx, toolsByName, call)
			current.ToolResults = append(current.ToolResults, ToolResult{
				ID:      call.ID,
				Name:    call.Name,
				Output:  output.Content,
				IsError: output.IsError,
			})
			resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(call.ID, output.Content, output.IsError))
		}
		conversation = append(conversation, anthropic.NewUserMessage(resultBlocks...))

		resp.Steps = append(resp.Steps, current)
	}

	resp.Text = text.String()
	return resp, nil
}

// dispatch executes one requested tool call. Unknown tool names and tool
// panics are converted into error outputs rather than failing the round.
func (c *AnthropicClient) dispatch(ctx context.Context, tools map[string]Tool, call ToolCall) (output ToolOutput) {
	tool, ok := tools[call.Name]
	if !ok {
		return ToolOutput{
			Content: fmt.Sprintf("unknown tool: %s", call.Name),
			IsError: true,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("tool panicked", "tool", call.Name, "panic", fmt.Sprint(r))
			output = ToolOutput{
				Content: fmt.Sprintf("tool %s failed: %v", call.Name, r),
				IsError: true,
			}
		}
	}()

	return tool.Execute(ctx, call.Input)
}

func transformMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return out
}

func transformTools(tools []Tool) []anthropic.ToolUnionUnionParam {
	var out []anthropic.ToolUnionUnionParam
	for _, tool := range tools {
		out = append(out, anthropic.ToolParam{
			Name:        anthropic.F(tool.Name),
			Description: anthropic.F(tool.Description),
			InputSchema: anthropic.F(any(tool.Schema)),
		})
	}
	return out
}
