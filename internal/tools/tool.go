package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/model"
)

// New builds a model.Tool whose input schema is reflected from T and whose
// handler receives the decoded input. Malformed input and handler panics are
// reported as failed results, never propagated.
func New[T any](name, description string, handler func(ctx context.Context, input T) Result) model.Tool {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var zero T
	reflected := reflector.Reflect(zero)

	schema := map[string]interface{}{
		"type":       "object",
		"properties": reflected.Properties,
	}
	if len(reflected.Required) > 0 {
		schema["required"] = reflected.Required
	}

	return model.Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		Execute: func(ctx context.Context, raw json.RawMessage) model.ToolOutput {
			var input T
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &input); err != nil {
					return Failuref("invalid input for %s: %v", name, err).Output()
				}
			}

			start := time.Now()
			res := safeHandle(ctx, name, handler, input)
			logging.Info("tool executed",
				"tool", name,
				"ok", fmt.Sprintf("%t", res.OK),
				"duration", time.Since(start).Round(time.Millisecond).String(),
			)
			if !res.OK {
				logging.Debug("tool failure", "tool", name, "reason", res.Reason)
			}
			return res.Output()
		},
	}
}

func safeHandle[T any](ctx context.Context, name string, handler func(context.Context, T) Result, input T) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failuref("%s panicked: %v", name, r)
		}
	}()
	return handler(ctx, input)
}
