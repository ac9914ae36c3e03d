// internal/agent/executor.go
package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/api/schemas"
	"github.com/xkilldash9x/agent-backend/internal/tools"
)

// ParsedCall is a single function call resolved against the tool registry,
// with its arguments coerced to the types the tool declares.
type ParsedCall struct {
	Name    string
	Handler tools.Handler
	Args    map[string]any
	Raw     string
}

// Executor turns planner-emitted call strings like
//
//	type_text(page_id=<uuid>,selector=#username,text=testuser)
//
// into tool invocations. Parsing is strict: an unknown function name or a
// malformed argument fails the whole batch before anything runs.
type Executor struct {
	registry *tools.Registry
	logger   *zap.Logger
}

// NewExecutor creates an executor over the given tool registry.
func NewExecutor(registry *tools.Registry, logger *zap.Logger) *Executor {
	return &Executor{
		registry: registry,
		logger:   logger.Named("executor"),
	}
}

// ParseCalls parses and resolves every call string. All calls are validated
// up front so a typo in the third call does not leave the first two already
// executed.
func (e *Executor) ParseCalls(calls []string) ([]ParsedCall, error) {
	parsed := make([]ParsedCall, 0, len(calls))

	for _, raw := range calls {
		call, err := e.parseCall(raw)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, call)
	}
	return parsed, nil
}

func (e *Executor) parseCall(raw string) (ParsedCall, error) {
	trimmed := strings.TrimSpace(raw)

	open := strings.Index(trimmed, "(")
	if open == -1 || !strings.HasSuffix(trimmed, ")") {
		return ParsedCall{}, fmt.Errorf("malformed function call: %q", raw)
	}

	name := strings.TrimSpace(trimmed[:open])
	handler, ok := e.registry.Handler(name)
	if !ok {
		return ParsedCall{}, fmt.Errorf("function %s not found", name)
	}
	tool, _ := e.registry.Tool(name)

	args := make(map[string]any)
	argsBody := strings.TrimSpace(trimmed[open+1 : len(trimmed)-1])
	if argsBody != "" {
		for _, part := range strings.Split(argsBody, ",") {
			kv := strings.SplitN(part, "=", 2)
			if len(kv) != 2 {
				return ParsedCall{}, fmt.Errorf("malformed argument %q in call to %s", strings.TrimSpace(part), name)
			}
			key := strings.TrimSpace(kv[0])
			value := strings.TrimSpace(kv[1])

			coerced, err := coerceArgument(tool, name, key, value)
			if err != nil {
				return ParsedCall{}, err
			}
			args[key] = coerced
		}
	}

	return ParsedCall{Name: name, Handler: handler, Args: args, Raw: raw}, nil
}

// coerceArgument converts the raw string value to the type the tool declares
// for the parameter. Undeclared parameters pass through as strings; the
// handler rejects them if it cares.
func coerceArgument(tool schemas.Tool, toolName, key, value string) (any, error) {
	prop, ok := tool.Parameters.Properties[key]
	if !ok {
		return value, nil
	}

	switch prop.Type {
	case "uuid":
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("argument %s of %s must be a UUID: %w", key, toolName, err)
		}
		return id, nil
	case "integer":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("argument %s of %s must be an integer: %w", key, toolName, err)
		}
		return n, nil
	case "boolean":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("argument %s of %s must be a boolean: %w", key, toolName, err)
		}
		return b, nil
	default:
		return value, nil
	}
}

// ExecuteCalls runs the parsed calls in order, stopping at the first failure.
// The failing response is included in the returned slice so the planner can
// observe what went wrong.
func (e *Executor) ExecuteCalls(ctx context.Context, contextID uuid.UUID, calls []ParsedCall) []schemas.ToolResponse {
	results := make([]schemas.ToolResponse, 0, len(calls))

	for _, call := range calls {
		e.logger.Debug("Executing tool call.", zap.String("tool", call.Name), zap.String("raw", call.Raw))
		resp := call.Handler(ctx, contextID, call.Args)
		results = append(results, resp)

		if !resp.Success {
			e.logger.Warn("Tool call failed, aborting remaining calls in batch.",
				zap.String("tool", call.Name),
				zap.String("content", resp.Content),
				zap.Int("remaining", len(calls)-len(results)),
			)
			break
		}
	}
	return results
}
