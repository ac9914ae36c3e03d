// internal/tools/registry.go
package tools

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/api/schemas"
	"github.com/xkilldash9x/agent-backend/internal/browser"
)

// Handler executes a single tool call. The contextID identifies the browser
// context owned by the running task; args hold the already-coerced call
// arguments keyed by parameter name.
type Handler func(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse

// Registry maps tool names to their definitions and handlers. Both maps are
// built together from the same source, so a name registered in one is always
// present in the other.
type Registry struct {
	logger        *zap.Logger
	browser       Controller
	screenshotDir string

	handlers map[string]Handler
	tools    map[string]schemas.Tool
}

// NewRegistry builds the full tool registry over the given browser controller.
func NewRegistry(ctrl Controller, screenshotDir string, logger *zap.Logger) *Registry {
	r := &Registry{
		logger:        logger.Named("tools"),
		browser:       ctrl,
		screenshotDir: screenshotDir,
		handlers:      make(map[string]Handler),
		tools:         make(map[string]schemas.Tool),
	}

	r.register(goToURLTool, r.goToURL)
	r.register(clickTool, r.click)
	r.register(typeTextTool, r.typeText)
	r.register(extractTextTool, r.extractText)
	r.register(waitForSelectorTool, r.waitForSelector)
	r.register(screenshotPageTool, r.screenshotPage)
	r.register(scrollTool, r.scroll)
	r.register(reloadPageTool, r.reloadPage)
	r.register(getOpenPagesTool, r.getOpenPages)
	r.register(getElementByTool, r.getElementBy)

	return r
}

func (r *Registry) register(tool schemas.Tool, handler Handler) {
	r.tools[tool.Name] = tool
	r.handlers[tool.Name] = handler
}

// Handler returns the handler registered under the given tool name.
func (r *Registry) Handler(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Tool returns the definition registered under the given tool name.
func (r *Registry) Tool(name string) (schemas.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns all tool definitions sorted by name.
func (r *Registry) Tools() []schemas.Tool {
	out := make([]schemas.Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// failure translates an operational error into an in-band tool failure.
func (r *Registry) failure(toolName string, err error) schemas.ToolResponse {
	r.logger.Debug("Tool call failed.", zap.String("tool", toolName), zap.Error(err))

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return schemas.ToolError("Request timed out: %v", err)
	case errors.Is(err, browser.ErrPageNotFound), errors.Is(err, browser.ErrContextNotFound):
		return schemas.ToolError("%v", err)
	default:
		return schemas.ToolError("Unexpected error: %v", err)
	}
}
