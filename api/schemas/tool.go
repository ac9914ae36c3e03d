package schemas

import "fmt"

// ToolParameters describes the arguments a tool accepts using a JSON-Schema
// style object definition. The planner prompt embeds these definitions so the
// model knows the exact calling convention for each tool.
type ToolParameters struct {
	Type                 string                   `json:"type"`
	Properties           map[string]ToolParameter `json:"properties"`
	Required             []string                 `json:"required"`
	AdditionalProperties bool                     `json:"additionalProperties"`
}

// ToolParameter describes a single named argument.
type ToolParameter struct {
	Type        string `json:"type"`                  // "string", "integer", "boolean" or "uuid".
	Description string `json:"description,omitempty"` // Human/model readable usage notes.
}

// Tool is the declarative definition of a browser capability exposed to the
// planner. Name must match the key the tool is registered under.
type Tool struct {
	Type        string         `json:"type"` // Always "function".
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// ToolResponse is the uniform result envelope for every tool invocation.
// Tool-level failures (element not found, timeout, bad argument) are reported
// in-band with Success=false so the planner can observe and recover from them;
// only infrastructure faults surface as Go errors.
type ToolResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
}

// ToolOK builds a successful response.
func ToolOK(format string, args ...interface{}) ToolResponse {
	return ToolResponse{Success: true, Content: fmt.Sprintf(format, args...)}
}

// ToolError builds a failed response. The "ERROR:" prefix is part of the
// contract the planner prompt documents.
func ToolError(format string, args ...interface{}) ToolResponse {
	return ToolResponse{Success: false, Content: "ERROR: " + fmt.Sprintf(format, args...)}
}
