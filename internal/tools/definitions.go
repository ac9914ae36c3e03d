// internal/tools/definitions.go
package tools

import "github.com/xkilldash9x/agent-backend/api/schemas"

// Tool definitions exposed to the planner. The parameter schemas follow the
// OpenAI-style function calling format so they can be rendered directly into
// the planning prompt.

var goToURLTool = schemas.Tool{
	Type:        "function",
	Name:        "go_to_url",
	Description: "Open a new page in the current browser context and navigate it to the given URL. The response contains the ID of the new page.",
	Parameters: schemas.ToolParameters{
		Type: "object",
		Properties: map[string]schemas.ToolParameter{
			"url": {Type: "string", Description: "The absolute URL to navigate to, including the scheme."},
		},
		Required: []string{"url"},
	},
	Strict: true,
}

var clickTool = schemas.Tool{
	Type:        "function",
	Name:        "click",
	Description: "Click the first element matching a CSS selector on the given page.",
	Parameters: schemas.ToolParameters{
		Type: "object",
		Properties: map[string]schemas.ToolParameter{
			"page_id":  {Type: "uuid", Description: "The ID of the page to act on."},
			"selector": {Type: "string", Description: "CSS selector of the element to click."},
		},
		Required: []string{"page_id", "selector"},
	},
	Strict: true,
}

var typeTextTool = schemas.Tool{
	Type:        "function",
	Name:        "type_text",
	Description: "Type text into the first element matching a CSS selector on the given page.",
	Parameters: schemas.ToolParameters{
		Type: "object",
		Properties: map[string]schemas.ToolParameter{
			"page_id":  {Type: "uuid", Description: "The ID of the page to act on."},
			"selector": {Type: "string", Description: "CSS selector of the input element."},
			"text":     {Type: "string", Description: "The text to type."},
		},
		Required: []string{"page_id", "selector", "text"},
	},
	Strict: true,
}

var extractTextTool = schemas.Tool{
	Type:        "function",
	Name:        "extract_text",
	Description: "Extract the visible text content of the first element matching a CSS selector.",
	Parameters: schemas.ToolParameters{
		Type: "object",
		Properties: map[string]schemas.ToolParameter{
			"page_id":  {Type: "uuid", Description: "The ID of the page to read from."},
			"selector": {Type: "string", Description: "CSS selector of the element to read."},
		},
		Required: []string{"page_id", "selector"},
	},
	Strict: true,
}

var waitForSelectorTool = schemas.Tool{
	Type:        "function",
	Name:        "wait_for_selector",
	Description: "Wait until an element matching the CSS selector becomes visible on the page.",
	Parameters: schemas.ToolParameters{
		Type: "object",
		Properties: map[string]schemas.ToolParameter{
			"page_id":    {Type: "uuid", Description: "The ID of the page to watch."},
			"selector":   {Type: "string", Description: "CSS selector of the element to wait for."},
			"timeout_ms": {Type: "integer", Description: "Optional timeout in milliseconds. Uses the server default when omitted."},
		},
		Required: []string{"page_id", "selector"},
	},
	Strict: true,
}

var screenshotPageTool = schemas.Tool{
	Type:        "function",
	Name:        "screenshot_page",
	Description: "Capture a screenshot of the page's current viewport and save it as a PNG file. The response contains the file path.",
	Parameters: schemas.ToolParameters{
		Type: "object",
		Properties: map[string]schemas.ToolParameter{
			"page_id": {Type: "uuid", Description: "The ID of the page to capture."},
		},
		Required: []string{"page_id"},
	},
	Strict: true,
}

var scrollTool = schemas.Tool{
	Type:        "function",
	Name:        "scroll",
	Description: "Scroll the page by the given horizontal and vertical pixel deltas.",
	Parameters: schemas.ToolParameters{
		Type: "object",
		Properties: map[string]schemas.ToolParameter{
			"page_id": {Type: "uuid", Description: "The ID of the page to scroll."},
			"x":       {Type: "integer", Description: "Horizontal scroll delta in pixels."},
			"y":       {Type: "integer", Description: "Vertical scroll delta in pixels."},
		},
		Required: []string{"page_id", "x", "y"},
	},
	Strict: true,
}

var reloadPageTool = schemas.Tool{
	Type:        "function",
	Name:        "reload_page",
	Description: "Reload the page's current document.",
	Parameters: schemas.ToolParameters{
		Type: "object",
		Properties: map[string]schemas.ToolParameter{
			"page_id": {Type: "uuid", Description: "The ID of the page to reload."},
		},
		Required: []string{"page_id"},
	},
	Strict: true,
}

var getOpenPagesTool = schemas.Tool{
	Type:        "function",
	Name:        "get_open_pages",
	Description: "List the IDs and URLs of the pages open in the current browser context.",
	Parameters: schemas.ToolParameters{
		Type:       "object",
		Properties: map[string]schemas.ToolParameter{},
		Required:   []string{},
	},
	Strict: true,
}

var getElementByTool = schemas.Tool{
	Type:        "function",
	Name:        "get_element_by",
	Description: "Count elements on the page matching a query. Supported strategies: 'css' (CSS selector), 'text' (visible text content), 'label' (form label or aria-label).",
	Parameters: schemas.ToolParameters{
		Type: "object",
		Properties: map[string]schemas.ToolParameter{
			"page_id":  {Type: "uuid", Description: "The ID of the page to query."},
			"query":    {Type: "string", Description: "The selector, text, or label to match."},
			"query_by": {Type: "string", Description: "The lookup strategy: one of 'css', 'text', 'label'."},
		},
		Required: []string{"page_id", "query", "query_by"},
	},
	Strict: true,
}
