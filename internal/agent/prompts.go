// internal/agent/prompts.go
package agent

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/agent-backend/api/schemas"
	"github.com/xkilldash9x/agent-backend/internal/llmutil"
)

const reactPromptPreamble = `You are an autonomous web browsing agent. You control a real browser through a fixed set of functions and work in a strict observe-plan-act loop.

On every turn you receive the task, the history of your previous steps, and the results of the function calls from your last step. You respond with exactly one planning block in the following format:

#/OBSERVATION/#
What you learned from the latest results. Reference page IDs explicitly.

#/PLAN/#
One short sentence describing the next action. When the task is fully complete, write exactly: done

#/FUNCTION_CALLS/#
function_name(param=value,param2=value2)
another_function(param=value)

#/DONE/#
true or false

Rules:
- Emit one function call per line, in execution order. Calls run sequentially and stop at the first failure.
- Arguments are written as name=value pairs without quotes. Values must not contain commas.
- Page IDs are UUIDs returned by go_to_url. Never invent a page ID; use get_open_pages if you lost track.
- A result starting with "ERROR:" means the call failed. Adjust the plan instead of repeating the same call.
- When the task is complete, set the DONE section to true, set the plan to done and leave FUNCTION_CALLS empty.

You may only call the functions listed below.

Available functions:
`

// SystemPrompt renders the planning system prompt over the given tool
// definitions. The definitions are embedded as JSON so the model sees the
// exact parameter names and types the executor will enforce.
func SystemPrompt(toolDefs []schemas.Tool) string {
	rendered, err := jsoniter.MarshalIndent(toolDefs, "", "  ")
	if err != nil {
		// Tool definitions are static structs; marshaling cannot realistically
		// fail. Fall back to names only.
		names := make([]string, 0, len(toolDefs))
		for _, t := range toolDefs {
			names = append(names, t.Name)
		}
		return reactPromptPreamble + strings.Join(names, ", ")
	}
	return reactPromptPreamble + string(rendered)
}

// buildStepPrompt assembles the user prompt for one planning iteration.
func buildStepPrompt(task string, steps []schemas.TaskStep) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TASK:\n%s\n", task)

	if len(steps) == 0 {
		b.WriteString("\nThis is your first step. No actions have been taken yet.\n")
		return b.String()
	}

	b.WriteString("\nHISTORY:\n")
	for _, step := range steps {
		fmt.Fprintf(&b, "\nStep %d:\n", step.Index)
		if step.Observation != "" {
			fmt.Fprintf(&b, "%s\n%s\n", llmutil.DelimObservation, step.Observation)
		}
		fmt.Fprintf(&b, "%s\n%s\n", llmutil.DelimPlan, step.Plan)
		if len(step.FunctionCalls) > 0 {
			fmt.Fprintf(&b, "%s\n%s\n", llmutil.DelimFunctionCalls, strings.Join(step.FunctionCalls, "\n"))
		}
		for i, result := range step.Results {
			status := "OK"
			if !result.Success {
				status = "FAILED"
			}
			fmt.Fprintf(&b, "RESULT %d [%s]: %s\n", i+1, status, result.Content)
		}
	}

	b.WriteString("\nProduce the next planning block.\n")
	return b.String()
}
