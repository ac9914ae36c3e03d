// internal/llmutil/parser.go
package llmutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/agent-backend/api/schemas"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// jsonObjectRegex extracts a JSON object if the response is wrapped in markdown.
	jsonObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	// jsonArrayRegex extracts a JSON array if the response is wrapped in markdown.
	jsonArrayRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")
)

// ParseJSONResponse attempts to parse an LLM response string into a target Go type using generics.
// It handles common LLM formatting issues, such as wrapping the JSON in markdown code blocks.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)
	jsonStringToParse := response

	// Heuristically determine if the content is likely an object or array.
	isObject := strings.Contains(response, "{")
	isArray := strings.Contains(response, "[")

	// 1. Handle markdown wrapping (most common case).
	if strings.HasPrefix(response, "```") {
		var matches []string
		// Prioritize object regex if it looks like an object.
		if isObject {
			matches = jsonObjectRegex.FindStringSubmatch(response)
		}
		// If object regex didn't match or it's clearly an array, try array regex.
		if len(matches) <= 1 && isArray {
			matches = jsonArrayRegex.FindStringSubmatch(response)
		}

		if len(matches) > 1 {
			jsonStringToParse = matches[1]
		}
	} else if (isObject || isArray) && (!strings.HasPrefix(response, "{") && !strings.HasPrefix(response, "[")) {
		// 2. Attempt to find the structure within conversational text.
		firstBracket := -1
		lastBracket := -1

		// Try finding object boundaries.
		if isObject {
			fb := strings.Index(response, "{")
			lb := strings.LastIndex(response, "}")
			if fb != -1 && lb != -1 && lb > fb {
				firstBracket = fb
				lastBracket = lb + 1
			}
		}

		// If object detection failed or it's primarily an array, try array boundaries.
		if (firstBracket == -1 || lastBracket == -1) && isArray {
			fb := strings.Index(response, "[")
			lb := strings.LastIndex(response, "]")
			if fb != -1 && lb != -1 && lb > fb {
				firstBracket = fb
				lastBracket = lb + 1
			}
		}

		if firstBracket != -1 && lastBracket != -1 {
			jsonStringToParse = response[firstBracket:lastBracket]
		}
	}

	// 3. Unmarshal
	var result T
	if err := json.Unmarshal([]byte(jsonStringToParse), &result); err != nil {
		// Provide a detailed error message including the extracted JSON snippet.
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, truncateString(jsonStringToParse, 500))
	}

	return &result, nil
}

// Section delimiters for the fallback plan format. Some models follow a
// delimited transcript more reliably than strict JSON, so the planner accepts
// both.
const (
	DelimObservation   = "#/OBSERVATION/#"
	DelimPlan          = "#/PLAN/#"
	DelimFunctionCalls = "#/FUNCTION_CALLS/#"
	DelimDone          = "#/DONE/#"
)

// ParseDelimitedPlan parses a delimiter-based planning response of the form:
//
//	#/OBSERVATION/#
//	<observation text>
//	#/PLAN/#
//	<plan text>
//	#/FUNCTION_CALLS/#
//	tool_a(arg=val)
//	tool_b(arg=val)
//	#/DONE/#
//	false
//
// Missing sections are tolerated; Done is true only when the DONE section
// contains "true" (case-insensitive).
func ParseDelimitedPlan(response string) (*schemas.PlanResponse, error) {
	obsPos := strings.Index(response, DelimObservation)
	planPos := strings.Index(response, DelimPlan)
	funcPos := strings.Index(response, DelimFunctionCalls)
	donePos := strings.Index(response, DelimDone)

	if obsPos == -1 && planPos == -1 && funcPos == -1 && donePos == -1 {
		return nil, fmt.Errorf("response contains no plan delimiters: %s", truncateString(response, 200))
	}

	// nextDelim returns the position of the first delimiter after `from`, or
	// len(response) when none follows.
	nextDelim := func(from int) int {
		next := len(response)
		for _, pos := range []int{obsPos, planPos, funcPos, donePos} {
			if pos > from && pos < next {
				next = pos
			}
		}
		return next
	}

	section := func(start int, delim string) string {
		if start == -1 {
			return ""
		}
		begin := start + len(delim)
		return strings.TrimSpace(response[begin:nextDelim(begin)])
	}

	result := &schemas.PlanResponse{
		Observation: section(obsPos, DelimObservation),
		Plan:        section(planPos, DelimPlan),
	}

	if funcText := section(funcPos, DelimFunctionCalls); funcText != "" {
		for _, line := range strings.Split(funcText, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				result.FunctionCalls = append(result.FunctionCalls, line)
			}
		}
	}

	if doneText := section(donePos, DelimDone); doneText != "" {
		result.Done = strings.Contains(strings.ToLower(doneText), "true")
	}

	return result, nil
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) > maxLen {
		// Simple truncation; does not account for rune boundaries but sufficient for error logging.
		return s[:maxLen] + "..."
	}
	return s
}
