// internal/agent/executor_test.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/api/schemas"
	"github.com/xkilldash9x/agent-backend/internal/tools"
)

// newTestExecutor builds an executor over a real registry. The registry's
// controller is nil, which is fine for parsing: handlers are resolved but
// never invoked.
func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	registry := tools.NewRegistry(nil, t.TempDir(), zap.NewNop())
	return NewExecutor(registry, zap.NewNop())
}

func TestParseCalls_SingleCallWithStringArgs(t *testing.T) {
	exec := newTestExecutor(t)
	pageID := uuid.New()

	parsed, err := exec.ParseCalls([]string{
		fmt.Sprintf("click(page_id=%s,selector=#submit)", pageID),
	})
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	assert.Equal(t, "click", parsed[0].Name)
	assert.NotNil(t, parsed[0].Handler)
	assert.Equal(t, pageID, parsed[0].Args["page_id"])
	assert.Equal(t, "#submit", parsed[0].Args["selector"])
}

func TestParseCalls_WhitespaceTolerated(t *testing.T) {
	exec := newTestExecutor(t)
	pageID := uuid.New()

	parsed, err := exec.ParseCalls([]string{
		fmt.Sprintf("  type_text( page_id = %s , selector = #username , text = testuser )  ", pageID),
	})
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	assert.Equal(t, "type_text", parsed[0].Name)
	assert.Equal(t, pageID, parsed[0].Args["page_id"])
	assert.Equal(t, "#username", parsed[0].Args["selector"])
	assert.Equal(t, "testuser", parsed[0].Args["text"])
}

func TestParseCalls_IntegerCoercion(t *testing.T) {
	exec := newTestExecutor(t)
	pageID := uuid.New()

	parsed, err := exec.ParseCalls([]string{
		fmt.Sprintf("scroll(page_id=%s,x=0,y=500)", pageID),
	})
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	assert.Equal(t, 0, parsed[0].Args["x"])
	assert.Equal(t, 500, parsed[0].Args["y"])
}

func TestParseCalls_MultipleCalls(t *testing.T) {
	exec := newTestExecutor(t)
	pageID := uuid.New()

	parsed, err := exec.ParseCalls([]string{
		"go_to_url(url=https://example.com)",
		fmt.Sprintf("wait_for_selector(page_id=%s,selector=#content,timeout_ms=1500)", pageID),
		"get_open_pages()",
	})
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	assert.Equal(t, "go_to_url", parsed[0].Name)
	assert.Equal(t, "https://example.com", parsed[0].Args["url"])
	assert.Equal(t, 1500, parsed[1].Args["timeout_ms"])
	assert.Equal(t, "get_open_pages", parsed[2].Name)
	assert.Empty(t, parsed[2].Args)
}

func TestParseCalls_UnknownFunction(t *testing.T) {
	exec := newTestExecutor(t)

	parsed, err := exec.ParseCalls([]string{"unknown_function(arg1=a,arg2=b)"})
	require.Error(t, err)
	assert.Nil(t, parsed)
	assert.Contains(t, err.Error(), "function unknown_function not found")
}

func TestParseCalls_MalformedCall(t *testing.T) {
	exec := newTestExecutor(t)

	for _, raw := range []string{
		"click page_id=abc",
		"click(page_id=abc",
		"",
	} {
		_, err := exec.ParseCalls([]string{raw})
		require.Error(t, err, "input %q should not parse", raw)
		assert.Contains(t, err.Error(), "malformed function call")
	}
}

func TestParseCalls_MalformedArgument(t *testing.T) {
	exec := newTestExecutor(t)

	_, err := exec.ParseCalls([]string{"click(page_id)"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed argument")
	assert.Contains(t, err.Error(), "click")
}

func TestParseCalls_InvalidUUID(t *testing.T) {
	exec := newTestExecutor(t)

	_, err := exec.ParseCalls([]string{"click(page_id=not-a-uuid,selector=#x)"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a UUID")
}

func TestParseCalls_InvalidInteger(t *testing.T) {
	exec := newTestExecutor(t)
	pageID := uuid.New()

	_, err := exec.ParseCalls([]string{
		fmt.Sprintf("scroll(page_id=%s,x=down,y=500)", pageID),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an integer")
}

func TestParseCalls_EmptyBatch(t *testing.T) {
	exec := newTestExecutor(t)

	parsed, err := exec.ParseCalls(nil)
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

// A bad call anywhere in the batch fails validation before anything runs.
func TestParseCalls_AllCallsValidatedUpFront(t *testing.T) {
	exec := newTestExecutor(t)

	parsed, err := exec.ParseCalls([]string{
		"go_to_url(url=https://example.com)",
		"definitely_not_a_tool(a=b)",
	})
	require.Error(t, err)
	assert.Nil(t, parsed)
	assert.Contains(t, err.Error(), "function definitely_not_a_tool not found")
}

func TestParseCalls_UndeclaredArgumentPassesAsString(t *testing.T) {
	exec := newTestExecutor(t)

	parsed, err := exec.ParseCalls([]string{"go_to_url(url=https://example.com,extra=42)"})
	require.NoError(t, err)
	assert.Equal(t, "42", parsed[0].Args["extra"])
}

func stubCall(name string, resp schemas.ToolResponse, invoked *[]string) ParsedCall {
	return ParsedCall{
		Name: name,
		Raw:  name + "()",
		Args: map[string]any{},
		Handler: func(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
			*invoked = append(*invoked, name)
			return resp
		},
	}
}

func TestExecuteCalls_AllSucceed(t *testing.T) {
	exec := newTestExecutor(t)
	contextID := uuid.New()

	var invoked []string
	calls := []ParsedCall{
		stubCall("first", schemas.ToolOK("one"), &invoked),
		stubCall("second", schemas.ToolOK("two"), &invoked),
	}

	results := exec.ExecuteCalls(context.Background(), contextID, calls)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"first", "second"}, invoked)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
}

// The first failure aborts the batch. The failing response is still included
// so the planner can observe what went wrong.
func TestExecuteCalls_StopsOnFirstFailure(t *testing.T) {
	exec := newTestExecutor(t)
	contextID := uuid.New()

	var invoked []string
	calls := []ParsedCall{
		stubCall("first", schemas.ToolOK("one"), &invoked),
		stubCall("second", schemas.ToolError("%v", errors.New("boom")), &invoked),
		stubCall("third", schemas.ToolOK("never"), &invoked),
	}

	results := exec.ExecuteCalls(context.Background(), contextID, calls)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"first", "second"}, invoked)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Content, "boom")
}

func TestExecuteCalls_EmptyBatch(t *testing.T) {
	exec := newTestExecutor(t)

	results := exec.ExecuteCalls(context.Background(), uuid.New(), nil)
	assert.Empty(t, results)
}
