// internal/tools/handlers.go
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/agent-backend/api/schemas"
	"github.com/xkilldash9x/agent-backend/internal/browser"
)

// -- Argument extraction helpers --

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing required argument '%s'", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument '%s' must be a string", name)
	}
	return s, nil
}

func uuidArg(args map[string]any, name string) (uuid.UUID, error) {
	v, ok := args[name]
	if !ok {
		return uuid.Nil, fmt.Errorf("missing required argument '%s'", name)
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("argument '%s' must be a UUID", name)
	}
	return id, nil
}

func intArg(args map[string]any, name string) (int, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("missing required argument '%s'", name)
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("argument '%s' must be an integer", name)
	}
	return n, nil
}

func optionalIntArg(args map[string]any, name string) (int, bool, error) {
	v, ok := args[name]
	if !ok {
		return 0, false, nil
	}
	n, ok := v.(int)
	if !ok {
		return 0, false, fmt.Errorf("argument '%s' must be an integer", name)
	}
	return n, true, nil
}

// lookupPage resolves the page_id argument into a live page. Pages belonging
// to another task's browser context are treated as not found, so a task can
// never act on tabs it does not own.
func (r *Registry) lookupPage(contextID uuid.UUID, args map[string]any) (PageActions, error) {
	pageID, err := uuidArg(args, "page_id")
	if err != nil {
		return nil, err
	}
	page, err := r.browser.Page(pageID)
	if err != nil {
		return nil, err
	}
	if page.ContextID() != contextID {
		return nil, fmt.Errorf("%w: %s", browser.ErrPageNotFound, pageID)
	}
	return page, nil
}

// -- Handlers --

func (r *Registry) goToURL(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
	url, err := stringArg(args, "url")
	if err != nil {
		return schemas.ToolError("%v", err)
	}

	page, err := r.browser.NewPage(ctx, contextID)
	if err != nil {
		return r.failure("go_to_url", err)
	}

	if err := page.Navigate(ctx, url); err != nil {
		return r.failure("go_to_url", err)
	}

	return schemas.ToolOK("Navigated to %s. New page created with ID: %s", url, page.ID())
}

func (r *Registry) click(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
	selector, err := stringArg(args, "selector")
	if err != nil {
		return schemas.ToolError("%v", err)
	}
	page, err := r.lookupPage(contextID, args)
	if err != nil {
		return r.failure("click", err)
	}

	if err := page.Click(ctx, selector); err != nil {
		return r.failure("click", err)
	}
	return schemas.ToolOK("Clicked element matching selector '%s'", selector)
}

func (r *Registry) typeText(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
	selector, err := stringArg(args, "selector")
	if err != nil {
		return schemas.ToolError("%v", err)
	}
	text, err := stringArg(args, "text")
	if err != nil {
		return schemas.ToolError("%v", err)
	}
	page, err := r.lookupPage(contextID, args)
	if err != nil {
		return r.failure("type_text", err)
	}

	if err := page.TypeText(ctx, selector, text); err != nil {
		return r.failure("type_text", err)
	}
	return schemas.ToolOK("Typed text into element matching selector '%s'", selector)
}

func (r *Registry) extractText(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
	selector, err := stringArg(args, "selector")
	if err != nil {
		return schemas.ToolError("%v", err)
	}
	page, err := r.lookupPage(contextID, args)
	if err != nil {
		return r.failure("extract_text", err)
	}

	content, err := page.ExtractText(ctx, selector)
	if err != nil {
		return r.failure("extract_text", err)
	}
	if content == "" {
		return schemas.ToolOK("Element matching selector '%s' has no visible text", selector)
	}
	return schemas.ToolOK("%s", content)
}

func (r *Registry) waitForSelector(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
	selector, err := stringArg(args, "selector")
	if err != nil {
		return schemas.ToolError("%v", err)
	}
	timeoutMS, hasTimeout, err := optionalIntArg(args, "timeout_ms")
	if err != nil {
		return schemas.ToolError("%v", err)
	}
	page, err := r.lookupPage(contextID, args)
	if err != nil {
		return r.failure("wait_for_selector", err)
	}

	var timeout time.Duration
	if hasTimeout {
		timeout = time.Duration(timeoutMS) * time.Millisecond
	}

	if err := page.WaitForSelector(ctx, selector, timeout); err != nil {
		return r.failure("wait_for_selector", err)
	}
	return schemas.ToolOK("Element matching selector '%s' is visible", selector)
}

func (r *Registry) screenshotPage(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
	page, err := r.lookupPage(contextID, args)
	if err != nil {
		return r.failure("screenshot_page", err)
	}

	buf, err := page.Screenshot(ctx)
	if err != nil {
		return r.failure("screenshot_page", err)
	}

	if err := os.MkdirAll(r.screenshotDir, 0o755); err != nil {
		return r.failure("screenshot_page", err)
	}
	path := filepath.Join(r.screenshotDir, fmt.Sprintf("%s_%d.png", page.ID(), time.Now().UnixMilli()))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return r.failure("screenshot_page", err)
	}

	return schemas.ToolOK("Screenshot saved to %s", path)
}

func (r *Registry) scroll(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
	x, err := intArg(args, "x")
	if err != nil {
		return schemas.ToolError("%v", err)
	}
	y, err := intArg(args, "y")
	if err != nil {
		return schemas.ToolError("%v", err)
	}
	page, err := r.lookupPage(contextID, args)
	if err != nil {
		return r.failure("scroll", err)
	}

	if err := page.Scroll(ctx, x, y); err != nil {
		return r.failure("scroll", err)
	}
	return schemas.ToolOK("Scrolled by (%d, %d)", x, y)
}

func (r *Registry) reloadPage(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
	page, err := r.lookupPage(contextID, args)
	if err != nil {
		return r.failure("reload_page", err)
	}

	if err := page.Reload(ctx); err != nil {
		return r.failure("reload_page", err)
	}
	return schemas.ToolOK("Page %s reloaded", page.ID())
}

func (r *Registry) getOpenPages(ctx context.Context, contextID uuid.UUID, _ map[string]any) schemas.ToolResponse {
	// Only the pages of the calling task's context are visible; other tasks'
	// tabs must never leak into a planner transcript.
	lines := make([]string, 0)
	for _, p := range r.browser.Pages() {
		if p.ContextID() != contextID {
			continue
		}
		info := p.Info(ctx)
		lines = append(lines, fmt.Sprintf("%s -> %s", info.ID, info.URL))
	}
	if len(lines) == 0 {
		return schemas.ToolOK("No pages are currently open")
	}
	sort.Strings(lines)

	return schemas.ToolOK("Found %d open page(s):\n%s", len(lines), strings.Join(lines, "\n"))
}

func (r *Registry) getElementBy(ctx context.Context, contextID uuid.UUID, args map[string]any) schemas.ToolResponse {
	query, err := stringArg(args, "query")
	if err != nil {
		return schemas.ToolError("%v", err)
	}
	queryByRaw, err := stringArg(args, "query_by")
	if err != nil {
		return schemas.ToolError("%v", err)
	}

	queryBy := browser.QueryBy(queryByRaw)
	if !browser.ValidQueryBy(queryBy) {
		return schemas.ToolError("Invalid query_by value: '%s'. Must be one of: %s, %s, %s",
			queryByRaw, browser.QueryByCSS, browser.QueryByText, browser.QueryByLabel)
	}

	page, err := r.lookupPage(contextID, args)
	if err != nil {
		return r.failure("get_element_by", err)
	}

	count, err := page.CountElements(ctx, queryBy, query)
	if err != nil {
		return r.failure("get_element_by", err)
	}
	if count == 0 {
		return schemas.ToolError("No element found matching %s='%s'", queryBy, query)
	}
	return schemas.ToolOK("Found %d element(s) matching %s='%s'", count, queryBy, query)
}
