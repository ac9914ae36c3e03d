// internal/tools/controller.go
package tools

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/agent-backend/internal/browser"
)

// PageActions is the subset of page operations the tool handlers need. It is
// satisfied by *browser.Page and mocked in tests.
type PageActions interface {
	ID() uuid.UUID
	ContextID() uuid.UUID
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	TypeText(ctx context.Context, selector, text string) error
	ExtractText(ctx context.Context, selector string) (string, error)
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
	Scroll(ctx context.Context, deltaX, deltaY int) error
	Reload(ctx context.Context) error
	URL(ctx context.Context) (string, error)
	CountElements(ctx context.Context, queryBy browser.QueryBy, value string) (int, error)
	Info(ctx context.Context) browser.PageInfo
}

// Controller is the browser surface the registry operates on.
type Controller interface {
	NewPage(ctx context.Context, contextID uuid.UUID) (PageActions, error)
	Page(id uuid.UUID) (PageActions, error)
	Pages() []PageActions
}

// managerController adapts *browser.Manager to the Controller interface.
type managerController struct {
	mgr *browser.Manager
}

// NewController wraps a browser manager for use by the tool registry.
func NewController(mgr *browser.Manager) Controller {
	return &managerController{mgr: mgr}
}

func (c *managerController) NewPage(ctx context.Context, contextID uuid.UUID) (PageActions, error) {
	return c.mgr.NewPage(ctx, contextID)
}

func (c *managerController) Page(id uuid.UUID) (PageActions, error) {
	return c.mgr.Page(id)
}

func (c *managerController) Pages() []PageActions {
	pages := c.mgr.Pages()
	out := make([]PageActions, len(pages))
	for i, p := range pages {
		out[i] = p
	}
	return out
}
