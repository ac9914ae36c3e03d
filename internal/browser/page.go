// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// QueryBy selects the element lookup strategy used by CountElements.
type QueryBy string

const (
	QueryByCSS   QueryBy = "css"
	QueryByText  QueryBy = "text"
	QueryByLabel QueryBy = "label"
)

// ValidQueryBy reports whether the given strategy is supported.
func ValidQueryBy(q QueryBy) bool {
	switch q {
	case QueryByCSS, QueryByText, QueryByLabel:
		return true
	}
	return false
}

// PageInfo is a point-in-time summary of an open page.
type PageInfo struct {
	ID        uuid.UUID `json:"id"`
	ContextID uuid.UUID `json:"context_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
}

// Page represents a single browser tab. Each page owns its own chromedp
// context derived from the manager's browser context.
type Page struct {
	id        uuid.UUID
	contextID uuid.UUID
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger

	navTimeout  time.Duration
	waitTimeout time.Duration

	onClose func()

	mu       sync.Mutex
	isClosed bool
}

// ID returns the unique identifier for the page.
func (p *Page) ID() uuid.UUID {
	return p.id
}

// ContextID returns the ID of the browser context that owns this page.
func (p *Page) ContextID() uuid.UUID {
	return p.contextID
}

// runActions executes chromedp.Actions, ensuring they respect the page
// lifetime (p.ctx), the incoming request context (ctx), and an optional
// per-operation timeout.
func (p *Page) runActions(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()

	if timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, timeout)
		defer timeoutCancel()
	}

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the given URL and waits for the document body to be ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating page.", zap.String("url", url))
	err := p.runActions(ctx, p.navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Click dispatches a click to the first element matching the CSS selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	return p.runActions(ctx, p.waitTimeout,
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// TypeText focuses the element matching the selector and types the text into it.
func (p *Page) TypeText(ctx context.Context, selector, text string) error {
	return p.runActions(ctx, p.waitTimeout,
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// ExtractText returns the visible text content of the first element matching
// the selector.
func (p *Page) ExtractText(ctx context.Context, selector string) (string, error) {
	var content string
	err := p.runActions(ctx, p.waitTimeout,
		chromedp.Text(selector, &content, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// WaitForSelector blocks until an element matching the selector becomes
// visible, or the timeout elapses. A zero timeout uses the configured default.
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.waitTimeout
	}
	return p.runActions(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
	)
}

// Screenshot captures the current viewport as a PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.runActions(ctx, p.waitTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, err := cdppage.CaptureScreenshot().
				WithFormat(cdppage.CaptureScreenshotFormatPng).
				Do(ctx)
			if err != nil {
				return err
			}
			buf = data
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scroll scrolls the page by the given pixel deltas.
func (p *Page) Scroll(ctx context.Context, deltaX, deltaY int) error {
	script := fmt.Sprintf("window.scrollBy(%d, %d)", deltaX, deltaY)
	return p.runActions(ctx, p.waitTimeout,
		chromedp.Evaluate(script, nil),
	)
}

// Reload reloads the current document and waits for the body to be ready again.
func (p *Page) Reload(ctx context.Context) error {
	return p.runActions(ctx, p.navTimeout,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// URL returns the page's current location.
func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	err := p.runActions(ctx, p.waitTimeout,
		chromedp.Location(&loc),
	)
	if err != nil {
		return "", err
	}
	return loc, nil
}

// Title returns the current document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	err := p.runActions(ctx, p.waitTimeout,
		chromedp.Title(&title),
	)
	if err != nil {
		return "", err
	}
	return title, nil
}

// Info gathers a summary of the page. URL and title failures are tolerated so
// that a half-loaded page still appears in listings.
func (p *Page) Info(ctx context.Context) PageInfo {
	info := PageInfo{ID: p.id, ContextID: p.contextID}
	if url, err := p.URL(ctx); err == nil {
		info.URL = url
	}
	if title, err := p.Title(ctx); err == nil {
		info.Title = title
	}
	return info
}

// CountElements counts elements matching the value under the given lookup
// strategy. The strategies mirror common accessibility-first lookups: raw CSS
// selectors, visible text content, and form labels (including aria-label).
func (p *Page) CountElements(ctx context.Context, queryBy QueryBy, value string) (int, error) {
	needle, err := jsoniter.MarshalToString(value)
	if err != nil {
		return 0, fmt.Errorf("failed to encode query value: %w", err)
	}

	var script string
	switch queryBy {
	case QueryByCSS:
		script = fmt.Sprintf(`(() => {
			try { return document.querySelectorAll(%s).length; }
			catch (e) { return -1; }
		})()`, needle)
	case QueryByText:
		// Count elements whose direct text nodes contain the needle. This
		// targets the innermost elements, so wrappers are not double counted.
		script = fmt.Sprintf(`(() => {
			const needle = %s;
			let count = 0;
			for (const el of document.querySelectorAll('*')) {
				for (const node of el.childNodes) {
					if (node.nodeType === Node.TEXT_NODE && node.textContent.includes(needle)) {
						count++;
						break;
					}
				}
			}
			return count;
		})()`, needle)
	case QueryByLabel:
		script = fmt.Sprintf(`(() => {
			const needle = %s;
			let count = 0;
			for (const el of document.querySelectorAll('input, textarea, select, button, [aria-label]')) {
				const aria = el.getAttribute('aria-label');
				if (aria && aria.includes(needle)) { count++; continue; }
				if (el.labels) {
					for (const lab of el.labels) {
						if (lab.textContent.includes(needle)) { count++; break; }
					}
				}
			}
			return count;
		})()`, needle)
	default:
		return 0, fmt.Errorf("unsupported query strategy: %s", queryBy)
	}

	var count int
	if err := p.runActions(ctx, p.waitTimeout, chromedp.Evaluate(script, &count)); err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, fmt.Errorf("invalid CSS selector: %s", value)
	}
	return count, nil
}

// Close terminates the tab and deregisters the page from its manager.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return nil
	}
	p.isClosed = true
	p.mu.Unlock()

	p.logger.Debug("Closing page.")
	p.cancel()

	if p.onClose != nil {
		p.onClose()
	}
	return nil
}
