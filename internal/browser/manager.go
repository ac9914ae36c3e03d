// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/agent-backend/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Context is a task-scoped grouping of pages. Pages created under a context
// are closed together when the context is closed, which lets a single agent
// task clean up every tab it opened in one call.
type Context struct {
	id        uuid.UUID
	createdAt time.Time
	pages     map[uuid.UUID]*Page
}

// ID returns the unique identifier for the context.
func (c *Context) ID() uuid.UUID {
	return c.id
}

// Manager owns the browser process lifecycle and the registries mapping IDs
// to live contexts and pages. The browser itself is launched lazily on the
// first context request.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu       sync.RWMutex
	contexts map[uuid.UUID]*Context
	pages    map[uuid.UUID]*Page
	closed   bool

	wg sync.WaitGroup // Tracks open pages so Shutdown can wait for them.

	// Initialization state management
	initOnce sync.Once
	initErr  error
}

// NewManager creates a new browser manager. Initialization is deferred until
// the first context is requested.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   logger.Named("browser_manager"),
		contexts: make(map[uuid.UUID]*Context),
		pages:    make(map[uuid.UUID]*Page),
	}
	m.logger.Info("Browser manager created (initialization deferred).")
	return m
}

// execAllocatorOptions translates the application config into chromedp
// allocator options.
func execAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	// Start with chromedp defaults
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// Required on hardened systems where the Chrome sandbox cannot start.
		chromedp.NoSandbox,
		// Recommended for stability in containers/headless envs
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}

	if cfg.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	// Add additional flags from the config file's 'args' slice.
	for _, arg := range cfg.Args {
		// Handle boolean flags (e.g., --no-zygote)
		if !strings.Contains(arg, "=") {
			if !strings.HasPrefix(arg, "--") {
				arg = "--" + arg
			}
			opts = append(opts, chromedp.Flag(arg, true))
			continue
		}

		// Handle key=value flags
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) == 2 {
			key := parts[0]
			if !strings.HasPrefix(key, "--") {
				key = "--" + key
			}
			opts = append(opts, chromedp.Flag(key, parts[1]))
		}
	}
	return opts
}

// initialize launches the browser process on first use.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser instance...")

		allocOpts := execAllocatorOptions(m.cfg.Browser)
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
		m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx)

		// Start the browser eagerly so launch failures surface here rather
		// than on the first page action.
		launchCtx, cancel := CombineContext(m.browserCtx, ctx)
		defer cancel()
		if err := chromedp.Run(launchCtx); err != nil {
			m.browserCancel()
			m.allocCancel()
			m.initErr = fmt.Errorf("failed to launch browser instance: %w", err)
			return
		}

		m.logger.Info("Browser manager initialized successfully.")
	})
	return m.initErr
}

// NewContext creates and registers a new page grouping.
func (m *Manager) NewContext(ctx context.Context) (uuid.UUID, error) {
	if err := m.initialize(ctx); err != nil {
		return uuid.Nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return uuid.Nil, ErrManagerClosed
	}

	bc := &Context{
		id:        uuid.New(),
		createdAt: time.Now(),
		pages:     make(map[uuid.UUID]*Page),
	}
	m.contexts[bc.id] = bc

	m.logger.Info("New browser context created.", zap.String("context_id", bc.id.String()))
	return bc.id, nil
}

// NewPage opens a new tab under the given context and registers it.
func (m *Manager) NewPage(ctx context.Context, contextID uuid.UUID) (*Page, error) {
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	bc, ok := m.contexts[contextID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, contextID)
	}
	m.mu.Unlock()

	// Each page is its own chromedp context (a tab) derived from the shared
	// browser context.
	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)

	page := &Page{
		id:          uuid.New(),
		contextID:   contextID,
		ctx:         tabCtx,
		cancel:      tabCancel,
		navTimeout:  m.cfg.Network.NavigationTimeout,
		waitTimeout: m.cfg.Network.DefaultWaitTimeout,
	}
	page.logger = m.logger.With(
		zap.String("page_id", page.id.String()),
		zap.String("context_id", contextID.String()),
	)

	// Materialize the tab so the target exists before the caller acts on it.
	createCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	if err := chromedp.Run(createCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open new tab: %w", err)
	}

	m.wg.Add(1)
	page.onClose = func() {
		m.mu.Lock()
		delete(m.pages, page.id)
		if owner, ok := m.contexts[page.contextID]; ok {
			delete(owner.pages, page.id)
		}
		m.mu.Unlock()
		m.wg.Done()
		m.logger.Debug("Page removed from registry.", zap.String("page_id", page.id.String()))
	}

	m.mu.Lock()
	// Re-check liveness: Shutdown or CloseContext may have raced the tab
	// creation above.
	if m.closed {
		m.mu.Unlock()
		page.Close(ctx)
		return nil, ErrManagerClosed
	}
	if _, ok := m.contexts[contextID]; !ok {
		m.mu.Unlock()
		page.Close(ctx)
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, contextID)
	}
	m.pages[page.id] = page
	bc.pages[page.id] = page
	m.mu.Unlock()

	m.logger.Info("New page opened.", zap.String("page_id", page.id.String()), zap.String("context_id", contextID.String()))
	return page, nil
}

// Page looks up a registered page by ID.
func (m *Manager) Page(id uuid.UUID) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	page, ok := m.pages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	return page, nil
}

// Pages returns a snapshot of all open pages.
func (m *Manager) Pages() []*Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pages := make([]*Page, 0, len(m.pages))
	for _, p := range m.pages {
		pages = append(pages, p)
	}
	return pages
}

// ClosePage closes a single page and removes it from the registries.
func (m *Manager) ClosePage(ctx context.Context, id uuid.UUID) error {
	page, err := m.Page(id)
	if err != nil {
		return err
	}
	return page.Close(ctx)
}

// CloseContext closes every page belonging to the context and deregisters it.
func (m *Manager) CloseContext(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	bc, ok := m.contexts[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrContextNotFound, id)
	}
	delete(m.contexts, id)
	pagesToClose := make([]*Page, 0, len(bc.pages))
	for _, p := range bc.pages {
		pagesToClose = append(pagesToClose, p)
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pagesToClose {
		g.Go(func() error {
			return p.Close(gctx)
		})
	}
	err := g.Wait()

	m.logger.Info("Browser context closed.", zap.String("context_id", id.String()), zap.Int("pages_closed", len(pagesToClose)))
	return err
}

// ContextCount returns the number of live contexts.
func (m *Manager) ContextCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contexts)
}

// PageCount returns the number of open pages.
func (m *Manager) PageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// Shutdown gracefully closes all pages and the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser manager.")

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	pagesToClose := make([]*Page, 0, len(m.pages))
	for _, p := range m.pages {
		pagesToClose = append(pagesToClose, p)
	}
	m.contexts = make(map[uuid.UUID]*Context)
	m.mu.Unlock()

	// If initialization never happened there is nothing to tear down.
	if m.browserCtx == nil {
		m.logger.Info("Manager not initialized, skipping browser shutdown.")
		return nil
	}

	// 1. Close all pages concurrently.
	for _, p := range pagesToClose {
		go func(p *Page) {
			if err := p.Close(ctx); err != nil {
				m.logger.Warn("Error closing page during shutdown.", zap.String("page_id", p.id.String()), zap.Error(err))
			}
		}(p)
	}

	// 2. Wait for all pages to finish closing, bounded by the grace period.
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	graceCtx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()

	select {
	case <-done:
		m.logger.Info("All pages closed gracefully.")
	case <-graceCtx.Done():
		m.logger.Warn("Timeout waiting for pages to close. Proceeding with forceful shutdown.", zap.Error(graceCtx.Err()))
	}

	// 3. Tear down the browser and the allocator.
	m.browserCancel()
	m.allocCancel()

	m.logger.Info("Browser manager shutdown complete.")
	return nil
}
