// internal/browser/context_utils.go
package browser

import "context"

// CombineContext returns a context that is canceled when either parentCtx or
// secondaryCtx is done. chromedp requires the tab's context chain to carry
// connection information, so the combined context always derives from
// parentCtx and only observes secondaryCtx's cancellation.
func CombineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(parentCtx)

	go func() {
		select {
		case <-secondaryCtx.Done():
			// If the secondary context is canceled, cancel the combined context.
			cancel()
		case <-combinedCtx.Done():
			// The combined context was already canceled (likely from the parent), so exit.
		}
	}()

	return combinedCtx, cancel
}
