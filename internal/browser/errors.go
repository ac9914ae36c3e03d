// internal/browser/errors.go
package browser

import "errors"

var (
	// ErrContextNotFound is returned when a browser context ID is not registered.
	ErrContextNotFound = errors.New("browser context not found")

	// ErrPageNotFound is returned when a page ID is not registered.
	ErrPageNotFound = errors.New("page not found")

	// ErrManagerClosed is returned for operations attempted after Shutdown.
	ErrManagerClosed = errors.New("browser manager is shut down")
)
