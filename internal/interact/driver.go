// File: internal/interact/driver.go
package interact

import (
	"context"
	"time"
)

// Driver is the thin capability surface over a remote page that the
// interaction primitives are built on. All calls may suspend on the driver's
// event loop and must respect the supplied context.
//
// Absence semantics: FindVisible reports a selector that never became visible
// within the timeout as (false, nil). An error return means the driver itself
// faulted (lost target, protocol error), not that the element is missing.
type Driver interface {
	// Navigate loads the URL in the active browsing context.
	Navigate(ctx context.Context, url string) error
	// FindVisible waits up to timeout for the selector to resolve to a
	// visible element.
	FindVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	// Click dispatches a click on the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// Type sends the keys to the element matching the selector. Callers pace
	// individual keystrokes themselves.
	Type(ctx context.Context, selector, keys string) error
	// Clear selects the element's existing content with the triple-click
	// idiom and deletes it. Must work on an unfocused field.
	Clear(ctx context.Context, selector string) error
	// PressEnter sends a terminal Enter key to the element.
	PressEnter(ctx context.Context, selector string) error
	// Evaluate runs the expression against live document state and unmarshals
	// the scalar result into out.
	Evaluate(ctx context.Context, expr string, out any) error
	// Text returns the visible text content of the element.
	Text(ctx context.Context, selector string) (string, error)
}
