// File: internal/browser/driver.go
package browser

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

// Driver implements the interaction capability surface over a chromedp tab.
// It owns the active browsing context; AdoptTarget reassigns it when a flow
// hands off to a newly spawned context. Exactly one context is active at any
// time; prior contexts are abandoned, never closed.
type Driver struct {
	logger     *zap.Logger
	navTimeout time.Duration

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

func newDriver(tabCtx context.Context, cancel context.CancelFunc, logger *zap.Logger, navTimeout time.Duration) *Driver {
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	return &Driver{
		logger:     logger.Named("driver"),
		navTimeout: navTimeout,
		ctx:        tabCtx,
		cancel:     cancel,
	}
}

// active returns the current browsing context.
func (d *Driver) active() context.Context {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ctx
}

// run executes chromedp actions against the active context, respecting both
// the driver lifetime and the incoming operation context.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := combineContext(d.active(), ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// Navigate loads the URL and waits for the document to become ready.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("Navigating", zap.String("url", url))

	opCtx, opCancel := combineContext(d.active(), ctx)
	defer opCancel()

	navCtx, navCancel := context.WithTimeout(opCtx, d.navTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		if navCtx.Err() == context.DeadlineExceeded && opCtx.Err() == nil {
			return fmt.Errorf("navigation timed out after %s: %w", d.navTimeout, err)
		}
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// FindVisible waits up to timeout for the selector to resolve to a visible
// element. Expiry is reported as (false, nil): absence is a normal outcome.
func (d *Driver) FindVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	opCtx, opCancel := combineContext(d.active(), ctx)
	defer opCancel()

	waitCtx, waitCancel := context.WithTimeout(opCtx, timeout)
	defer waitCancel()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err == nil {
		return true, nil
	}
	if opCtx.Err() != nil {
		return false, opCtx.Err()
	}
	if waitCtx.Err() == context.DeadlineExceeded {
		return false, nil
	}
	return false, fmt.Errorf("visibility wait failed for %q: %w", selector, err)
}

// Click scrolls the element into view and dispatches a click.
func (d *Driver) Click(ctx context.Context, selector string) error {
	clickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := d.run(clickCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("click failed for %q: %w", selector, err)
	}
	return nil
}

// Type sends the keys to the element. Pacing between keystrokes is the
// caller's concern.
func (d *Driver) Type(ctx context.Context, selector, keys string) error {
	if err := d.run(ctx, chromedp.SendKeys(selector, keys, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("type failed for %q: %w", selector, err)
	}
	return nil
}

// Clear selects the element's content with a triple click and deletes it.
// The triple-click idiom works even when the field holds no focus, which a
// select-all keyboard shortcut would not.
func (d *Driver) Clear(ctx context.Context, selector string) error {
	clearCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	return d.run(clearCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.ActionFunc(func(c context.Context) error {
			expr := fmt.Sprintf(
				`(function(){const e=document.querySelector(%s);if(!e)return null;const r=e.getBoundingClientRect();return [r.left+r.width/2,r.top+r.height/2];})()`,
				strconv.Quote(selector))
			var center []float64
			if err := chromedp.Evaluate(expr, &center).Do(c); err != nil {
				return err
			}
			if len(center) != 2 {
				return fmt.Errorf("element %q has no layout box", selector)
			}
			x, y := center[0], center[1]
			for count := int64(1); count <= 3; count++ {
				if err := input.DispatchMouseEvent(input.MousePressed, x, y).
					WithButton(input.Left).WithClickCount(count).Do(c); err != nil {
					return err
				}
				if err := input.DispatchMouseEvent(input.MouseReleased, x, y).
					WithButton(input.Left).WithClickCount(count).Do(c); err != nil {
					return err
				}
			}
			return nil
		}),
		chromedp.KeyEvent(kb.Delete),
	)
}

// PressEnter sends a terminal Enter key to the element.
func (d *Driver) PressEnter(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
}

// Evaluate runs the expression against live document state.
func (d *Driver) Evaluate(ctx context.Context, expr string, out any) error {
	return d.run(ctx, chromedp.Evaluate(expr, out))
}

// Text returns the visible text content of the first matching element.
func (d *Driver) Text(ctx context.Context, selector string) (string, error) {
	textCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var text string
	if err := d.run(textCtx, chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return "", fmt.Errorf("text read failed for %q: %w", selector, err)
	}
	return text, nil
}

// Screenshot captures the viewport as PNG.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	shotCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var buf []byte
	if err := d.run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return buf, nil
}

// SubscribeNewTarget registers a one-shot listener for "new browsing context
// created". It must be called BEFORE issuing the action that may spawn the
// context, otherwise the creation event can be missed.
func (d *Driver) SubscribeNewTarget() *TargetSubscription {
	listenCtx, cancelListen := context.WithCancel(d.active())
	ch := chromedp.WaitNewTarget(listenCtx, func(info *target.Info) bool {
		return info.Type == "page"
	})
	return &TargetSubscription{ch: ch, teardown: cancelListen}
}

// AdoptTarget reassigns the active browsing context to the given target. The
// prior context is abandoned, not closed, and will not be reacquired
// implicitly.
func (d *Driver) AdoptTarget(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	newCtx, cancel := chromedp.NewContext(d.ctx, chromedp.WithTargetID(target.ID(id)))

	opCtx, opCancel := combineContext(newCtx, ctx)
	defer opCancel()
	attachCtx, attachCancel := context.WithTimeout(opCtx, 15*time.Second)
	defer attachCancel()
	if err := chromedp.Run(attachCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		cancel()
		return fmt.Errorf("failed to attach to new browsing context %s: %w", id, err)
	}

	d.logger.Info("Adopted new browsing context", zap.String("target_id", id))
	d.ctx = newCtx
	d.cancel = cancel
	return nil
}

// Close releases the active browsing context.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// TargetSubscription is a one-shot future for a spawned browsing context. It
// resolves at most once; Await tears the registration down on either outcome
// so a stale listener cannot fire on an unrelated later event.
type TargetSubscription struct {
	ch       <-chan target.ID
	teardown context.CancelFunc
	once     sync.Once
}

// Await blocks until the context-creation event arrives or the bounded wait
// expires, whichever happens first.
func (s *TargetSubscription) Await(ctx context.Context, timeout time.Duration) (string, error) {
	defer s.Cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case id := <-s.ch:
		return string(id), nil
	case <-timer.C:
		return "", fmt.Errorf("no new browsing context appeared within %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Cancel tears down the registration. Safe to call more than once.
func (s *TargetSubscription) Cancel() {
	s.once.Do(s.teardown)
}

// combineContext derives a context canceled when either input context ends.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
