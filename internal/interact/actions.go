// File: internal/interact/actions.go
package interact

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// defaultSettle is the pause after a successful click. The target site's
	// UI reacts asynchronously to clicks; an action issued immediately would
	// race the re-render.
	defaultSettle = 500 * time.Millisecond
	// passBackoff separates full retry passes so SPA re-renders can settle.
	passBackoff = 750 * time.Millisecond
	// defaultKeyDelay paces keystrokes so client-side validators that listen
	// for discrete key events see them.
	defaultKeyDelay = 40 * time.Millisecond
)

// Actions provides selector-fallback and retry wrappers over a Driver. It has
// no knowledge of site semantics: a missing element is an outcome, never a
// raised fault.
type Actions struct {
	drv    Driver
	logger *zap.Logger
	settle time.Duration
}

// NewActions wires the resilient primitives to a driver. A non-positive
// settle falls back to the default post-click pause.
func NewActions(drv Driver, logger *zap.Logger, settle time.Duration) *Actions {
	if settle <= 0 {
		settle = defaultSettle
	}
	return &Actions{
		drv:    drv,
		logger: logger.Named("interact"),
		settle: settle,
	}
}

// FindFirstVisible tries each candidate selector in order with a per-selector
// visibility wait and returns the first that resolved to a visible element.
// Exhaustion returns a NotFoundError listing every selector attempted.
func (a *Actions) FindFirstVisible(ctx context.Context, query ElementQuery, timeout time.Duration) (string, error) {
	if len(query) == 0 {
		return "", ErrEmptyQuery
	}

	slice := timeout / time.Duration(len(query))
	if slice <= 0 {
		slice = time.Second
	}

	for _, selector := range query {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		found, err := a.drv.FindVisible(ctx, selector, slice)
		if err != nil {
			a.logger.Debug("Visibility probe faulted",
				zap.String("selector", selector), zap.Error(err))
			continue
		}
		if found {
			return selector, nil
		}
	}
	return "", &NotFoundError{Tried: query}
}

// ClickWithRetry partitions the timeout across retries x selectors. Each full
// pass re-tries every selector before incrementing the retry counter; a short
// backoff separates passes. A successful click is followed by the settle
// delay. The outcome is returned, never raised: callers must check Success.
func (a *Actions) ClickWithRetry(ctx context.Context, query ElementQuery, retries int, timeout time.Duration) ActionOutcome {
	if len(query) == 0 {
		return failure(0, ErrEmptyQuery)
	}
	if retries < 1 {
		retries = 1
	}

	perPass := timeout / time.Duration(retries)
	var lastErr error

	for pass := 1; pass <= retries; pass++ {
		if err := ctx.Err(); err != nil {
			return failure(pass - 1, err)
		}

		selector, err := a.FindFirstVisible(ctx, query, perPass)
		if err == nil {
			if clickErr := a.drv.Click(ctx, selector); clickErr == nil {
				a.logger.Debug("Click landed",
					zap.String("selector", selector), zap.Int("pass", pass))
				// Let the UI react before the caller's next action.
				if err := sleepCtx(ctx, a.settle); err != nil {
					return failure(pass, err)
				}
				return ActionOutcome{Success: true, Attempts: pass}
			} else {
				lastErr = clickErr
			}
		} else {
			lastErr = err
		}

		if pass < retries {
			if err := sleepCtx(ctx, passBackoff); err != nil {
				return failure(pass, err)
			}
		}
	}

	a.logger.Warn("Click exhausted all retries",
		zap.Strings("selectors", query), zap.Int("retries", retries),
		zap.NamedError("last_error", lastErr))
	return failure(retries, lastErr)
}

// TypeOptions tune TypeInto.
type TypeOptions struct {
	// ClearFirst selects-all-and-deletes any existing content before typing.
	ClearFirst bool
	// PressEnter submits with a terminal Enter key after typing.
	PressEnter bool
	// KeyDelay is the inter-keystroke pause; zero uses the default.
	KeyDelay time.Duration
	// Timeout bounds the initial element lookup.
	Timeout time.Duration
}

// TypeInto locates the target via the same fallback strategy and types the
// text one keystroke at a time so input listeners fire per key.
func (a *Actions) TypeInto(ctx context.Context, query ElementQuery, text string, opts TypeOptions) ActionOutcome {
	if len(query) == 0 {
		return failure(0, ErrEmptyQuery)
	}
	if opts.KeyDelay <= 0 {
		opts.KeyDelay = defaultKeyDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	selector, err := a.FindFirstVisible(ctx, query, opts.Timeout)
	if err != nil {
		return failure(1, err)
	}

	if opts.ClearFirst {
		if err := a.drv.Clear(ctx, selector); err != nil {
			return failure(1, err)
		}
	}

	// The limiter paces discrete key events for validators that watch
	// keystrokes rather than value mutation.
	limiter := rate.NewLimiter(rate.Every(opts.KeyDelay), 1)
	for _, r := range text {
		if err := limiter.Wait(ctx); err != nil {
			return failure(1, err)
		}
		if err := a.drv.Type(ctx, selector, string(r)); err != nil {
			return failure(1, err)
		}
	}

	if opts.PressEnter {
		if err := a.drv.PressEnter(ctx, selector); err != nil {
			return failure(1, err)
		}
	}

	a.logger.Debug("Typed into element",
		zap.String("selector", selector), zap.Int("text_length", len(text)))
	return ActionOutcome{Success: true, Attempts: 1}
}

// ElementExists is a pure probe: true/false, never a fault. Used as a guard
// before conditional UI actions such as modal dismissal.
func (a *Actions) ElementExists(ctx context.Context, query ElementQuery, timeout time.Duration) bool {
	selector, err := a.FindFirstVisible(ctx, query, timeout)
	if err != nil {
		return false
	}
	return selector != ""
}

// sleepCtx pauses for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
