// File: internal/session/strategy.go
package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sevren0x/cartpilot/internal/config"
	"github.com/sevren0x/cartpilot/internal/interact"
)

const clickRetries = 3

// PageDriver is the capability surface a strategy drives. It extends the
// interaction primitives with cross-context handoff and diagnostics capture.
type PageDriver interface {
	interact.Driver
	SubscribeNewTarget() Subscription
	AdoptTarget(ctx context.Context, id string) error
}

// SiteStrategy is the site-specific behavior behind each funnel phase. The
// sequencer stays site-agnostic; a strategy is selected once from the
// profile's auth flow and consulted for every phase.
type SiteStrategy interface {
	Name() string
	Authenticate(ctx context.Context, mode AuthMode) PhaseResult
	SetLocation(ctx context.Context) PhaseResult
	Search(ctx context.Context, term string) PhaseResult
	AddToCart(ctx context.Context) PhaseResult
	Finalize(ctx context.Context) PhaseResult
}

// NewStrategy selects the strategy for the profile's auth flow.
func NewStrategy(drv PageDriver, profile *config.SiteProfile, logger *zap.Logger) (SiteStrategy, error) {
	timing := profile.Timing.WithTimingDefaults()
	f := &funnel{
		drv:     drv,
		actions: interact.NewActions(drv, logger, timing.Settle),
		waiter:  interact.NewWaiter(drv, logger),
		profile: profile,
		timing:  timing,
		logger:  logger.Named("strategy"),
	}

	switch profile.AuthFlow {
	case "", config.AuthFlowIdentifier:
		return &identifierStrategy{funnel: f}, nil
	case config.AuthFlowSignupSignin:
		return &signupSigninStrategy{funnel: f}, nil
	default:
		return nil, fmt.Errorf("unknown auth flow %q", profile.AuthFlow)
	}
}

// funnel carries the site-agnostic phase implementations shared by every
// strategy. Authentication is the only phase the strategies override.
type funnel struct {
	drv     PageDriver
	actions *interact.Actions
	waiter  *interact.Waiter
	profile *config.SiteProfile
	timing  config.TimingConfig
	logger  *zap.Logger
}

func (f *funnel) query(name string) interact.ElementQuery {
	return interact.ElementQuery(f.profile.Query(name))
}

// clickIfPresent probes for the logical target and clicks it when found.
// A missing target is a normal outcome, not a fault.
func (f *funnel) clickIfPresent(ctx context.Context, name string) bool {
	q := f.query(name)
	if len(q) == 0 {
		return false
	}
	if !f.actions.ElementExists(ctx, q, 2*time.Second) {
		return false
	}
	return f.actions.ClickWithRetry(ctx, q, 1, 5*time.Second).Success
}

// orPresent builds "any of these selectors resolves to a visible element".
func orPresent(query interact.ElementQuery) interact.Predicate {
	parts := make([]interact.Predicate, 0, len(query))
	for _, sel := range query {
		parts = append(parts, interact.ElementPresent(sel))
	}
	return interact.Or(parts...)
}

// SetLocation enters the configured location, or dismisses the location
// prompt when no input surface exists. Always non-fatal to the run.
func (f *funnel) SetLocation(ctx context.Context) PhaseResult {
	inputQ := f.query(config.SelLocationInput)
	if len(inputQ) == 0 || !f.actions.ElementExists(ctx, inputQ, f.timing.ElementWait) {
		if f.clickIfPresent(ctx, config.SelLocationDismiss) {
			return succeeded("location prompt dismissed")
		}
		return timedOut("no location surface found")
	}

	out := f.actions.TypeInto(ctx, inputQ, f.profile.Credentials.Location, interact.TypeOptions{
		ClearFirst: true,
		Timeout:    f.timing.ElementWait,
	})
	if !out.Success {
		return timedOut("location input rejected: " + out.LastError)
	}

	if !f.clickIfPresent(ctx, config.SelLocationSubmit) {
		if sel, err := f.actions.FindFirstVisible(ctx, inputQ, 2*time.Second); err == nil {
			_ = f.drv.PressEnter(ctx, sel)
		}
	}

	// Confirmed once the entry surface has gone away.
	r, err := f.waiter.WaitFor(ctx,
		interact.Not(orPresent(inputQ)),
		f.timing.PollInterval, f.timing.ElementWait)
	if err != nil {
		return failed("canceled while confirming location: " + err.Error())
	}
	if r == interact.ConditionTimedOut {
		return timedOut("location entry surface still visible")
	}
	return succeeded("location accepted")
}

// Search submits the term and requires rendered results. Failure here is
// fatal for the run; a funnel with no results has nothing to add to a cart.
func (f *funnel) Search(ctx context.Context, term string) PhaseResult {
	out := f.actions.TypeInto(ctx, f.query(config.SelSearchInput), term, interact.TypeOptions{
		ClearFirst: true,
		PressEnter: true,
		Timeout:    f.timing.ElementWait,
	})
	if !out.Success {
		return failed("search input not available: " + out.LastError)
	}

	r, err := f.waiter.WaitFor(ctx,
		orPresent(f.query(config.SelSearchResults)),
		f.timing.PollInterval, f.timing.PageLoad)
	if err != nil {
		return failed("canceled while waiting for results: " + err.Error())
	}
	if r == interact.ConditionTimedOut {
		return failed("search results did not render")
	}
	return succeeded("results rendered")
}

// AddToCart opens the product (handing off to a new browsing context when the
// site spawns one), runs the customization wizard when required, then clicks
// add-to-cart and verifies the monitored counter with exactly one retry.
func (f *funnel) AddToCart(ctx context.Context) PhaseResult {
	if res, ok := f.openProduct(ctx); !ok {
		return res
	}

	if f.profile.Flags.HasCustomization {
		if res := f.customize(ctx); res.Outcome == OutcomeFailed {
			f.logger.Warn("Customization wizard did not complete, attempting direct submit",
				zap.String("detail", res.Detail))
			f.clickIfPresent(ctx, config.SelCustomizeSubmit)
		}
	}

	counterSel, before, counted := f.cartCount(ctx)

	out := f.actions.ClickWithRetry(ctx, f.query(config.SelCartAdd), clickRetries, f.timing.ElementWait)
	if !out.Success {
		return failed("add-to-cart control not clickable: " + out.LastError)
	}
	if !counted {
		return succeeded("added to cart (no counter to verify)")
	}

	met, err := f.counterReached(ctx, counterSel, before+1)
	if err != nil {
		return failed("canceled while verifying cart: " + err.Error())
	}
	if met {
		return succeeded(fmt.Sprintf("cart counter reached %d", before+1))
	}

	// Exactly one retry; a second miss is a phase failure, never a loop.
	f.logger.Warn("Cart counter unchanged, retrying add-to-cart once")
	out = f.actions.ClickWithRetry(ctx, f.query(config.SelCartAdd), 1, f.timing.ElementWait)
	if out.Success {
		met, err = f.counterReached(ctx, counterSel, before+1)
		if err != nil {
			return failed("canceled while verifying cart: " + err.Error())
		}
		if met {
			return succeeded(fmt.Sprintf("cart counter reached %d after retry", before+1))
		}
	}
	return failed("cart counter did not increase after retry")
}

// Finalize opens the cart/checkout view. Non-fatal; the item is already in
// the cart by the time this runs.
func (f *funnel) Finalize(ctx context.Context) PhaseResult {
	if f.clickIfPresent(ctx, config.SelCartOpen) {
		return succeeded("cart view opened")
	}
	return timedOut("cart open control not found")
}

// openProduct clicks the product opener. When the site spawns a new browsing
// context, the subscription is registered before the triggering click so the
// creation event cannot be missed; the prior context is abandoned, not
// closed. At most one subscription is pending at any time.
func (f *funnel) openProduct(ctx context.Context) (PhaseResult, bool) {
	q := f.query(config.SelProductOpen)

	if !f.profile.Flags.DetailOpensNewContext {
		out := f.actions.ClickWithRetry(ctx, q, clickRetries, f.timing.ElementWait)
		if !out.Success {
			return failed("product open control not clickable: " + out.LastError), false
		}
		return PhaseResult{}, true
	}

	sub := f.drv.SubscribeNewTarget()
	out := f.actions.ClickWithRetry(ctx, q, clickRetries, f.timing.ElementWait)
	if !out.Success {
		sub.Cancel()
		return failed("product open control not clickable: " + out.LastError), false
	}

	id, err := sub.Await(ctx, f.timing.Handoff)
	if err != nil {
		// The click may have navigated in place after all.
		f.logger.Warn("No new browsing context after product open, continuing in current context",
			zap.Error(err))
		return PhaseResult{}, true
	}
	if err := f.drv.AdoptTarget(ctx, id); err != nil {
		return failed("failed to adopt new browsing context: " + err.Error()), false
	}
	f.logger.Info("Handed off to new browsing context", zap.String("target_id", id))
	return PhaseResult{}, true
}

// cartCount reads the monitored cart counter. counted is false when the site
// configures no counter or it cannot be read; verification then falls back
// to trusting the click outcome.
func (f *funnel) cartCount(ctx context.Context) (sel string, count int, counted bool) {
	q := f.query(config.SelCartCount)
	if len(q) == 0 {
		return "", 0, false
	}
	sel, err := f.actions.FindFirstVisible(ctx, q, 3*time.Second)
	if err != nil {
		return "", 0, false
	}
	text, err := f.drv.Text(ctx, sel)
	if err != nil {
		return "", 0, false
	}
	return sel, parseCount(text), true
}

func (f *funnel) counterReached(ctx context.Context, sel string, min int) (bool, error) {
	r, err := f.waiter.WaitFor(ctx,
		interact.NumberAtLeast(sel, min),
		f.timing.PollInterval, f.timing.ElementWait)
	if err != nil {
		return false, err
	}
	return r == interact.ConditionMet, nil
}

// parseCount extracts the leading integer from counter text like "3 items".
// An empty or non-numeric badge reads as zero.
func parseCount(text string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
