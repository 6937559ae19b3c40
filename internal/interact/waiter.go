// File: internal/interact/waiter.go
package interact

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WaitResult is the terminal state of a bounded condition wait. TimedOut is a
// non-fatal outcome: callers log and decide whether to proceed optimistically.
type WaitResult int

const (
	// ConditionMet means the predicate held before the budget expired.
	ConditionMet WaitResult = iota
	// ConditionTimedOut means the budget expired with the predicate unmet.
	ConditionTimedOut
)

func (r WaitResult) String() string {
	if r == ConditionMet {
		return "met"
	}
	return "timed_out"
}

// Waiter polls document state until a predicate holds or a timeout expires.
type Waiter struct {
	drv    Driver
	logger *zap.Logger
}

// NewWaiter builds a condition waiter over the driver.
func NewWaiter(drv Driver, logger *zap.Logger) *Waiter {
	return &Waiter{drv: drv, logger: logger.Named("wait")}
}

// WaitFor polls the predicate every interval until it holds or the timeout
// expires. The only error returned is context cancellation; predicate
// evaluation faults are tolerated as "not yet".
func (w *Waiter) WaitFor(ctx context.Context, pred Predicate, interval, timeout time.Duration) (WaitResult, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	deadline := time.Now().Add(timeout)
	expr := pred.JS()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var holds bool
		if err := w.drv.Evaluate(ctx, expr, &holds); err != nil {
			if ctx.Err() != nil {
				return ConditionTimedOut, ctx.Err()
			}
			w.logger.Debug("Predicate evaluation faulted; treating as unmet",
				zap.String("predicate", pred.String()), zap.Error(err))
		} else if holds {
			return ConditionMet, nil
		}

		if time.Now().After(deadline) {
			w.logger.Debug("Condition wait expired",
				zap.String("predicate", pred.String()), zap.Duration("timeout", timeout))
			return ConditionTimedOut, nil
		}

		select {
		case <-ctx.Done():
			return ConditionTimedOut, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForTransition confirms a transition has fully completed, not merely
// started: it holds once the triggering condition has disappeared AND the
// alternative positive signal is present. Used, e.g., to require that the OTP
// challenge is gone and the account area has replaced the sign-in control.
func (w *Waiter) WaitForTransition(ctx context.Context, trigger, confirmation Predicate, interval, timeout time.Duration) (WaitResult, error) {
	return w.WaitFor(ctx, And(Not(trigger), confirmation), interval, timeout)
}
