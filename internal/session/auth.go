// File: internal/session/auth.go
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sevren0x/cartpilot/internal/config"
	"github.com/sevren0x/cartpilot/internal/interact"
)

// takenNoticeWait bounds the probe for the "identifier already registered"
// signal after a signup submit.
const takenNoticeWait = 5 * time.Second

// identifierStrategy authenticates through a single identifier field and the
// shared one-time-code wait. No account-creation step exists on these sites.
type identifierStrategy struct {
	*funnel
}

func (s *identifierStrategy) Name() string { return "identifier" }

func (s *identifierStrategy) Authenticate(ctx context.Context, _ AuthMode) PhaseResult {
	s.clickIfPresent(ctx, config.SelAuthEntry)

	if res, ok := s.submitIdentifier(ctx); !ok {
		return res
	}
	return s.waitForCodeChallenge(ctx)
}

// signupSigninStrategy disambiguates between account creation and sign-in.
// When signup reports the identifier as already registered it pivots to
// sign-in with the same identifier, at most once, then joins the shared
// one-time-code wait.
type signupSigninStrategy struct {
	*funnel
}

func (s *signupSigninStrategy) Name() string { return "signup_signin" }

func (s *signupSigninStrategy) Authenticate(ctx context.Context, mode AuthMode) PhaseResult {
	s.clickIfPresent(ctx, config.SelAuthEntry)

	toggle := config.SelAuthSigninToggle
	if mode == AuthModeSignup {
		toggle = config.SelAuthSignupToggle
	}
	s.clickIfPresent(ctx, toggle)

	if res, ok := s.submitIdentifier(ctx); !ok {
		return res
	}

	pivoted := false
	if mode == AuthModeSignup {
		if s.actions.ElementExists(ctx, s.query(config.SelAuthTakenNotice), takenNoticeWait) {
			s.logger.Info("Identifier already registered, pivoting to sign-in")
			pivoted = true
			s.clickIfPresent(ctx, config.SelAuthSigninToggle)
			if res, ok := s.submitIdentifier(ctx); !ok {
				return failed("sign-in form unavailable after pivot: " + res.Detail)
			}
		}
	}

	res := s.waitForCodeChallenge(ctx)
	if pivoted && res.Outcome != OutcomeSuccess && !s.isAuthenticated(ctx) {
		// After the one permitted pivot neither form produced a positive
		// signal. This is an unresolved failure, not an optimistic timeout.
		return failed("neither signup nor sign-in resolved after pivot")
	}
	return res
}

// submitIdentifier fills the identifier field and submits the form, falling
// back to a terminal Enter when no submit control is found.
func (f *funnel) submitIdentifier(ctx context.Context) (PhaseResult, bool) {
	idQ := f.query(config.SelAuthIdentifier)
	out := f.actions.TypeInto(ctx, idQ, f.profile.Credentials.Identifier, interact.TypeOptions{
		ClearFirst: true,
		Timeout:    f.timing.ElementWait,
	})
	if !out.Success {
		return timedOut("identifier field not available: " + out.LastError), false
	}

	if !f.clickIfPresent(ctx, config.SelAuthSubmit) {
		if sel, err := f.actions.FindFirstVisible(ctx, idQ, 2*time.Second); err == nil {
			_ = f.drv.PressEnter(ctx, sel)
		}
	}
	return PhaseResult{}, true
}

// waitForCodeChallenge is the two-phase synchronization around the human
// entering a one-time code.
//
// Phase A waits for positive evidence the challenge rendered: labelled dialog
// text or a cluster of 4-6 single-character inputs. Without it, success could
// be declared before the challenge even appears.
//
// Phase B waits for the challenge to disappear AND a positive authenticated
// signal to be present. Disappearance alone is not enough; the challenge text
// scrolling out of the polled container must not read as success.
//
// The code itself is entered by a human; this only observes the transitions.
// Both waits are bounded and a timeout resolves optimistically.
func (f *funnel) waitForCodeChallenge(ctx context.Context) PhaseResult {
	challenge := f.challengePredicate()
	if challenge == nil {
		if f.isAuthenticated(ctx) {
			return succeeded("authenticated, no challenge configured")
		}
		return timedOut("no challenge selectors configured")
	}

	r, err := f.waiter.WaitFor(ctx, challenge, f.timing.PollInterval, f.timing.OTPAppear)
	if err != nil {
		return failed("canceled while waiting for challenge: " + err.Error())
	}
	if r == interact.ConditionTimedOut {
		// Possibly no challenge was required for this session.
		if f.isAuthenticated(ctx) {
			return succeeded("authenticated without challenge")
		}
		return timedOut("challenge never appeared")
	}

	f.logger.Info("Code challenge detected, waiting for human entry",
		zap.Duration("budget", f.timing.OTPResolve))

	r, err = f.waiter.WaitForTransition(ctx, challenge, f.authenticatedPredicate(),
		f.timing.PollInterval, f.timing.OTPResolve)
	if err != nil {
		return failed("canceled while waiting for challenge resolution: " + err.Error())
	}
	if r == interact.ConditionTimedOut {
		return timedOut("challenge did not resolve within budget")
	}
	return succeeded("authenticated")
}

// challengePredicate recognizes a rendered code challenge. Nil when the
// profile configures no challenge selectors at all.
func (f *funnel) challengePredicate() interact.Predicate {
	var parts []interact.Predicate
	for _, sel := range f.query(config.SelOTPDialog) {
		parts = append(parts, interact.ElementPresent(sel))
	}
	for _, sel := range f.query(config.SelOTPInputs) {
		parts = append(parts, interact.CountRange(sel, 4, 6))
	}
	if len(parts) == 0 {
		return nil
	}
	return interact.Or(parts...)
}

// authenticatedPredicate is the positive signed-in signal: an account-area
// control present and, when the profile names one, the sign-in entry absent.
func (f *funnel) authenticatedPredicate() interact.Predicate {
	account := orPresent(f.query(config.SelAccountArea))
	entryQ := f.query(config.SelAuthEntry)
	if len(entryQ) == 0 {
		return account
	}
	return interact.And(account, interact.Not(orPresent(entryQ)))
}

func (f *funnel) isAuthenticated(ctx context.Context) bool {
	if len(f.query(config.SelAccountArea)) == 0 {
		return false
	}
	r, err := f.waiter.WaitFor(ctx, f.authenticatedPredicate(), f.timing.PollInterval, 3*time.Second)
	return err == nil && r == interact.ConditionMet
}
