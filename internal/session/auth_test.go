// File: internal/session/auth_test.go
package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevren0x/cartpilot/internal/config"
)

// challengeScript simulates a code challenge that renders at appear and
// resolves (challenge gone, account area present) at resolve, both measured
// from the first predicate evaluation.
func challengeScript(appear, resolve time.Duration) func(expr string, out any) error {
	var once sync.Once
	var t0 time.Time
	return func(expr string, out any) error {
		once.Do(func() { t0 = time.Now() })
		now := time.Since(t0)
		challenge := now >= appear && now < resolve
		authed := now >= resolve
		switch {
		case exprMentions(expr, "#otp") && exprMentions(expr, "#account"):
			return boolOut(out, !challenge && authed)
		case exprMentions(expr, "#otp"):
			return boolOut(out, challenge)
		case exprMentions(expr, "#account"):
			return boolOut(out, authed)
		}
		return boolOut(out, false)
	}
}

func TestAuthenticateTwoPhaseChallenge(t *testing.T) {
	t.Run("SuccessOnlyAfterResolution", func(t *testing.T) {
		const (
			appear  = 40 * time.Millisecond
			resolve = 200 * time.Millisecond
		)

		profile := testProfile()
		profile.Selectors[config.SelAccountArea] = []string{"#account"}
		profile.Timing.OTPAppear = 500 * time.Millisecond
		profile.Timing.OTPResolve = time.Second

		page := newFakePage()
		page.visible["#ident"] = true
		page.visible["#auth-go"] = true
		page.evalFn = challengeScript(appear, resolve)

		f := testFunnel(page, profile)
		started := time.Now()
		res := (&identifierStrategy{funnel: f}).Authenticate(context.Background(), AuthModeSignin)
		elapsed := time.Since(started)

		assert.Equal(t, OutcomeSuccess, res.Outcome)
		// Resolution cannot be declared while the challenge is still up.
		assert.GreaterOrEqual(t, elapsed, resolve)
		assert.NotEmpty(t, page.cleared, "identifier field should be cleared before typing")
		assert.Contains(t, page.clicks, "#auth-go")
	})

	t.Run("ChallengeNeverAppearsIsOptimisticTimeout", func(t *testing.T) {
		page := newFakePage()
		page.visible["#ident"] = true
		page.visible["#auth-go"] = true

		f := testFunnel(page, testProfile())
		res := (&identifierStrategy{funnel: f}).Authenticate(context.Background(), AuthModeSignin)

		assert.Equal(t, OutcomeTimeout, res.Outcome)
	})

	t.Run("AuthenticatedWithoutChallenge", func(t *testing.T) {
		profile := testProfile()
		profile.Selectors[config.SelAccountArea] = []string{"#account"}

		page := newFakePage()
		page.visible["#ident"] = true
		page.visible["#auth-go"] = true
		page.evalFn = func(expr string, out any) error {
			// Account area present the whole time, challenge never shown.
			return boolOut(out, exprMentions(expr, "#account") && !exprMentions(expr, "#otp"))
		}

		f := testFunnel(page, profile)
		res := (&identifierStrategy{funnel: f}).Authenticate(context.Background(), AuthModeSignin)

		assert.Equal(t, OutcomeSuccess, res.Outcome)
		assert.Contains(t, res.Detail, "without challenge")
	})
}

func signupProfile() *config.SiteProfile {
	profile := testProfile()
	profile.AuthFlow = config.AuthFlowSignupSignin
	profile.Selectors[config.SelAuthSignupToggle] = []string{"#to-signup"}
	profile.Selectors[config.SelAuthSigninToggle] = []string{"#to-signin"}
	profile.Selectors[config.SelAuthTakenNotice] = []string{"#taken"}
	return profile
}

func TestAuthenticateSignupSignin(t *testing.T) {
	t.Run("PivotsOnceWhenIdentifierTaken", func(t *testing.T) {
		page := newFakePage()
		page.visible["#ident"] = true
		page.visible["#auth-go"] = true
		page.visible["#to-signup"] = true
		page.visible["#to-signin"] = true
		page.visible["#taken"] = true

		f := testFunnel(page, signupProfile())
		res := (&signupSigninStrategy{funnel: f}).Authenticate(context.Background(), AuthModeSignup)

		assert.Equal(t, 1, page.clickCount("#to-signup"))
		assert.Equal(t, 1, page.clickCount("#to-signin"), "pivot must happen exactly once")
		require.Len(t, page.cleared, 2, "identifier re-entered after pivot")
		// Neither form produced a positive signal: explicit unresolved failure.
		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.Contains(t, res.Detail, "pivot")
	})

	t.Run("NoPivotWhenIdentifierFree", func(t *testing.T) {
		page := newFakePage()
		page.visible["#ident"] = true
		page.visible["#auth-go"] = true
		page.visible["#to-signup"] = true

		f := testFunnel(page, signupProfile())
		res := (&signupSigninStrategy{funnel: f}).Authenticate(context.Background(), AuthModeSignup)

		assert.Zero(t, page.clickCount("#to-signin"))
		assert.Equal(t, OutcomeTimeout, res.Outcome)
	})

	t.Run("SigninModeNeverProbesTakenNotice", func(t *testing.T) {
		page := newFakePage()
		page.visible["#ident"] = true
		page.visible["#auth-go"] = true
		page.visible["#to-signin"] = true
		page.visible["#taken"] = true

		f := testFunnel(page, signupProfile())
		res := (&signupSigninStrategy{funnel: f}).Authenticate(context.Background(), AuthModeSignin)

		assert.Equal(t, 1, page.clickCount("#to-signin"))
		assert.Zero(t, page.clickCount("#to-signup"))
		assert.Len(t, page.cleared, 1)
		assert.Equal(t, OutcomeTimeout, res.Outcome)
	})
}
