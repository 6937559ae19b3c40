// File: internal/session/wizard_test.go
package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevren0x/cartpilot/internal/config"
)

func wizardProfile() *config.SiteProfile {
	profile := testProfile()
	profile.Flags.HasCustomization = true
	profile.Selectors[config.SelCustomizeContinue] = []string{"#cust-next"}
	profile.Selectors[config.SelCustomizeSubmit] = []string{"#cust-submit"}
	profile.Selectors[config.SelCustomizeOptions] = []string{".opt"}
	return profile
}

func TestCustomizeLadder(t *testing.T) {
	t.Run("ZeroStepWizardTerminatesInOneIteration", func(t *testing.T) {
		page := newFakePage()
		page.visible["#cust-submit"] = true

		res := testFunnel(page, wizardProfile()).customize(context.Background())

		assert.Equal(t, OutcomeSuccess, res.Outcome)
		assert.Equal(t, []string{"#cust-submit"}, page.clicks)
	})

	t.Run("ThreeOptionSelectionsThenSubmit", func(t *testing.T) {
		page := newFakePage()
		selected := 0
		page.visibleFn = func(sel string) bool {
			return sel == "#cust-submit" && selected >= 3
		}
		page.evalFn = func(expr string, out any) error {
			if exprMentions(expr, ".opt") && selected < 3 {
				selected++
				return boolOut(out, true)
			}
			return boolOut(out, false)
		}

		res := testFunnel(page, wizardProfile()).customize(context.Background())

		assert.Equal(t, OutcomeSuccess, res.Outcome)
		assert.Equal(t, 3, selected)
		assert.Equal(t, 1, page.clickCount("#cust-submit"))
	})

	t.Run("LabelPatternIsTheLastRung", func(t *testing.T) {
		page := newFakePage()
		labelClicked := false
		page.visibleFn = func(sel string) bool {
			return sel == "#cust-submit" && labelClicked
		}
		page.evalFn = func(expr string, out any) error {
			if exprMentions(expr, ".opt") {
				return boolOut(out, false)
			}
			if strings.Contains(expr, `role="button"`) && !labelClicked {
				labelClicked = true
				return boolOut(out, true)
			}
			return boolOut(out, false)
		}

		res := testFunnel(page, wizardProfile()).customize(context.Background())

		assert.Equal(t, OutcomeSuccess, res.Outcome)
		assert.True(t, labelClicked)
	})

	t.Run("BudgetExhaustedOnEndlessContinue", func(t *testing.T) {
		page := newFakePage()
		page.visible["#cust-next"] = true

		res := testFunnel(page, wizardProfile()).customize(context.Background())

		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.Contains(t, res.Detail, "budget exhausted")
		assert.Equal(t, wizardStepBudget, page.clickCount("#cust-next"))
	})

	t.Run("NothingActionableFailsWithoutLooping", func(t *testing.T) {
		page := newFakePage()

		res := testFunnel(page, wizardProfile()).customize(context.Background())

		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.Contains(t, res.Detail, "no actionable control")
		assert.Empty(t, page.clicks)
	})
}
