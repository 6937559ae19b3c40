// File: internal/session/wizard.go
package session

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/sevren0x/cartpilot/internal/config"
)

// wizardStepBudget bounds the customization ladder. The ladder is a fallback
// sequence, not a converging algorithm; without a bound a pathological wizard
// could loop forever.
const wizardStepBudget = 6

// jsSelectFirstUnselected clicks the first unselected, enabled choice control
// in document order. Yields true when something was selected.
const jsSelectFirstUnselected = `(function(){
	const els = document.querySelectorAll(%s);
	for (const e of els) {
		if (!e.checked && !e.disabled && e.getClientRects().length > 0) {
			e.click();
			return true;
		}
	}
	return false;
})()`

// jsClickByLabel clicks the first visible control whose label matches a
// continue/add pattern. The last rung of the ladder.
const jsClickByLabel = `(function(){
	const re = /(continue|next|add|submit|done|apply)/i;
	const els = document.querySelectorAll('button, [role="button"], input[type="submit"], a');
	for (const e of els) {
		const label = (e.innerText || e.value || '').trim();
		if (label && re.test(label) && e.getClientRects().length > 0) {
			e.click();
			return true;
		}
	}
	return false;
})()`

// customize walks the step-based customization wizard. Each iteration
// re-inspects live document state and tries, in order: the primary continue
// control, the terminal submit control (success), the first unselected choice
// option, and finally any control whose label looks like continue/add.
// Exhausting the budget without reaching the terminal control is a
// customization failure; the caller decides what that means for the phase.
func (f *funnel) customize(ctx context.Context) PhaseResult {
	for step := 1; step <= wizardStepBudget; step++ {
		log := f.logger.With(zap.Int("step", step))

		if f.clickIfPresent(ctx, config.SelCustomizeContinue) {
			log.Debug("Customization wizard advanced")
			continue
		}
		if f.clickIfPresent(ctx, config.SelCustomizeSubmit) {
			log.Info("Customization wizard completed")
			return succeeded(fmt.Sprintf("wizard completed at step %d", step))
		}
		if f.selectFirstOption(ctx) {
			log.Debug("Selected first unselected option")
			continue
		}
		if f.clickByLabel(ctx) {
			log.Debug("Clicked control by label pattern")
			continue
		}

		// Nothing on this screen is actionable; further iterations would
		// inspect the same state.
		return failed(fmt.Sprintf("no actionable control at step %d", step))
	}
	return failed("step budget exhausted before terminal control")
}

func (f *funnel) selectFirstOption(ctx context.Context) bool {
	for _, sel := range f.query(config.SelCustomizeOptions) {
		var clicked bool
		expr := fmt.Sprintf(jsSelectFirstUnselected, strconv.Quote(sel))
		if err := f.drv.Evaluate(ctx, expr, &clicked); err != nil {
			continue
		}
		if clicked {
			return true
		}
	}
	return false
}

func (f *funnel) clickByLabel(ctx context.Context) bool {
	var clicked bool
	if err := f.drv.Evaluate(ctx, jsClickByLabel, &clicked); err != nil {
		return false
	}
	return clicked
}
