// File: internal/interact/helpers_test.go
package interact

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// fakeDriver is a scriptable in-memory Driver for unit tests. Visibility is
// keyed by selector; a selector absent from the map is never visible.
type fakeDriver struct {
	mu sync.Mutex

	visible map[string]bool
	// visibleAfterProbes makes a selector visible only once it has been
	// probed that many times, to exercise retry passes.
	visibleAfterProbes map[string]int
	probes             map[string]int

	clickErr map[string]error
	texts    map[string]string

	// evalFn scripts Evaluate. When nil, Evaluate reports false.
	evalFn func(expr string, out any) error

	findOrder []string
	clicks    []string
	typed     []string
	cleared   []string
	entered   []string
	navigated []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		visible:            map[string]bool{},
		visibleAfterProbes: map[string]int{},
		probes:             map[string]int{},
		clickErr:           map[string]error{},
		texts:              map[string]string{},
	}
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) FindVisible(ctx context.Context, selector string, _ time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.findOrder = append(d.findOrder, selector)
	d.probes[selector]++
	if threshold, ok := d.visibleAfterProbes[selector]; ok {
		return d.probes[selector] >= threshold, nil
	}
	return d.visible[selector], nil
}

func (d *fakeDriver) Click(_ context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.clickErr[selector]; err != nil {
		return err
	}
	d.clicks = append(d.clicks, selector)
	return nil
}

func (d *fakeDriver) Type(_ context.Context, selector, keys string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typed = append(d.typed, selector+":"+keys)
	return nil
}

func (d *fakeDriver) Clear(_ context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleared = append(d.cleared, selector)
	return nil
}

func (d *fakeDriver) PressEnter(_ context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entered = append(d.entered, selector)
	return nil
}

func (d *fakeDriver) Evaluate(ctx context.Context, expr string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	fn := d.evalFn
	d.mu.Unlock()
	if fn == nil {
		if b, ok := out.(*bool); ok {
			*b = false
			return nil
		}
		return fmt.Errorf("no evaluation scripted")
	}
	return fn(expr, out)
}

func (d *fakeDriver) Text(_ context.Context, selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	text, ok := d.texts[selector]
	if !ok {
		return "", fmt.Errorf("no element matching %q", selector)
	}
	return text, nil
}

// boolResult writes a scripted boolean into an Evaluate out parameter.
func boolResult(out any, v bool) error {
	b, ok := out.(*bool)
	if !ok {
		return fmt.Errorf("expected *bool result, got %T", out)
	}
	*b = v
	return nil
}

func testActions(d Driver) *Actions {
	// Millisecond settle keeps retry tests fast.
	return NewActions(d, zap.NewNop(), time.Millisecond)
}
