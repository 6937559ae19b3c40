// File: internal/session/helpers_test.go
package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sevren0x/cartpilot/internal/config"
)

// fakePage scripts driver behavior per selector so strategies run against
// deterministic document state without a live browser.
type fakePage struct {
	mu        sync.Mutex
	visible   map[string]bool
	visibleFn func(sel string) bool
	clickErr  map[string]error
	texts     map[string]string
	evalFn    func(expr string, out any) error
	navErr    error

	navigated []string
	clicks    []string
	typed     []string
	cleared   []string
	entered   []string

	sub      *fakeSub
	adopted  []string
	adoptErr error
}

func newFakePage() *fakePage {
	return &fakePage{
		visible:  map[string]bool{},
		clickErr: map[string]error{},
		texts:    map[string]string{},
	}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) FindVisible(_ context.Context, sel string, _ time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.visibleFn != nil {
		return p.visibleFn(sel), nil
	}
	return p.visible[sel], nil
}

func (p *fakePage) Click(_ context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.clickErr[sel]; err != nil {
		return err
	}
	p.clicks = append(p.clicks, sel)
	return nil
}

func (p *fakePage) Type(_ context.Context, sel, keys string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typed = append(p.typed, sel+":"+keys)
	return nil
}

func (p *fakePage) Clear(_ context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = append(p.cleared, sel)
	return nil
}

func (p *fakePage) PressEnter(_ context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entered = append(p.entered, sel)
	return nil
}

func (p *fakePage) Evaluate(_ context.Context, expr string, out any) error {
	p.mu.Lock()
	fn := p.evalFn
	p.mu.Unlock()
	if fn != nil {
		return fn(expr, out)
	}
	return boolOut(out, false)
}

func (p *fakePage) Text(_ context.Context, sel string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.texts[sel]
	if !ok {
		return "", fmt.Errorf("no text for %q", sel)
	}
	return text, nil
}

func (p *fakePage) SubscribeNewTarget() Subscription {
	return p.sub
}

func (p *fakePage) AdoptTarget(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adoptErr != nil {
		return p.adoptErr
	}
	p.adopted = append(p.adopted, id)
	return nil
}

func (p *fakePage) clickCount(sel string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.clicks {
		if c == sel {
			n++
		}
	}
	return n
}

// fakeSub is a scripted one-shot context subscription.
type fakeSub struct {
	mu       sync.Mutex
	id       string
	err      error
	awaits   int
	canceled int
}

func (s *fakeSub) Await(context.Context, time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaits++
	return s.id, s.err
}

func (s *fakeSub) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled++
}

func boolOut(out any, v bool) error {
	b, ok := out.(*bool)
	if !ok {
		return fmt.Errorf("unexpected evaluate output type %T", out)
	}
	*b = v
	return nil
}

// exprMentions reports whether the compiled predicate references the selector.
func exprMentions(expr, sel string) bool {
	return strings.Contains(expr, strconv.Quote(sel))
}

// fastTiming keeps every bounded wait short enough for unit tests.
func fastTiming() config.TimingConfig {
	return config.TimingConfig{
		PageLoad:     100 * time.Millisecond,
		ElementWait:  50 * time.Millisecond,
		Settle:       time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		OTPAppear:    50 * time.Millisecond,
		OTPResolve:   50 * time.Millisecond,
		Handoff:      50 * time.Millisecond,
	}
}

// testProfile is a minimal identifier-flow site: no location step, no
// customization, no account-area signal.
func testProfile() *config.SiteProfile {
	return &config.SiteProfile{
		ID:       "alpha",
		BaseURL:  "https://alpha.example",
		AuthFlow: config.AuthFlowIdentifier,
		Selectors: map[string][]string{
			config.SelAuthIdentifier: {"#ident"},
			config.SelAuthSubmit:     {"#auth-go"},
			config.SelOTPDialog:      {"#otp"},
			config.SelSearchInput:    {"#search"},
			config.SelSearchResults:  {"#results"},
			config.SelProductOpen:    {"#prod"},
			config.SelCartAdd:        {"#add"},
			config.SelCartCount:      {"#cart-badge"},
			config.SelCartOpen:       {"#cart"},
		},
		Timing:      fastTiming(),
		Credentials: config.Credentials{Identifier: "u@e.x", Location: "10001"},
	}
}

func testFunnel(p *fakePage, profile *config.SiteProfile) *funnel {
	strategy, err := NewStrategy(p, profile, zap.NewNop())
	if err != nil {
		panic(err)
	}
	switch s := strategy.(type) {
	case *identifierStrategy:
		return s.funnel
	case *signupSigninStrategy:
		return s.funnel
	default:
		panic("unknown strategy type")
	}
}
