// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sevren0x/cartpilot/internal/config"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Manager handles the lifecycle of the browser process. All session tab
// contexts are derived from its allocator context.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
}

// NewManager launches the browser process and verifies it is responsive.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser"),
		cfg:    cfg,
	}
	if err := m.launch(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

// launch prepares allocator options and starts the browser process.
func (m *Manager) launch(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...")

	opts := buildAllocatorOptions(m.cfg)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Confirm the browser starts and responds before any phase runs.
	testCtx, cancelTest := context.WithTimeout(allocCtx, 30*time.Second)
	testCtx, cancelTestCtx := chromedp.NewContext(testCtx)
	defer cancelTestCtx()
	defer cancelTest()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched and responsive.")
	return nil
}

// browserFlags computes the chrome flag set for the given config. Notably it
// never sets enable-automation, which would flag the session as driven.
func browserFlags(cfg config.BrowserConfig) map[string]any {
	flags := map[string]any{
		"headless":                  cfg.Headless,
		"ignore-certificate-errors": cfg.IgnoreTLSErrors,
		// navigator.webdriver gives the automation away otherwise.
		"disable-blink-features":        "AutomationControlled",
		"disable-extensions":            true,
		"disable-infobars":              true,
		"disable-popup-blocking":        true,
		"disable-background-networking": true,
		"disable-default-apps":          true,
		"disable-sync":                  true,
		"mute-audio":                    true,
		"disable-gpu":                   cfg.Headless,
	}

	// Custom arguments from the config file.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}

	// Flags required for running inside containers.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}

	return flags
}

// buildAllocatorOptions assembles allocator options for a configurable
// browser instance.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	width, height := cfg.WindowWidth, cfg.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = 1400, 900
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.WindowSize(width, height),
		chromedp.UserAgent(userAgent),
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	for name, value := range browserFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// NewDriver creates a fresh tab context and wraps it in a Driver.
func (m *Manager) NewDriver(navTimeout time.Duration) (*Driver, error) {
	tabCtx, cancel := chromedp.NewContext(m.allocatorCtx)

	// Materialize the tab so the first phase doesn't pay for target creation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create browsing context: %w", err)
	}

	return newDriver(tabCtx, cancel, m.logger, navTimeout), nil
}

// Shutdown terminates the browser process.
func (m *Manager) Shutdown() {
	m.logger.Info("Browser manager shutting down.")
	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}
}
