// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sevren0x/cartpilot/internal/browser"
	"github.com/sevren0x/cartpilot/internal/config"
	"github.com/sevren0x/cartpilot/internal/observability"
	"github.com/sevren0x/cartpilot/internal/session"
)

// newRunCommand wires the full stack for one funnel run: browser process,
// tab driver, capture sink, session. The config getter is resolved after
// PersistentPreRunE has populated it.
func newRunCommand(getConfig func() *config.Config) *cobra.Command {
	var authMode string
	var reportFile string

	runCmd := &cobra.Command{
		Use:   "run <site> <search-term>",
		Short: "Drive the checkout funnel on a configured site.",
		Long: `Runs the full funnel against the named site profile: authenticate,
set location when the site requires one, search for the term, customize when
the product needs it, add to cart and open the cart view.

The one-time authentication code, when the site challenges, is entered by a
human in the driven browser window; the run waits for the challenge to
resolve.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			if cfg == nil {
				return fmt.Errorf("configuration not initialized")
			}
			if reportFile == "" {
				reportFile = cfg.Run.ReportFile
			}
			return runFunnel(cmd.Context(), cfg, args[0], args[1], session.AuthMode(authMode), reportFile)
		},
	}

	runCmd.Flags().StringVar(&authMode, "auth-mode", "",
		"auth mode for signup/signin sites: signin or signup (default signin)")
	runCmd.Flags().StringVar(&reportFile, "report", "",
		"path for the run report JSON (overrides run.report_file)")

	return runCmd
}

func runFunnel(ctx context.Context, cfg *config.Config, siteID, term string, mode session.AuthMode, reportFile string) error {
	logger := observability.GetLogger()

	profile, err := cfg.Profile(siteID)
	if err != nil {
		return err
	}

	manager, err := browser.NewManager(ctx, logger, cfg.Browser)
	if err != nil {
		return err
	}
	defer manager.Shutdown()

	drv, err := manager.NewDriver(cfg.Run.NavigationTimeout)
	if err != nil {
		return err
	}
	defer drv.Close()

	sink := browser.NewCaptureSink(logger, cfg.Run.CaptureDir)
	defer sink.Close()

	sess, err := session.New(pageDriver{drv}, profile, logger, session.Options{
		AuthMode: mode,
		Capture: func(ctx context.Context, label string) {
			sink.Capture(ctx, drv, label)
		},
	})
	if err != nil {
		return err
	}

	report, runErr := sess.Run(ctx, term)
	if err := report.Write(reportFile); err != nil {
		logger.Warn("Run report not written", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	logger.Info("Run succeeded",
		zap.String("site", siteID), zap.String("term", term))
	return nil
}

// pageDriver adapts the concrete browser driver to the session's capability
// surface; the subscription types differ only nominally.
type pageDriver struct {
	*browser.Driver
}

func (p pageDriver) SubscribeNewTarget() session.Subscription {
	return p.Driver.SubscribeNewTarget()
}
