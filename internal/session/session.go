// File: internal/session/session.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sevren0x/cartpilot/internal/config"
)

// Session is the phase sequencer. It owns the session state exclusively:
// phase progression, the active browsing context (through the driver), and
// the step log. Phase behavior itself lives in the SiteStrategy; the
// sequencer only decides ordering and failure policy.
type Session struct {
	id       string
	drv      PageDriver
	profile  *config.SiteProfile
	strategy SiteStrategy
	authMode AuthMode
	logger   *zap.Logger
	capture  CaptureFunc
	report   *Report
}

// Options tune a session beyond the site profile.
type Options struct {
	// AuthMode selects signup or signin for disambiguating sites. Empty
	// defaults to signin.
	AuthMode AuthMode
	// Capture receives diagnostic snapshots at phase boundaries. Nil disables
	// capture.
	Capture CaptureFunc
}

// New builds a session for the profile, selecting the site strategy from the
// profile's auth flow.
func New(drv PageDriver, profile *config.SiteProfile, logger *zap.Logger, opts Options) (*Session, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site profile %q: %w", profile.ID, err)
	}
	mode := opts.AuthMode
	switch mode {
	case "":
		mode = AuthModeSignin
	case AuthModeSignin, AuthModeSignup:
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}

	id := uuid.NewString()
	logger = logger.Named("session").With(
		zap.String("session_id", id),
		zap.String("site", profile.ID),
	)

	strategy, err := NewStrategy(drv, profile, logger)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:       id,
		drv:      drv,
		profile:  profile,
		strategy: strategy,
		authMode: mode,
		logger:   logger,
		capture:  opts.Capture,
		report: &Report{
			SessionID: id,
			Site:      profile.ID,
			AuthMode:  string(mode),
		},
	}, nil
}

// Run drives the funnel for the search term. The returned report is always
// populated, also on error; the error is non-nil only when a critical phase
// failed or the run was canceled.
func (s *Session) Run(ctx context.Context, term string) (*Report, error) {
	s.report.Query = term
	s.report.StartedAt = time.Now().UTC()
	defer func() {
		s.report.FinishedAt = time.Now().UTC()
	}()

	if err := s.runInit(ctx); err != nil {
		return s.report, err
	}

	s.runPhase(ctx, PhaseAuthenticate, func(ctx context.Context) PhaseResult {
		return s.strategy.Authenticate(ctx, s.authMode)
	})

	if s.profile.Flags.RequiresLocation {
		s.runPhase(ctx, PhaseSetLocation, s.strategy.SetLocation)
	}

	if res := s.runPhase(ctx, PhaseSearch, func(ctx context.Context) PhaseResult {
		return s.strategy.Search(ctx, term)
	}); res.Outcome != OutcomeSuccess {
		return s.abort(ctx, PhaseSearch, res)
	}

	if res := s.runPhase(ctx, PhaseAddToCart, s.strategy.AddToCart); res.Outcome != OutcomeSuccess {
		return s.abort(ctx, PhaseAddToCart, res)
	}

	// Finalize failure never revokes a confirmed cart.
	s.runPhase(ctx, PhaseFinalize, s.strategy.Finalize)

	s.report.Success = true
	s.snapshot(ctx, "run_complete")
	s.logger.Info("Run completed", zap.Int("phases", len(s.report.Phases)))
	return s.report, nil
}

// runInit creates the funnel's starting point: base URL loaded in the active
// browsing context. Failure here is fatal; nothing downstream can recover
// from a context that never came up.
func (s *Session) runInit(ctx context.Context) error {
	started := time.Now()
	s.logger.Info("Phase starting", zap.Stringer("phase", PhaseInit))
	s.snapshot(ctx, "init_entry")

	if err := s.drv.Navigate(ctx, s.profile.BaseURL); err != nil {
		res := failed("base URL load failed: " + err.Error())
		s.report.record(PhaseInit, res, started)
		s.snapshot(ctx, "init_failure")
		s.logger.Error("Initialization failed", zap.Error(err))
		return fmt.Errorf("session initialization failed: %w", err)
	}

	s.report.record(PhaseInit, succeeded("base URL loaded"), started)
	return nil
}

// runPhase executes one phase, logging and recording its outcome. Failure
// policy is the caller's: critical phases check the result, non-critical
// phases proceed regardless.
func (s *Session) runPhase(ctx context.Context, phase Phase, fn func(context.Context) PhaseResult) PhaseResult {
	started := time.Now()
	log := s.logger.With(zap.Stringer("phase", phase))
	log.Info("Phase starting")
	s.snapshot(ctx, phase.String()+"_entry")

	res := fn(ctx)
	s.report.record(phase, res, started)
	s.snapshot(ctx, phase.String()+"_exit")

	switch res.Outcome {
	case OutcomeSuccess:
		log.Info("Phase completed", zap.String("detail", res.Detail))
	case OutcomeTimeout:
		log.Warn("Phase timed out, continuing optimistically", zap.String("detail", res.Detail))
	default:
		log.Warn("Phase failed", zap.String("detail", res.Detail))
	}
	return res
}

// abort ends the run at a critical phase boundary with a final capture.
func (s *Session) abort(ctx context.Context, phase Phase, res PhaseResult) (*Report, error) {
	s.snapshot(ctx, phase.String()+"_fatal")
	s.logger.Error("Critical phase failed, aborting run",
		zap.Stringer("phase", phase), zap.String("detail", res.Detail))
	return s.report, fmt.Errorf("critical phase %s failed: %s", phase, res.Detail)
}

// snapshot is fire-and-forget; capture problems never gate control flow.
func (s *Session) snapshot(ctx context.Context, label string) {
	if s.capture != nil {
		s.capture(ctx, label)
	}
}
