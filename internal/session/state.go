// File: internal/session/state.go
package session

import (
	"context"
	"time"
)

// Phase is a named stage of the checkout funnel with defined entry and exit
// conditions. Phases run strictly in order; SetLocation is conditional on the
// site profile.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseAuthenticate
	PhaseSetLocation
	PhaseSearch
	PhaseAddToCart
	PhaseFinalize
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseAuthenticate:
		return "authenticate"
	case PhaseSetLocation:
		return "set_location"
	case PhaseSearch:
		return "search"
	case PhaseAddToCart:
		return "add_to_cart"
	case PhaseFinalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of a phase.
type Outcome int

const (
	// OutcomeSuccess means the phase's exit condition was confirmed.
	OutcomeSuccess Outcome = iota
	// OutcomeTimeout means a bounded wait expired without confirmation. For
	// non-critical phases the run proceeds optimistically.
	OutcomeTimeout
	// OutcomeFailed means all fallback strategies were exhausted.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "failure"
	}
}

// PhaseResult carries a phase's outcome plus a human-readable detail for the
// step log and the run report.
type PhaseResult struct {
	Outcome Outcome
	Detail  string
}

func succeeded(detail string) PhaseResult { return PhaseResult{Outcome: OutcomeSuccess, Detail: detail} }
func timedOut(detail string) PhaseResult  { return PhaseResult{Outcome: OutcomeTimeout, Detail: detail} }
func failed(detail string) PhaseResult    { return PhaseResult{Outcome: OutcomeFailed, Detail: detail} }

// AuthMode selects which form a signup/signin-disambiguating site is asked
// for first.
type AuthMode string

const (
	AuthModeSignin AuthMode = "signin"
	AuthModeSignup AuthMode = "signup"
)

// Subscription is a one-shot future for a spawned browsing context. It
// resolves at most once; Await bounds the wait and Cancel tears the
// registration down so a stale listener cannot fire later.
type Subscription interface {
	Await(ctx context.Context, timeout time.Duration) (string, error)
	Cancel()
}

// CaptureFunc persists a diagnostic snapshot under a human-readable label.
// Implementations must never let a capture failure reach the caller.
type CaptureFunc func(ctx context.Context, label string)
