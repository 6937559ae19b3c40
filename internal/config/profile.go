// File: internal/config/profile.go
package config

import (
	"fmt"
	"time"
)

// Logical selector names a SiteProfile is expected to provide. Each maps to an
// ordered fallback list of selectors; the first that resolves to a visible
// element wins. Not every site needs every name -- strategies probe before
// acting -- but base_url and the search selectors are mandatory.
// Underscore form throughout; viper splits dotted keys into nested maps.
const (
	SelAuthEntry         = "auth_entry"         // control that opens the sign-in surface
	SelAuthIdentifier    = "auth_identifier"    // email/phone input
	SelAuthSubmit        = "auth_submit"        // submit for the identifier form
	SelAuthSignupToggle  = "auth_signup_toggle" // switch to the account-creation form
	SelAuthSigninToggle  = "auth_signin_toggle" // switch to the sign-in form
	SelAuthTakenNotice   = "auth_taken_notice"  // "identifier already registered" signal
	SelOTPDialog         = "otp_dialog"         // OTP challenge container/labelled text
	SelOTPInputs         = "otp_inputs"         // the single-character code inputs
	SelAccountArea       = "account_area"       // positive authenticated signal
	SelLocationInput     = "location_input"     // address/zip entry
	SelLocationSubmit    = "location_submit"    // confirm location
	SelLocationDismiss   = "location_dismiss"   // optional modal dismissal
	SelSearchInput       = "search_input"       // search box
	SelSearchResults     = "search_results"     // rendered results confirmation
	SelProductOpen       = "product_open"       // first product tile / detail opener
	SelCartAdd           = "cart_add"           // add-to-cart control
	SelCartCount         = "cart_count"         // monitored cart counter
	SelCartOpen          = "cart_open"          // open cart/checkout view
	SelCustomizeContinue = "customize_continue" // wizard primary continue control
	SelCustomizeSubmit   = "customize_submit"   // wizard terminal add/submit control
	SelCustomizeOptions  = "customize_options"  // unselected choice controls
)

// SiteProfile is the per-site configuration consumed read-only by a run:
// selector fallback lists, timing budgets, feature flags and credentials.
type SiteProfile struct {
	ID          string              `mapstructure:"-" yaml:"-"`
	BaseURL     string              `mapstructure:"base_url" yaml:"base_url"`
	AuthFlow    string              `mapstructure:"auth_flow" yaml:"auth_flow"`
	Selectors   map[string][]string `mapstructure:"selectors" yaml:"selectors"`
	Timing      TimingConfig        `mapstructure:"timing" yaml:"timing"`
	Flags       FeatureFlags        `mapstructure:"flags" yaml:"flags"`
	Credentials Credentials         `mapstructure:"credentials" yaml:"credentials"`
}

// Auth flow identifiers. "identifier" is the single-field flow; "signup_signin"
// is the disambiguating flow that may pivot once from signup to signin.
const (
	AuthFlowIdentifier   = "identifier"
	AuthFlowSignupSignin = "signup_signin"
)

// TimingConfig holds the per-site timing budgets, all bounded waits.
type TimingConfig struct {
	PageLoad     time.Duration `mapstructure:"page_load" yaml:"page_load"`
	ElementWait  time.Duration `mapstructure:"element_wait" yaml:"element_wait"`
	Settle       time.Duration `mapstructure:"settle" yaml:"settle"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	OTPAppear    time.Duration `mapstructure:"otp_appear" yaml:"otp_appear"`
	OTPResolve   time.Duration `mapstructure:"otp_resolve" yaml:"otp_resolve"`
	Handoff      time.Duration `mapstructure:"handoff" yaml:"handoff"`
}

// FeatureFlags describe which optional funnel phases a site requires.
type FeatureFlags struct {
	RequiresLocation bool `mapstructure:"requires_location" yaml:"requires_location"`
	HasCustomization bool `mapstructure:"has_customization" yaml:"has_customization"`
	// DetailOpensNewContext marks sites where opening a product spawns a new
	// browsing context that must become the active target.
	DetailOpensNewContext bool `mapstructure:"detail_opens_new_context" yaml:"detail_opens_new_context"`
}

// Credentials are used verbatim as input text, never transformed.
type Credentials struct {
	Identifier string `mapstructure:"identifier" yaml:"identifier"`
	Location   string `mapstructure:"location" yaml:"location"`
}

// Query returns the ordered selector fallback list for a logical name.
// An unknown name yields an empty list; callers treat that as a probe miss.
func (p *SiteProfile) Query(name string) []string {
	return p.Selectors[name]
}

// Validate checks the profile for the fields every run depends on.
func (p *SiteProfile) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	switch p.AuthFlow {
	case "", AuthFlowIdentifier, AuthFlowSignupSignin:
	default:
		return fmt.Errorf("auth_flow must be %q or %q, got %q", AuthFlowIdentifier, AuthFlowSignupSignin, p.AuthFlow)
	}
	for name, selectors := range p.Selectors {
		if len(selectors) == 0 {
			return fmt.Errorf("selector list %q is empty", name)
		}
	}
	return nil
}

// WithTimingDefaults returns a copy of the timing budgets with zero values
// replaced by conservative defaults.
func (t TimingConfig) WithTimingDefaults() TimingConfig {
	out := t
	if out.PageLoad <= 0 {
		out.PageLoad = 30 * time.Second
	}
	if out.ElementWait <= 0 {
		out.ElementWait = 10 * time.Second
	}
	if out.Settle <= 0 {
		out.Settle = 500 * time.Millisecond
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 500 * time.Millisecond
	}
	if out.OTPAppear <= 0 {
		out.OTPAppear = 30 * time.Second
	}
	if out.OTPResolve <= 0 {
		out.OTPResolve = 60 * time.Second
	}
	if out.Handoff <= 0 {
		out.Handoff = 15 * time.Second
	}
	return out
}
