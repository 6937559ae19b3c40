// File: internal/interact/query.go
package interact

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyQuery indicates a programmer error: an interaction primitive was
// invoked with no candidate selectors at all.
var ErrEmptyQuery = errors.New("element query contains no selectors")

// ElementQuery is an ordered fallback list of selector strings naming the same
// logical UI target. Selectors are tried in order, first success wins, so the
// most specific candidate belongs first.
type ElementQuery []string

// ActionOutcome reports how a resilient action went. A missing element is a
// normal outcome, not a fault; callers that require the element must check
// Success themselves.
type ActionOutcome struct {
	Success   bool
	Attempts  int
	LastError string
}

// failure builds an unsuccessful outcome after attempts passes.
func failure(attempts int, err error) ActionOutcome {
	out := ActionOutcome{Attempts: attempts}
	if err != nil {
		out.LastError = err.Error()
	}
	return out
}

// NotFoundError reports that none of a query's candidate selectors resolved to
// a visible element within the budget. It lists every selector attempted.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no visible element for any of [%s]", strings.Join(e.Tried, ", "))
}
