// File: internal/interact/predicate.go
package interact

import (
	"fmt"
	"strconv"
	"strings"
)

// Predicate is a typed condition over live document state. Each predicate
// compiles to a self-contained boolean JavaScript expression, so conditions
// are unit-testable without a live page and composable with And/Or/Not.
type Predicate interface {
	// JS returns the compiled boolean expression.
	JS() string
	// String returns a human-readable description for logs.
	String() string
}

type elementPresent struct{ selector string }

// ElementPresent holds when the selector resolves to at least one visible
// element (non-zero layout box).
func ElementPresent(selector string) Predicate {
	return elementPresent{selector: selector}
}

func (p elementPresent) JS() string {
	return fmt.Sprintf(
		`(function(){for(const e of document.querySelectorAll(%s)){if(e.offsetWidth||e.offsetHeight||e.getClientRects().length)return true;}return false;})()`,
		strconv.Quote(p.selector))
}

func (p elementPresent) String() string {
	return fmt.Sprintf("present(%s)", p.selector)
}

type labelMatch struct {
	selector string
	pattern  string
}

// LabelMatch holds when any element matching the selector has visible text
// matching the case-insensitive pattern.
func LabelMatch(selector, pattern string) Predicate {
	return labelMatch{selector: selector, pattern: pattern}
}

func (p labelMatch) JS() string {
	return fmt.Sprintf(
		`(function(){const re=new RegExp(%s,"i");for(const e of document.querySelectorAll(%s)){if(re.test(e.innerText||e.textContent||""))return true;}return false;})()`,
		strconv.Quote(p.pattern), strconv.Quote(p.selector))
}

func (p labelMatch) String() string {
	return fmt.Sprintf("label(%s ~ /%s/)", p.selector, p.pattern)
}

type attrMatch struct {
	selector string
	attr     string
	pattern  string
}

// AttrMatch holds when any element matching the selector carries an attribute
// whose value matches the case-insensitive pattern.
func AttrMatch(selector, attr, pattern string) Predicate {
	return attrMatch{selector: selector, attr: attr, pattern: pattern}
}

func (p attrMatch) JS() string {
	return fmt.Sprintf(
		`(function(){const re=new RegExp(%s,"i");for(const e of document.querySelectorAll(%s)){const v=e.getAttribute(%s);if(v!==null&&re.test(v))return true;}return false;})()`,
		strconv.Quote(p.pattern), strconv.Quote(p.selector), strconv.Quote(p.attr))
}

func (p attrMatch) String() string {
	return fmt.Sprintf("attr(%s[%s] ~ /%s/)", p.selector, p.attr, p.pattern)
}

type countRange struct {
	selector string
	min, max int
}

// CountRange holds when the number of elements matching the selector is within
// [min, max] inclusive. Used, e.g., to recognize a cluster of 4-6
// single-character OTP inputs.
func CountRange(selector string, min, max int) Predicate {
	return countRange{selector: selector, min: min, max: max}
}

func (p countRange) JS() string {
	return fmt.Sprintf(
		`(function(){const n=document.querySelectorAll(%s).length;return n>=%d&&n<=%d;})()`,
		strconv.Quote(p.selector), p.min, p.max)
}

func (p countRange) String() string {
	return fmt.Sprintf("count(%s in [%d,%d])", p.selector, p.min, p.max)
}

type numberAtLeast struct {
	selector string
	min      int
}

// NumberAtLeast holds when the first matching element's text parses to a
// number greater than or equal to min. Used to detect a monitored counter
// increasing past a previously observed value.
func NumberAtLeast(selector string, min int) Predicate {
	return numberAtLeast{selector: selector, min: min}
}

func (p numberAtLeast) JS() string {
	return fmt.Sprintf(
		`(function(){const e=document.querySelector(%s);if(!e)return false;const n=parseInt((e.textContent||'').replace(/[^0-9]/g,''),10);return !isNaN(n)&&n>=%d;})()`,
		strconv.Quote(p.selector), p.min)
}

func (p numberAtLeast) String() string {
	return fmt.Sprintf("number(%s >= %d)", p.selector, p.min)
}

type boolCombinator struct {
	op    string
	parts []Predicate
}

// And holds when all parts hold.
func And(parts ...Predicate) Predicate { return boolCombinator{op: "&&", parts: parts} }

// Or holds when any part holds.
func Or(parts ...Predicate) Predicate { return boolCombinator{op: "||", parts: parts} }

func (p boolCombinator) JS() string {
	if len(p.parts) == 0 {
		// An empty conjunction is vacuously true, an empty disjunction false.
		if p.op == "&&" {
			return "true"
		}
		return "false"
	}
	compiled := make([]string, len(p.parts))
	for i, part := range p.parts {
		compiled[i] = "(" + part.JS() + ")"
	}
	return strings.Join(compiled, p.op)
}

func (p boolCombinator) String() string {
	names := make([]string, len(p.parts))
	for i, part := range p.parts {
		names[i] = part.String()
	}
	sep := " and "
	if p.op == "||" {
		sep = " or "
	}
	return "(" + strings.Join(names, sep) + ")"
}

type negation struct{ inner Predicate }

// Not inverts a predicate.
func Not(inner Predicate) Predicate { return negation{inner: inner} }

func (p negation) JS() string     { return "!(" + p.inner.JS() + ")" }
func (p negation) String() string { return "not " + p.inner.String() }
