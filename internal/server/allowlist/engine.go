// Package allowlist decides which node RPC calls an untrusted caller may make.
//
// The decision is closed-world: a method must appear in the table, and its
// positional parameters must match the declared JSON shapes. Values are never
// interpreted beyond their shape, except for guard parameters which must be the
// literal true. Malformed parameters deny the call, they never fault.
package allowlist

import (
	"encoding/json"
	"fmt"
	"sort"
)

type DenyReason string

const (
	ReasonUnknownMethod DenyReason = "unknown_method"
	ReasonGuard         DenyReason = "guard"
	ReasonArity         DenyReason = "arity"
	ReasonParamType     DenyReason = "param_type"
)

// DenyError explains a denial. It is meant for logs and audit only; callers of
// the gateway see the same error for every reason.
type DenyError struct {
	Method string
	Reason DenyReason
	// Index is the offending position, or the provided count for arity denials.
	Index int
}

func (e *DenyError) Error() string {
	switch e.Reason {
	case ReasonUnknownMethod:
		return fmt.Sprintf("method %q is not allowlisted", e.Method)
	case ReasonGuard:
		return fmt.Sprintf("method %q: confirmation parameter #%d is not true", e.Method, e.Index)
	case ReasonArity:
		return fmt.Sprintf("method %q: %d parameters do not fit the policy", e.Method, e.Index)
	default:
		return fmt.Sprintf("method %q: parameter #%d has the wrong shape", e.Method, e.Index)
	}
}

// Table maps method names to their rules.
type Table map[string]MethodPolicy

// Check returns nil when the call is allowed, a *DenyError otherwise.
func (t Table) Check(method string, params []json.RawMessage) error {
	p, ok := t[method]
	if !ok {
		return &DenyError{Method: method, Reason: ReasonUnknownMethod, Index: -1}
	}
	return p.check(method, params)
}

func (t Table) Evaluate(method string, params []json.RawMessage) bool {
	return t.Check(method, params) == nil
}

// Lookup returns a copy of the rule for method.
func (t Table) Lookup(method string) (MethodPolicy, bool) {
	p, ok := t[method]
	if !ok {
		return MethodPolicy{}, false
	}
	return p.clone(), true
}

// Methods returns the sorted method names of the table.
func (t Table) Methods() []string {
	out := make([]string, 0, len(t))
	for m := range t {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Check evaluates a call against the built-in node allowlist.
func Check(method string, params []json.RawMessage) error {
	return defaultTable.Check(method, params)
}

// Evaluate is Check reduced to allow/deny.
func Evaluate(method string, params []json.RawMessage) bool {
	return defaultTable.Evaluate(method, params)
}

func Lookup(method string) (MethodPolicy, bool) {
	return defaultTable.Lookup(method)
}

func Methods() []string {
	return defaultTable.Methods()
}

// Has reports whether method is allowlisted at all.
func Has(method string) bool {
	_, ok := defaultTable[method]
	return ok
}
