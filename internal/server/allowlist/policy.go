package allowlist

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Guard names a parameter that must be the JSON literal true for the call to pass at all.
type Guard struct {
	Index int
}

// MethodPolicy is the structural rule of one allowlisted method.
type MethodPolicy struct {
	// Params holds one type per positional parameter. Trailing parameters may be omitted.
	Params []ParamType
	Guard  *Guard
	// Exact requires exactly len(Params) parameters.
	Exact bool
}

func params(types ...ParamType) MethodPolicy {
	return MethodPolicy{Params: types}
}

func guarded(index int, types ...ParamType) MethodPolicy {
	return MethodPolicy{Params: types, Guard: &Guard{Index: index}}
}

func exact(types ...ParamType) MethodPolicy {
	return MethodPolicy{Params: types, Exact: true}
}

// check evaluates the rule in order: guard, arity, then every provided position.
func (p MethodPolicy) check(method string, ps []json.RawMessage) error {
	if p.Guard != nil {
		i := p.Guard.Index
		if i < 0 || i >= len(ps) || !isTrue(ps[i]) {
			return &DenyError{Method: method, Reason: ReasonGuard, Index: i}
		}
	}

	if len(ps) > len(p.Params) || (p.Exact && len(ps) != len(p.Params)) {
		return &DenyError{Method: method, Reason: ReasonArity, Index: len(ps)}
	}

	for k, raw := range ps {
		if !p.Params[k].Match(raw) {
			return &DenyError{Method: method, Reason: ReasonParamType, Index: k}
		}
	}
	return nil
}

// Signature renders the rule as name(types...) with its modifiers.
func (p MethodPolicy) Signature(method string) string {
	names := make([]string, len(p.Params))
	for i, t := range p.Params {
		names[i] = t.String()
	}
	s := fmt.Sprintf("%s(%s)", method, strings.Join(names, ", "))
	if p.Exact {
		s += " exact"
	}
	if p.Guard != nil {
		s += fmt.Sprintf(" guard=#%d", p.Guard.Index)
	}
	return s
}

func (p MethodPolicy) clone() MethodPolicy {
	c := MethodPolicy{Params: append([]ParamType(nil), p.Params...), Exact: p.Exact}
	if p.Guard != nil {
		g := *p.Guard
		c.Guard = &g
	}
	return c
}
