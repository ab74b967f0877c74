package allowlist

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ParamType is a predicate over the JSON shape of a single positional parameter.
type ParamType uint8

const (
	Object ParamType = iota + 1
	Array
	// Integer matches a number literal without fraction or exponent that fits int64.
	// Negative zero is a float.
	Integer
	// Float matches any number literal. Whole numbers are floats too.
	Float
	// Number matches any number literal. Used where the node accepts either.
	Number
	String
	Boolean
)

func (t ParamType) String() string {
	switch t {
	case Object:
		return "obj"
	case Array:
		return "arr"
	case Integer:
		return "int"
	case Float:
		return "float"
	case Number:
		return "num"
	case String:
		return "str"
	case Boolean:
		return "bool"
	default:
		return "invalid"
	}
}

// Match reports whether raw is a single valid JSON value of shape t.
// Malformed input never matches.
func (t ParamType) Match(raw json.RawMessage) bool {
	v, ok := literal(raw)
	if !ok {
		return false
	}
	switch t {
	case Object:
		return v[0] == '{'
	case Array:
		return v[0] == '['
	case String:
		return v[0] == '"'
	case Boolean:
		return v == "true" || v == "false"
	case Float, Number:
		return isNumber(v)
	case Integer:
		return isInteger(v)
	default:
		return false
	}
}

// isTrue reports whether raw is exactly the JSON literal true.
func isTrue(raw json.RawMessage) bool {
	v, ok := literal(raw)
	return ok && v == "true"
}

// literal validates raw and returns it with surrounding whitespace removed.
func literal(raw json.RawMessage) (string, bool) {
	if !json.Valid(raw) {
		return "", false
	}
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return "", false
	}
	return string(v), true
}

// IsInteger reports whether raw is a JSON number matching Integer.
func IsInteger(raw json.RawMessage) bool {
	v, ok := literal(raw)
	return ok && isInteger(v)
}

func isInteger(v string) bool {
	if !isNumber(v) || strings.ContainsAny(v, ".eE") || v == "-0" {
		return false
	}
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}

// isNumber expects an already validated JSON value.
func isNumber(v string) bool {
	return v[0] == '-' || (v[0] >= '0' && v[0] <= '9')
}
