package rpc

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// ParseRequest turns a request body into an RPCRequest.
// A body that is not JSON, including one that is not UTF-8, yields a parse error. A JSON body that lacks a string
// "method" or an array "params" yields an invalid params error. Keys are matched
// exactly, unlike encoding/json struct decoding.
func ParseRequest(body []byte) (*RPCRequest, *Error) {
	// json.Valid lets invalid UTF-8 through inside strings
	if !utf8.Valid(body) || !json.Valid(body) {
		return nil, ParseError()
	}

	// anything but an object leaves fields empty and fails below
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(body, &fields)

	rawMethod, ok := fields["method"]
	if !ok || !isKind(rawMethod, '"') {
		return nil, InvalidMethod()
	}
	var method string
	if err := json.Unmarshal(rawMethod, &method); err != nil {
		return nil, InvalidMethod()
	}

	rawParams, ok := fields["params"]
	if !ok || !isKind(rawParams, '[') {
		return nil, InvalidParams()
	}
	params := []json.RawMessage{}
	if err := json.Unmarshal(rawParams, &params); err != nil {
		return nil, InvalidParams()
	}

	return &RPCRequest{Method: method, Params: params}, nil
}

func isKind(raw json.RawMessage, first byte) bool {
	v := bytes.TrimSpace(raw)
	return len(v) > 0 && v[0] == first
}
