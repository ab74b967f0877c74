// Package rpc holds the envelope the gateway speaks with its callers:
// {"method": string, "params": [...]} in, {"result": ...} or {"error": {...}} out.
package rpc

import "encoding/json"

// RPCRequest is a parsed call. Params keep the caller's original bytes.
type RPCRequest struct {
	Method string
	Params []json.RawMessage
}

type RPCResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}
