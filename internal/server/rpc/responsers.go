package rpc

import "encoding/json"

var null = json.RawMessage("null")

func NewError(err *Error) *RPCResponse {
	if err == nil {
		err = InternalError()
	}
	return &RPCResponse{Error: err}
}

// NewResponse wraps a backend result. An empty result is reported as null.
func NewResponse(result json.RawMessage) *RPCResponse {
	if len(result) == 0 {
		result = null
	}
	return &RPCResponse{Result: result}
}
