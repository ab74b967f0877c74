package rpc

import "fmt"

const (
	ErrParseError  = -32700
	ErrParseErrorS = "Parse error"

	ErrMethodNotFound  = -32601
	ErrMethodNotFoundS = "Method not found"

	ErrInvalidParams       = -32602
	ErrInvalidMethodParamS = "Invalid method parameter"
	ErrInvalidParamsParamS = "Invalid params parameter"

	ErrInternalError  = -32603
	ErrInternalErrorS = "Internal error"
)

// Error is the error object of a response. Backend errors are relayed in the same shape.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func ParseError() *Error {
	return &Error{Code: ErrParseError, Message: ErrParseErrorS}
}

func MethodNotAllowed() *Error {
	return &Error{Code: ErrMethodNotFound, Message: ErrMethodNotFoundS}
}

func InvalidMethod() *Error {
	return &Error{Code: ErrInvalidParams, Message: ErrInvalidMethodParamS}
}

func InvalidParams() *Error {
	return &Error{Code: ErrInvalidParams, Message: ErrInvalidParamsParamS}
}

func InternalError() *Error {
	return &Error{Code: ErrInternalError, Message: ErrInternalErrorS}
}
