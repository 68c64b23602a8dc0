package batcher

import (
	"encoding/json"
	"errors"
	"fmt"

	"rpcbatch/internal/jsonrpc"
)

// Error kinds delivered to callbacks
var (
	ErrTransportFailure = errors.New("batch transport failure")
	ErrErrorResponse    = errors.New("error response")
	ErrInvalidResponse  = errors.New("invalid response")
	ErrTransformFailure = errors.New("output formatter failed")
	ErrMissingResult    = errors.New("result is missing")
)

// Error is the error passed to a request's callback.
// It matches its Kind and its cause with errors.Is / errors.As.
type Error struct {
	Kind     error
	Index    int
	Method   string
	Response *jsonrpc.Response
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch e.Kind {
	case ErrErrorResponse:
		msg := ""
		if e.Response != nil && e.Response.Error != nil {
			msg = e.Response.Error.Message
		}
		return "Returned error: " + msg
	case ErrInvalidResponse:
		return "Invalid JSON RPC response: " + describeResponse(e.Response)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the underlying cause
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newErrorResponse(index int, method string, resp *jsonrpc.Response) *Error {
	e := &Error{Kind: ErrErrorResponse, Index: index, Method: method, Response: resp}
	if resp != nil && resp.Error != nil {
		e.Err = resp.Error
	}
	return e
}

func newInvalidResponse(index int, method string, resp *jsonrpc.Response) *Error {
	return &Error{Kind: ErrInvalidResponse, Index: index, Method: method, Response: resp}
}

func newTransformFailure(index int, method string, resp *jsonrpc.Response, err error) *Error {
	return &Error{Kind: ErrTransformFailure, Index: index, Method: method, Response: resp, Err: err}
}

func newTransportFailure(index int, method string, err error) *Error {
	return &Error{Kind: ErrTransportFailure, Index: index, Method: method, Err: err}
}

// describeResponse renders a result for error messages
func describeResponse(resp *jsonrpc.Response) string {
	if resp == nil {
		return "null"
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf("%+v", *resp)
	}
	return string(data)
}
