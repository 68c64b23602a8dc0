package batcher

import (
	"context"
	"encoding/json"
	"fmt"

	"rpcbatch/internal/jsonrpc"
)

// Callback receives the outcome of a single batched request.
// On success err is nil and result holds the formatted value.
// A panic inside a callback is logged and does not stop the batch.
type Callback func(err error, result interface{})

// OutputFormatter converts a raw result payload into the caller-facing value
type OutputFormatter func(result json.RawMessage) (interface{}, error)

// Method describes an RPC method
type Method struct {
	Name            string
	OutputFormatter OutputFormatter // optional
}

// Request represents a single call waiting in a batch
type Request struct {
	Method   *Method
	Params   json.RawMessage // encoded params, omitted when nil
	Callback Callback        // optional, nil for fire-and-forget calls
}

// NewRequest creates a request, encoding params once
func NewRequest(method *Method, params interface{}, cb Callback) (*Request, error) {
	req := &Request{
		Method:   method,
		Callback: cb,
	}

	if params != nil {
		paramsBytes, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		req.Params = paramsBytes
	}

	return req, nil
}

// MethodName returns the request's method name, or "" without a descriptor
func (r *Request) MethodName() string {
	if r.Method == nil {
		return ""
	}
	return r.Method.Name
}

// HasOutputFormatter returns true if the request's method declares a formatter
func HasOutputFormatter(req *Request) bool {
	return req != nil && req.Method != nil && req.Method.OutputFormatter != nil
}

// Transport sends one batch of requests and returns the reply entries in order.
// A non-nil error means the batch as a whole failed.
type Transport interface {
	SendBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error)
}

// PayloadMapper converts pending requests into the wire batch.
// The output must keep the input order.
type PayloadMapper interface {
	ToBatchPayload(requests []*Request) []*jsonrpc.Request
}

// ResponseValidator checks whether a single result is well-formed
type ResponseValidator interface {
	IsValid(resp *jsonrpc.Response) bool
}

// DispatchMode selects how many times a callback may be invoked for one result
type DispatchMode int

const (
	// DispatchSingle invokes each callback exactly once with the first
	// matching classification: error response, invalid response, result.
	DispatchSingle DispatchMode = iota
	// DispatchLegacy runs every classification check independently, so a
	// single result may reach the callback more than once.
	DispatchLegacy
)

// String returns the config name of the mode
func (m DispatchMode) String() string {
	switch m {
	case DispatchLegacy:
		return "legacy"
	default:
		return "single"
	}
}

// ParseDispatchMode converts a config value into a DispatchMode
func ParseDispatchMode(s string) (DispatchMode, error) {
	switch s {
	case "", "single":
		return DispatchSingle, nil
	case "legacy":
		return DispatchLegacy, nil
	default:
		return DispatchSingle, fmt.Errorf("unknown dispatch mode: %s", s)
	}
}
