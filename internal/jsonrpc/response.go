package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Response represents a JSON-RPC response
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      ID              `json:"id"`
}

// HasError returns true if the response contains an error
func (r *Response) HasError() bool {
	return r != nil && r.Error != nil
}

// HasResult returns true if the response carries a result member.
// An explicit JSON null counts as present.
func (r *Response) HasResult() bool {
	return r != nil && r.Result != nil
}

// ResultIsNull returns true if the response result is JSON null
func (r *Response) ResultIsNull() bool {
	if r == nil {
		return true
	}
	if len(r.Result) == 0 {
		return true
	}
	return bytes.Equal(r.Result, []byte("null"))
}

// NewResponseRaw creates a response with raw JSON result
func NewResponseRaw(id ID, result json.RawMessage) *Response {
	return &Response{
		JSONRPC: Version,
		Result:  result,
		ID:      id,
	}
}

// ParseResponse parses a JSON-RPC response from bytes
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ParseBatchResults parses the reply to a batch request.
// An array yields one entry per element; elements that are not JSON objects
// become nil so their position is kept. A single object (a server that
// rejected the whole batch) is returned as a one-element slice.
func ParseBatchResults(data []byte) ([]*Response, error) {
	data = trimWhitespace(data)
	if len(data) == 0 {
		return nil, errors.New("empty batch response")
	}

	if data[0] != '[' {
		resp, err := ParseResponse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return []*Response{resp}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	responses := make([]*Response, len(raw))
	for i, item := range raw {
		item = trimWhitespace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		resp, err := ParseResponse(item)
		if err != nil {
			continue
		}
		responses[i] = resp
	}
	return responses, nil
}

// MarshalBatchResponse marshals multiple responses as a JSON array
func MarshalBatchResponse(responses []*Response) ([]byte, error) {
	return json.Marshal(responses)
}
