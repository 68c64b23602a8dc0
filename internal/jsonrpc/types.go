package jsonrpc

import (
	"bytes"
	"encoding/json"
)

// Version is the JSON-RPC version
const Version = "2.0"

// ID represents a JSON-RPC request/response ID
// It can be a string, number, or null
type ID struct {
	value interface{}
}

// NewIDInt creates an ID from an integer
func NewIDInt(n int64) ID {
	return ID{value: n}
}

// IsNumber returns true if the ID holds a numeric value
func (id ID) IsNumber() bool {
	switch id.value.(type) {
	case int64, float64, json.Number:
		return true
	default:
		return false
	}
}

// IsString returns true if the ID holds a string value
func (id ID) IsString() bool {
	_, ok := id.value.(string)
	return ok
}

// Value returns the underlying value
func (id ID) Value() interface{} {
	return id.value
}

// Equal reports whether both IDs encode to the same JSON value.
// A decoded 2 (float64) equals a locally built 2 (int64).
func (id ID) Equal(other ID) bool {
	a, errA := json.Marshal(id.value)
	b, errB := json.Marshal(other.value)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// MarshalJSON implements json.Marshaler
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &id.value)
}

// Error represents a JSON-RPC error
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}
