package jsonrpc

// Validator checks the shape of a single batch result
type Validator struct{}

// IsValid implements the response validator used by the batch executor
func (Validator) IsValid(resp *Response) bool {
	return IsValidResponse(resp)
}

// IsValidResponse reports whether resp is a well-formed success response:
// no error member, version 2.0, a numeric or string id and a result member.
func IsValidResponse(resp *Response) bool {
	if resp == nil {
		return false
	}
	if resp.Error != nil {
		return false
	}
	if resp.JSONRPC != Version {
		return false
	}
	if !resp.ID.IsNumber() && !resp.ID.IsString() {
		return false
	}
	return resp.HasResult()
}
