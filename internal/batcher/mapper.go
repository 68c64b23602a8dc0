package batcher

import (
	"encoding/json"
	"sync/atomic"

	"rpcbatch/internal/jsonrpc"
)

// IDMapper builds JSON-RPC 2.0 batch payloads with increasing numeric ids
type IDMapper struct {
	nextID atomic.Int64
}

// NewIDMapper creates a mapper whose first id is 1
func NewIDMapper() *IDMapper {
	return &IDMapper{}
}

// ToBatchPayload converts requests into wire requests, keeping their order
func (m *IDMapper) ToBatchPayload(requests []*Request) []*jsonrpc.Request {
	payload := make([]*jsonrpc.Request, 0, len(requests))
	for _, req := range requests {
		wireReq := &jsonrpc.Request{
			JSONRPC: jsonrpc.Version,
			Method:  req.MethodName(),
			ID:      jsonrpc.NewIDInt(m.nextID.Add(1)),
		}
		if req.Params != nil {
			wireReq.Params = make(json.RawMessage, len(req.Params))
			copy(wireReq.Params, req.Params)
		}
		payload = append(payload, wireReq)
	}
	return payload
}
