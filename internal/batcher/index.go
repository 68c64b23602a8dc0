// Package batcher sends many JSON-RPC calls to an upstream in one round-trip.
//
// Requests are accumulated on an Executor and sent as a single JSON-RPC batch
// when Execute is called. The reply array is paired with the pending requests
// by position, every result is classified and each request's callback is
// invoked with either an error or the (optionally formatted) result.
//
// Example:
//
//	exec := batcher.NewExecutor(transport, batcher.WithLogger(logger))
//	req, _ := batcher.NewRequest(registry.Get("eth_blockNumber"), nil, func(err error, result interface{}) {
//	    // ...
//	})
//	exec.Add(req)
//	if err := exec.Execute(ctx); err != nil {
//	    // the whole batch failed; every callback already received the error
//	}
package batcher
