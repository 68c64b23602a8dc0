package batcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"rpcbatch/internal/jsonrpc"
)

// Executor accumulates requests and sends them as one JSON-RPC batch
type Executor struct {
	transport Transport
	mapper    PayloadMapper
	validator ResponseValidator
	mode      DispatchMode
	logger    zerolog.Logger

	requests []*Request
	mu       sync.Mutex
}

// Option configures an Executor
type Option func(*Executor)

// WithMapper sets the payload mapper (default: a new IDMapper)
func WithMapper(m PayloadMapper) Option {
	return func(e *Executor) { e.mapper = m }
}

// WithValidator sets the response validator (default: jsonrpc.Validator)
func WithValidator(v ResponseValidator) Option {
	return func(e *Executor) { e.validator = v }
}

// WithDispatchMode sets the dispatch mode (default: DispatchSingle)
func WithDispatchMode(mode DispatchMode) Option {
	return func(e *Executor) { e.mode = mode }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor creates a new batch executor on top of transport
func NewExecutor(transport Transport, opts ...Option) *Executor {
	e := &Executor{
		transport: transport,
		mapper:    NewIDMapper(),
		validator: jsonrpc.Validator{},
		mode:      DispatchSingle,
		logger:    zerolog.Nop(),
		requests:  make([]*Request, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "batcher").Logger()
	return e
}

// Add appends a request to the pending batch
func (e *Executor) Add(req *Request) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
}

// Len returns the number of pending requests
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

// takeRequests takes all pending requests, leaving the executor empty
func (e *Executor) takeRequests() []*Request {
	e.mu.Lock()
	defer e.mu.Unlock()

	requests := e.requests
	e.requests = make([]*Request, 0)
	return requests
}

// Execute sends all pending requests as one batch and dispatches the results.
// Per-request failures go to the request callbacks only. A transport failure
// is delivered to every callback and also returned.
func (e *Executor) Execute(ctx context.Context) error {
	return e.execute(ctx, e.takeRequests())
}

// ExecuteAsync runs Execute on a new goroutine. The requests pending at the
// time of the call form the batch; the returned channel receives Execute's result.
func (e *Executor) ExecuteAsync(ctx context.Context) <-chan error {
	requests := e.takeRequests()
	done := make(chan error, 1)
	go func() {
		done <- e.execute(ctx, requests)
	}()
	return done
}

func (e *Executor) execute(ctx context.Context, requests []*Request) error {
	payload := e.mapper.ToBatchPayload(requests)

	if len(requests) == 0 {
		e.logger.Debug().Msg("empty batch, nothing to send")
		return nil
	}

	e.logger.Debug().
		Int("requests", len(requests)).
		Msg("executing batch")

	results, err := e.transport.SendBatch(ctx, payload)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Int("requests", len(requests)).
			Msg("batch transport failed")

		for i, req := range requests {
			if req.Callback != nil {
				e.invoke(i, req, newTransportFailure(i, req.MethodName(), err), nil)
			}
		}
		return fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}

	if len(results) != len(requests) {
		e.logger.Warn().
			Int("expected", len(requests)).
			Int("got", len(results)).
			Msg("batch result size mismatch")
	}

	for i, req := range requests {
		var resp *jsonrpc.Response
		if i < len(results) {
			resp = results[i]
		}
		e.dispatch(i, req, resp)
	}

	e.logger.Debug().
		Int("requests", len(requests)).
		Msg("batch completed")

	return nil
}

// dispatch classifies one result and invokes the request's callback
func (e *Executor) dispatch(index int, req *Request, resp *jsonrpc.Response) {
	if req.Callback == nil {
		return
	}
	method := req.MethodName()

	if resp.HasError() {
		e.logger.Debug().Int("index", index).Str("method", method).Msg("error response")
		e.invoke(index, req, newErrorResponse(index, method, resp), nil)
		if e.mode == DispatchSingle {
			return
		}
	}

	if !e.validator.IsValid(resp) {
		e.logger.Debug().Int("index", index).Str("method", method).Msg("invalid response")
		e.invoke(index, req, newInvalidResponse(index, method, resp), nil)
		if e.mode == DispatchSingle {
			return
		}
	}

	value, err := formatResult(req, resp)
	if err != nil {
		e.logger.Debug().Err(err).Int("index", index).Str("method", method).Msg("output formatter failed")
		e.invoke(index, req, newTransformFailure(index, method, resp, err), nil)
		return
	}
	e.invoke(index, req, nil, value)
}

// invoke calls the request's callback. A panic is logged and swallowed so
// the remaining requests of the batch are still dispatched.
func (e *Executor) invoke(index int, req *Request, err error, result interface{}) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Interface("panic", r).
				Int("index", index).
				Str("method", req.MethodName()).
				Msg("callback panicked")
		}
	}()
	req.Callback(err, result)
}

// formatResult extracts the result payload and applies the method's formatter.
// A panicking formatter is reported as an error.
func formatResult(req *Request, resp *jsonrpc.Response) (value interface{}, err error) {
	if resp == nil {
		return nil, ErrMissingResult
	}
	if !HasOutputFormatter(req) {
		return resp.Result, nil
	}

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("formatter panic: %v", r)
		}
	}()
	return req.Method.OutputFormatter(resp.Result)
}
