package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"rpcbatch/internal/batcher"
	"rpcbatch/internal/config"
	"rpcbatch/internal/methods"
	"rpcbatch/internal/plugin"
	"rpcbatch/internal/upstream"
)

// call is one METHOD[=PARAMS_JSON] argument
type call struct {
	Method string
	Params json.RawMessage
}

// params returns the call params for batcher.NewRequest, nil when omitted
func (c call) params() interface{} {
	if c.Params == nil {
		return nil
	}
	return c.Params
}

// parseCalls parses METHOD[=PARAMS_JSON] arguments
func parseCalls(args []string) ([]call, error) {
	calls := make([]call, 0, len(args))
	for _, arg := range args {
		method, params, hasParams := strings.Cut(arg, "=")
		method = strings.TrimSpace(method)
		if method == "" {
			return nil, fmt.Errorf("invalid call %q: method is empty", arg)
		}

		c := call{Method: method}
		if hasParams {
			params = strings.TrimSpace(params)
			if !json.Valid([]byte(params)) {
				return nil, fmt.Errorf("invalid call %q: params are not valid JSON", arg)
			}
			if !strings.HasPrefix(params, "[") && !strings.HasPrefix(params, "{") {
				return nil, fmt.Errorf("invalid call %q: params must be a JSON array or object", arg)
			}
			c.Params = json.RawMessage(params)
		}
		calls = append(calls, c)
	}
	return calls, nil
}

// output is one printed line
type output struct {
	Index  int             `json:"index"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   *int            `json:"code,omitempty"`
}

func newOutput(index int, method string, err error, result interface{}) output {
	o := output{Index: index, Method: method}
	if err != nil {
		o.Error = err.Error()
		var be *batcher.Error
		if errors.As(err, &be) && be.Response != nil && be.Response.Error != nil {
			code := be.Response.Error.Code
			o.Code = &code
		}
		return o
	}

	data, mErr := json.Marshal(result)
	if mErr != nil {
		o.Error = fmt.Sprintf("failed to encode result: %v", mErr)
		return o
	}
	o.Result = data
	return o
}

// run executes calls as one batch and writes one line per callback invocation
func run(ctx context.Context, cfg *config.Config, calls []call, out io.Writer, logger zerolog.Logger) error {
	registry := methods.NewDefaultRegistry()

	if cfg.IsPluginsEnabled() {
		pm := plugin.NewManager(logger)
		pm.SetTimeout(cfg.GetPluginTimeoutDuration())
		if err := pm.LoadFromDirectory(cfg.GetPluginDirectory()); err != nil {
			return fmt.Errorf("load plugins: %w", err)
		}
		defer pm.Close()
		pm.RegisterInto(registry)
	}

	transport, err := upstream.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	defer transport.Close()

	mode, err := batcher.ParseDispatchMode(cfg.DispatchMode)
	if err != nil {
		return err
	}

	exec := batcher.NewExecutor(transport,
		batcher.WithDispatchMode(mode),
		batcher.WithLogger(logger),
	)

	outputs := make([][]output, len(calls))
	for i, c := range calls {
		i, c := i, c // per-iteration copies (go 1.21 loop semantics)
		req, err := batcher.NewRequest(registry.Get(c.Method), c.params(), func(err error, result interface{}) {
			outputs[i] = append(outputs[i], newOutput(i, c.Method, err, result))
		})
		if err != nil {
			return fmt.Errorf("call %d (%s): %w", i, c.Method, err)
		}
		exec.Add(req)
	}

	execErr := exec.Execute(ctx)

	enc := json.NewEncoder(out)
	for _, lines := range outputs {
		for _, line := range lines {
			if err := enc.Encode(line); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
	}

	return execErr
}
