package plugin

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"golang.org/x/crypto/sha3"
)

// maxSafeInteger is the largest integer a JS number holds exactly
const maxSafeInteger = 1<<53 - 1

// Runtime wraps goja VM with formatter bindings
type Runtime struct {
	vm     *goja.Runtime
	logger zerolog.Logger
}

// NewRuntime creates a new Runtime with all necessary bindings
func NewRuntime(logger zerolog.Logger) *Runtime {
	r := &Runtime{
		vm:     goja.New(),
		logger: logger,
	}
	r.setupConsole()
	r.setupUtils()
	return r
}

// VM returns the underlying goja runtime
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// setupConsole binds console.{log,debug,warn,error} to the logger
func (r *Runtime) setupConsole() {
	console := r.vm.NewObject()

	bind := func(name string, event func() *zerolog.Event) {
		console.Set(name, func(call goja.FunctionCall) goja.Value {
			args := make([]interface{}, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}
			event().Interface("args", args).Msg("plugin console")
			return goja.Undefined()
		})
	}

	bind("log", r.logger.Info)
	bind("debug", r.logger.Debug)
	bind("warn", r.logger.Warn)
	bind("error", r.logger.Error)

	r.vm.Set("console", console)
}

// setupUtils binds hex and hashing helpers
func (r *Runtime) setupUtils() {
	utils := r.vm.NewObject()

	// hexToNumber returns a number when exact, a decimal string otherwise
	utils.Set("hexToNumber", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(r.vm.NewTypeError("hexToNumber requires 1 argument"))
		}
		s := call.Arguments[0].String()
		n, ok := new(big.Int).SetString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), 16)
		if !ok || !strings.HasPrefix(strings.ToLower(s), "0x") {
			panic(r.vm.NewTypeError(fmt.Sprintf("invalid hex number: %q", s)))
		}
		if n.IsInt64() && n.Int64() <= maxSafeInteger {
			return r.vm.ToValue(n.Int64())
		}
		return r.vm.ToValue(n.String())
	})

	utils.Set("hexToBytes", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(r.vm.NewTypeError("hexToBytes requires 1 argument"))
		}
		data, err := decodeHex(call.Arguments[0].String())
		if err != nil {
			panic(r.vm.NewTypeError(err.Error()))
		}
		out := make([]interface{}, len(data))
		for i, b := range data {
			out[i] = int64(b)
		}
		return r.vm.ToValue(out)
	})

	utils.Set("bytesToHex", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(r.vm.NewTypeError("bytesToHex requires 1 argument"))
		}
		data, ok := exportBytes(call.Arguments[0].Export())
		if !ok {
			panic(r.vm.NewTypeError("bytesToHex requires byte array"))
		}
		return r.vm.ToValue("0x" + hex.EncodeToString(data))
	})

	// keccak256 hashes a 0x-prefixed hex string, a plain string or a byte array
	utils.Set("keccak256", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(r.vm.NewTypeError("keccak256 requires 1 argument"))
		}
		var data []byte
		switch v := call.Arguments[0].Export().(type) {
		case string:
			if strings.HasPrefix(v, "0x") {
				var err error
				if data, err = decodeHex(v); err != nil {
					panic(r.vm.NewTypeError(err.Error()))
				}
			} else {
				data = []byte(v)
			}
		default:
			var ok bool
			if data, ok = exportBytes(v); !ok {
				panic(r.vm.NewTypeError("keccak256 requires string or byte array"))
			}
		}

		hash := sha3.NewLegacyKeccak256()
		hash.Write(data)
		return r.vm.ToValue("0x" + hex.EncodeToString(hash.Sum(nil)))
	})

	r.vm.Set("utils", utils)
}

// RunProgram executes a compiled script in this runtime
func (r *Runtime) RunProgram(p *goja.Program) (goja.Value, error) {
	return r.vm.RunProgram(p)
}

// CallFunction calls a global JavaScript function by name
func (r *Runtime) CallFunction(name string, args ...interface{}) (goja.Value, error) {
	fn, ok := goja.AssertFunction(r.vm.Get(name))
	if !ok {
		return nil, fmt.Errorf("function %s not defined", name)
	}

	jsArgs := make([]goja.Value, len(args))
	for i, arg := range args {
		jsArgs[i] = r.vm.ToValue(arg)
	}

	return fn(goja.Undefined(), jsArgs...)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %v", err)
	}
	return data, nil
}

func exportBytes(v interface{}) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case []interface{}:
		out := make([]byte, len(b))
		for i, e := range b {
			switch n := e.(type) {
			case int64:
				out[i] = byte(n)
			case float64:
				out[i] = byte(n)
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}
