package plugin

import (
	"time"

	"github.com/dop251/goja"
)

// Plugin represents a loaded JavaScript output formatter
type Plugin struct {
	Name    string        // plugin name (filename without extension)
	Method  string        // RPC method whose results this plugin formats
	File    string        // source file path
	program *goja.Program // compiled script, shared across runtimes
}

// formatFunction is the global every plugin must define
const formatFunction = "format"

// DefaultExecutionTimeout is the default timeout for a single format call
const DefaultExecutionTimeout = time.Second

// interruptTimeout is the value passed to vm.Interrupt when a call runs too long
const interruptTimeout = "execution timed out"
