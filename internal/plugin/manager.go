package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"rpcbatch/internal/batcher"
	"rpcbatch/internal/methods"
)

// methodDirectiveRegex matches @method directive in comments
var methodDirectiveRegex = regexp.MustCompile(`(?m)^//\s*@method\s+(\S+)`)

// Manager loads JavaScript formatters and exposes them as output formatters
type Manager struct {
	plugins map[string]*Plugin // method -> plugin
	logger  zerolog.Logger
	timeout time.Duration
	mu      sync.RWMutex
}

// NewManager creates a new Manager
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		plugins: make(map[string]*Plugin),
		logger:  logger.With().Str("component", "plugin-manager").Logger(),
		timeout: DefaultExecutionTimeout,
	}
}

// SetTimeout sets the execution timeout for loading a script and for a single format call
func (m *Manager) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultExecutionTimeout
	}
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
}

// LoadFromDirectory loads all .js plugins from a directory.
// A missing directory is not an error; a broken file is logged and skipped.
func (m *Manager) LoadFromDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		m.logger.Warn().Str("directory", dir).Msg("plugins directory does not exist")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat plugins directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("plugins path is not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read plugins directory: %w", err)
	}

	loadedCount := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".js") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			m.logger.Error().Err(err).Str("file", entry.Name()).Msg("failed to read plugin")
			continue
		}
		if err := m.Load(path, string(content)); err != nil {
			m.logger.Error().Err(err).Str("file", entry.Name()).Msg("failed to load plugin")
			continue
		}
		loadedCount++
	}

	m.logger.Info().
		Int("loaded", loadedCount).
		Str("directory", dir).
		Msg("plugins loaded")

	return nil
}

// Load compiles a single plugin script and registers it under its @method
func (m *Manager) Load(path, script string) error {
	method := extractMethodDirective(script)
	if method == "" {
		return errors.New("plugin missing @method directive")
	}

	program, err := goja.Compile(path, script, false)
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), ".js")

	m.mu.RLock()
	timeout := m.timeout
	m.mu.RUnlock()

	// Run once so a missing format function fails at load time
	rt := NewRuntime(m.logger)
	timer := time.AfterFunc(timeout, func() {
		rt.VM().Interrupt(interruptTimeout)
	})
	_, err = rt.RunProgram(program)
	timer.Stop()
	if err != nil {
		return m.scriptError(name, err, timeout)
	}
	if _, ok := goja.AssertFunction(rt.VM().Get(formatFunction)); !ok {
		return fmt.Errorf("plugin does not define %s(result)", formatFunction)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plugins[method]; exists {
		return fmt.Errorf("duplicate method: %s", method)
	}

	m.plugins[method] = &Plugin{
		Name:    name,
		Method:  method,
		File:    path,
		program: program,
	}

	m.logger.Info().
		Str("name", name).
		Str("method", method).
		Str("file", filepath.Base(path)).
		Msg("plugin loaded")

	return nil
}

// extractMethodDirective extracts the method name from @method directive
func extractMethodDirective(script string) string {
	matches := methodDirectiveRegex.FindStringSubmatch(script)
	if len(matches) >= 2 {
		return matches[1]
	}
	return ""
}

// HasPlugin checks if a plugin exists for the given method
func (m *Manager) HasPlugin(method string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.plugins[method]
	return exists
}

// Formatter returns an output formatter backed by the plugin for method
func (m *Manager) Formatter(method string) (batcher.OutputFormatter, bool) {
	m.mu.RLock()
	plugin, exists := m.plugins[method]
	m.mu.RUnlock()

	if !exists {
		return nil, false
	}
	return func(result json.RawMessage) (interface{}, error) {
		return m.format(plugin, result)
	}, true
}

// format runs plugin.format(result) in a fresh runtime
func (m *Manager) format(plugin *Plugin, result json.RawMessage) (interface{}, error) {
	var parsed interface{}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("plugin %s: invalid result: %w", plugin.Name, err)
	}

	m.mu.RLock()
	timeout := m.timeout
	m.mu.RUnlock()

	rt := NewRuntime(m.logger.With().Str("plugin", plugin.Name).Logger())
	timer := time.AfterFunc(timeout, func() {
		rt.VM().Interrupt(interruptTimeout)
	})
	defer timer.Stop()

	if _, err := rt.RunProgram(plugin.program); err != nil {
		return nil, m.scriptError(plugin.Name, err, timeout)
	}

	value, err := rt.CallFunction(formatFunction, parsed)
	if err != nil {
		return nil, m.scriptError(plugin.Name, err, timeout)
	}

	return value.Export(), nil
}

// scriptError converts goja failures into plain errors
func (m *Manager) scriptError(name string, err error, timeout time.Duration) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		m.logger.Warn().
			Str("plugin", name).
			Dur("timeout", timeout).
			Msg("plugin execution timed out")
		return fmt.Errorf("plugin %s: %s", name, interruptTimeout)
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		return fmt.Errorf("plugin %s: %s", name, exception.Value().String())
	}
	return fmt.Errorf("plugin %s: %w", name, err)
}

// Methods returns all plugin methods, sorted
func (m *Manager) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.plugins))
	for method := range m.plugins {
		names = append(names, method)
	}
	sort.Strings(names)
	return names
}

// RegisterInto installs every plugin formatter into reg, replacing built-ins
func (m *Manager) RegisterInto(reg *methods.Registry) {
	for _, method := range m.Methods() {
		formatter, ok := m.Formatter(method)
		if !ok {
			continue
		}
		reg.SetFormatter(method, formatter)
	}
}

// Close releases all plugins
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins = make(map[string]*Plugin)
	m.logger.Debug().Msg("plugin manager closed")
}
