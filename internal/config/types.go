package config

import "time"

// Transport names
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

// Config represents the main configuration structure
type Config struct {
	URL            string            `json:"url" toml:"url"`
	WSURL          string            `json:"wsUrl" toml:"ws_url"`
	Transport      string            `json:"transport" toml:"transport"`
	Headers        map[string]string `json:"headers,omitempty" toml:"headers"`
	LogLevel       string            `json:"logLevel" toml:"log_level"`
	RequestTimeout int               `json:"requestTimeout" toml:"request_timeout"` // ms
	DispatchMode   string            `json:"dispatchMode" toml:"dispatch_mode"`     // single | legacy
	Cache          *CacheConfig      `json:"cache,omitempty" toml:"cache"`
	Plugins        *PluginConfig     `json:"plugins,omitempty" toml:"plugins"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	Enabled         bool     `json:"enabled" toml:"enabled"`
	TTL             int      `json:"ttl" toml:"ttl"`                          // seconds
	Size            int      `json:"size" toml:"size"`                        // number of entries
	DisabledMethods []string `json:"disabledMethods" toml:"disabled_methods"` // methods to exclude from caching
}

// PluginConfig represents output formatter plugin configuration
type PluginConfig struct {
	Enabled   bool   `json:"enabled" toml:"enabled"`
	Directory string `json:"directory" toml:"directory"` // path to plugins directory
	Timeout   int    `json:"timeout" toml:"timeout"`     // execution timeout in milliseconds
}

// Default values
const (
	DefaultConfigFile      = "rpcbatch.toml" // looked up in the working directory
	DefaultTransport       = TransportHTTP
	DefaultLogLevel        = "info"
	DefaultRequestTimeout  = 5000 // ms
	DefaultDispatchMode    = "single"
	DefaultCacheTTL        = 60    // seconds
	DefaultCacheSize       = 10000 // entries
	DefaultPluginDirectory = "./plugins"
	DefaultPluginTimeout   = 1000 // ms
)

// Default returns a config with all defaults applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// IsCacheEnabled returns true if cache is configured and enabled
func (c *Config) IsCacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled
}

// IsPluginsEnabled returns true if plugins are configured and enabled
func (c *Config) IsPluginsEnabled() bool {
	return c.Plugins != nil && c.Plugins.Enabled
}

// GetPluginDirectory returns the plugins directory path
func (c *Config) GetPluginDirectory() string {
	if c.Plugins == nil || c.Plugins.Directory == "" {
		return DefaultPluginDirectory
	}
	return c.Plugins.Directory
}

// GetPluginTimeoutDuration returns plugin timeout as time.Duration
func (c *Config) GetPluginTimeoutDuration() time.Duration {
	if c.Plugins == nil || c.Plugins.Timeout == 0 {
		return time.Duration(DefaultPluginTimeout) * time.Millisecond
	}
	return time.Duration(c.Plugins.Timeout) * time.Millisecond
}

// GetTTLDuration returns cache TTL as time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}
