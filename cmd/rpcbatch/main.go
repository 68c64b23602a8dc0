package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"rpcbatch/internal/config"
)

const longHelp = `Send JSON-RPC calls to a node as a single batch request and print one
JSON line per call, in the order the calls were given.

Each argument is METHOD or METHOD=PARAMS_JSON. Results of well-known
methods are decoded by built-in formatters; JavaScript plugins can
override them. A failed call never hides the results of the others.`

var exampleUsage = strings.TrimSpace(`
  rpcbatch --url http://localhost:8545 eth_blockNumber eth_chainId
  rpcbatch --url http://localhost:8545 'eth_getBalance=["0xde0b6b3a7640000","latest"]'
  rpcbatch --config rpcbatch.toml --transport ws net_version eth_syncing
`)

// flagValues holds flag values until they are merged over the config file
type flagValues struct {
	url       string
	wsURL     string
	transport string
	logLevel  string
	dispatch  string
	timeout   int
	cache     bool
	plugins   string
}

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var cfgPath string
	var fv flagValues

	root := &cobra.Command{
		Use:           "rpcbatch [flags] METHOD[=PARAMS_JSON]...",
		Short:         "Send JSON-RPC calls as one batch and print each result",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			cfg, err := buildConfig(cfgPath, fv, changed)
			if err != nil {
				return err
			}

			calls, err := parseCalls(args)
			if err != nil {
				return err
			}

			logger := setupLogger(stderr, cfg.LogLevel)
			logger.Debug().
				Str("transport", cfg.Transport).
				Str("dispatch", cfg.DispatchMode).
				Int("calls", len(calls)).
				Msg("starting batch")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, calls, stdout, logger)
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	root.Flags().StringVar(&cfgPath, "config", "", "path to a JSON or TOML config file (default: ./"+config.DefaultConfigFile+" if present)")
	root.Flags().StringVar(&fv.url, "url", "", "HTTP endpoint of the node")
	root.Flags().StringVar(&fv.wsURL, "ws-url", "", "WebSocket endpoint of the node")
	root.Flags().StringVar(&fv.transport, "transport", config.DefaultTransport, "transport to use (http|ws)")
	root.Flags().StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")
	root.Flags().StringVar(&fv.dispatch, "dispatch", config.DefaultDispatchMode, "callback dispatch mode (single|legacy)")
	root.Flags().IntVar(&fv.timeout, "timeout", config.DefaultRequestTimeout, "request timeout in milliseconds")
	root.Flags().BoolVar(&fv.cache, "cache", false, "cache immutable results in memory")
	root.Flags().StringVar(&fv.plugins, "plugins", "", "directory of JavaScript output formatters")

	return root
}

// buildConfig loads the config file, if any, and applies explicitly set flags over it.
// Without --config, rpcbatch.toml in the working directory is used when present.
func buildConfig(path string, fv flagValues, changed map[string]bool) (*config.Config, error) {
	if path == "" && config.FileExists(config.DefaultConfigFile) {
		path = config.DefaultConfigFile
	}

	cfg := &config.Config{}
	if path != "" {
		fc, err := config.Read(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = fc
	}

	if changed["url"] {
		cfg.URL = fv.url
	}
	if changed["ws-url"] {
		cfg.WSURL = fv.wsURL
	}
	if changed["transport"] {
		cfg.Transport = fv.transport
	}
	if changed["log-level"] {
		cfg.LogLevel = fv.logLevel
	}
	if changed["dispatch"] {
		cfg.DispatchMode = fv.dispatch
	}
	if changed["timeout"] {
		cfg.RequestTimeout = fv.timeout
	}
	if changed["cache"] {
		if cfg.Cache == nil {
			cfg.Cache = &config.CacheConfig{}
		}
		cfg.Cache.Enabled = fv.cache
	}
	if changed["plugins"] {
		if cfg.Plugins == nil {
			cfg.Plugins = &config.PluginConfig{}
		}
		cfg.Plugins.Enabled = fv.plugins != ""
		cfg.Plugins.Directory = fv.plugins
	}

	if err := config.Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger configures the zerolog logger
func setupLogger(out io.Writer, level string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || logLevel == zerolog.NoLevel {
		logLevel = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).Level(logLevel).With().Timestamp().Logger()
}
