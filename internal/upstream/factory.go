package upstream

import (
	"fmt"

	"github.com/rs/zerolog"

	"rpcbatch/internal/batcher"
	"rpcbatch/internal/cache"
	"rpcbatch/internal/config"
)

// Transport is a batch transport owning connections that must be released
type Transport interface {
	batcher.Transport
	Close() error
}

// New builds the transport selected by cfg, wrapped with a cache when enabled
func New(cfg *config.Config, logger zerolog.Logger) (Transport, error) {
	var t Transport

	switch cfg.Transport {
	case config.TransportHTTP:
		t = NewHTTPTransport(HTTPConfig{
			URL:            cfg.URL,
			Headers:        cfg.Headers,
			RequestTimeout: cfg.GetRequestTimeoutDuration(),
			Logger:         logger,
		})
	case config.TransportWS:
		t = NewWSTransport(WSConfig{
			URL:            cfg.WSURL,
			Headers:        cfg.Headers,
			MessageTimeout: cfg.GetRequestTimeoutDuration(),
			Logger:         logger,
		})
	default:
		return nil, fmt.Errorf("unknown transport: %s", cfg.Transport)
	}

	if !cfg.IsCacheEnabled() {
		return t, nil
	}

	memCache, err := cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.GetTTLDuration())
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	logger.Info().
		Int("size", cfg.Cache.Size).
		Int("ttl", cfg.Cache.TTL).
		Msg("result cache enabled")

	return NewCachedTransport(t, memCache, cache.NewPolicy(cfg.Cache.DisabledMethods), logger), nil
}
