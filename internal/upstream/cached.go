package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"rpcbatch/internal/batcher"
	"rpcbatch/internal/cache"
	"rpcbatch/internal/jsonrpc"
)

// CachedTransport answers calls for immutable data from a cache and forwards
// the rest to the wrapped transport as one batch. Reply positions always
// match request positions.
type CachedTransport struct {
	next   batcher.Transport
	cache  cache.Cache
	policy *cache.Policy
	logger zerolog.Logger
}

// NewCachedTransport wraps next with c. A nil policy caches every immutable method.
func NewCachedTransport(next batcher.Transport, c cache.Cache, policy *cache.Policy, logger zerolog.Logger) *CachedTransport {
	if policy == nil {
		policy = cache.NewPolicy(nil)
	}
	return &CachedTransport{
		next:   next,
		cache:  c,
		policy: policy,
		logger: logger.With().Str("transport", "cache").Logger(),
	}
}

// SendBatch implements batcher.Transport
func (t *CachedTransport) SendBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
	responses := make([]*jsonrpc.Response, len(requests))
	keys := make([]string, len(requests))

	missIdx := make([]int, 0, len(requests))
	misses := make([]*jsonrpc.Request, 0, len(requests))

	for i, req := range requests {
		if t.policy.IsCacheable(req.Method, req.Params) {
			keys[i] = cache.GenerateCacheKey(req.Method, req.Params)
			if data, ok := t.cache.Get(keys[i]); ok {
				responses[i] = jsonrpc.NewResponseRaw(req.ID, json.RawMessage(data))
				continue
			}
		}
		missIdx = append(missIdx, i)
		misses = append(misses, req)
	}

	t.logger.Debug().
		Int("requests", len(requests)).
		Int("hits", len(requests)-len(misses)).
		Msg("cache lookup")

	if len(misses) == 0 {
		return responses, nil
	}

	fetched, err := t.next.SendBatch(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("upstream batch failed: %w", err)
	}

	for j, resp := range fetched {
		if j >= len(missIdx) {
			break
		}
		i := missIdx[j]
		responses[i] = resp

		if keys[i] == "" || !jsonrpc.IsValidResponse(resp) || resp.ResultIsNull() {
			continue
		}
		if !resp.ID.Equal(misses[j].ID) {
			t.logger.Warn().
				Str("method", misses[j].Method).
				Interface("requestId", misses[j].ID.Value()).
				Interface("responseId", resp.ID.Value()).
				Msg("reply id does not match its position, not caching")
			continue
		}
		t.cache.Set(keys[i], resp.Result)
	}

	return responses, nil
}

// Close closes the cache and the wrapped transport when it supports closing
func (t *CachedTransport) Close() error {
	t.cache.Close()
	if closer, ok := t.next.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
