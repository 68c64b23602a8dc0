package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"rpcbatch/internal/blockparam"
)

// MethodCacheability defines how a method should be cached
type MethodCacheability int

const (
	// NotCacheable - method should never be cached
	NotCacheable MethodCacheability = iota
	// AlwaysCacheable - method result is immutable and can always be cached
	AlwaysCacheable
	// CacheableWithBlockNumber - cacheable only when block parameter is a specific number (not latest/pending/etc)
	CacheableWithBlockNumber
	// CacheableWithBlockRange - cacheable only when both fromBlock and toBlock are specific numbers
	CacheableWithBlockRange
)

// methodCacheRules maps methods to their cacheability rules
var methodCacheRules = map[string]MethodCacheability{
	"eth_getBlockByHash":                    AlwaysCacheable,
	"eth_getTransactionByHash":              AlwaysCacheable,
	"eth_getTransactionReceipt":             AlwaysCacheable,
	"eth_getBlockTransactionCountByHash":    AlwaysCacheable,
	"eth_getTransactionByBlockHashAndIndex": AlwaysCacheable,
	"eth_chainId":                           AlwaysCacheable,
	"net_version":                           AlwaysCacheable,
	"debug_traceTransaction":                AlwaysCacheable,
	"trace_transaction":                     AlwaysCacheable,

	"eth_getBlockByNumber":                    CacheableWithBlockNumber,
	"eth_getCode":                             CacheableWithBlockNumber,
	"eth_getBalance":                          CacheableWithBlockNumber,
	"eth_getStorageAt":                        CacheableWithBlockNumber,
	"eth_getTransactionCount":                 CacheableWithBlockNumber,
	"eth_call":                                CacheableWithBlockNumber,
	"eth_getBlockTransactionCountByNumber":    CacheableWithBlockNumber,
	"eth_getTransactionByBlockNumberAndIndex": CacheableWithBlockNumber,
	"eth_getBlockReceipts":                    CacheableWithBlockNumber,
	"eth_getProof":                            CacheableWithBlockNumber,

	"eth_getLogs":  CacheableWithBlockRange,
	"trace_filter": CacheableWithBlockRange,
}

// Policy decides which calls may be answered from the cache
type Policy struct {
	disabled map[string]bool
}

// NewPolicy creates a policy; disabledMethods are never cached
func NewPolicy(disabledMethods []string) *Policy {
	disabled := make(map[string]bool, len(disabledMethods))
	for _, method := range disabledMethods {
		disabled[method] = true
	}
	return &Policy{disabled: disabled}
}

// IsCacheable checks if a call's result is immutable based on method and params
func (p *Policy) IsCacheable(method string, params json.RawMessage) bool {
	if p != nil && p.disabled[method] {
		return false
	}

	switch methodCacheRules[method] {
	case AlwaysCacheable:
		return true
	case CacheableWithBlockNumber:
		return !blockparam.HasDynamicBlock(method, params)
	case CacheableWithBlockRange:
		return !blockparam.HasDynamicBlockRange(params)
	default:
		return false
	}
}

// GenerateCacheKey creates a unique cache key for a call
func GenerateCacheKey(method string, params json.RawMessage) string {
	normalizedParams := normalizeParams(params)
	hash := sha256.Sum256(normalizedParams)
	paramsHash := hex.EncodeToString(hash[:8])

	return method + ":" + paramsHash
}

// normalizeParams normalizes JSON params for consistent hashing
func normalizeParams(params json.RawMessage) []byte {
	if len(params) == 0 {
		return []byte("[]")
	}

	var data interface{}
	if err := json.Unmarshal(params, &data); err != nil {
		return params
	}

	result, err := json.Marshal(normalizeValue(data))
	if err != nil {
		return params
	}
	return result
}

// normalizeValue lowercases strings (hex addresses/hashes) recursively.
// Map keys are emitted sorted by encoding/json.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(val))
		for k, item := range val {
			result[k] = normalizeValue(item)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, item := range val {
			result[i] = normalizeValue(item)
		}
		return result
	case string:
		return strings.ToLower(val)
	default:
		return val
	}
}
