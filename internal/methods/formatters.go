package methods

import (
	"encoding/json"
	"fmt"
	"strconv"

	"rpcbatch/internal/batcher"
	"rpcbatch/internal/blockparam"
)

// builtinFormatters maps methods to their default output formatters
var builtinFormatters = map[string]batcher.OutputFormatter{
	"eth_blockNumber":                      FormatQuantity,
	"eth_chainId":                          FormatQuantity,
	"eth_gasPrice":                         FormatBigQuantity,
	"eth_maxPriorityFeePerGas":             FormatBigQuantity,
	"eth_blobBaseFee":                      FormatBigQuantity,
	"eth_getBalance":                       FormatBigQuantity,
	"eth_getTransactionCount":              FormatQuantity,
	"eth_getBlockTransactionCountByHash":   FormatQuantity,
	"eth_getBlockTransactionCountByNumber": FormatQuantity,
	"eth_estimateGas":                      FormatQuantity,
	"net_peerCount":                        FormatQuantity,
	"net_version":                          FormatDecimalString,
	"net_listening":                        FormatBool,
	"eth_syncing":                          FormatSyncing,
}

// FormatQuantity converts a hex quantity to uint64
func FormatQuantity(result json.RawMessage) (interface{}, error) {
	var s string
	if err := json.Unmarshal(result, &s); err != nil {
		return nil, fmt.Errorf("quantity must be a string: %w", err)
	}
	n, err := blockparam.ParseQuantity(s)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// FormatBigQuantity converts a hex quantity to *big.Int
func FormatBigQuantity(result json.RawMessage) (interface{}, error) {
	var s string
	if err := json.Unmarshal(result, &s); err != nil {
		return nil, fmt.Errorf("quantity must be a string: %w", err)
	}
	n, err := blockparam.ParseBigQuantity(s)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// FormatDecimalString converts a decimal string (net_version) to uint64
func FormatDecimalString(result json.RawMessage) (interface{}, error) {
	var s string
	if err := json.Unmarshal(result, &s); err != nil {
		return nil, fmt.Errorf("value must be a string: %w", err)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return n, nil
}

// FormatBool decodes a JSON boolean
func FormatBool(result json.RawMessage) (interface{}, error) {
	var b bool
	if err := json.Unmarshal(result, &b); err != nil {
		return nil, fmt.Errorf("value must be a boolean: %w", err)
	}
	return b, nil
}

// SyncStatus is the decoded eth_syncing result while a node is syncing
type SyncStatus struct {
	StartingBlock uint64
	CurrentBlock  uint64
	HighestBlock  uint64
}

// FormatSyncing returns false when the node is synced, a *SyncStatus otherwise
func FormatSyncing(result json.RawMessage) (interface{}, error) {
	var synced bool
	if err := json.Unmarshal(result, &synced); err == nil {
		return synced, nil
	}

	var raw struct {
		StartingBlock string `json:"startingBlock"`
		CurrentBlock  string `json:"currentBlock"`
		HighestBlock  string `json:"highestBlock"`
	}
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("invalid syncing result: %w", err)
	}

	status := &SyncStatus{}
	fields := []struct {
		hex string
		dst *uint64
	}{
		{raw.StartingBlock, &status.StartingBlock},
		{raw.CurrentBlock, &status.CurrentBlock},
		{raw.HighestBlock, &status.HighestBlock},
	}
	for _, f := range fields {
		n, err := blockparam.ParseQuantity(f.hex)
		if err != nil {
			return nil, err
		}
		*f.dst = n
	}
	return status, nil
}
