package blockparam

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// DynamicBlockTags contains block tags that indicate dynamic/latest data
var DynamicBlockTags = map[string]bool{
	"latest":    true,
	"pending":   true,
	"earliest":  true,
	"safe":      true,
	"finalized": true,
}

// GetBlockParamIndex returns the index of block parameter for each method
func GetBlockParamIndex(method string) int {
	switch method {
	case "eth_getBlockByNumber":
		return 0
	case "eth_getCode", "eth_getBalance", "eth_getTransactionCount":
		return 1
	case "eth_getStorageAt":
		return 2
	case "eth_call":
		return 1
	case "eth_getBlockTransactionCountByNumber":
		return 0
	case "eth_getTransactionByBlockNumberAndIndex":
		return 0
	case "eth_getBlockReceipts":
		return 0
	case "eth_getProof":
		return 2
	case "debug_traceBlockByNumber":
		return 0
	case "debug_traceCall":
		return 1
	case "trace_call":
		return 1
	case "trace_callMany":
		return 1
	case "trace_replayBlockTransactions":
		return 0
	default:
		return -1
	}
}

// IsDynamicBlockParam checks if a single param is a dynamic block tag
func IsDynamicBlockParam(param json.RawMessage) bool {
	var strParam string
	if err := json.Unmarshal(param, &strParam); err != nil {
		var objParam map[string]interface{}
		if err := json.Unmarshal(param, &objParam); err != nil {
			return true
		}
		if blockNum, ok := objParam["blockNumber"]; ok {
			if strBlockNum, ok := blockNum.(string); ok {
				return DynamicBlockTags[strings.ToLower(strBlockNum)]
			}
		}
		return false
	}
	return DynamicBlockTags[strings.ToLower(strParam)]
}

// HasDynamicBlock checks whether a call targets a moving block.
// Missing or unparsable block params count as "latest".
func HasDynamicBlock(method string, params json.RawMessage) bool {
	if len(params) == 0 {
		return true
	}

	var paramsArray []json.RawMessage
	if err := json.Unmarshal(params, &paramsArray); err != nil {
		return true
	}

	idx := GetBlockParamIndex(method)
	if idx < 0 {
		return false
	}
	if idx >= len(paramsArray) {
		return true
	}
	return IsDynamicBlockParam(paramsArray[idx])
}

// HasDynamicBlockRange checks if eth_getLogs-style filter params use dynamic block tags
func HasDynamicBlockRange(params json.RawMessage) bool {
	var paramsArray []json.RawMessage
	if err := json.Unmarshal(params, &paramsArray); err != nil || len(paramsArray) == 0 {
		return true
	}

	var filterObj map[string]interface{}
	if err := json.Unmarshal(paramsArray[0], &filterObj); err != nil {
		return true
	}

	// a missing bound defaults to latest
	for _, key := range []string{"fromBlock", "toBlock"} {
		v, ok := filterObj[key]
		if !ok {
			return true
		}
		if s, ok := v.(string); ok && DynamicBlockTags[strings.ToLower(s)] {
			return true
		}
	}
	return false
}

// ParseQuantity parses a hex quantity string (with 0x prefix) to uint64
func ParseQuantity(hexStr string) (uint64, error) {
	if !strings.HasPrefix(hexStr, "0x") && !strings.HasPrefix(hexStr, "0X") {
		return 0, fmt.Errorf("quantity %q lacks 0x prefix", hexStr)
	}
	digits := hexStr[2:]
	if digits == "" {
		return 0, fmt.Errorf("empty quantity %q", hexStr)
	}
	n, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", hexStr, err)
	}
	return n, nil
}

// ParseBigQuantity parses a hex quantity string of arbitrary size
func ParseBigQuantity(hexStr string) (*big.Int, error) {
	if !strings.HasPrefix(hexStr, "0x") && !strings.HasPrefix(hexStr, "0X") {
		return nil, fmt.Errorf("quantity %q lacks 0x prefix", hexStr)
	}
	n, ok := new(big.Int).SetString(hexStr[2:], 16)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", hexStr)
	}
	return n, nil
}
