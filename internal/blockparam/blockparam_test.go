package blockparam

import (
	"encoding/json"
	"testing"
)

func TestHasDynamicBlock(t *testing.T) {
	tests := []struct {
		method string
		params string
		want   bool
	}{
		{"eth_getBalance", `["0xabc","latest"]`, true},
		{"eth_getBalance", `["0xabc","0x10"]`, false},
		{"eth_getBalance", `["0xabc"]`, true},
		{"eth_call", `[{},{"blockNumber":"0x5"}]`, false},
		{"eth_call", `[{},{"blockNumber":"pending"}]`, true},
		{"eth_getTransactionByHash", `["0x1"]`, false},
		{"eth_getBlockByNumber", ``, true},
		{"eth_getBlockByNumber", `{`, true},
	}

	for _, tt := range tests {
		if got := HasDynamicBlock(tt.method, json.RawMessage(tt.params)); got != tt.want {
			t.Errorf("HasDynamicBlock(%s, %s) = %v, want %v", tt.method, tt.params, got, tt.want)
		}
	}
}

func TestHasDynamicBlockRange(t *testing.T) {
	tests := []struct {
		params string
		want   bool
	}{
		{`[{"fromBlock":"0x1","toBlock":"0x2"}]`, false},
		{`[{"fromBlock":"0x1","toBlock":"latest"}]`, true},
		{`[{"fromBlock":"0x1"}]`, true},
		{`[]`, true},
		{`nope`, true},
	}

	for _, tt := range tests {
		if got := HasDynamicBlockRange(json.RawMessage(tt.params)); got != tt.want {
			t.Errorf("HasDynamicBlockRange(%s) = %v, want %v", tt.params, got, tt.want)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	n, err := ParseQuantity("0x1b4")
	if err != nil || n != 436 {
		t.Errorf("ParseQuantity(0x1b4) = %d, %v", n, err)
	}

	for _, s := range []string{"", "0x", "1b4", "0xzz", "0x1ffffffffffffffff"} {
		if _, err := ParseQuantity(s); err == nil {
			t.Errorf("ParseQuantity(%q): expected error", s)
		}
	}
}

func TestParseBigQuantity(t *testing.T) {
	n, err := ParseBigQuantity("0x1ffffffffffffffff")
	if err != nil {
		t.Fatalf("ParseBigQuantity: %v", err)
	}
	if n.String() != "36893488147419103231" {
		t.Errorf("ParseBigQuantity = %s", n)
	}

	for _, s := range []string{"", "0x", "10", "0xg"} {
		if _, err := ParseBigQuantity(s); err == nil {
			t.Errorf("ParseBigQuantity(%q): expected error", s)
		}
	}
}
