package cache

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	mc, err := NewMemoryCache(2, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer mc.Close()

	mc.Set("a", []byte("1"))
	mc.Set("b", []byte("2"))
	mc.Set("c", []byte("3"))

	if _, ok := mc.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	if v, ok := mc.Get("c"); !ok || string(v) != "3" {
		t.Errorf("Get(c) = %s, %v", v, ok)
	}
	if mc.Len() != 2 {
		t.Errorf("Len = %d, want 2", mc.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc, err := NewMemoryCache(10, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer mc.Close()

	mc.Set("k", []byte("v"))
	if _, ok := mc.Get("k"); !ok {
		t.Fatal("Get(k) missed before expiry")
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := mc.Get("k"); ok {
		t.Error("Get(k) hit after expiry")
	}
}

func TestMemoryCache_InvalidArgs(t *testing.T) {
	tests := []struct {
		size int
		ttl  time.Duration
	}{
		{0, time.Minute},
		{-1, time.Minute},
		{10, 0},
	}

	for _, tt := range tests {
		if _, err := NewMemoryCache(tt.size, tt.ttl); err == nil {
			t.Errorf("NewMemoryCache(%d, %s): expected error", tt.size, tt.ttl)
		}
	}
}

func TestMemoryCache_CloseDropsResults(t *testing.T) {
	mc, err := NewMemoryCache(10, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}

	mc.Set("k", []byte("v"))
	mc.Close()
	if _, ok := mc.Get("k"); ok {
		t.Error("Get(k) hit after Close")
	}
	if mc.Len() != 0 {
		t.Errorf("Len = %d after Close", mc.Len())
	}
}

func TestPolicy_IsCacheable(t *testing.T) {
	p := NewPolicy([]string{"eth_getCode"})

	tests := []struct {
		method string
		params string
		want   bool
	}{
		{"eth_chainId", ``, true},
		{"eth_getTransactionReceipt", `["0xabc"]`, true},
		{"eth_blockNumber", ``, false},
		{"eth_getBalance", `["0xabc","0x10"]`, true},
		{"eth_getBalance", `["0xabc","latest"]`, false},
		{"eth_getCode", `["0xabc","0x10"]`, false},
		{"eth_getLogs", `[{"fromBlock":"0x1","toBlock":"0x2"}]`, true},
		{"eth_getLogs", `[{"fromBlock":"0x1"}]`, false},
	}

	for _, tt := range tests {
		if got := p.IsCacheable(tt.method, json.RawMessage(tt.params)); got != tt.want {
			t.Errorf("IsCacheable(%s, %s) = %v, want %v", tt.method, tt.params, got, tt.want)
		}
	}
}

func TestGenerateCacheKey_Normalized(t *testing.T) {
	a := GenerateCacheKey("eth_getBalance", json.RawMessage(`["0xABC", "0x10"]`))
	b := GenerateCacheKey("eth_getBalance", json.RawMessage(`["0xabc","0x10"]`))
	if a != b {
		t.Errorf("keys differ: %s vs %s", a, b)
	}

	c := GenerateCacheKey("eth_getCode", json.RawMessage(`["0xabc","0x10"]`))
	if a == c {
		t.Error("different methods share a key")
	}

	if GenerateCacheKey("eth_chainId", nil) != GenerateCacheKey("eth_chainId", json.RawMessage(`[]`)) {
		t.Error("nil and empty params should share a key")
	}
}
