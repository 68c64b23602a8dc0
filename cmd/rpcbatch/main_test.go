package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rpcbatch/internal/batcher"
	"rpcbatch/internal/config"
	"rpcbatch/internal/jsonrpc"
)

// nodeServer answers batches from per-method fixtures
func nodeServer(t *testing.T, gotParams map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var requests []*jsonrpc.Request
		if err := json.Unmarshal(body, &requests); err != nil {
			t.Errorf("server: bad batch: %v", err)
			http.Error(w, "bad batch", http.StatusBadRequest)
			return
		}

		entries := make([]string, len(requests))
		for i, req := range requests {
			if gotParams != nil {
				gotParams[req.Method] = string(req.Params)
			}
			id, _ := json.Marshal(req.ID)
			switch req.Method {
			case "eth_blockNumber":
				entries[i] = `{"jsonrpc":"2.0","id":` + string(id) + `,"result":"0x10"}`
			case "eth_chainId":
				entries[i] = `{"jsonrpc":"2.0","id":` + string(id) + `,"result":"0x1"}`
			case "eth_getBalance":
				entries[i] = `{"jsonrpc":"2.0","id":` + string(id) + `,"error":{"code":-32000,"message":"header not found"}}`
			default:
				entries[i] = `{"id":` + string(id) + `,"result":"0x0"}`
			}
		}
		w.Write([]byte("[" + strings.Join(entries, ",") + "]"))
	}))
}

func execute(t *testing.T, args ...string) ([]output, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()

	var lines []output
	dec := json.NewDecoder(&stdout)
	for dec.More() {
		var o output
		if err := dec.Decode(&o); err != nil {
			t.Fatalf("decode output: %v", err)
		}
		lines = append(lines, o)
	}
	return lines, err
}

func TestRun_MixedBatch(t *testing.T) {
	gotParams := map[string]string{}
	server := nodeServer(t, gotParams)
	defer server.Close()

	lines, err := execute(t,
		"--url", server.URL,
		"--log-level", "error",
		"eth_blockNumber",
		"eth_chainId",
		`eth_getBalance=["0xabc", "latest"]`,
		"eth_broken",
	)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4: %+v", len(lines), lines)
	}

	for i, line := range lines {
		if line.Index != i {
			t.Errorf("line %d has index %d", i, line.Index)
		}
	}
	if string(lines[0].Result) != "16" || lines[0].Error != "" {
		t.Errorf("eth_blockNumber = %+v", lines[0])
	}
	if string(lines[1].Result) != "1" {
		t.Errorf("eth_chainId = %+v", lines[1])
	}
	if lines[2].Error != "Returned error: header not found" || lines[2].Code == nil || *lines[2].Code != -32000 {
		t.Errorf("eth_getBalance = %+v", lines[2])
	}
	if lines[2].Result != nil {
		t.Errorf("error line carries a result: %s", lines[2].Result)
	}
	if !strings.HasPrefix(lines[3].Error, "Invalid JSON RPC response: ") {
		t.Errorf("eth_broken = %+v", lines[3])
	}

	if gotParams["eth_getBalance"] != `["0xabc","latest"]` {
		t.Errorf("eth_getBalance params = %s", gotParams["eth_getBalance"])
	}
	if gotParams["eth_chainId"] != "" {
		t.Errorf("eth_chainId params = %s", gotParams["eth_chainId"])
	}
}

func TestRun_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	lines, err := execute(t, "--url", server.URL, "--log-level", "error", "eth_blockNumber", "eth_chainId")
	if !errors.Is(err, batcher.ErrTransportFailure) {
		t.Fatalf("err = %v, want ErrTransportFailure", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line.Error, batcher.ErrTransportFailure.Error()) {
			t.Errorf("line %d error = %q", line.Index, line.Error)
		}
	}
}

func TestRun_Plugins(t *testing.T) {
	server := nodeServer(t, nil)
	defer server.Close()

	dir := t.TempDir()
	script := "// @method eth_chainId\nfunction format(r) { return \"chain-\" + utils.hexToNumber(r); }\n"
	if err := os.WriteFile(filepath.Join(dir, "chain.js"), []byte(script), 0o600); err != nil {
		t.Fatal(err)
	}

	lines, err := execute(t, "--url", server.URL, "--log-level", "error", "--plugins", dir, "eth_chainId", "eth_blockNumber")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if string(lines[0].Result) != `"chain-1"` {
		t.Errorf("eth_chainId = %s", lines[0].Result)
	}
	if string(lines[1].Result) != "16" {
		t.Errorf("eth_blockNumber = %s", lines[1].Result)
	}
}

func TestRun_LegacyDispatch(t *testing.T) {
	server := nodeServer(t, nil)
	defer server.Close()

	lines, err := execute(t, "--url", server.URL, "--log-level", "error", "--dispatch", "legacy", "eth_getBalance")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// error response, invalid response, then the balance formatter failing on the absent result
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %+v", len(lines), lines)
	}
	for _, line := range lines {
		if line.Index != 0 || line.Error == "" {
			t.Errorf("line = %+v", line)
		}
	}
}

func TestRootCmd_ArgErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no calls", []string{"--url", "http://localhost:1"}},
		{"no url", []string{"eth_chainId"}},
		{"bad params", []string{"--url", "http://localhost:1", "eth_call=[1,"}},
		{"bad dispatch", []string{"--url", "http://localhost:1", "--dispatch", "twice", "eth_chainId"}},
		{"missing config", []string{"--config", "/nonexistent/rpcbatch.toml", "eth_chainId"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := execute(t, tt.args...)
			if err == nil {
				t.Error("expected error")
			}
			if len(lines) != 0 {
				t.Errorf("unexpected output: %+v", lines)
			}
		})
	}
}

func TestParseCalls(t *testing.T) {
	calls, err := parseCalls([]string{
		"eth_chainId",
		`eth_getBalance=["0xabc","latest"]`,
		`eth_call={"to":"0x1"}`,
		`web3_sha3=["a=b"]`,
	})
	if err != nil {
		t.Fatalf("parseCalls: %v", err)
	}
	if calls[0].Method != "eth_chainId" || calls[0].params() != nil {
		t.Errorf("calls[0] = %+v", calls[0])
	}
	if string(calls[1].Params) != `["0xabc","latest"]` {
		t.Errorf("calls[1] = %+v", calls[1])
	}
	if calls[2].Method != "eth_call" || string(calls[2].Params) != `{"to":"0x1"}` {
		t.Errorf("calls[2] = %+v", calls[2])
	}
	if calls[3].Method != "web3_sha3" || string(calls[3].Params) != `["a=b"]` {
		t.Errorf("calls[3] = %+v", calls[3])
	}

	for _, arg := range []string{"=[]", "eth_call=", "eth_call=42", "eth_call=[1,"} {
		if _, err := parseCalls([]string{arg}); err == nil {
			t.Errorf("parseCalls(%q) succeeded", arg)
		}
	}
}

func TestBuildConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpcbatch.toml")
	content := `
url = "http://file:8545"
log_level = "warn"
request_timeout = 900

[cache]
enabled = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	fv := flagValues{url: "http://flag:8545", logLevel: "debug", cache: false}
	cfg, err := buildConfig(path, fv, map[string]bool{"url": true, "cache": true})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.URL != "http://flag:8545" {
		t.Errorf("URL = %s", cfg.URL)
	}
	// unchanged flags keep file values
	if cfg.LogLevel != "warn" || cfg.RequestTimeout != 900 {
		t.Errorf("LogLevel = %s, RequestTimeout = %d", cfg.LogLevel, cfg.RequestTimeout)
	}
	if cfg.IsCacheEnabled() {
		t.Error("cache flag did not override file")
	}
	if cfg.DispatchMode != config.DefaultDispatchMode {
		t.Errorf("DispatchMode = %s", cfg.DispatchMode)
	}
}

func TestBuildConfig_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if _, err := buildConfig("", flagValues{}, map[string]bool{}); err == nil {
		t.Fatal("expected error without url or config file")
	}

	content := "url = \"http://local:8545\"\ndispatch_mode = \"legacy\"\n"
	if err := os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := buildConfig("", flagValues{}, map[string]bool{})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.URL != "http://local:8545" || cfg.DispatchMode != "legacy" {
		t.Errorf("cfg = %+v", cfg)
	}
}
