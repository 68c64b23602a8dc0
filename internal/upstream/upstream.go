package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"rpcbatch/internal/jsonrpc"
)

// HTTPTransport sends batches to a JSON-RPC endpoint with one HTTP POST each
type HTTPTransport struct {
	url     string
	headers map[string]string

	httpClient *http.Client
	logger     zerolog.Logger
}

// HTTPConfig for creating a new HTTPTransport
type HTTPConfig struct {
	URL            string
	Headers        map[string]string
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// NewHTTPTransport creates a new HTTPTransport
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}

	return &HTTPTransport{
		url:        cfg.URL,
		headers:    cfg.Headers,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("transport", "http").Logger(),
	}
}

// SendBatch posts the batch and parses the reply array
func (t *HTTPTransport) SendBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
	if t.url == "" {
		return nil, fmt.Errorf("HTTP RPC URL not configured")
	}

	reqBytes, err := jsonrpc.MarshalBatchRequest(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	responses, err := jsonrpc.ParseBatchResults(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	t.logger.Debug().
		Int("requests", len(requests)).
		Int("responses", len(responses)).
		Dur("took", time.Since(start)).
		Msg("batch sent")

	return responses, nil
}

// Close releases idle connections
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
