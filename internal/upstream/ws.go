package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"rpcbatch/internal/jsonrpc"
)

// DefaultMessageTimeout bounds a batch round-trip when ctx has no deadline
const DefaultMessageTimeout = 60 * time.Second

// WSTransport sends batches over a single WebSocket connection.
// Only one batch is in flight per connection at a time.
type WSTransport struct {
	wsURL          string
	headers        map[string]string
	messageTimeout time.Duration
	logger         zerolog.Logger

	conn    *websocket.Conn
	batchMu sync.Mutex
}

// WSConfig for creating a new WSTransport
type WSConfig struct {
	URL            string
	Headers        map[string]string
	MessageTimeout time.Duration
	Logger         zerolog.Logger
}

// NewWSTransport creates a new WSTransport. The connection is dialed on first use.
func NewWSTransport(cfg WSConfig) *WSTransport {
	timeout := cfg.MessageTimeout
	if timeout == 0 {
		timeout = DefaultMessageTimeout
	}
	return &WSTransport{
		wsURL:          cfg.URL,
		headers:        cfg.Headers,
		messageTimeout: timeout,
		logger:         cfg.Logger.With().Str("transport", "ws").Logger(),
	}
}

// connect dials the endpoint if there is no open connection. Caller holds batchMu.
func (t *WSTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	if t.conn != nil {
		return t.conn, nil
	}
	if t.wsURL == "" {
		return nil, fmt.Errorf("WebSocket URL not configured")
	}

	t.logger.Debug().Str("url", t.wsURL).Msg("WebSocket connecting")
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, t.wsURL, t.requestHeader())
	if err != nil {
		return nil, fmt.Errorf("failed to connect WebSocket: %w", err)
	}
	t.conn = conn
	t.logger.Debug().Str("url", t.wsURL).Msg("WebSocket connected")
	return conn, nil
}

func (t *WSTransport) requestHeader() http.Header {
	if len(t.headers) == 0 {
		return nil
	}
	header := make(http.Header, len(t.headers))
	for k, v := range t.headers {
		header.Set(k, v)
	}
	return header
}

// dropConn closes a broken connection so the next batch redials. Caller holds batchMu.
func (t *WSTransport) dropConn() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

// SendBatch writes the batch as one text frame and waits for the reply array
func (t *WSTransport) SendBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
	reqBytes, err := jsonrpc.MarshalBatchRequest(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	t.batchMu.Lock()
	defer t.batchMu.Unlock()

	conn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	writeDeadline := time.Now().Add(t.messageTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(writeDeadline) {
		writeDeadline = d
	}
	conn.SetWriteDeadline(writeDeadline)
	conn.SetReadDeadline(time.Now().Add(t.messageTimeout))

	// unblock the read when ctx is done; registered after the deadlines so it wins
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteMessage(websocket.TextMessage, reqBytes); err != nil {
		t.dropConn()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to send batch: %w", err)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.dropConn()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to read batch response: %w", err)
		}

		if isNotification(message) {
			// subscription notifications share the connection
			t.logger.Debug().Int("bytes", len(message)).Msg("skipping notification")
			continue
		}

		responses, err := jsonrpc.ParseBatchResults(message)
		if err != nil {
			return nil, fmt.Errorf("failed to parse batch response: %w", err)
		}
		return responses, nil
	}
}

// isNotification reports whether a frame is a server notification rather than a reply
func isNotification(message []byte) bool {
	var frame struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return false
	}
	return frame.Method != ""
}

// Close closes the connection
func (t *WSTransport) Close() error {
	t.batchMu.Lock()
	defer t.batchMu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.dropConn()
	if err != nil {
		return fmt.Errorf("failed to close WebSocket: %w", err)
	}
	return nil
}
