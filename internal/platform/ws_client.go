package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures gateway client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// RequestTimeout bounds a request/response round trip.
	RequestTimeout time.Duration
}

// DefaultWSConfig returns default gateway client configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		RequestTimeout:    15 * time.Second,
	}
}

// WSClient implements Gateway using gorilla/websocket.
// One instance is shared by all consumers; it is the only owner of the
// socket and its write path. Consumers observe connection state through
// Status() snapshots.
type WSClient struct {
	endpoint  string
	authToken string
	config    WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	state         atomic.Int32 // ConnState
	authenticated atomic.Bool

	// pending maps request ID to channel waiting for the correlated response
	pending   map[uint64]chan *wsServerMessage
	pendingMu sync.Mutex

	// subs maps topic to subscriber channel; survives reconnects
	subs   map[string]chan json.RawMessage
	subsMu sync.RWMutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewWSClient connects to the gateway endpoint and authenticates.
// A failed initial authentication does not fail construction: the client
// stays connected-but-unauthenticated and retries on the next reconnect,
// so callers fall back to REST in the meantime.
func NewWSClient(ctx context.Context, endpoint, authToken string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint:  endpoint,
		authToken: authToken,
		config:    cfg,
		pending:   make(map[uint64]chan *wsServerMessage),
		subs:      make(map[string]chan json.RawMessage),
		done:      make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	if err := c.authenticate(ctx); err != nil {
		c.authenticated.Store(false)
	}

	return c, nil
}

// Status returns the current connection state snapshot.
func (c *WSClient) Status() GatewayStatus {
	return GatewayStatus{
		State:         ConnState(c.state.Load()),
		Authenticated: c.authenticated.Load(),
	}
}

// connect establishes the WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))

	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("gateway dial: %w", err)
	}

	c.conn = conn
	c.state.Store(int32(StateConnected))
	return nil
}

// authenticate performs the auth handshake and flips the authenticated flag.
func (c *WSClient) authenticate(ctx context.Context) error {
	if c.authToken == "" {
		return fmt.Errorf("no auth token configured")
	}

	_, err := c.Request(ctx, "auth", "login", map[string]interface{}{
		"token": c.authToken,
	})
	if err != nil {
		return fmt.Errorf("gateway auth: %w", err)
	}

	c.authenticated.Store(true)
	return nil
}

// Request sends a correlated request and waits for the matching response.
func (c *WSClient) Request(ctx context.Context, topic, action string, params map[string]interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsClientMessage{
		ID:     reqID,
		Topic:  topic,
		Action: action,
		Params: params,
	}

	confirmCh := make(chan *wsServerMessage, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = confirmCh
	c.pendingMu.Unlock()

	if err := c.write(req); err != nil {
		c.dropPending(reqID)
		return nil, err
	}

	timeout := c.config.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	select {
	case resp, ok := <-confirmCh:
		if !ok || resp == nil {
			return nil, fmt.Errorf("client closed")
		}
		if !resp.Success {
			msg := resp.Message
			if msg == "" {
				msg = "request rejected"
			}
			return nil, fmt.Errorf("gateway %s/%s: %s", topic, action, msg)
		}
		return resp.Data, nil
	case <-time.After(timeout):
		c.dropPending(reqID)
		return nil, fmt.Errorf("gateway %s/%s: timeout after %v", topic, action, timeout)
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	case <-ctx.Done():
		c.dropPending(reqID)
		return nil, ctx.Err()
	}
}

// Subscribe registers for DATA messages on a topic.
func (c *WSClient) Subscribe(ctx context.Context, topic string) (<-chan json.RawMessage, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	c.subsMu.Lock()
	if ch, exists := c.subs[topic]; exists {
		c.subsMu.Unlock()
		return ch, nil
	}
	// Buffer absorbs bursts between consumer reads; DATA messages for a
	// full channel are dropped rather than blocking the read loop, since
	// every topic also has a REST path to recover from.
	ch := make(chan json.RawMessage, 1024)
	c.subs[topic] = ch
	c.subsMu.Unlock()

	if _, err := c.Request(ctx, topic, "subscribe", nil); err != nil {
		c.subsMu.Lock()
		delete(c.subs, topic)
		c.subsMu.Unlock()
		close(ch)
		return nil, err
	}

	return ch, nil
}

// write sends one message; the connection mutex makes this the single writer.
func (c *WSClient) write(msg wsClientMessage) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

// dropPending removes a pending request entry.
func (c *WSClient) dropPending(reqID uint64) {
	c.pendingMu.Lock()
	delete(c.pending, reqID)
	c.pendingMu.Unlock()
}

// Close closes the gateway connection and releases all waiters.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for topic, ch := range c.subs {
		close(ch)
		delete(c.subs, topic)
	}
	c.subsMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.state.Store(int32(StateDisconnected))
	c.authenticated.Store(false)

	c.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches to pending requests and subscribers.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			c.state.Store(int32(StateDisconnected))
			c.authenticated.Store(false)

			// Connection error - attempt reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect, re-authenticate and resubscribe.
func (c *WSClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	if err := c.authenticate(ctx); err != nil {
		// Stay connected-but-unauthenticated; consumers route to REST
		return
	}

	c.resubscribeAll(ctx)
}

// resubscribeAll re-issues subscribe requests for all active topics,
// keeping the existing subscriber channels.
func (c *WSClient) resubscribeAll(ctx context.Context) {
	c.subsMu.RLock()
	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	c.subsMu.RUnlock()

	for _, topic := range topics {
		if _, err := c.Request(ctx, topic, "subscribe", nil); err != nil {
			// Failed to resubscribe; the topic recovers on next reconnect
			continue
		}
	}
}

// handleMessage processes one incoming gateway message.
func (c *WSClient) handleMessage(message []byte) {
	var msg wsServerMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case msgTypeResponse, msgTypeError:
		c.handleResponse(&msg)
	case msgTypeData:
		c.handleData(&msg)
	}
}

// handleResponse delivers a correlated response to its waiter.
func (c *WSClient) handleResponse(msg *wsServerMessage) {
	if msg.Type == msgTypeError {
		msg.Success = false
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[msg.ID]
	if ok {
		delete(c.pending, msg.ID)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- msg:
		default:
		}
	}
}

// handleData dispatches a DATA message to the topic subscriber.
func (c *WSClient) handleData(msg *wsServerMessage) {
	c.subsMu.RLock()
	ch, ok := c.subs[msg.Topic]
	c.subsMu.RUnlock()

	if !ok {
		return
	}

	select {
	case ch <- msg.Data:
	case <-c.done:
	default:
		// Subscriber is not keeping up; drop and let REST refresh catch up
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}

// Gateway message framing

const (
	msgTypeResponse = "RESPONSE"
	msgTypeData     = "DATA"
	msgTypeError    = "ERROR"
)

type wsClientMessage struct {
	ID     uint64                 `json:"id"`
	Topic  string                 `json:"topic"`
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type wsServerMessage struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

var _ Gateway = (*WSClient)(nil)
