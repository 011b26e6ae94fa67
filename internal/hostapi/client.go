package hostapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lookout-gallery/internal/logging"
)

// ErrNotConnected is returned by Call when the host connection is down.
// Callers treat it as a transient failure and retry on the next pass.
var ErrNotConnected = errors.New("host connection not established")

const (
	defaultCallTimeout = 10 * time.Second
	writeTimeout       = 10 * time.Second

	reconnectMinDelay = time.Second
	reconnectMaxDelay = 30 * time.Second
)

// request is the JSON envelope sent to the host. The correlation sequence
// is separate from the content identifier carried by most operations.
type request struct {
	Seq       int64  `json:"seq"`
	Operation string `json:"operation"`
	ID        string `json:"id,omitempty"`
}

// response is the JSON envelope received from the host.
type response struct {
	Seq     int64           `json:"seq"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Client is a request/response client over a single websocket connection
// to the host API. It reconnects with backoff and notifies registered
// hooks whenever a connection is (re)established.
type Client struct {
	url string

	mu        sync.Mutex
	conn      *websocket.Conn
	seq       int64
	pending   map[int64]chan response
	onConnect []func()

	callTimeout time.Duration
}

// NewClient creates a client for the host API at url (ws:// or wss://).
// It does not connect; call Run to start the connection manager.
func NewClient(url string) *Client {
	return &Client{
		url:         url,
		pending:     make(map[int64]chan response),
		callTimeout: defaultCallTimeout,
	}
}

// OnConnect registers a hook invoked after every successful connect,
// including reconnects. Register hooks before calling Run.
func (c *Client) OnConnect(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = append(c.onConnect, hook)
}

// Connected reports whether the websocket connection is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run dials the host and keeps the connection alive until ctx is
// cancelled, reconnecting with exponential backoff. It blocks; run it in
// a goroutine.
func (c *Client) Run(ctx context.Context) {
	delay := reconnectMinDelay

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Warn("Host connection failed, retrying in %v: %v", delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		logging.Info("Host connection established: %s", c.url)
		delay = reconnectMinDelay

		c.mu.Lock()
		c.conn = conn
		hooks := make([]func(), len(c.onConnect))
		copy(hooks, c.onConnect)
		c.mu.Unlock()

		for _, hook := range hooks {
			go hook()
		}

		c.readLoop(ctx, conn)

		c.teardown(conn)
		if ctx.Err() != nil {
			return
		}
		logging.Warn("Host connection lost, reconnecting")
	}
}

// readLoop dispatches responses to waiting callers until the connection
// breaks or ctx is cancelled.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var resp response
		if err := conn.ReadJSON(&resp); err != nil {
			if ctx.Err() == nil {
				logging.Debug("Host read error: %v", err)
			}
			return
		}

		c.mu.Lock()
		ch := c.pending[resp.Seq]
		delete(c.pending, resp.Seq)
		c.mu.Unlock()

		if ch != nil {
			ch <- resp
		}
	}
}

// teardown clears the connection and fails all in-flight calls.
func (c *Client) teardown(conn *websocket.Conn) {
	_ = conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	orphaned := c.pending
	c.pending = make(map[int64]chan response)
	c.mu.Unlock()

	for _, ch := range orphaned {
		ch <- response{Success: false, Error: ErrNotConnected.Error()}
	}
}

// Call sends an operation to the host and decodes the result into out
// (which may be nil for operations without a result payload).
func (c *Client) Call(ctx context.Context, operation, contentID string, out interface{}) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.seq++
	req := request{Seq: c.seq, Operation: operation, ID: contentID}
	ch := make(chan response, 1)
	c.pending[req.Seq] = ch

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(req)
	c.mu.Unlock()

	if err != nil {
		c.forget(req.Seq)
		return fmt.Errorf("failed to send %s request: %w", operation, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	select {
	case resp := <-ch:
		if !resp.Success {
			if resp.Error == ErrNotConnected.Error() {
				return ErrNotConnected
			}
			return fmt.Errorf("%s failed: %s", operation, resp.Error)
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", operation, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.forget(req.Seq)
		return ctx.Err()
	}
}

func (c *Client) forget(seq int64) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}
