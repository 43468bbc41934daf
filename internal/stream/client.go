package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a receive-only WebSocket connection to one panel stream
// endpoint. Liveness is enforced with a read deadline that ping/pong
// traffic keeps pushing forward; a silent connection dies within
// ReadTimeout.
type Client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	messages chan Message
	errs     chan error
	done     chan struct{}

	mu        sync.RWMutex
	connected bool
	closed    bool
}

// NewClient creates a client for cfg.URL. Connect must be called before
// messages flow.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	return &Client{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan Message, cfg.BufferSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Connect performs the WebSocket handshake and starts the read and
// keepalive loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.cfg.WriteTimeout))
	})

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.keepaliveLoop(conn)

	c.logger.Debug("stream connected", "url", c.cfg.URL)
	return nil
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	close(c.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteTimeout),
		)
		return conn.Close()
	}
	return nil
}

// Messages returns the channel of received frames.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Errors returns the channel of connection errors. At most one error is
// delivered; the connection is dead afterwards.
func (c *Client) Errors() <-chan error {
	return c.errs
}

// IsConnected reports whether the connection is live.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			select {
			case <-c.done:
				// Close() already ran; not a failure.
			default:
				select {
				case c.errs <- err:
				default:
				}
			}
			return
		}

		select {
		case c.messages <- Message{Data: data, ReceivedAt: receivedAt}:
		case <-c.done:
			return
		default:
			c.logger.Warn("stream buffer full, dropping frame", "url", c.cfg.URL)
		}
	}
}

func (c *Client) keepaliveLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("keepalive ping failed", "err", err)
				return
			}
		}
	}
}
