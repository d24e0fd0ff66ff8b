/*
Package transport owns the client's single WebSocket connection to the chat server.

A Channel is created once per application session and shared by every session state. It exposes
a non-blocking Send and pushes every inbound text frame to a Publisher in arrival order. The
Channel knows nothing about the chat protocol.

This file defines the Channel struct and its connection lifecycle; pump.go contains the read and
write loops of one live connection.
*/
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lumochat/internal/pkg/logx"
	"lumochat/internal/pkg/metrics"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed to wait for a Pong message from the server.
	pongWait = 60 * time.Second

	// frequency at which the client sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame received from the server.
	maxFrameSize = 64 * 1024

	// capacity of the outbound queue; Send fails instead of blocking when it is full.
	sendQueueSize = 256
)

var (
	// ErrClosed is returned by Send when no connection is currently open.
	ErrClosed = errors.New("transport: connection closed")

	// ErrQueueFull is returned by Send when the outbound queue cannot take another frame.
	ErrQueueFull = errors.New("transport: send queue full")
)

// Publisher receives every inbound frame, one at a time, in arrival order.
type Publisher interface {
	Publish(frame string)
}

// Options tunes a Channel. Zero values fall back to defaults.
type Options struct {
	// HandshakeTimeout bounds the WebSocket opening handshake.
	HandshakeTimeout time.Duration

	// Header is sent with the opening handshake.
	Header http.Header
}

// Channel is the process-wide connection owner.
type Channel struct {
	url       string
	dialer    *websocket.Dialer
	header    http.Header
	publisher Publisher

	// mu protects current and hooks.
	mu sync.RWMutex

	// current is the live connection, nil while closed.
	current *link

	// hooks run after every successful Connect.
	hooks      map[uint64]func()
	nextHookID uint64

	logger zerolog.Logger
}

// NewChannel constructs a Channel for url that publishes inbound frames to publisher.
// No connection is made until Connect is called.
func NewChannel(url string, publisher Publisher, opts Options) *Channel {
	handshake := opts.HandshakeTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}

	return &Channel{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshake,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
		header:    opts.Header,
		publisher: publisher,
		hooks:     make(map[uint64]func()),
		logger:    logx.Component("transport").With().Str("url", url).Logger(),
	}
}

// Connect dials the server and starts the read and write pumps. It is a no-op when a
// connection is already open. OnOpen hooks run synchronously before Connect returns.
func (c *Channel) Connect(ctx context.Context) error {
	if c.IsOpen() {
		return nil
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("transport: dial %s: %w (HTTP %d)", c.url, err, resp.StatusCode)
		}
		return fmt.Errorf("transport: dial %s: %w", c.url, err)
	}

	l := newLink(conn, c.logger)

	c.mu.Lock()
	if c.current != nil {
		// Lost a race with a concurrent Connect; keep the existing connection.
		c.mu.Unlock()
		if err := conn.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to close redundant connection.")
		}
		return nil
	}
	c.current = l
	hooks := make([]func(), 0, len(c.hooks))
	for _, fn := range c.hooks {
		hooks = append(hooks, fn)
	}
	c.mu.Unlock()

	metrics.Incr(metrics.TransportOpen, 1)
	c.logger.Info().Msg("Connection established.")

	go c.writePump(l)
	go c.readPump(l)

	for _, fn := range hooks {
		fn()
	}

	return nil
}

// Send queues frame for delivery without blocking. It returns ErrClosed when no connection is
// open and ErrQueueFull when the outbound queue is saturated.
func (c *Channel) Send(frame string) error {
	// Holding the read lock across the enqueue keeps teardown from swapping the link mid-send.
	c.mu.RLock()
	defer c.mu.RUnlock()

	l := c.current
	if l == nil {
		return ErrClosed
	}

	select {
	case <-l.done:
		return ErrClosed
	default:
	}

	select {
	case l.send <- []byte(frame):
		return nil
	default:
		metrics.Incr(metrics.TransportDropped, 1)
		c.logger.Warn().Int("queue_len", len(l.send)).Msg("Send queue full, rejecting frame.")
		return ErrQueueFull
	}
}

// IsOpen reports whether a connection is currently live.
func (c *Channel) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current != nil
}

// Done returns a channel closed when the current connection ends. When no connection is open
// the returned channel is already closed.
func (c *Channel) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.current.done
}

// OnOpen registers fn to run after every successful Connect, including reconnects made by a
// caller-provided policy. It returns a func that removes the hook.
func (c *Channel) OnOpen(fn func()) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextHookID++
	id := c.nextHookID
	c.hooks[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.hooks, id)
	}
}

// Close sends a normal-closure frame and tears the connection down. Closing an already
// closed Channel is a no-op.
func (c *Channel) Close() error {
	c.mu.RLock()
	l := c.current
	c.mu.RUnlock()

	if l == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing")
	err := l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Warn().Err(err).Msg("Failed to send close frame.")
	}

	c.teardown(l)
	return nil
}

// teardown detaches l from the Channel and releases it. Safe to call from both pumps.
func (c *Channel) teardown(l *link) {
	c.mu.Lock()
	if c.current == l {
		c.current = nil
	}
	c.mu.Unlock()

	if l.release() {
		c.logger.Info().Msg("Connection closed.")
	}
}
