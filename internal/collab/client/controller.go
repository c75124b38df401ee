// Package client implements the connection side of a collaboration session:
// a reconnecting websocket controller with exponential backoff, echo
// suppression for applied remote patches, and bounded retry for state
// publication. Servers do not use this package; it exists for Go clients
// and for the end-to-end tests.
package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the controller needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a new connection. The controller calls it for the initial
// connect and for every reconnect.
type Dialer func(ctx context.Context) (Conn, error)

// Config tunes the controller.
type Config struct {
	// Reconnect backoff: floor, growth factor per consecutive failure, cap.
	BackoffFloor  time.Duration
	BackoffFactor float64
	BackoffCap    time.Duration

	// SuppressWindow is how long after a remote patch local publication
	// stays muted.
	SuppressWindow time.Duration

	// PublishAttempts bounds how many times Publish retries a failed
	// write before giving up; PublishRetryDelay spaces the attempts.
	PublishAttempts   int
	PublishRetryDelay time.Duration
}

// DefaultConfig returns the tuning used by the reference client.
func DefaultConfig() Config {
	return Config{
		BackoffFloor:      3 * time.Second,
		BackoffFactor:     1.5,
		BackoffCap:        30 * time.Second,
		SuppressWindow:    150 * time.Millisecond,
		PublishAttempts:   3,
		PublishRetryDelay: time.Second,
	}
}

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("collab client closed")

// Controller maintains one logical session over any number of physical
// connections. OnOpen fires after every successful (re)connect so the owner
// can re-join its room; OnMessage fires for every inbound frame.
type Controller struct {
	cfg  Config
	dial Dialer
	log  *slog.Logger

	OnOpen    func(ctx context.Context, conn Conn)
	OnMessage func(payload []byte)

	Suppress *Suppressor

	mu     sync.Mutex
	conn   Conn
	cancel context.CancelFunc
	closed bool
}

// NewController creates a controller; Run starts it.
func NewController(cfg Config, dial Dialer, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		dial:     dial,
		log:      logger.With("component", "collab-client"),
		Suppress: NewSuppressor(cfg.SuppressWindow),
	}
}

// Run connects and keeps the session alive until ctx is canceled or Close
// is called. Every drop restarts the backoff-paced dial loop; a successful
// open resets the backoff to its floor.
func (c *Controller) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	backoff := Backoff{Floor: c.cfg.BackoffFloor, Factor: c.cfg.BackoffFactor, Cap: c.cfg.BackoffCap}

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			delay := backoff.Next()
			c.log.Warn("connect failed", slog.Any("error", err), slog.Duration("retry_in", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		backoff.Reset()
		c.setConn(conn)
		c.log.Info("connected")

		if c.OnOpen != nil {
			c.OnOpen(ctx, conn)
		}

		c.readLoop(ctx, conn)
		c.setConn(nil)

		if ctx.Err() != nil {
			return
		}
		c.log.Info("connection lost, reconnecting")
	}
}

func (c *Controller) readLoop(ctx context.Context, conn Conn) {
	defer conn.Close()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if c.OnMessage != nil {
			c.OnMessage(payload)
		}
	}
}

// Publish sends a state snapshot, retrying a bounded number of times when
// no connection is up or the write fails. Callers should consult
// Suppress.Active first; a muted publication is the caller's decision.
func (c *Controller) Publish(ctx context.Context, payload []byte) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.PublishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.PublishRetryDelay):
			}
		}

		conn, closed := c.currentConn()
		if closed {
			return ErrClosed
		}
		if conn == nil {
			lastErr = errors.New("not connected")
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// Close tears the session down for good.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	cancel := c.cancel
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
}

func (c *Controller) setConn(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.conn = conn
}

func (c *Controller) currentConn() (Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.closed
}

// DialURL adapts gorilla's dialer to the Dialer type for production use,
// e.g. DialURL("wss://host/ws?canvas=...&jwt=...").
func DialURL(url string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
