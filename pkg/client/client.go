// Package client maintains a room connection from the application side:
// dial, join, identify, and automatic reconnection with exponential
// backoff once a session is worth resuming.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/tablelink/tablelink/pkg/protocol"
)

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateBackoff
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateBackoff:
		return "backoff"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config describes the room to maintain a connection to.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string
	// Room is the room code to join on every (re)connect.
	Room string
	// ClientType is sent in the IDENTIFY message after joining.
	ClientType protocol.ClientType
	// DialTimeout bounds each dial attempt. Defaults to 10s.
	DialTimeout time.Duration
}

// Client dials a relay room and keeps the connection alive. Before the
// first successful pairing or login the client gives up on the first
// failure; afterwards (MarkResumable) it reconnects with backoff and
// replays the join handshake, leaving session resumption to the OnOpen
// hook.
type Client struct {
	logger *slog.Logger
	config Config

	mu           sync.Mutex
	state        State
	conn         *websocket.Conn
	attempt      int
	resumable    bool
	pairCode     string
	sessionToken string

	onMessage func(data []byte)
	onOpen    func()
}

func New(logger *slog.Logger, config Config) *Client {
	if config.DialTimeout <= 0 {
		config.DialTimeout = 10 * time.Second
	}
	return &Client{
		logger: logger,
		config: config,
		state:  StateIdle,
	}
}

// SetOnMessage registers the handler for incoming room traffic. Must be
// called before Run.
func (c *Client) SetOnMessage(fn func(data []byte)) { c.onMessage = fn }

// SetOnOpen registers a hook invoked after each completed join
// handshake. Re-pairing and token login belong here. Must be called
// before Run.
func (c *Client) SetOnOpen(fn func()) { c.onOpen = fn }

// MarkResumable arms automatic reconnection. Call it once the session
// has something worth resuming, i.e. after a successful pairing or
// login.
func (c *Client) MarkResumable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumable = true
}

// RememberPairingCode stores a pairing code to replay after every
// reconnect and arms reconnection.
func (c *Client) RememberPairingCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairCode = code
	c.resumable = true
}

// RememberSessionToken stores a session token to replay after every
// reconnect and arms reconnection. A token takes precedence over a
// pairing code.
func (c *Client) RememberSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = token
	c.resumable = true
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Send marshals and writes one message to the room.
func (c *Client) Send(ctx context.Context, msgType protocol.MessageType, payload any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("client: not connected")
	}
	data, err := protocol.MakeEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Run connects and blocks until the context is cancelled or the
// connection is lost without a session to resume.
func (c *Client) Run(ctx context.Context) error {
	for {
		c.setState(StateConnecting)
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return ctx.Err()
		}

		c.mu.Lock()
		resumable := c.resumable
		attempt := c.attempt
		c.attempt++
		c.mu.Unlock()

		if !resumable {
			c.setState(StateClosed)
			return err
		}

		delay := Delay(attempt)
		c.setState(StateBackoff)
		c.logger.Info("connection lost, reconnecting", "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			c.setState(StateClosed)
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	conn, _, err := websocket.Dial(dialCtx, c.config.URL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.config.URL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := c.writeEnvelope(ctx, conn, protocol.TypeJoin, protocol.JoinPayload{Room: c.config.Room}); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	if c.config.ClientType != protocol.ClientTypeUnknown {
		if err := c.writeEnvelope(ctx, conn, protocol.TypeIdentify, protocol.IdentifyPayload{ClientType: string(c.config.ClientType)}); err != nil {
			return fmt.Errorf("identify: %w", err)
		}
	}
	if err := c.resumeSession(ctx, conn); err != nil {
		return fmt.Errorf("resume session: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.attempt = 0
	c.state = StateOpen
	c.mu.Unlock()
	c.logger.Info("joined room", "room", c.config.Room, "clientType", c.config.ClientType)

	if c.onOpen != nil {
		c.onOpen()
	}

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if c.onMessage != nil {
			c.onMessage(data)
		}
	}
}

// resumeSession replays the stored session credential after the join
// handshake, so a reconnect lands back in the paired or logged-in state.
func (c *Client) resumeSession(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	token := c.sessionToken
	code := c.pairCode
	c.mu.Unlock()

	if token != "" {
		return c.writeEnvelope(ctx, conn, protocol.TypeLoginWithToken, protocol.LoginWithTokenPayload{SessionToken: token})
	}
	if code != "" {
		return c.writeEnvelope(ctx, conn, protocol.TypePair, protocol.PairPayload{Code: code})
	}
	return nil
}

func (c *Client) writeEnvelope(ctx context.Context, conn *websocket.Conn, msgType protocol.MessageType, payload any) error {
	data, err := protocol.MakeEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
