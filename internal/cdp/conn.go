package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"

	"github.com/loftside/swingbridge/internal/logging"
)

var (
	// ErrCommandTimeout means a command's correlated response never arrived.
	ErrCommandTimeout = errors.New("command response timeout")
	// ErrClosed means the connection was closed while a command was pending.
	ErrClosed = errors.New("connection closed")
	// ErrHandshake marks failures during the attach/enable sequence.
	ErrHandshake = errors.New("transport handshake failed")
)

const (
	// defaultCommandTimeout bounds every individual command round trip.
	defaultCommandTimeout = 30 * time.Second
	// defaultHandshakeTimeout bounds the whole attach/enable sequence after
	// the socket opens.
	defaultHandshakeTimeout = 20 * time.Second
)

// Option adjusts connection behavior.
type Option func(*Conn)

// WithCommandTimeout overrides the per-command response timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.cmdTimeout = d
		}
	}
}

// WithHandshakeTimeout overrides the attach/enable sequence budget.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.hsTimeout = d
		}
	}
}

// protocol wire types
type command struct {
	ID        int    `json:"id"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type response struct {
	ID        int                 `json:"id"`
	Result    easyjson.RawMessage `json:"result,omitempty"`
	Error     *commandError       `json:"error,omitempty"`
	SessionID string              `json:"sessionId,omitempty"`
}

type commandError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type protocolEvent struct {
	Method    string              `json:"method"`
	Params    easyjson.RawMessage `json:"params,omitempty"`
	SessionID string              `json:"sessionId,omitempty"`
}

type pendingCommand struct {
	resolve chan easyjson.RawMessage
	reject  chan error
	timer   *time.Timer
}

// EventHandler receives unsolicited protocol events for one method.
type EventHandler func(params easyjson.RawMessage, sessionID string)

// Conn is one multiplexed protocol connection to a remote browser. Commands
// are correlated to responses purely by id; the attached page target's
// session id is recorded once during Dial and tags every Send.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex // protects writes to ws

	mu            sync.Mutex
	pending       map[int]*pendingCommand
	nextRequestID int
	handlers      map[string][]EventHandler
	closed        bool

	cmdTimeout time.Duration
	hsTimeout  time.Duration

	sessionID string // attached page target session
	targetID  target.ID
}

// Dial opens the WebSocket, starts the read loop, and runs the attach
// handshake: enumerate page targets (create one when none exist), attach in
// flatten mode, then enable the page and runtime domains on the attached
// target. Any handshake failure closes the socket.
func Dial(ctx context.Context, wsURL string, opts ...Option) (*Conn, error) {
	c := &Conn{
		pending:       make(map[int]*pendingCommand),
		nextRequestID: 1,
		handlers:      make(map[string][]EventHandler),
		cmdTimeout:    defaultCommandTimeout,
		hsTimeout:     defaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.hsTimeout,
		// Page evaluation payloads can exceed the default buffer size.
		ReadBufferSize:  1 << 20,
		WriteBufferSize: 1 << 20,
	}
	ws, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	c.ws = ws
	go c.readLoop()

	if err := c.handshake(); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return c, nil
}

// handshake attaches to a page target and enables the domains the
// automation primitives depend on. The whole sequence shares one deadline.
func (c *Conn) handshake() error {
	deadline := time.Now().Add(c.hsTimeout)

	raw, err := c.send("Target.getTargets", nil, "", time.Until(deadline))
	if err != nil {
		return fmt.Errorf("list targets: %w", err)
	}
	var targets target.GetTargetsReturns
	if err := json.Unmarshal(raw, &targets); err != nil {
		return fmt.Errorf("decode targets: %w", err)
	}

	var targetID target.ID
	for _, info := range targets.TargetInfos {
		if info.Type == "page" {
			targetID = info.TargetID
			break
		}
	}
	if targetID == "" {
		raw, err := c.send("Target.createTarget", target.CreateTargetParams{URL: "about:blank"}, "", time.Until(deadline))
		if err != nil {
			return fmt.Errorf("create target: %w", err)
		}
		var created target.CreateTargetReturns
		if err := json.Unmarshal(raw, &created); err != nil {
			return fmt.Errorf("decode created target: %w", err)
		}
		targetID = created.TargetID
	}

	raw, err = c.send("Target.attachToTarget", target.AttachToTargetParams{TargetID: targetID, Flatten: true}, "", time.Until(deadline))
	if err != nil {
		return fmt.Errorf("attach to target: %w", err)
	}
	var attached target.AttachToTargetReturns
	if err := json.Unmarshal(raw, &attached); err != nil {
		return fmt.Errorf("decode attach result: %w", err)
	}
	if attached.SessionID == "" {
		return errors.New("attach returned no session id")
	}

	c.mu.Lock()
	c.sessionID = string(attached.SessionID)
	c.targetID = targetID
	c.mu.Unlock()

	if _, err := c.send("Page.enable", nil, c.sessionID, time.Until(deadline)); err != nil {
		return fmt.Errorf("enable page domain: %w", err)
	}
	if _, err := c.send("Runtime.enable", nil, c.sessionID, time.Until(deadline)); err != nil {
		return fmt.Errorf("enable runtime domain: %w", err)
	}
	logging.Debugf("cdp: attached to target %s as session %s", targetID, c.sessionID)
	return nil
}

// Send issues a command against the attached page target and awaits its
// correlated response. Timed-out commands are discarded, never retried.
func (c *Conn) Send(method string, params any) (easyjson.RawMessage, error) {
	c.mu.Lock()
	sessionID := c.sessionID
	timeout := c.cmdTimeout
	c.mu.Unlock()
	return c.send(method, params, sessionID, timeout)
}

// SendBrowser issues a command against the browser root rather than the
// attached page target.
func (c *Conn) SendBrowser(method string, params any) (easyjson.RawMessage, error) {
	return c.send(method, params, "", c.cmdTimeout)
}

func (c *Conn) send(method string, params any, sessionID string, timeout time.Duration) (easyjson.RawMessage, error) {
	if timeout <= 0 {
		return nil, ErrCommandTimeout
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	id := c.nextRequestID
	c.nextRequestID++

	resolve := make(chan easyjson.RawMessage, 1)
	reject := make(chan error, 1)
	timer := time.AfterFunc(timeout, func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		reject <- fmt.Errorf("%w: %s after %s", ErrCommandTimeout, method, timeout.Round(time.Millisecond))
	})
	c.pending[id] = &pendingCommand{
		resolve: resolve,
		reject:  reject,
		timer:   timer,
	}
	c.mu.Unlock()

	cmd := &command{
		ID:        id,
		Method:    method,
		Params:    params,
		SessionID: sessionID,
	}
	c.writeMu.Lock()
	err := c.ws.WriteJSON(cmd)
	c.writeMu.Unlock()

	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		timer.Stop()
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	select {
	case result := <-resolve:
		return result, nil
	case err := <-reject:
		return nil, err
	}
}

// OnEvent registers a handler for one protocol event method. Handlers run
// on the read loop goroutine and must not block.
func (c *Conn) OnEvent(method string, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[method] = append(c.handlers[method], handler)
}

// TargetSessionID returns the attached page target's session id.
func (c *Conn) TargetSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Conn) readLoop() {
	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.failPending(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}
		c.handleMessage(message)
	}
}

func (c *Conn) handleMessage(data []byte) {
	// Responses carry an id; everything else is an event.
	var resp response
	if err := json.Unmarshal(data, &resp); err == nil && resp.ID > 0 {
		c.mu.Lock()
		pending := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if pending != nil {
			pending.timer.Stop()
			if resp.Error != nil {
				pending.reject <- fmt.Errorf("%s", resp.Error.Message)
			} else {
				pending.resolve <- resp.Result
			}
		}
		return
	}

	var evt protocolEvent
	if err := json.Unmarshal(data, &evt); err != nil || evt.Method == "" {
		return
	}
	c.mu.Lock()
	handlers := append([]EventHandler(nil), c.handlers[evt.Method]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(evt.Params, evt.SessionID)
	}
}

// failPending rejects every in-flight command, for disconnect and close.
func (c *Conn) failPending(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, pending := range c.pending {
		pending.timer.Stop()
		pending.reject <- cause
		delete(c.pending, id)
	}
}

// Close tears down the connection and rejects anything still pending.
// Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.failPending(ErrClosed)
	return c.ws.Close()
}
