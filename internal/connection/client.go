package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/vcaremind/voice-client/internal/shared"
	"github.com/vcaremind/voice-client/internal/transport"
)

const clientDisconnectReason = "client disconnect"

type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type Option func(*Client)

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithJitter replaces the random reconnect jitter source.
func WithJitter(fn func() time.Duration) Option {
	return func(c *Client) { c.jitter = fn }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

type Client struct {
	cfg    Config
	dialer Dialer
	clock  clock.Clock
	jitter func() time.Duration
	log    *slog.Logger

	mu              sync.Mutex
	state           State
	conn            *websocket.Conn
	generation      uint64
	retries         int
	shouldReconnect bool
	reconnectTimer  *clock.Timer
	reconnectSeq    uint64
	lastHeartbeat   time.Time
	heartbeatStop   chan struct{}
	dialCancel      context.CancelFunc

	writeMu sync.Mutex

	cbMu sync.RWMutex
	cb   Callbacks
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:   cfg.withDefaults(),
		clock: clock.New(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: c.cfg.HandshakeTimeout,
		}
	}
	if c.jitter == nil {
		maxJitter := c.cfg.Backoff.Jitter
		c.jitter = func() time.Duration {
			if maxJitter <= 0 {
				return 0
			}
			return rand.N(maxJitter)
		}
	}
	c.log = c.log.With("component", "ws_client")
	return c
}

func (c *Client) SetCallbacks(cb Callbacks) {
	c.cbMu.Lock()
	c.cb = cb
	c.cbMu.Unlock()
}

func (c *Client) callbacks() Callbacks {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	return c.cb
}

func (c *Client) URL() string {
	return c.cfg.URL
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) IsConnected() bool {
	return c.State() == StateOpen
}

func (c *Client) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

func (c *Client) ReconnectEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shouldReconnect
}

func (c *Client) LastHeartbeat() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHeartbeat
}

// Connect starts a connection attempt in the background. It is a no-op while
// a connection is open or being established.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	c.retries = 0
	c.shouldReconnect = true
	c.cancelReconnectLocked()
	gen, ctx := c.beginDialLocked()
	c.mu.Unlock()

	c.log.Info("connecting", "url", c.cfg.URL)
	c.emitState(StateConnecting)
	go c.dial(ctx, gen)
}

func (c *Client) beginDialLocked() (uint64, context.Context) {
	c.generation++
	c.state = StateConnecting
	if c.dialCancel != nil {
		c.dialCancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
	c.dialCancel = cancel
	return c.generation, ctx
}

func (c *Client) dial(ctx context.Context, gen uint64) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		if !c.isCurrent(gen) {
			return
		}
		c.log.Warn("dial failed", "error", err)
		c.emitError(fmt.Errorf("dial %s: %w", c.cfg.URL, err))
		c.handleClose(gen, transport.CloseAbnormal, err.Error())
		return
	}

	c.mu.Lock()
	if gen != c.generation || c.state != StateConnecting {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.retries = 0
	c.lastHeartbeat = c.clock.Now()
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	stop := make(chan struct{})
	c.heartbeatStop = stop
	c.mu.Unlock()

	conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		c.touch()
		return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	c.log.Info("connected", "url", c.cfg.URL)
	c.emitState(StateOpen)

	if err := c.Send(transport.NewSetupMessage()); err != nil {
		c.log.Warn("failed to send setup", "error", err)
	}

	if cb := c.callbacks().OnConnected; cb != nil {
		c.safe("on_connected", cb)
	}

	go c.heartbeat(stop)
	c.readPump(gen, conn)
}

func (c *Client) readPump(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.isCurrent(gen) {
				return
			}

			code, reason := transport.CloseAbnormal, err.Error()
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code, reason = closeErr.Code, closeErr.Text
			} else {
				c.log.Error("websocket read error", "error", err)
				c.emitError(fmt.Errorf("read frame: %w", err))
			}
			c.handleClose(gen, code, reason)
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		c.touch()

		resp, err := transport.ParseResponse(data)
		if err != nil {
			c.log.Warn("dropping malformed frame", "error", err, "bytes", len(data))
			if cb := c.callbacks().OnMalformed; cb != nil {
				c.safe("on_malformed", func() { cb(data, err) })
			}
			continue
		}

		if !c.isCurrent(gen) {
			return
		}
		if cb := c.callbacks().OnMessage; cb != nil {
			c.safe("on_message", func() { cb(resp) })
		}
	}
}

func (c *Client) handleClose(gen uint64, code int, reason string) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.generation++
	c.stopHeartbeatLocked()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected

	var retry *Retry
	permanent := false
	if code != transport.CloseNormal && c.shouldReconnect {
		if c.retries < c.cfg.Backoff.MaxAttempts {
			c.retries++
			r := Retry{
				Attempt: c.retries,
				Delay:   c.cfg.Backoff.Delay(c.retries),
				Jitter:  c.jitter(),
			}
			retry = &r
			c.reconnectSeq++
			seq := c.reconnectSeq
			c.reconnectTimer = c.clock.AfterFunc(r.Total(), func() { c.reconnect(seq) })
		} else {
			c.shouldReconnect = false
			permanent = true
		}
	}
	retries := c.retries
	c.mu.Unlock()

	c.log.Info("disconnected", "code", code, "reason", reason)
	c.emitState(StateDisconnected)
	if cb := c.callbacks().OnDisconnected; cb != nil {
		c.safe("on_disconnected", func() { cb(code, reason) })
	}

	switch {
	case retry != nil:
		c.log.Info("reconnect scheduled", "attempt", retry.Attempt, "delay", retry.Delay, "jitter", retry.Jitter)
		if cb := c.callbacks().OnReconnectScheduled; cb != nil {
			c.safe("on_reconnect_scheduled", func() { cb(*retry) })
		}
	case permanent:
		c.log.Error("max reconnect attempts reached, giving up", "attempts", retries)
	}
}

func (c *Client) reconnect(seq uint64) {
	c.mu.Lock()
	if seq != c.reconnectSeq || c.reconnectTimer == nil || !c.shouldReconnect || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	gen, ctx := c.beginDialLocked()
	attempt := c.retries
	c.mu.Unlock()

	c.log.Info("reconnecting", "attempt", attempt)
	c.emitState(StateConnecting)
	c.dial(ctx, gen)
}

// Disconnect closes the socket with a normal closure and disables
// reconnection until the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.shouldReconnect = false
	c.cancelReconnectLocked()
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	c.generation++
	c.stopHeartbeatLocked()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.emitState(StateClosing)

	if conn != nil {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(transport.CloseNormal, clientDisconnectReason)
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			c.log.Debug("failed to send close frame", "error", err)
		}
		c.writeMu.Unlock()
		_ = conn.Close()
	}

	c.mu.Lock()
	if c.state == StateClosing {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	c.log.Info("disconnected by client")
	c.emitState(StateDisconnected)
	if cb := c.callbacks().OnDisconnected; cb != nil {
		c.safe("on_disconnected", func() { cb(transport.CloseNormal, clientDisconnectReason) })
	}
}

func (c *Client) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.SendRaw(data)
}

func (c *Client) SendRaw(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		c.log.Warn("websocket not connected, dropping frame", "bytes", len(data))
		return shared.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Error("websocket write error", "error", err)
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Client) SendRealtimeInput(audioB64, imageB64 string) error {
	msg, err := transport.NewRealtimeInput(audioB64, imageB64)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

func (c *Client) SendEndOfStream() error {
	return c.Send(transport.NewEndOfStream())
}

func (c *Client) SendText(text string) error {
	if text == "" {
		return shared.ErrEmptyPayload
	}
	return c.Send(transport.TextMessage{Text: text})
}

func (c *Client) heartbeat(stop <-chan struct{}) {
	ticker := c.clock.Ticker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.Send(transport.NewPing()); err != nil {
				c.log.Debug("heartbeat failed", "error", err)
			}
		}
	}
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastHeartbeat = c.clock.Now()
	c.mu.Unlock()
}

func (c *Client) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.generation
}

func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnectSeq++
}

func (c *Client) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}

func (c *Client) emitState(state State) {
	if cb := c.callbacks().OnStateChange; cb != nil {
		c.safe("on_state_change", func() { cb(state) })
	}
}

func (c *Client) emitError(err error) {
	if cb := c.callbacks().OnError; cb != nil {
		c.safe("on_error", func() { cb(err) })
	}
}

func (c *Client) safe(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("callback panicked", "callback", name, "panic", r)
		}
	}()
	fn()
}
