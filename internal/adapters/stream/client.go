package stream

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"covertrack/internal/metrics"
	"covertrack/pkg/errors"
	"covertrack/pkg/logger"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateSubscribed
	StateReceiving
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribed:
		return "subscribed"
	case StateReceiving:
		return "receiving"
	default:
		return "disconnected"
	}
}

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	closeTimeout     = 10 * time.Second
)

type controlFrame struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

// Client maintains the persistent feed socket: dial, auth handshake, queued
// subscriptions, parse, reconnect. It never touches the store; parsed events
// go out on a channel and a single consumer owns all writes.
type Client struct {
	url       string
	apiKey    string
	reconnect ReconnectConfig
	log       *logger.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	subs   map[string]struct{} // desired subscription set
	closed bool

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a streaming client for the given socket URL and API key.
func NewClient(url, apiKey string, rc ReconnectConfig) *Client {
	return &Client{
		url:       url,
		apiKey:    apiKey,
		reconnect: rc,
		log:       logger.Get().With("component", "stream"),
		subs:      make(map[string]struct{}),
		events:    make(chan Event, 256),
	}
}

// Events returns the channel of parsed inbound events. It is closed when the
// client shuts down for good.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscriptions returns the desired subscription set, sorted.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedSubsLocked()
}

func (c *Client) sortedSubsLocked() []string {
	topics := make([]string, 0, len(c.subs))
	for t := range c.subs {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// StockTopic encodes an aggregate-minute subscription for an equity symbol.
func StockTopic(ticker string) string {
	return "AM.S:" + strings.ToUpper(strings.TrimSpace(ticker))
}

// ContractTopic encodes an aggregate-minute subscription for an option
// contract in OCC form.
func ContractTopic(occ string) string {
	return "AM.O:" + strings.ToUpper(strings.TrimSpace(occ))
}

// Start dials the feed and launches the background receive loop. The loop
// re-authenticates and re-subscribes automatically after drops until Close
// is called or the backoff budget is exhausted.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.ErrWSClosed
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	if err := c.connect(); err != nil {
		return err
	}

	c.wg.Add(1)
	go c.run()
	return nil
}

// Subscribe adds topics to the subscription set. Safe to call before the
// auth handshake completes: queued topics flush once authenticated.
func (c *Client) Subscribe(topics ...string) error {
	c.mu.Lock()
	fresh := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := c.subs[t]; !ok {
			c.subs[t] = struct{}{}
			fresh = append(fresh, t)
		}
	}
	authed := c.state == StateSubscribed || c.state == StateReceiving
	conn := c.conn
	c.mu.Unlock()

	if !authed || conn == nil || len(fresh) == 0 {
		if len(fresh) > 0 {
			c.log.Debugf("queued %d subscriptions", len(fresh))
		}
		return nil
	}
	sort.Strings(fresh)
	return c.writeControl("subscribe", fresh)
}

// Unsubscribe removes topics from the subscription set.
func (c *Client) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	removed := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.ToUpper(strings.TrimSpace(t))
		if _, ok := c.subs[t]; ok {
			delete(c.subs, t)
			removed = append(removed, t)
		}
	}
	authed := c.state == StateSubscribed || c.state == StateReceiving
	c.mu.Unlock()

	if !authed || len(removed) == 0 {
		return nil
	}
	sort.Strings(removed)
	return c.writeControl("unsubscribe", removed)
}

// Close terminates the receive loop and joins background goroutines within a
// bounded timeout. Callable from any goroutine.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.log.Info("stream closed")
		return nil
	case <-time.After(closeTimeout):
		return errors.Wrap(errors.ErrWSClosed, "receive loop did not stop in time")
	}
}

// connect dials the socket and sends the auth frame. Auth confirmation
// arrives asynchronously as a status event handled by the receive loop.
func (c *Client) connect() error {
	c.setState(StateConnecting)
	c.log.Infof("connecting to %s", c.url)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		c.setState(StateDisconnected)
		return errors.Wrapf(err, "dial %s", c.url)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateAuthenticating
	c.mu.Unlock()

	if err := c.writeControl("auth", []string{c.apiKey}); err != nil {
		conn.Close()
		c.setState(StateDisconnected)
		return errors.Wrap(err, "send auth")
	}
	return nil
}

// run owns the receive loop and the reconnect cycle for the client lifetime.
func (c *Client) run() {
	defer c.wg.Done()
	defer close(c.events)

	for {
		err := c.readLoop()
		if c.isClosed() || c.ctx.Err() != nil {
			return
		}

		c.setState(StateDisconnected)
		c.log.Warnf("stream dropped: %v", err)
		metrics.StreamReconnects.Inc()

		if err := c.redial(); err != nil {
			c.log.Errorf("giving up on reconnect: %v", err)
			return
		}
	}
}

func (c *Client) readLoop() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.ErrWSNotConnected
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		events, err := ParseMessage(data)
		if err != nil {
			c.log.Warnf("bad frame: %v", err)
			continue
		}
		for _, ev := range events {
			c.handleEvent(ev)
		}
	}
}

func (c *Client) handleEvent(ev Event) {
	if st, ok := ev.(StatusEvent); ok {
		c.log.Debugf("status: %s %s", st.Status, st.Message)
		switch st.Status {
		case StatusAuthSuccess:
			c.onAuthenticated()
		case StatusAuthFailed:
			// Reconnecting cannot heal rejected credentials; stop for good.
			c.log.Errorf("stopping stream: %v: %s", errors.ErrWSAuthFailed, st.Message)
			c.shutdown()
		}
	}

	metrics.StreamEvents.WithLabelValues(ev.Kind()).Inc()

	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// onAuthenticated flushes the full desired subscription set: exactly what
// was active at drop time, no duplicates, no omissions.
func (c *Client) onAuthenticated() {
	c.mu.Lock()
	c.state = StateSubscribed
	topics := c.sortedSubsLocked()
	c.mu.Unlock()

	if len(topics) == 0 {
		return
	}
	if err := c.writeControl("subscribe", topics); err != nil {
		c.log.Errorf("resubscribe failed: %v", err)
		return
	}
	c.setState(StateReceiving)
	c.log.Infof("subscribed to %d topics", len(topics))
}

// shutdown marks the client closed and drops the socket without waiting for
// the receive loop, so it is safe to call from inside that loop.
func (c *Client) shutdown() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Client) redial() error {
	delay := c.reconnect.InitialDelay

	for attempt := 1; attempt <= c.reconnect.MaxRetries; attempt++ {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case <-time.After(delay):
		}

		c.log.Infof("reconnect attempt %d/%d", attempt, c.reconnect.MaxRetries)
		if err := c.connect(); err != nil {
			c.log.Warnf("reconnect attempt %d failed: %v", attempt, err)
			delay = c.reconnect.nextDelay(delay)
			continue
		}
		return nil
	}
	return errors.ErrWSMaxReconnects
}

func (c *Client) writeControl(action string, params []string) error {
	payload, err := json.Marshal(controlFrame{Action: action, Params: strings.Join(params, ",")})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.ErrWSNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
