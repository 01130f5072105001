// Package publisher connects the node graph to the publisher over a websocket.
// Inbound frames are decoded into updates and handed to the Pump; the Client
// also implements node.Wire so publisher nodes can request their data.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"motifcore/src/datamodels"
	"motifcore/src/utils/errors"
)

var ErrNotConnected = errors.Sentinel("publisher not connected")

const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
	writeWait         = 5 * time.Second
)

// Router is the part of the subscription manager the client drives.
type Router interface {
	Dispatch(update datamodels.Update) error
	DispatchChannel(channel datamodels.Channel, update datamodels.Update) int
	Broadcast(kind datamodels.UpdateKind)
}

type Client struct {
	config datamodels.PublisherConfig
	router Router
	pump   *Pump
	logger *slog.Logger
	dialer websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	counters datamodels.ConnectionCounters

	// Owned by the Run goroutine.
	state    datamodels.PublisherState
	online   bool
	endpoint int
}

func NewClient(config datamodels.PublisherConfig, router Router, pump *Pump, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.WithDefaults()
	return &Client{
		config: config,
		router: router,
		pump:   pump,
		logger: logger.With("component", "publisher"),
		dialer: websocket.Dialer{
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.ReadBufferSize,
			HandshakeTimeout: 10 * time.Second,
		},
		counters: datamodels.ConnectionCounters{SubscriptionErrorCounts: map[datamodels.SubscriptionErrorType]int{}},
		endpoint: -1,
	}
}

// Subscribe asks the publisher to start sending data for a node.
func (c *Client) Subscribe(nodeID uint64, request datamodels.Request) error {
	return c.send(datamodels.SubscribeAction{
		Action:    actionSubscribe,
		NodeID:    nodeID,
		Channel:   request.Channel(),
		Key:       request.Key(),
		Request:   request,
		RequestID: uuid.NewString(),
	})
}

func (c *Client) Unsubscribe(nodeID uint64, request datamodels.Request) error {
	return c.send(datamodels.SubscribeAction{
		Action:    actionUnsubscribe,
		NodeID:    nodeID,
		Channel:   request.Channel(),
		Key:       request.Key(),
		RequestID: uuid.NewString(),
	})
}

func (c *Client) send(action datamodels.SubscribeAction) error {
	data, err := json.Marshal(action)
	if err != nil {
		return errors.Wrapf(err, "encoding %s for %s", action.Action, action.Key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.counters.SocketErrorCount++
		return errors.Wrapf(err, "writing %s for %s", action.Action, action.Key)
	}
	c.counters.SentPacketCount++
	c.counters.SentByteCount += len(data)
	c.logger.Debug("Sent subscription action", "action", action.Action, "node", action.NodeID,
		"key", action.Key, "request_id", action.RequestID)
	return nil
}

// Counters returns a snapshot of the connection counters.
func (c *Client) Counters() datamodels.ConnectionCounters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters.Copy()
}

// Run connects and keeps reconnecting until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	c.setState(datamodels.PublisherStateInitialise, false)
	go c.reportCounters(ctx)

	attempt := 0
	for {
		if ctx.Err() != nil {
			c.finalise()
			return ctx.Err()
		}
		endpoint := c.selectEndpoint()
		c.setState(datamodels.PublisherStateConnecting, false)

		conn, err := c.dial(ctx, endpoint)
		if err != nil {
			c.count(func(counters *datamodels.ConnectionCounters) { counters.SocketOpenFailureCount++ })
			c.logger.Warn("Publisher connect failed", "endpoint", endpoint, "error", err)
			c.emit(datamodels.KindReconnect, datamodels.Reconnect{Reason: datamodels.ReconnectSocketConnectingError, Text: err.Error()})
			c.wait(ctx, attempt)
			attempt++
			continue
		}
		attempt = 0
		c.count(func(counters *datamodels.ConnectionCounters) { counters.SocketOpenSuccessCount++ })
		c.attach(conn)
		if c.config.AuthToken != "" {
			c.setState(datamodels.PublisherStateAuthActive, false)
		}
		c.setState(datamodels.PublisherStateOnline, false)
		c.setOnline(true, "")

		readErr := c.readLoop(ctx, conn)
		c.detach()
		if ctx.Err() != nil {
			c.finalise()
			return ctx.Err()
		}

		reason := datamodels.ReconnectUnexpectedSocketClose
		if websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			reason = datamodels.ReconnectSocketClose
			c.count(func(counters *datamodels.ConnectionCounters) { counters.SocketClosedCount++ })
		} else {
			c.count(func(counters *datamodels.ConnectionCounters) { counters.SocketUnexpectedCloseCount++ })
		}
		c.logger.Warn("Publisher connection lost", "endpoint", endpoint, "reason", reason, "error", readErr)
		c.setOnline(false, readErr.Error())
		c.emit(datamodels.KindReconnect, datamodels.Reconnect{Reason: reason, Text: readErr.Error()})
		c.wait(ctx, attempt)
	}
}

func (c *Client) dial(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	headers := http.Header{}
	if c.config.AuthToken != "" {
		headers.Set("Authorization", "Bearer "+c.config.AuthToken)
	}
	conn, _, err := c.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", endpoint)
	}
	return conn, nil
}

// wait sleeps for the reconnect delay. It reports false when ctx ends first.
func (c *Client) wait(ctx context.Context, attempt int) bool {
	c.setState(datamodels.PublisherStateReconnecting, true)
	delay := ReconnectDelay(c.config.ReconnectDelay, c.config.MaxReconnectDelay, attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Client) selectEndpoint() string {
	c.endpoint = (c.endpoint + 1) % len(c.config.Endpoints)
	endpoint := c.config.Endpoints[c.endpoint]
	c.emit(datamodels.KindEndpointSelected, datamodels.EndpointSelected{
		Endpoint:  endpoint,
		Endpoints: append([]string(nil), c.config.Endpoints...),
	})
	return endpoint
}

func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) detach() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	readWait := 2 * c.config.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go c.keepAlive(ctx, conn, stop)

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				c.count(func(counters *datamodels.ConnectionCounters) { counters.TimeoutCount++ })
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		if messageType != websocket.TextMessage {
			continue
		}
		c.receive(message)
	}
}

// keepAlive pings on an interval and closes the socket when ctx ends so ReadMessage returns.
func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			c.mu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(100*time.Millisecond))
			c.mu.Unlock()
			_ = conn.Close()
			return
		case <-ticker.C:
			c.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				c.logger.Debug("Ping failed", "error", err)
			}
		}
	}
}

func (c *Client) receive(message []byte) {
	update, err := datamodels.DecodeUpdate(message)
	c.count(func(counters *datamodels.ConnectionCounters) {
		counters.ReceivedPacketCount++
		counters.ReceivedByteCount += len(message)
		if err == nil && update.Kind == datamodels.KindSubscriptionError {
			if subErr, ok := update.Payload.(datamodels.SubscriptionError); ok {
				counters.SubscriptionErrorCounts[subErr.Type]++
			}
		}
	})
	if err != nil {
		c.logger.Warn("Dropping undecodable frame", "error", err)
		return
	}
	c.pump.Do(func() {
		if err := c.router.Dispatch(update); err != nil {
			c.logger.Debug("Update not delivered", "node", update.NodeID, "kind", update.Kind, "error", err)
		}
	})
}

func (c *Client) count(fn func(*datamodels.ConnectionCounters)) {
	c.mu.Lock()
	fn(&c.counters)
	c.mu.Unlock()
}

func (c *Client) reportCounters(ctx context.Context) {
	ticker := time.NewTicker(c.config.CountersInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.emit(datamodels.KindCounters, c.Counters())
		}
	}
}

// emit delivers a synthesised control update to the connection node.
func (c *Client) emit(kind datamodels.UpdateKind, payload any) {
	c.pump.Do(func() {
		c.router.DispatchChannel(datamodels.ChannelConnection, datamodels.Update{Kind: kind, Payload: payload})
	})
}

func (c *Client) setState(state datamodels.PublisherState, waiting bool) {
	c.state = state
	c.emit(datamodels.KindPublisherState, datamodels.PublisherStateChange{State: state, Waiting: waiting, Timestamp: time.Now()})
}

func (c *Client) setOnline(online bool, closeReason string) {
	if online == c.online {
		return
	}
	c.online = online
	c.emit(datamodels.KindPublisherOnline, datamodels.PublisherOnlineChange{Online: online, SocketCloseReason: closeReason})
	c.emit(datamodels.KindCounters, c.Counters())
	kind := datamodels.KindOfflined
	if online {
		kind = datamodels.KindOnlined
	}
	c.pump.Do(func() { c.router.Broadcast(kind) })
}

func (c *Client) finalise() {
	c.detach()
	c.online = false
	c.setState(datamodels.PublisherStateFinalised, false)
	c.logger.Info("Publisher client stopped")
}
