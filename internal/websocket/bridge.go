package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sinedd777/towerdef/internal/pubsub"
)

const (
	writeTimeout = 10 * time.Second

	// pingInterval is how often each connection is pinged to keep it alive
	// and sample its round-trip latency.
	pingInterval = 15 * time.Second
)

// Client represents a single connected WebSocket client. Its ID doubles as
// the player ID everywhere else in the system.
type Client struct {
	// ID is the server-assigned connection identifier.
	ID string
	// conn is the underlying WebSocket connection.
	conn *websocket.Conn
	// send is a buffered channel of outbound messages for this client.
	send chan []byte
	// bridge is a reference back to the bridge that manages this client.
	bridge *Bridge
}

// DirectMessage is a message addressed to a single connection.
type DirectMessage struct {
	TargetID string
	Payload  []byte
}

// Bridge manages all WebSocket connections and routes messages between
// connected clients and the Pub/Sub message bus. Inbound client envelopes
// become bus messages; bus messages addressed to a connection become
// outbound envelopes.
type Bridge struct {
	publisher pubsub.Publisher
	logger    *slog.Logger

	// clients maps connection IDs to their client. Connection IDs are
	// server-generated UUIDs, so each maps to exactly one connection.
	clients map[string]*Client

	// register is a channel for new clients to register.
	register chan *Client

	// unregister is a channel for clients to unregister.
	unregister chan *Client

	// broadcast is a channel for messages to be sent to every client.
	broadcast chan []byte

	// direct is a channel for messages addressed to one connection.
	direct chan *DirectMessage

	// onDisconnect hooks run after a connection is removed from the registry.
	onDisconnect []func(connectionID string)

	// onLatency hooks receive each connection's measured ping round-trip.
	onLatency []func(connectionID string, rtt time.Duration)

	// A mutex protects the clients map; it is touched from the run loop and
	// from Connections().
	mu sync.RWMutex
}

// NewBridge initializes a Bridge, ready to handle connections. Call Run to
// start its routing loop.
func NewBridge(pub pubsub.Publisher, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default().With("service", "websocket")
	}
	return &Bridge{
		publisher:  pub,
		logger:     logger,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		direct:     make(chan *DirectMessage, 256),
	}
}

// OnDisconnect registers a hook invoked when a connection goes away. Modules
// use this to evict the player from queues and sessions. Must be called
// before Run.
func (b *Bridge) OnDisconnect(fn func(connectionID string)) {
	b.onDisconnect = append(b.onDisconnect, fn)
}

// OnLatency registers a hook invoked with each connection's ping round-trip
// time. Matchmaking uses this to keep per-player latency fresh. Must be
// called before Run.
func (b *Bridge) OnLatency(fn func(connectionID string, rtt time.Duration)) {
	b.onLatency = append(b.onLatency, fn)
}

func (b *Bridge) reportLatency(connectionID string, rtt time.Duration) {
	for _, fn := range b.onLatency {
		fn(connectionID, rtt)
	}
}

// Run starts the main bridge loop for client lifecycle and message routing.
// It returns when ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	b.logger.Info("websocket bridge started")
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client.ID] = client
			b.mu.Unlock()
			b.logger.Info("client registered", "connection_id", client.ID)

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client.ID]; ok {
				delete(b.clients, client.ID)
				close(client.send)
			}
			b.mu.Unlock()
			b.logger.Info("client unregistered", "connection_id", client.ID)

			for _, fn := range b.onDisconnect {
				fn(client.ID)
			}
			b.publishLifecycle(ctx, TopicDisconnected.Name(), client.ID)

		case payload := <-b.broadcast:
			b.mu.RLock()
			for _, client := range b.clients {
				select {
				case client.send <- payload:
				default:
					// Drop rather than block the loop on a slow client.
					b.logger.Warn("client send buffer full, dropping broadcast", "connection_id", client.ID)
				}
			}
			b.mu.RUnlock()

		case message := <-b.direct:
			b.mu.RLock()
			if client, ok := b.clients[message.TargetID]; ok {
				select {
				case client.send <- message.Payload:
				default:
					b.logger.Warn("client send buffer full, dropping direct message", "connection_id", client.ID)
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Handler returns the echo handler that upgrades requests to WebSocket
// connections and assigns each a fresh connection ID.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Origin checking is the proxy's job.
		})
		if err != nil {
			b.logger.Error("websocket upgrade failed", "error", err)
			return err
		}

		client := &Client{
			ID:     uuid.New().String(),
			conn:   conn,
			send:   make(chan []byte, 256),
			bridge: b,
		}
		b.register <- client

		go client.writePump()
		go client.readPump()
		go client.pingLoop()

		// Tell the client who it is; every later event references this ID.
		if welcome, err := json.Marshal(Envelope{
			Event:   EventConnectionEstablished,
			Payload: mustRaw(map[string]string{"connectionId": client.ID}),
		}); err == nil {
			client.send <- welcome
		}

		b.publishLifecycle(c.Request().Context(), TopicConnected.Name(), client.ID)
		return nil
	}
}

// Broadcast sends a payload to every connected client.
func (b *Bridge) Broadcast(payload []byte) {
	b.broadcast <- payload
}

// SendDirect sends a payload to one connection.
func (b *Bridge) SendDirect(connectionID string, payload []byte) {
	b.direct <- &DirectMessage{TargetID: connectionID, Payload: payload}
}

// Connections returns the number of registered clients.
func (b *Bridge) Connections() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Bridge) publishLifecycle(ctx context.Context, topic, connectionID string) {
	payload, _ := json.Marshal(map[string]string{"connectionId": connectionID})
	msg := pubsub.Message{
		Topic:        topic,
		ConnectionID: connectionID,
		Payload:      payload,
	}
	if err := b.publisher.Publish(ctx, msg); err != nil {
		b.logger.Error("publishing lifecycle event", "topic", topic, "error", err)
	}
}

// readPump pumps messages from the WebSocket connection into the bus.
func (c *Client) readPump() {
	defer func() {
		c.bridge.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "client disconnected")
	}()

	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.bridge.logger.Info("websocket closed by client", "connection_id", c.ID)
			} else if err != io.EOF {
				c.bridge.logger.Error("websocket read error", "connection_id", c.ID, "error", err)
			}
			break
		}

		c.bridge.routeInbound(c, data)
	}
}

// writePump pumps messages from the client's send channel to the connection.
func (c *Client) writePump() {
	defer func() {
		c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")
	}()

	for {
		message, ok := <-c.send
		if !ok {
			// The bridge closed the channel.
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			c.bridge.logger.Error("websocket write error", "connection_id", c.ID, "error", err)
			return
		}
	}
}

// pingLoop periodically pings the connection and feeds the measured
// round-trip time to the bridge's latency hooks. It exits once a ping fails,
// which happens as soon as the connection closes.
func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		start := time.Now()
		err := c.conn.Ping(ctx)
		cancel()
		if err != nil {
			return
		}
		c.bridge.reportLatency(c.ID, time.Since(start))
	}
}

func mustRaw(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
