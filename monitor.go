package droidshell

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ============================================================================
// Event Monitor: hub + per-client pumps
// ============================================================================
//
// The monitor lets a developer watch the normalized event stream and the
// lifecycle of a running shell over a websocket.
//
//   - A Hub tracks connected clients, each with its own write pump, so one
//     slow client doesn't block others.
//   - Slow clients are disconnected when their send buffer fills.
//   - Messages are JSON text frames with an envelope: {type, ts, data}.
//   - The first message on connect is "monitor_init" carrying the client id
//     and the current lifecycle state.
//   - Every engine event is a "event" frame whose data is an EventEnvelope;
//     every lifecycle transition is a "lifecycle" frame.
//
// ============================================================================

// Envelope is the wire format envelope for monitor messages.
type Envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MonitorInit is the data of the "monitor_init" frame.
type MonitorInit struct {
	ClientID string `json:"client_id"`
	State    string `json:"state"`
}

// LifecycleChange is the data of a "lifecycle" frame.
type LifecycleChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func marshalFrame(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return json.Marshal(Envelope{Type: typ, Ts: &now, Data: raw})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns; nothing reads register or
	// unregister after that.
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size.
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 64
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 512
	}

	return &Hub{
		logger:     orDiscard(logger),
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("monitor hub starting")
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("monitor hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("monitor client registered", "client_id", c.id, "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first, then remove them after we unlock.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// join hands c to the hub. It reports false if the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave asks the hub to drop c. Once the hub has stopped, c is closed here.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		// Closing send signals writePump to exit.
		safeCloseChan(c.send)

		h.logger.Info("monitor client disconnected", "client_id", c.id, "reason", reason, "clients", n)
	}
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // ignore "close of closed channel"
	}()
	close(ch)
}

// BroadcastBytes enqueues a pre-serialized JSON frame for broadcast.
// It never blocks; if the hub queue is full it drops the message.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("monitor broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	id   string
	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a fresh id and a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 64
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		id:         uuid.NewString(),
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     orDiscard(logger),
	}
}

// ID returns the client's id.
func (c *Client) ID() string { return c.id }

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// closeStatus extracts a human-readable websocket close code / text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("monitor "+pump+" exiting (close)", "client_id", c.id, "code", code, "reason", text)
	} else {
		c.logger.Info("monitor "+pump+" exiting", "client_id", c.id, "error", err)
	}
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", err)
				return
			}
		}
	}
}

// readPump reads and discards incoming messages to detect disconnects and
// handle control frames. It exits on read error, then unregisters the client.
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("readPump", err)
			if c.hub != nil {
				c.hub.leave(c)
			}
			return
		}
	}
}

// ============================================================================
// Monitor: HTTP handler + Pusher
// ============================================================================

// Monitor serves the event stream. It is a Pusher so it can be tee'd onto
// the engine hand-off.
type Monitor struct {
	logger *slog.Logger
	hub    *Hub

	mu    sync.Mutex
	state State
}

// NewMonitor constructs the monitor. Call Register on a mux and start
// Hub().Run(ctx).
func NewMonitor(logger *slog.Logger, cfg HubConfig) *Monitor {
	logger = orDiscard(logger)
	return &Monitor{
		logger: logger,
		hub:    NewHub(logger, cfg),
	}
}

func (m *Monitor) Hub() *Hub { return m.hub }

// Push implements Pusher.
func (m *Monitor) Push(ev Event) {
	msg, err := marshalFrame("event", EventEnvelope{Type: ev.Kind.String(), Args: ev.Args})
	if err != nil {
		m.logger.Warn("monitor marshal failed", "error", err)
		return
	}
	m.hub.BroadcastBytes(msg)
}

// PublishTransition records the new lifecycle state and broadcasts it. Its
// signature matches ShellOptions.OnTransition.
func (m *Monitor) PublishTransition(from, to State) {
	m.mu.Lock()
	m.state = to
	m.mu.Unlock()

	msg, err := marshalFrame("lifecycle", LifecycleChange{From: from.String(), To: to.String()})
	if err != nil {
		m.logger.Warn("monitor marshal failed", "error", err)
		return
	}
	m.hub.BroadcastBytes(msg)
}

// Register registers the websocket handler on the provided mux.
func (m *Monitor) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, m.handleWS)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades and registers a client, then sends monitor_init.
func (m *Monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("monitor upgrade failed", "error", err)
		return
	}

	client := NewClient(m.hub, conn, r.RemoteAddr, m.logger)

	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	// Queue the init frame before registering so it is the first message.
	if initMsg, err := marshalFrame("monitor_init", MonitorInit{ClientID: client.id, State: state.String()}); err == nil {
		client.send <- initMsg
	}

	if !m.hub.join(client) {
		m.logger.Warn("monitor stopped, rejecting client", "remote_addr", r.RemoteAddr)
		_ = conn.Close()
		return
	}

	// The pumps must outlive the HTTP request context; their lifetime is
	// managed by the hub and by websocket read/write errors.
	go client.writePump(context.Background())
	go client.readPump()
}
