package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/dgnsrekt/ttstalker/internal/metrics"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// Message types sent to consumers.
const (
	TypeViseme       = "viseme"
	TypeExpression   = "expression"
	TypeGesture      = "gesture"
	TypeEmotion      = "emotion"
	TypeLipsyncState = "lipsync_state"
	TypeMux          = "mux"

	// TypeControl is the only message type read from consumers.
	TypeControl = "control"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// sendBuffer is the per-client backlog before messages are dropped.
	sendBuffer = 256
)

// ErrHubClosed is returned when publishing after Close.
var ErrHubClosed = errors.New("hub is closed")

// Message is the wire format in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans commands out to websocket consumers. Publishing never blocks:
// a consumer that falls behind loses messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool

	onControl func(ttypes.ControlSignal)
}

// NewHub creates a hub. onControl receives inbound control signals and may
// be nil.
func NewHub(onControl func(ttypes.ControlSignal)) *Hub {
	return &Hub{
		clients:   make(map[*client]struct{}),
		onControl: onControl,
	}
}

// Clients returns the number of connected consumers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the consumer until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	log.Info("Consumer connected", "remote", r.RemoteAddr, "clients", h.Clients())

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.BridgeClients.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.BridgeClients.Set(float64(len(h.clients)))
}

// readPump handles inbound control messages until the connection fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		log.Info("Consumer disconnected", "clients", h.Clients())
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Websocket read failed", "error", err)
			}
			return
		}
		h.handle(msg)
	}
}

func (h *Hub) handle(msg Message) {
	if msg.Type != TypeControl {
		log.Warn("Ignoring consumer message", "type", msg.Type)
		return
	}
	var raw string
	if err := json.Unmarshal(msg.Payload, &raw); err != nil {
		log.Warn("Control payload must be a string", "error", err)
		return
	}
	sig, err := ttypes.ParseControlSignal(raw)
	if err != nil {
		log.Warn("Bad control message", "error", err)
		return
	}
	if h.onControl != nil {
		h.onControl(sig)
	}
}

// writePump drains the client's backlog and keeps the connection alive.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast sends one message to every consumer.
func (h *Hub) Broadcast(msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Message{Type: msgType, Payload: raw})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Warn("Consumer is too slow, dropping message", "type", msgType)
			metrics.DroppedEvents.WithLabelValues("slow_consumer").Inc()
		}
	}
	return nil
}

// Close disconnects every consumer and rejects further publishing.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.BridgeClients.Set(0)
}

func (h *Hub) PublishViseme(cmd ttypes.VisemeCommand) error {
	return h.Broadcast(TypeViseme, cmd)
}

func (h *Hub) PublishExpression(cmd ttypes.ExpressionCommand) error {
	return h.Broadcast(TypeExpression, cmd)
}

func (h *Hub) PublishGesture(cmd ttypes.GestureCommand) error {
	return h.Broadcast(TypeGesture, cmd)
}

func (h *Hub) PublishEmotion(cmd ttypes.EmotionCommand) error {
	return h.Broadcast(TypeEmotion, cmd)
}

func (h *Hub) PublishLipsyncState(state ttypes.LipsyncState) error {
	return h.Broadcast(TypeLipsyncState, state)
}

func (h *Hub) RequestMuxSwitch(track string) error {
	return h.Broadcast(TypeMux, track)
}

var _ ttypes.OutputPort = (*Hub)(nil)
