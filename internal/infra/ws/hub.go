package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dutchman/internal/domain"
	"dutchman/internal/event"
	"dutchman/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Controller is the auction surface exposed to presentation clients.
type Controller interface {
	Start(ctx context.Context) error
	SubmitBid(participantID string, tokens int64) (domain.Bid, error)
	State() domain.Snapshot
}

// Command is a client request.
//
//	{"type":"start"}
//	{"type":"bid","participant":"Alice","tokens":100}
//	{"type":"state"}
type Command struct {
	Type        string      `json:"type"`
	Participant string      `json:"participant,omitempty"`
	Tokens      json.Number `json:"tokens,omitempty"`
}

// tokenCount parses the token field. Missing tokens count as zero and are
// rejected by the ledger; fractional or out-of-range values are rejected here.
func (cmd Command) tokenCount() (int64, error) {
	if cmd.Tokens == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(cmd.Tokens.String())
	if err != nil || !d.IsInteger() || !d.BigInt().IsInt64() {
		return 0, domain.NewBidRejection(domain.ReasonInvalidQuantity, cmd.Participant, 0,
			"token count must be a whole number, got "+cmd.Tokens.String())
	}
	return d.IntPart(), nil
}

// Reply answers a single Command. Broadcast events use event.Envelope instead.
type Reply struct {
	Type    string           `json:"type"`
	Command string           `json:"command"`
	OK      bool             `json:"ok"`
	Reason  string           `json:"reason,omitempty"`
	Error   string           `json:"error,omitempty"`
	Bid     *domain.Bid      `json:"bid,omitempty"`
	State   *domain.Snapshot `json:"state,omitempty"`
}

// Hub fans auction events out to websocket clients and forwards their
// commands to the Controller.
type Hub struct {
	ctx      context.Context
	ctrl     Controller
	metrics  *infra.Metrics
	upgrader websocket.Upgrader
	origins  map[string]bool

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates a hub. ctx bounds any auction started by a client.
// An origin of "*" accepts every browser origin; requests without an
// Origin header (non-browser clients) are always accepted.
func NewHub(ctx context.Context, ctrl Controller, allowedOrigins []string, metrics *infra.Metrics) *Hub {
	h := &Hub{
		ctx:     ctx,
		ctrl:    ctrl,
		metrics: metrics,
		origins: make(map[string]bool, len(allowedOrigins)),
		clients: make(map[*client]struct{}),
	}
	for _, o := range allowedOrigins {
		h.origins[o] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.origins["*"] {
		return true
	}
	return h.origins[origin]
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	if !h.register(c) {
		conn.Close()
		return
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every connected client. A client whose buffer is
// full is disconnected rather than allowed to stall the auction loop.
func (h *Hub) Broadcast(ev event.Event) {
	payload, err := json.Marshal(event.Wrap(ev))
	if err != nil {
		slog.Error("failed to encode event", slog.Uint64("seq", ev.GetSeq()), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("dropping slow websocket client", slog.String("remote", c.conn.RemoteAddr().String()))
		h.unregister(c)
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.metrics != nil {
		h.metrics.IncrementClients()
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.DecrementClients()
	}
	c.once.Do(func() { close(c.send) })
}

func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				h.reply(c, Reply{Type: "error", Error: "malformed command"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", slog.Any("error", err))
			}
			return
		}
		h.reply(c, h.handle(cmd))
	}
}

func (h *Hub) handle(cmd Command) Reply {
	switch cmd.Type {
	case "start":
		if err := h.ctrl.Start(h.ctx); err != nil {
			return Reply{Type: "error", Command: cmd.Type, Error: err.Error()}
		}
		return Reply{Type: "ack", Command: cmd.Type, OK: true}

	case "bid":
		tokens, err := cmd.tokenCount()
		if err != nil {
			if h.metrics != nil {
				h.metrics.RecordRejection(domain.ReasonInvalidQuantity)
			}
			return Reply{Type: "rejected", Command: cmd.Type, Reason: string(domain.ReasonInvalidQuantity), Error: err.Error()}
		}
		bid, err := h.ctrl.SubmitBid(cmd.Participant, tokens)
		if err != nil {
			reply := Reply{Type: "rejected", Command: cmd.Type, Error: err.Error()}
			if reason, ok := domain.IsRejection(err); ok {
				reply.Reason = string(reason)
			}
			return reply
		}
		return Reply{Type: "ack", Command: cmd.Type, OK: true, Bid: &bid}

	case "state":
		snap := h.ctrl.State()
		return Reply{Type: "state", Command: cmd.Type, OK: true, State: &snap}

	default:
		return Reply{Type: "error", Command: cmd.Type, Error: "unknown command"}
	}
}

func (h *Hub) reply(c *client, r Reply) {
	payload, err := json.Marshal(r)
	if err != nil {
		slog.Error("failed to encode reply", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	_, ok := h.clients[c]
	full := false
	if ok {
		select {
		case c.send <- payload:
		default:
			full = true
		}
	}
	h.mu.RUnlock()

	if full {
		slog.Warn("dropping websocket client with full buffer", slog.String("command", r.Command))
		h.unregister(c)
	}
}

func (h *Hub) writeLoop(c *client) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(c)
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}
