package ledgerws

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/saeid-a/CoachPayBack/internal/models"
)

// Hub fans coach payment lifecycle events out to connected dashboards.
// Admins see every event; a coach sees only their own. The feed is
// read-only and informational; ledger state never flows through it.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *LedgerEvent
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	role   string
	send   chan []byte
}

type LedgerEvent struct {
	Type           string  `json:"type"`
	CoachPaymentID string  `json:"coach_payment_id"`
	CoachID        string  `json:"coach_id"`
	Amount         float64 `json:"amount"`
	Status         string  `json:"status"`
	Timestamp      string  `json:"timestamp"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *LedgerEvent, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, role string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		role:   role,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifyCoachPayment implements services.LedgerNotifier. A full
// broadcast buffer drops the event rather than blocking the caller.
func (h *Hub) NotifyCoachPayment(eventType string, payment *models.CoachPayment) {
	event := &LedgerEvent{
		Type:           eventType,
		CoachPaymentID: strconv.FormatInt(payment.ID, 10),
		CoachID:        strconv.FormatInt(payment.CoachID, 10),
		Amount:         payment.Amount,
		Status:         payment.Status,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	select {
	case h.broadcast <- event:
	default:
		log.Printf("ledger hub: dropped %s event for coach payment %d", eventType, payment.ID)
	}
}

func (h *Hub) deliver(event *LedgerEvent) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("ledger hub encode event: %v", err)
		return
	}

	for userID, set := range h.clients {
		for client := range set {
			if client.role != "admin" && userID != event.CoachID {
				continue
			}
			select {
			case client.send <- encoded:
			default:
				delete(set, client)
				close(client.send)
			}
		}
		if len(set) == 0 {
			delete(h.clients, userID)
		}
	}
}

// ReadPump drains the connection until it closes. Incoming frames are
// ignored; the feed is one-way.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
