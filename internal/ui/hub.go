// Package ui serves the local control surface: a small HTTP API plus a
// websocket feed of live session updates.
package ui

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"voice-practice-client/internal/models"
	"voice-practice-client/internal/observability/logging"
	"voice-practice-client/internal/session"
)

// Event is one outbound update pushed to connected UI clients.
type Event struct {
	Type     string               `json:"type"`
	State    string               `json:"state,omitempty"`
	Speaker  models.Speaker       `json:"speaker,omitempty"`
	Text     string               `json:"text,omitempty"`
	Messages []models.ChatMessage `json:"messages,omitempty"`
}

// Outbound event types.
const (
	EventState    = "state"
	EventPartial  = "partial"
	EventMessages = "messages"
	EventStatus   = "status"
)

// Action is one inbound command from a UI client.
type Action struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Inbound action types.
const (
	ActionStart          = "start"
	ActionStop           = "stop"
	ActionSaveCredential = "save_credential"
	ActionSetLevel       = "set_level"
	ActionSetTopic       = "set_topic"
)

// Session is the controller surface the UI drives.
type Session interface {
	Start(ctx context.Context) error
	Stop()
	SaveCredential(value string) error
	SetLevel(level string)
	SetTopic(topic string)
	Messages() []models.ChatMessage
	State() session.State
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Hub fans session updates out to every connected websocket client and
// routes client actions to the session controller. It implements
// session.Notifier.
type Hub struct {
	sess Session

	register   chan *client
	unregister chan *client
	broadcast  chan Event
	done       chan struct{}
}

// NewHub creates a hub driving the given session controller.
func NewHub(sess Session) *Hub {
	return &Hub{
		sess:       sess,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 64),
		done:       make(chan struct{}),
	}
}

// Run owns the client set. It must run on its own goroutine for the
// lifetime of the hub.
func (h *Hub) Run() {
	clients := make(map[*client]bool)
	for {
		select {
		case c := <-h.register:
			clients[c] = true
		case c := <-h.unregister:
			if clients[c] {
				delete(clients, c)
				close(c.send)
			}
		case ev := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- ev:
				default:
					// Slow client; drop it rather than stall the rest.
					delete(clients, c)
					close(c.send)
				}
			}
		case <-h.done:
			for c := range clients {
				close(c.send)
			}
			return
		}
	}
}

// Close stops the run loop and disconnects all clients.
func (h *Hub) Close() {
	close(h.done)
}

func (h *Hub) publish(ev Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// --- session.Notifier implementation ---

func (h *Hub) NotifyState(s session.State) {
	h.publish(Event{Type: EventState, State: s.String()})
}

func (h *Hub) NotifyPartial(speaker models.Speaker, text string) {
	h.publish(Event{Type: EventPartial, Speaker: speaker, Text: text})
}

func (h *Hub) NotifyMessages(msgs []models.ChatMessage) {
	h.publish(Event{Type: EventMessages, Messages: msgs})
}

func (h *Hub) NotifyStatus(text string) {
	h.publish(Event{Type: EventStatus, Text: text})
}

// handleAction routes one client command to the session controller.
func (h *Hub) handleAction(a Action) {
	logger := logging.WithComponent("ui")
	switch a.Type {
	case ActionStart:
		// Start dials the remote service; keep the read pump responsive.
		go func() {
			if err := h.sess.Start(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("Start action failed")
			}
		}()
	case ActionStop:
		h.sess.Stop()
	case ActionSaveCredential:
		if err := h.sess.SaveCredential(a.Value); err != nil {
			logger.Warn().Err(err).Msg("Failed to save credential")
			h.NotifyStatus("Could not save the credential.")
		}
	case ActionSetLevel:
		h.sess.SetLevel(a.Value)
	case ActionSetTopic:
		h.sess.SetTopic(a.Value)
	default:
		logger.Warn().Str("action", a.Type).Msg("Unknown UI action")
	}
}

// client is one connected websocket UI.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Event
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var a Action
		if err := json.Unmarshal(data, &a); err != nil {
			logger := logging.WithComponent("ui")
			logger.Warn().Err(err).Msg("Malformed UI action")
			continue
		}
		c.hub.handleAction(a)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
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
