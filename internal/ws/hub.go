package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"freeshare/internal/models"
	"freeshare/internal/observability"
)

const (
	EventMessage = "message"
	EventRead    = "read"

	writeWait = 10 * time.Second
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type client struct {
	conn Conn
	info ConnInfo
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains active websocket rooms, one per conversation.
type Hub struct {
	rooms map[string]map[Conn]*client
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Conn]*client)}
}

// AddClient registers a websocket connection to a conversation room.
func (h *Hub) AddClient(conversationID string, conn Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[Conn]*client)
	}
	h.rooms[conversationID][conn] = &client{conn: conn, info: info}
}

// RemoveClient removes a websocket connection.
func (h *Hub) RemoveClient(conversationID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[conversationID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// ClientCount returns the number of connections in a room.
func (h *Hub) ClientCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// BroadcastMessage pushes a new message to everyone in the conversation.
func (h *Hub) BroadcastMessage(conversationID string, msg models.Message) {
	h.broadcast(models.ConversationEvent{Type: EventMessage, ConversationID: conversationID, Message: &msg})
}

// BroadcastRead tells the room that readerID has read the counterpart's messages.
func (h *Hub) BroadcastRead(conversationID, readerID string) {
	h.broadcast(models.ConversationEvent{Type: EventRead, ConversationID: conversationID, ReaderID: readerID})
}

func (h *Hub) broadcast(event models.ConversationEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[event.ConversationID]))
	for _, cl := range h.rooms[event.ConversationID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("marshal websocket event")
		return
	}
	for _, cl := range clients {
		if err := cl.write(payload); err != nil {
			h.dropClient(event.ConversationID, cl, err)
			continue
		}
		observability.IncWSEvent(event.Type)
	}
}

func (h *Hub) dropClient(conversationID string, cl *client, err error) {
	log.Warn().
		Err(err).
		Str("conversation_id", conversationID).
		Str("conn_id", cl.info.ConnID).
		Str("user_id", cl.info.UserID).
		Dur("connected_for", time.Since(cl.info.ConnectedAt)).
		Msg("websocket write error")
	_ = cl.conn.Close()
	h.RemoveClient(conversationID, cl.conn)
	observability.IncWSEvent("ws_error")
}
