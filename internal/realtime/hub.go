// Package realtime pushes claim events to live websocket connections.
// Owners join their own room; reviewers additionally receive every
// claimUpdated broadcast.
package realtime

import (
	"sync"

	"easybills/internal/models"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message is the wire format of every event pushed to a client.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type jsonWriter interface {
	WriteJSON(v any) error
}

// client pairs a connection with a write lock. The websocket library
// forbids concurrent writers on one connection, and emits arrive from
// arbitrary request goroutines.
type client struct {
	mu   sync.Mutex
	conn jsonWriter
}

func (c *client) write(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

type Hub struct {
	mu        sync.RWMutex
	rooms     map[uuid.UUID]map[*client]struct{}
	reviewers map[*client]struct{}
	logger    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:     make(map[uuid.UUID]map[*client]struct{}),
		reviewers: make(map[*client]struct{}),
		logger:    logger,
	}
}

// HandleConn registers an authenticated connection and blocks until the
// client disconnects. Identity comes from the auth middleware via Locals.
func (h *Hub) HandleConn(c *websocket.Conn) {
	userIDStr, _ := c.Locals("userID").(string)
	role, _ := c.Locals("role").(string)

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.logger.Warn("Websocket connection without a valid user id")
		_ = c.Close()
		return
	}

	cl := &client{conn: c}
	h.join(userID, role, cl)
	h.logger.Info("Websocket connected",
		zap.String("user_id", userIDStr),
		zap.String("role", role),
	)

	// Drain the connection; clients only listen. Read failure means the
	// client went away.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	h.leave(userID, cl)
	h.logger.Info("Websocket disconnected", zap.String("user_id", userIDStr))
}

func (h *Hub) join(userID uuid.UUID, role string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[userID] == nil {
		h.rooms[userID] = make(map[*client]struct{})
	}
	h.rooms[userID][cl] = struct{}{}

	if role == string(models.RoleAccounts) {
		h.reviewers[cl] = struct{}{}
	}
}

func (h *Hub) leave(userID uuid.UUID, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients := h.rooms[userID]; clients != nil {
		delete(clients, cl)
		if len(clients) == 0 {
			delete(h.rooms, userID)
		}
	}
	delete(h.reviewers, cl)
}

// EmitToOwner delivers an event to every live connection in the owner's room.
// No connections means no-op.
func (h *Hub) EmitToOwner(ownerID uuid.UUID, event string, payload any) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[ownerID]))
	for cl := range h.rooms[ownerID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	h.send(clients, Message{Event: event, Data: payload})
}

// Broadcast delivers an event to every connected reviewer.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.reviewers))
	for cl := range h.reviewers {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	h.send(clients, Message{Event: event, Data: payload})
}

func (h *Hub) send(clients []*client, msg Message) {
	for _, cl := range clients {
		if err := cl.write(msg); err != nil {
			h.logger.Warn("Failed to push realtime event",
				zap.String("event", msg.Event),
				zap.Error(err),
			)
		}
	}
}
