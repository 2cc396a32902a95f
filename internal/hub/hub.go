// Package hub provides connection management and fan-out for live viewers.
package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	// rooms is guarded by the owning hub's mutex.
	rooms map[string]bool
	mu    sync.Mutex
}

// Hub manages all live connections and the rooms they joined.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Rooms maps room ID to the set of member connection IDs
	rooms map[string]map[string]bool

	sendBuffer int
	onDrop     func(connID string)
	log        *zap.Logger

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		rooms:       make(map[string]map[string]bool),
		sendBuffer:  256,
		log:         log,
	}
}

// SetDropHook registers fn to be called whenever a slow consumer is dropped.
func (h *Hub) SetDropHook(fn func(connID string)) { h.onDrop = fn }

// NewConnection creates a new connection. It is not reachable by broadcasts
// until registered.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return h.NewConnectionWithID(uuid.New().String(), ws)
}

// NewConnectionWithID is NewConnection with a caller-assigned ID, so the
// connection can share the ID of its session.
func (h *Hub) NewConnectionWithID(id string, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:    id,
		Conn:  ws,
		Send:  make(chan []byte, h.sendBuffer),
		rooms: make(map[string]bool),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	h.log.Debug("connection registered", zap.String("conn_id", conn.ID))
}

// Unregister removes a connection from the hub and all of its rooms, then
// closes its send channel. Calling it twice is safe.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if _, ok := h.connections[conn.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, conn.ID)
	for room := range conn.rooms {
		h.leaveLocked(conn, room)
	}
	close(conn.Send)
	h.mu.Unlock()
	h.log.Debug("connection unregistered", zap.String("conn_id", conn.ID))
}

// Join adds a connection to a room.
func (h *Hub) Join(connID, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.connections[connID]
	if !ok {
		return ErrUnknownConnection
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]bool)
	}
	h.rooms[room][connID] = true
	conn.rooms[room] = true
	return nil
}

// Leave removes a connection from a room.
func (h *Hub) Leave(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.connections[connID]; ok {
		h.leaveLocked(conn, room)
	}
}

func (h *Hub) leaveLocked(conn *Connection, room string) {
	delete(conn.rooms, room)
	if members := h.rooms[room]; members != nil {
		delete(members, conn.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends a message to every registered connection.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	var slow []*Connection
	for _, conn := range h.connections {
		if !offer(conn, data) {
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()
	h.dropSlow(slow)
}

// BroadcastJSON sends a JSON message to every registered connection.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// SendToRoom sends a message to every member of room except the connection
// named by except. A connection is always addressable by a room equal to its
// own ID. It returns the number of connections reached.
func (h *Hub) SendToRoom(room, except string, data []byte) int {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.rooms[room])+1)
	for connID := range h.rooms[room] {
		if conn, ok := h.connections[connID]; ok && connID != except {
			targets = append(targets, conn)
		}
	}
	if conn, ok := h.connections[room]; ok && room != except && !h.rooms[room][room] {
		targets = append(targets, conn)
	}

	var slow []*Connection
	delivered := 0
	for _, conn := range targets {
		if offer(conn, data) {
			delivered++
		} else {
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()
	h.dropSlow(slow)
	return delivered
}

// SendJSONToRoom sends a JSON message to the members of a room.
func (h *Hub) SendJSONToRoom(room, except string, v interface{}) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return h.SendToRoom(room, except, data), nil
}

// SendToConnection sends a message to a specific connection.
func (h *Hub) SendToConnection(connID string, data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.connections[connID]
	if !ok {
		return ErrUnknownConnection
	}
	if !offer(conn, data) {
		return ErrBufferFull
	}
	return nil
}

// SendJSONToConnection sends a JSON message to a specific connection.
func (h *Hub) SendJSONToConnection(connID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToConnection(connID, data)
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GetRoomCount returns the number of rooms with at least one member.
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// offer must be called with the hub's read lock held, which keeps Send open.
func offer(conn *Connection, data []byte) bool {
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) dropSlow(slow []*Connection) {
	for _, conn := range slow {
		h.log.Warn("connection buffer full, closing", zap.String("conn_id", conn.ID))
		h.Unregister(conn)
		if h.onDrop != nil {
			h.onDrop(conn.ID)
		}
	}
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

var (
	// ErrBufferFull is returned when the send buffer is full.
	ErrBufferFull = errors.New("send buffer full")
	// ErrUnknownConnection is returned for a connection the hub does not know.
	ErrUnknownConnection = errors.New("unknown connection")
)
