package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages websocket connections to draft rooms. Each connection owns its
// own coordinator and broker; the manager only fans domain events out to a room.
type ConnectionManager struct {
	// Connection pools organized by room ID; uuid.Nil is the global session
	roomConnections map[uuid.UUID]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	sessions SessionFactory

	broadcastCh chan BroadcastMessage
}

// Connection represents a websocket connection to a client
type Connection struct {
	ID      string
	UserID  string
	RoomID  *uuid.UUID
	Role    models.UserRole
	TeamID  *uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	session *ClientSession
	cancel  context.CancelFunc

	sendMu sync.Mutex
	closed bool

	ConnectedAt time.Time
	lastPing    atomic.Int64
}

// ConnectionConfig holds configuration for websocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
	Clock           clockwork.Clock
}

// ConnectParams describe who is connecting and to which room.
type ConnectParams struct {
	UserID string
	RoomID *uuid.UUID
	Role   models.UserRole
	TeamID *uuid.UUID
}

// errUpgradeFailed means the upgrader has already replied to the request.
var errUpgradeFailed = errors.New("failed to upgrade connection")

// BroadcastMessage is a message for every connection in a room
type BroadcastMessage struct {
	RoomID  *uuid.UUID
	Message ServerMessage
}

// DefaultConnectionConfig returns default websocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		Clock: clockwork.NewRealClock(),
	}
}

// NewConnectionManager creates a connection manager building sessions with sessions.
func NewConnectionManager(config ConnectionConfig, sessions SessionFactory) *ConnectionManager {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		roomConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		sessions:    sessions,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcasts until ctx is done, then closes every connection.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection builds the client's session, then upgrades the HTTP connection.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, params ConnectParams) error {
	sess, err := cm.sessions.NewSession(r.Context(), params.RoomID)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errUpgradeFailed, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := cm.config.Clock.Now()
	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      params.UserID,
		RoomID:      params.RoomID,
		Role:        params.Role,
		TeamID:      params.TeamID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		session:     sess,
		cancel:      cancel,
		ConnectedAt: now,
	}
	connection.lastPing.Store(now.UnixNano())

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump(ctx)
	go connection.runSession(ctx)

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", params.UserID).
		Str("role", string(params.Role)).
		Str("room_id", roomString(params.RoomID)).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	key := roomKey(conn.RoomID)
	if cm.roomConnections[key] == nil {
		cm.roomConnections[key] = make(map[*Connection]bool)
	}
	cm.roomConnections[key][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_id", roomString(conn.RoomID)).
		Int("total_connections", len(cm.roomConnections[key])).
		Msg("connection registered")
}

// unregisterConnection removes a connection and releases its session and subscriptions.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	key := roomKey(conn.RoomID)
	connections, exists := cm.roomConnections[key]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	if len(connections) == 0 {
		delete(cm.roomConnections, key)
	}
	cm.mu.Unlock()

	conn.cancel()
	conn.closeSend()

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("room_id", roomString(conn.RoomID)).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.roomConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// Emit lets the manager act as a local events.Emitter when no relay is configured.
func (cm *ConnectionManager) Emit(ctx context.Context, ev events.Event) error {
	return cm.HandleEvent(ctx, ev)
}

// HandleEvent broadcasts a domain event and its notice to the event's room.
func (cm *ConnectionManager) HandleEvent(_ context.Context, ev events.Event) error {
	notice := events.NoticeFor(ev)
	cm.BroadcastToRoom(ev.RoomID, ServerMessage{Type: MessageTypeEvent, Event: &ev, Notice: &notice})
	return nil
}

// BroadcastToRoom queues msg for every connection in the room.
func (cm *ConnectionManager) BroadcastToRoom(roomID *uuid.UUID, msg ServerMessage) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomID: roomID, Message: msg}:
	default:
		log.Warn().Str("room_id", roomString(roomID)).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.roomConnections[roomKey(message.RoomID)]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}

	for _, conn := range targets {
		if !conn.enqueue(data) {
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("message_type", string(message.Message.Type)).
		Str("room_id", roomString(message.RoomID)).
		Int("connections", len(targets)).
		Msg("message broadcasted")
}

// ConnectionStats summarizes active connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveRooms:     len(cm.roomConnections),
		RoomConnections: make(map[string]int, len(cm.roomConnections)),
	}
	for key, connections := range cm.roomConnections {
		stats.TotalConnections += len(connections)
		name := key.String()
		if key == uuid.Nil {
			name = "global"
		}
		stats.RoomConnections[name] = len(connections)
	}
	return stats
}

// enqueue queues data without blocking. It reports false when the connection is closed or
// its buffer is full.
func (c *Connection) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Connection) sendMessage(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal message")
		return
	}
	if !c.enqueue(data) {
		log.Warn().Str("connection_id", c.ID).Msg("dropping message for closed or slow connection")
	}
}

// LastPing returns when the client last answered a ping.
func (c *Connection) LastPing() time.Time {
	return time.Unix(0, c.lastPing.Load())
}

// runSession keeps the coordinator fresh and pushes every state change to the client.
func (c *Connection) runSession(ctx context.Context) {
	coordinator := c.session.Coordinator
	go func() {
		if err := coordinator.Run(ctx); err != nil {
			log.Error().Err(err).Str("connection_id", c.ID).Msg("session refresh loop stopped")
			c.sendMessage(errorMessage("", err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-coordinator.Updates():
			c.sendMessage(ServerMessage{Type: MessageTypeState, State: c.view(s)})
		}
	}
}

func (c *Connection) writePump() {
	clock := c.Manager.config.Clock
	ticker := clock.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(clock.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.Chan():
			c.Conn.SetWriteDeadline(clock.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump(ctx context.Context) {
	clock := c.Manager.config.Clock
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(clock.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		now := clock.Now()
		c.Conn.SetReadDeadline(now.Add(c.Manager.config.ReadTimeout))
		c.lastPing.Store(now.UnixNano())
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(ctx, message)
		c.Conn.SetReadDeadline(clock.Now().Add(c.Manager.config.ReadTimeout))
	}
}

func roomKey(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func roomString(id *uuid.UUID) string {
	if id == nil {
		return "global"
	}
	return id.String()
}
