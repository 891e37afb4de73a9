package server

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	userID    string
	username  string
	tables    map[string]bool
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	games     *GameManager
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, games *GameManager) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		tables: make(map[string]bool),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		games:  games,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, closing connection", "user", c.GetUser())
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetUser associates this connection with a user
func (c *Connection) SetUser(userID, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.username = username
}

// GetUser returns the associated user ID
func (c *Connection) GetUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Connection) watch(tableID string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.tables[tableID] = true
	} else {
		delete(c.tables, tableID)
	}
}

// Watching reports whether table events should reach this connection
func (c *Connection) Watching(tableID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables[tableID]
}

// Tables returns the tables this connection joined
func (c *Connection) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.tables))
	for id := range c.tables {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "user", c.GetUser())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, ErrorCodeInvalidMessage, "Failed to parse auth data")
			return
		}
		c.handleAuth(msg, data)

	case MessageTypeJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, ErrorCodeInvalidMessage, "Failed to parse join table data")
			return
		}
		c.handleJoinTable(msg, data)

	case MessageTypeLeaveTable:
		var data LeaveTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, ErrorCodeInvalidMessage, "Failed to parse leave table data")
			return
		}
		c.handleLeaveTable(msg, data)

	case MessageTypeListTables:
		c.reply(msg, MessageTypeTableList, TableListData{Tables: c.games.ListGames()})

	case MessageTypePlayerAction:
		var data PlayerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, ErrorCodeInvalidMessage, "Failed to parse player action data")
			return
		}
		c.handlePlayerAction(msg, data)

	default:
		c.sendError(msg, ErrorCodeUnknownType, "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) reply(req *Message, messageType MessageType, data any) {
	response, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	response.RequestID = req.RequestID
	_ = c.SendMessage(response) // Ignore send errors
}

// sendError sends an error message to the client
func (c *Connection) sendError(req *Message, code, message string) {
	c.reply(req, MessageTypeError, ErrorData{Code: code, Message: message})
}

func (c *Connection) fail(req *Message, err error) {
	data := ErrorDataFrom(err)
	c.logger.Debug("Request failed", "type", req.Type, "code", data.Code, "error", err)
	c.reply(req, MessageTypeError, data)
}

// requireUser returns the authenticated user, or reports that there is none
func (c *Connection) requireUser(req *Message) (string, bool) {
	userID := c.GetUser()
	if userID == "" {
		c.sendError(req, ErrorCodeNotAuthenticated, "Must authenticate first")
		return "", false
	}
	return userID, true
}

func (c *Connection) runner(req *Message, tableID string) (*TableRunner, bool) {
	runner, ok := c.games.GetGame(tableID)
	if !ok {
		c.sendError(req, ErrorCodeTableNotFound, "Unknown table "+tableID)
	}
	return runner, ok
}

func (c *Connection) handleAuth(req *Message, data AuthData) {
	c.logger.Info("Auth request", "user", data.UserID)

	if data.UserID == "" {
		c.sendError(req, ErrorCodeInvalidMessage, "User id required")
		return
	}
	username := data.Username
	if username == "" {
		username = data.UserID
	}
	c.SetUser(data.UserID, username)
	c.reply(req, MessageTypeAuthResponse, AuthResponseData{Success: true, UserID: data.UserID})
}

func (c *Connection) handleJoinTable(req *Message, data JoinTableData) {
	userID, ok := c.requireUser(req)
	if !ok {
		return
	}
	runner, ok := c.runner(req, data.TableID)
	if !ok {
		return
	}
	c.logger.Info("Join table request", "table", data.TableID, "user", userID)

	// Watch first so the joiner sees their own PLAYER_JOINED.
	c.watch(data.TableID, true)
	c.mu.RLock()
	username := c.username
	c.mu.RUnlock()

	player, err := runner.Join(c.ctx, JoinRequest{
		UserID:     userID,
		Username:   username,
		PositionID: data.PositionID,
		BuyIn:      data.BuyIn,
	})
	if err != nil {
		c.watch(data.TableID, false)
		c.fail(req, err)
		return
	}

	positionID := ""
	t := runner.Table()
	for _, tp := range t.Positions {
		if tp.PlayerID == player.ID {
			positionID = tp.ID
		}
	}
	c.reply(req, MessageTypeTableJoined, TableJoinedData{
		TableID:    data.TableID,
		PlayerID:   player.ID,
		PositionID: positionID,
		Stack:      player.Stack,
	})
}

func (c *Connection) handleLeaveTable(req *Message, data LeaveTableData) {
	userID, ok := c.requireUser(req)
	if !ok {
		return
	}
	runner, ok := c.runner(req, data.TableID)
	if !ok {
		return
	}
	c.logger.Info("Leave table request", "table", data.TableID, "user", userID)

	player, err := runner.Leave(c.ctx, userID)
	if err != nil {
		c.fail(req, err)
		return
	}
	c.watch(data.TableID, false)
	c.reply(req, MessageTypeTableLeft, TableLeftData{TableID: data.TableID, CashOut: player.Stack})
}

func (c *Connection) handlePlayerAction(req *Message, data PlayerActionData) {
	userID, ok := c.requireUser(req)
	if !ok {
		return
	}
	runner, ok := c.runner(req, data.TableID)
	if !ok {
		return
	}
	intents, err := data.Intents()
	if err != nil {
		c.fail(req, err)
		return
	}
	c.logger.Info("Player action", "table", data.TableID, "user", userID, "actions", len(intents))

	// Success is announced through PLAYER_ACTION_SUCCESS.
	if err := runner.HandlePlayerAction(c.ctx, Actor{UserID: userID}, intents); err != nil {
		c.fail(req, err)
	}
}
