package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akrabse/Joker-Poker/internal/bankroll"
	"github.com/akrabse/Joker-Poker/internal/game"
	"github.com/akrabse/Joker-Poker/internal/room"
)

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

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one WebSocket client. The identity fields are set at
// auth time: every client gets a fresh guest identity for its username.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once

	playerID string
	username string
	roomCode string
}

func NewConnection(conn *websocket.Conn, server *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: server,
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client without blocking; a full
// buffer means the client has stopped draining and the connection drops.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Identity returns the player ID and username, empty before auth.
func (c *Connection) Identity() (playerID, username string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID, c.username
}

// Room returns the room code this connection is seated at, if any.
func (c *Connection) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

func (c *Connection) setRoom(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	playerID, _ := c.Identity()
	c.logger.Debug("Received message", "type", msg.Type, "player", playerID)

	if msg.Type == MessageTypeAuth {
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)
		return
	}

	if playerID == "" {
		c.sendError("not_authenticated", "Authenticate first")
		return
	}

	switch msg.Type {
	case MessageTypeCreateRoom:
		c.server.handleCreateRoom(c)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join room data")
			return
		}
		c.server.handleJoinRoom(c, data)

	case MessageTypeLeaveRoom:
		c.server.handleLeaveRoom(c)

	case MessageTypeBuyIn:
		var data BuyInData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse buy-in data")
			return
		}
		c.server.handleBuyIn(c, data)

	case MessageTypeStartHand:
		c.server.handleStartHand(c)

	case MessageTypeAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse action data")
			return
		}
		c.server.handleAction(c, data)

	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse chat data")
			return
		}
		c.server.handleChat(c, data)

	case MessageTypeGetState:
		c.server.handleGetState(c)

	case MessageTypeGetStats:
		var data StatsRequestData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				c.sendError("invalid_message", "Failed to parse stats request")
				return
			}
		}
		c.server.handleGetStats(c, data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+string(msg.Type))
	}
}

func (c *Connection) handleAuth(data AuthData) {
	username := strings.TrimSpace(data.Username)
	if username == "" {
		c.sendAuthResponse(AuthResponseData{Success: false, Error: "username required"})
		return
	}

	c.mu.Lock()
	alreadyAuthed := c.playerID != ""
	if !alreadyAuthed {
		c.playerID = uuid.NewString()
		c.username = username
	}
	c.mu.Unlock()
	if alreadyAuthed {
		c.sendAuthResponse(AuthResponseData{Success: false, Error: "already authenticated"})
		return
	}

	if err := c.server.ensureAccount(c.ctx, username); err != nil {
		c.logger.Error("Failed to provision bankroll account", "player", username, "error", err)
		c.sendAuthResponse(AuthResponseData{Success: false, Error: "internal error"})
		return
	}

	playerID, _ := c.Identity()
	c.logger.Info("Client authenticated", "player", username, "id", playerID)
	c.sendAuthResponse(AuthResponseData{Success: true, PlayerID: playerID, Username: username})
}

func (c *Connection) sendAuthResponse(data AuthResponseData) {
	msg, err := NewMessage(MessageTypeAuthResponse, data)
	if err != nil {
		c.logger.Error("Failed to create auth response", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

func (c *Connection) sendError(code, message string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

// sendOpError maps a domain error onto the wire.
func (c *Connection) sendOpError(err error) {
	code := "operation_failed"
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		code = "room_not_found"
	case errors.Is(err, game.ErrNotYourTurn):
		code = "not_your_turn"
	case errors.Is(err, game.ErrIllegalBet):
		code = "illegal_bet"
	case errors.Is(err, game.ErrNotEnoughPlayers):
		code = "not_enough_players"
	case errors.Is(err, game.ErrHandInProgress):
		code = "hand_in_progress"
	case errors.Is(err, game.ErrTableFull):
		code = "table_full"
	case errors.Is(err, game.ErrRoomInactive):
		code = "room_inactive"
	case errors.Is(err, bankroll.ErrInsufficientFunds):
		code = "insufficient_funds"
	}
	c.sendError(code, err.Error())
}
