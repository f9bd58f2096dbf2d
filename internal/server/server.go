// Package server is the network face of the poker room: a WebSocket hub
// for play and a small JSON API for discovery and stats.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/akrabse/Joker-Poker/internal/bankroll"
	"github.com/akrabse/Joker-Poker/internal/room"
)

// Server owns the connection registry and dispatches client messages to
// the room manager. No room lock is ever held while writing to a socket.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc

	rooms *room.Manager
	bank  bankroll.Service
	http  *http.Server
}

func New(addr string, rooms *room.Manager, bank bankroll.Service, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		rooms:       rooms,
		bank:        bank,
	}
	rooms.SetNotify(s.BroadcastRoom)
	return s
}

// Start runs the HTTP server until Stop is called or the listener fails.
func (s *Server) Start() error {
	go s.run()

	s.http = &http.Server{Addr: s.addr, Handler: s.Routes()}
	s.logger.Info("Starting server", "addr", s.addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Routes builds the HTTP surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/api/rooms", s.handleListRooms)
	r.Get("/api/stats/{username}", s.handleStats)
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Stop shuts the server down and closes every client connection.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.rooms.Shutdown()
	if s.http != nil {
		return s.http.Shutdown(context.Background())
	}
	return nil
}

// run handles connection lifecycle.
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			if ok {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()
			if ok {
				s.cleanupConnection(conn)
				_ = conn.Close()
			}
			s.logger.Info("Client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// cleanupConnection unseats a departed client from its room, if any.
func (s *Server) cleanupConnection(conn *Connection) {
	playerID, username := conn.Identity()
	code := conn.Room()
	if playerID == "" || code == "" {
		return
	}
	s.logger.Info("Cleaning up disconnected player", "player", username, "room", code)
	if err := s.rooms.LeaveRoom(context.Background(), code, playerID, username); err != nil {
		s.logger.Warn("Disconnect cleanup failed", "player", username, "room", code, "error", err)
	}
	s.BroadcastRoom(code)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(ws, s, s.logger)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rooms.List())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	acct, err := s.bank.Account(r.Context(), username)
	if err != nil {
		if errors.Is(err, bankroll.ErrUnknownUser) {
			writeJSON(w, http.StatusNotFound, ErrorData{Code: "unknown_user", Message: err.Error()})
			return
		}
		s.logger.Error("Stats lookup failed", "player", username, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorData{Code: "internal_error", Message: "stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ensureAccount provisions a bankroll account at auth time.
func (s *Server) ensureAccount(ctx context.Context, username string) error {
	_, err := s.bank.Ensure(ctx, username)
	return err
}

// BroadcastRoom sends every member of a room their own view of its state.
// Snapshots are per viewer so hole cards never cross seats.
func (s *Server) BroadcastRoom(code string) {
	r, err := s.rooms.Room(code)
	if err != nil {
		return
	}

	s.mu.RLock()
	members := make([]*Connection, 0, 8)
	for conn := range s.connections {
		if conn.Room() == code {
			members = append(members, conn)
		}
	}
	s.mu.RUnlock()

	for _, conn := range members {
		playerID, _ := conn.Identity()
		state := r.Snapshot(playerID)
		msg, err := NewMessage(MessageTypeRoomState, RoomStateData{State: state})
		if err != nil {
			s.logger.Error("Failed to create room state message", "error", err)
			continue
		}
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Debug("Failed to send room state", "error", err)
		}
	}
}

// broadcastToRoom fans one identical message out to every room member.
func (s *Server) broadcastToRoom(code string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.Room() == code {
			_ = conn.SendMessage(msg)
		}
	}
}

// Message handlers, invoked from connection read pumps.

func (s *Server) handleCreateRoom(c *Connection) {
	playerID, username := c.Identity()
	if c.Room() != "" {
		c.sendError("already_in_room", "Leave the current room first")
		return
	}

	r, err := s.rooms.CreateRoom(c.ctx, playerID, username)
	if err != nil {
		c.sendOpError(err)
		return
	}
	c.setRoom(r.Code)
	s.BroadcastRoom(r.Code)
}

func (s *Server) handleJoinRoom(c *Connection, data JoinRoomData) {
	playerID, username := c.Identity()
	if c.Room() != "" {
		c.sendError("already_in_room", "Leave the current room first")
		return
	}

	r, err := s.rooms.JoinRoom(c.ctx, data.RoomID, playerID, username)
	if err != nil {
		c.sendOpError(err)
		return
	}
	c.setRoom(r.Code)
	s.BroadcastRoom(r.Code)
}

func (s *Server) handleLeaveRoom(c *Connection) {
	playerID, username := c.Identity()
	code := c.Room()
	if code == "" {
		c.sendError("not_in_room", "Not seated at a room")
		return
	}

	if err := s.rooms.LeaveRoom(c.ctx, code, playerID, username); err != nil {
		c.sendOpError(err)
		return
	}
	c.setRoom("")

	msg, err := NewMessage(MessageTypeRoomLeft, RoomData{RoomID: code})
	if err == nil {
		_ = c.SendMessage(msg)
	}
	s.BroadcastRoom(code)
}

func (s *Server) handleBuyIn(c *Connection, data BuyInData) {
	playerID, username := c.Identity()
	code := c.Room()
	if code == "" || (data.RoomID != "" && data.RoomID != code) {
		c.sendError("not_in_room", "Not seated at that room")
		return
	}

	if err := s.rooms.BuyIn(c.ctx, code, playerID, username, data.Amount); err != nil {
		c.sendOpError(err)
		return
	}
	s.BroadcastRoom(code)
}

func (s *Server) handleStartHand(c *Connection) {
	code := c.Room()
	if code == "" {
		c.sendError("not_in_room", "Not seated at a room")
		return
	}

	if err := s.rooms.StartHand(c.ctx, code); err != nil {
		c.sendOpError(err)
		return
	}
	s.BroadcastRoom(code)
}

func (s *Server) handleAction(c *Connection, data ActionData) {
	playerID, _ := c.Identity()
	code := c.Room()
	if code == "" {
		c.sendError("not_in_room", "Not seated at a room")
		return
	}

	var err error
	switch data.Action {
	case "fold":
		err = s.rooms.Fold(c.ctx, code, playerID)
	case "call", "check":
		err = s.rooms.Call(c.ctx, code, playerID)
	case "raise":
		err = s.rooms.Raise(c.ctx, code, playerID, data.Amount)
	default:
		c.sendError("invalid_action", "Unknown action: "+data.Action)
		return
	}
	if err != nil {
		c.sendOpError(err)
		return
	}
	s.BroadcastRoom(code)
}

func (s *Server) handleChat(c *Connection, data ChatData) {
	_, username := c.Identity()
	code := c.Room()
	if code == "" {
		c.sendError("not_in_room", "Not seated at a room")
		return
	}
	if data.Message == "" {
		return
	}

	msg, err := NewMessage(MessageTypeChat, ChatBroadcastData{
		RoomID:   code,
		Username: username,
		Message:  data.Message,
		SentAt:   time.Now(),
	})
	if err != nil {
		s.logger.Error("Failed to create chat message", "error", err)
		return
	}
	s.broadcastToRoom(code, msg)
}

func (s *Server) handleGetState(c *Connection) {
	playerID, _ := c.Identity()
	code := c.Room()
	if code == "" {
		c.sendError("not_in_room", "Not seated at a room")
		return
	}

	r, err := s.rooms.Room(code)
	if err != nil {
		c.sendOpError(err)
		return
	}
	msg, err := NewMessage(MessageTypeRoomState, RoomStateData{State: r.Snapshot(playerID)})
	if err != nil {
		s.logger.Error("Failed to create room state message", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

func (s *Server) handleGetStats(c *Connection, data StatsRequestData) {
	_, username := c.Identity()
	if data.Username != "" {
		username = data.Username
	}

	acct, err := s.bank.Account(c.ctx, username)
	if err != nil {
		c.sendOpError(err)
		return
	}
	msg, err := NewMessage(MessageTypeStats, StatsData{Account: acct})
	if err != nil {
		s.logger.Error("Failed to create stats message", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}
