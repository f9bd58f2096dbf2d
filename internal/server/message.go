package server

import (
	"encoding/json"
	"time"

	"github.com/akrabse/Joker-Poker/internal/bankroll"
	"github.com/akrabse/Joker-Poker/internal/room"
)

// MessageType discriminates WebSocket payloads.
type MessageType string

const (
	// Client → Server
	MessageTypeAuth       MessageType = "auth"
	MessageTypeCreateRoom MessageType = "createRoom"
	MessageTypeJoinRoom   MessageType = "joinRoom"
	MessageTypeLeaveRoom  MessageType = "leaveRoom"
	MessageTypeBuyIn      MessageType = "buyIn"
	MessageTypeStartHand  MessageType = "startHand"
	MessageTypeAction     MessageType = "action"
	MessageTypeChat       MessageType = "chatMessage"
	MessageTypeGetState   MessageType = "getState"
	MessageTypeGetStats   MessageType = "getStats"

	// Server → Client
	MessageTypeAuthResponse MessageType = "authResponse"
	MessageTypeRoomState    MessageType = "roomState"
	MessageTypeRoomLeft     MessageType = "roomLeft"
	MessageTypeStats        MessageType = "stats"
	MessageTypeError        MessageType = "error"
)

// Message is the base WebSocket frame.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps data in a timestamped frame.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = bytes
	}
	return &Message{
		Type:      messageType,
		Data:      raw,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server payloads

type AuthData struct {
	Username string `json:"username"`
}

type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

type BuyInData struct {
	RoomID string `json:"roomId"`
	Amount int    `json:"amount"`
}

type RoomData struct {
	RoomID string `json:"roomId"`
}

// ActionData carries a betting decision: fold, call or raise. Amount is
// the additional chips committed and only meaningful for raise.
type ActionData struct {
	RoomID string `json:"roomId"`
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

type ChatData struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type StatsRequestData struct {
	Username string `json:"username,omitempty"`
}

// Server → Client payloads

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

type RoomStateData struct {
	State room.State `json:"state"`
}

type ChatBroadcastData struct {
	RoomID   string    `json:"roomId"`
	Username string    `json:"username"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sentAt"`
}

type StatsData struct {
	Account bankroll.Account `json:"account"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
