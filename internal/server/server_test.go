package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akrabse/Joker-Poker/internal/bankroll"
	"github.com/akrabse/Joker-Poker/internal/game"
	"github.com/akrabse/Joker-Poker/internal/randutil"
	"github.com/akrabse/Joker-Poker/internal/room"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *bankroll.Memory) {
	t.Helper()
	clock := quartz.NewReal()
	bank := bankroll.NewMemory(clock)
	logger := log.New(io.Discard)
	rooms := room.NewManager(room.Config{
		SmallBlind: 5,
		BigBlind:   10,
		MinPlayers: 2,
		MaxPlayers: 8,
	}, bank, randutil.New(42), clock, logger)

	s := New("unused", rooms, bank, logger)
	go s.run()
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Stop()
	})
	return s, ts, bank
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialClient(t *testing.T, ts *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(msgType MessageType, data interface{}) {
	c.t.Helper()
	msg, err := NewMessage(msgType, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

// expect reads frames until one of the wanted type arrives.
func (c *testClient) expect(msgType MessageType) *Message {
	c.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(c.t, c.conn.SetReadDeadline(deadline))
		var msg Message
		require.NoError(c.t, c.conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return &msg
		}
	}
}

func (c *testClient) auth(username string) AuthResponseData {
	c.t.Helper()
	c.send(MessageTypeAuth, AuthData{Username: username})
	var resp AuthResponseData
	msg := c.expect(MessageTypeAuthResponse)
	require.NoError(c.t, json.Unmarshal(msg.Data, &resp))
	return resp
}

func (c *testClient) roomState() room.State {
	c.t.Helper()
	var data RoomStateData
	msg := c.expect(MessageTypeRoomState)
	require.NoError(c.t, json.Unmarshal(msg.Data, &data))
	return data.State
}

func TestHealthEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK", string(body))
}

func TestStatsEndpoint(t *testing.T) {
	_, ts, bank := newTestServer(t)
	ctx := context.Background()
	_, err := bank.Ensure(ctx, "alice")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/stats/alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var acct bankroll.Account
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&acct))
	assert.Equal(t, "alice", acct.Username)
	assert.Equal(t, bankroll.StartingChips, acct.Chips)

	resp, err = http.Get(ts.URL + "/api/stats/nobody")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthRequiredBeforePlay(t *testing.T) {
	_, ts, _ := newTestServer(t)
	c := dialClient(t, ts)

	c.send(MessageTypeCreateRoom, nil)
	msg := c.expect(MessageTypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "not_authenticated", errData.Code)
}

func TestAuthRejectsEmptyUsername(t *testing.T) {
	_, ts, _ := newTestServer(t)
	c := dialClient(t, ts)

	resp := c.auth("   ")
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestFullHandOverWebSocket(t *testing.T) {
	_, ts, bank := newTestServer(t)

	alice := dialClient(t, ts)
	resp := alice.auth("alice")
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.PlayerID)

	alice.send(MessageTypeCreateRoom, nil)
	state := alice.roomState()
	code := state.Code
	require.Len(t, code, 6)
	require.Equal(t, game.Waiting, state.Stage)
	require.Len(t, state.Seats, 1)

	bob := dialClient(t, ts)
	require.True(t, bob.auth("bob").Success)
	bob.send(MessageTypeJoinRoom, JoinRoomData{RoomID: code})
	state = bob.roomState()
	require.Len(t, state.Seats, 2)
	alice.roomState() // join broadcast

	// Listed for discovery
	httpResp, err := http.Get(ts.URL + "/api/rooms")
	require.NoError(t, err)
	var list []room.Summary
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&list))
	httpResp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, code, list[0].Code)

	// Both clients read every broadcast so their views stay current
	alice.send(MessageTypeBuyIn, BuyInData{Amount: 200})
	alice.roomState()
	bob.roomState()
	bob.send(MessageTypeBuyIn, BuyInData{Amount: 200})
	alice.roomState()
	state = bob.roomState()
	for _, seat := range state.Seats {
		require.Equal(t, 200, seat.Chips)
	}

	alice.send(MessageTypeStartHand, nil)
	bob.roomState()
	state = alice.roomState()
	require.Equal(t, game.Preflop, state.Stage)
	assert.Equal(t, 15, state.Pot)

	// Alice sees her own hole cards and nobody else's
	for _, seat := range state.Seats {
		if seat.IsYou {
			assert.Len(t, seat.HoleCards, 2)
		} else {
			assert.Empty(t, seat.HoleCards)
		}
	}

	// The current actor folds, ending the heads-up hand
	actor := bob
	for _, seat := range state.Seats {
		if seat.IsYou && seat.Position == state.CurrentPosition {
			actor = alice
		}
	}
	actor.send(MessageTypeAction, ActionData{Action: "fold"})

	bob.roomState()
	state = alice.roomState()
	require.Equal(t, game.Ended, state.Stage)
	require.NotNil(t, state.Winner)
	assert.Equal(t, "won by fold", state.Winner.Hand)

	// The result reached the bankroll
	acct, err := bank.Account(context.Background(), state.Winner.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, acct.HandsWon)
}

func TestChatRelay(t *testing.T) {
	_, ts, _ := newTestServer(t)

	alice := dialClient(t, ts)
	require.True(t, alice.auth("alice").Success)
	alice.send(MessageTypeCreateRoom, nil)
	code := alice.roomState().Code

	bob := dialClient(t, ts)
	require.True(t, bob.auth("bob").Success)
	bob.send(MessageTypeJoinRoom, JoinRoomData{RoomID: code})
	bob.roomState()

	alice.send(MessageTypeChat, ChatData{RoomID: code, Message: "good luck"})

	msg := bob.expect(MessageTypeChat)
	var chat ChatBroadcastData
	require.NoError(t, json.Unmarshal(msg.Data, &chat))
	assert.Equal(t, "alice", chat.Username)
	assert.Equal(t, "good luck", chat.Message)
}

func TestLeaveReturnsStackToBankroll(t *testing.T) {
	_, ts, bank := newTestServer(t)

	alice := dialClient(t, ts)
	require.True(t, alice.auth("alice").Success)
	alice.send(MessageTypeCreateRoom, nil)
	code := alice.roomState().Code

	alice.send(MessageTypeBuyIn, BuyInData{Amount: 150})
	alice.roomState()

	alice.send(MessageTypeLeaveRoom, nil)
	alice.expect(MessageTypeRoomLeft)

	acct, err := bank.Account(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, bankroll.StartingChips, acct.Chips)

	// Empty room is gone from discovery
	resp, err := http.Get(ts.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []room.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)
	_ = code
}
