package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/wordchain-backend/internal/directory"
	"github.com/DoyleJ11/wordchain-backend/internal/dispatch"
	"github.com/DoyleJ11/wordchain-backend/internal/hub"
	"github.com/DoyleJ11/wordchain-backend/internal/lexicon"
	"github.com/DoyleJ11/wordchain-backend/internal/lobby"
	"github.com/DoyleJ11/wordchain-backend/internal/types"
)

func newServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	dir := directory.New()
	bc := directory.NewBroadcaster(dir, zap.NewNop())
	oracle := lexicon.OracleFunc(func(context.Context, string) lexicon.Verdict { return lexicon.Recognized })
	h := hub.NewHub(context.Background(), func(ctx context.Context, code string) *lobby.Lobby {
		return lobby.NewLobby(ctx, code, lobby.Deps{Oracle: oracle, Broadcaster: bc, Binder: dir, TickInterval: time.Hour})
	}, zap.NewNop())
	t.Cleanup(h.Shutdown)

	srv := httptest.NewServer(Handler(dispatch.New(h, dir, bc, zap.NewNop()), zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(payload)))
}

func readType(t *testing.T, conn *websocket.Conn, want string) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", want)
		var msg types.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == want {
			return msg
		}
	}
}

func TestHandler_CreateJoinStart(t *testing.T) {
	srv, _ := newServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	send(t, a, `{"type":"create_room"}`)
	created := readType(t, a, types.MsgRoomCreated)
	assert.Equal(t, "player1", created.PlayerID)

	send(t, b, `{"type":"join_room","roomId":"`+created.RoomID+`"}`)
	assert.Equal(t, "player2", readType(t, b, types.MsgPlayerAssigned).PlayerID)
	readType(t, a, types.MsgPlayerJoined)

	send(t, a, `{"type":"start_game"}`)
	started := readType(t, b, types.MsgGameStarted)
	require.NotNil(t, started.GameState)
	assert.Equal(t, 10, started.GameState.Timer)
}

func TestHandler_BadPayload(t *testing.T) {
	srv, _ := newServer(t)
	a := dial(t, srv)

	send(t, a, `garbage`)
	assert.Equal(t, "invalid message format", readType(t, a, types.MsgError).Message)
}

func TestHandler_CloseRemovesEmptyRoom(t *testing.T) {
	srv, h := newServer(t)
	a := dial(t, srv)

	send(t, a, `{"type":"create_room"}`)
	code := readType(t, a, types.MsgRoomCreated).RoomID
	require.NotNil(t, h.Get(code))

	require.NoError(t, a.Close(websocket.StatusNormalClosure, "bye"))

	require.Eventually(t, func() bool { return h.Get(code) == nil }, 2*time.Second, 10*time.Millisecond)
}
