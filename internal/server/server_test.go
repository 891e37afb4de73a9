package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/store"
)

type gateway struct {
	srv      *Server
	games    *GameManager
	registry *game.Registry
	http     *httptest.Server
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	return newGatewayWithRepo(t, store.NewMemoryRepository())
}

func newGatewayWithRepo(t *testing.T, repo store.Repository) *gateway {
	t.Helper()
	g := &gateway{
		srv:      NewServer("", testLogger()),
		registry: game.NewRegistry(),
	}
	g.games = NewGameManager(ManagerConfig{
		Repository: repo,
		Registry:   g.registry,
		Emitter:    g.srv,
		Clock:      quartz.NewMock(t),
		Runner:     manual,
		Seed:       42,
	}, testLogger())
	g.srv.SetGameManager(g.games)
	g.http = httptest.NewServer(g.srv.Handler())

	t.Cleanup(func() {
		g.games.StopAll()
		_ = g.srv.Stop()
		g.http.Close()
	})
	return g
}

func (g *gateway) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ MessageType, requestID string, data any) {
	t.Helper()
	msg, err := NewMessage(typ, data)
	require.NoError(t, err)
	msg.RequestID = requestID
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil reads messages until one of the given type arrives and returns it
// with every message read before it.
func readUntil(t *testing.T, conn *websocket.Conn, typ MessageType) (Message, []Message) {
	t.Helper()
	var skipped []Message
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", typ)
		if msg.Type == typ {
			return msg, skipped
		}
		skipped = append(skipped, msg)
	}
}

func (g *gateway) seat(t *testing.T, tableID, userID string) *websocket.Conn {
	t.Helper()
	conn := g.dial(t)
	send(t, conn, MessageTypeAuth, "auth", AuthData{UserID: userID})
	resp, _ := readUntil(t, conn, MessageTypeAuthResponse)
	assert.Equal(t, "auth", resp.RequestID)

	send(t, conn, MessageTypeJoinTable, "join", JoinTableData{TableID: tableID, BuyIn: 1000})
	joined, _ := readUntil(t, conn, MessageTypeTableJoined)
	var data TableJoinedData
	require.NoError(t, json.Unmarshal(joined.Data, &data))
	assert.Equal(t, tableID, data.TableID)
	assert.Equal(t, int64(1000), data.Stack)
	assert.NotEmpty(t, data.PositionID)
	return conn
}

type dealtCards struct {
	BettingRoundPlayerID string            `json:"betting_round_player_id"`
	HoleCards            []json.RawMessage `json:"hole_cards"`
}

func TestServerDealsHoleCardsPrivately(t *testing.T) {
	g := newGateway(t)
	runner, err := g.games.CreateGame(context.Background(), testTableConfig())
	require.NoError(t, err)

	conns := map[string]*websocket.Conn{
		"alice": g.seat(t, runner.ID(), "alice"),
		"bob":   g.seat(t, runner.ID(), "bob"),
	}
	require.NoError(t, runner.InitiateNewRound(context.Background()))

	for user, conn := range conns {
		// table_list is requested after the deal, so everything before it
		// was emitted by the deal.
		send(t, conn, MessageTypeListTables, "list", nil)
		list, before := readUntil(t, conn, MessageTypeTableList)

		var tables TableListData
		require.NoError(t, json.Unmarshal(list.Data, &tables))
		require.Len(t, tables.Tables, 1)
		assert.True(t, tables.Tables[0].InHand)

		var dealt []dealtCards
		started := 0
		for _, msg := range before {
			switch msg.Type {
			case MessageType(game.EventRoundCardsDealt):
				var d dealtCards
				require.NoError(t, json.Unmarshal(msg.Data, &d))
				dealt = append(dealt, d)
			case MessageType(game.EventRoundStarted):
				started++
			}
		}
		assert.Equal(t, 1, started, user)
		require.Len(t, dealt, 1, user)
		assert.Len(t, dealt[0].HoleCards, 2)
		owner, err := g.registry.ResolveBettingRoundPlayer(dealt[0].BettingRoundPlayerID)
		require.NoError(t, err)
		assert.Equal(t, user, owner)
	}
}

func TestServerReportsGameErrors(t *testing.T) {
	g := newGateway(t)
	runner, err := g.games.CreateGame(context.Background(), testTableConfig())
	require.NoError(t, err)

	conns := map[string]*websocket.Conn{
		"alice": g.seat(t, runner.ID(), "alice"),
		"bob":   g.seat(t, runner.ID(), "bob"),
	}
	require.NoError(t, runner.InitiateNewRound(context.Background()))

	tbl := runner.Table()
	active, err := g.registry.ResolveBettingRoundPlayer(tbl.Round.ActiveBettingRound().ActiveID)
	require.NoError(t, err)
	waiting := "alice"
	if active == "alice" {
		waiting = "bob"
	}

	conn := conns[waiting]
	send(t, conn, MessageTypePlayerAction, "early", PlayerActionData{
		TableID: runner.ID(),
		Actions: []ActionData{{Type: "check"}},
	})
	msg, _ := readUntil(t, conn, MessageTypeError)
	assert.Equal(t, "early", msg.RequestID)
	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, string(game.CodeNotActivePlayer), data.Code)

	send(t, conn, MessageTypePlayerAction, "bogus", PlayerActionData{
		TableID: runner.ID(),
		Actions: []ActionData{{Type: "shove"}},
	})
	msg, _ = readUntil(t, conn, MessageTypeError)
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, string(game.CodeInvalidAction), data.Code)

	send(t, conn, MessageTypeLeaveTable, "leave", LeaveTableData{TableID: runner.ID()})
	msg, _ = readUntil(t, conn, MessageTypeError)
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, string(game.CodePlayerInHand), data.Code)

	send(t, conn, MessageTypeJoinTable, "missing", JoinTableData{TableID: "nope", BuyIn: 500})
	msg, _ = readUntil(t, conn, MessageTypeError)
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, ErrorCodeTableNotFound, data.Code)
}

func TestServerRequiresAuth(t *testing.T) {
	g := newGateway(t)
	conn := g.dial(t)

	send(t, conn, MessageTypeJoinTable, "1", JoinTableData{TableID: "any"})
	msg, _ := readUntil(t, conn, MessageTypeError)
	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, ErrorCodeNotAuthenticated, data.Code)

	send(t, conn, MessageType("dance"), "2", nil)
	msg, _ = readUntil(t, conn, MessageTypeError)
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, ErrorCodeUnknownType, data.Code)
}

func TestServerHTTPRoutes(t *testing.T) {
	g := newGateway(t)
	cfg := testTableConfig()
	cfg.Name = "lobby"
	_, err := g.games.CreateGame(context.Background(), cfg)
	require.NoError(t, err)

	resp, err := http.Get(g.http.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(g.http.URL + "/tables")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var list TableListData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Tables, 1)
	assert.Equal(t, "lobby", list.Tables[0].Name)
}

// slowUnseatRepository holds the first seat release until released.
type slowUnseatRepository struct {
	store.Repository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *slowUnseatRepository) UnseatPlayer(ctx context.Context, tableID, playerID string, pos game.TablePosition) error {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return r.Repository.UnseatPlayer(ctx, tableID, playerID, pos)
}

func TestServerDisconnectKeepsHubResponsive(t *testing.T) {
	repo := &slowUnseatRepository{
		Repository: store.NewMemoryRepository(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	g := newGatewayWithRepo(t, repo)
	runner, err := g.games.CreateGame(context.Background(), testTableConfig())
	require.NoError(t, err)

	alice := g.seat(t, runner.ID(), "alice")
	require.NoError(t, alice.Close())

	select {
	case <-repo.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("seat was not released after disconnect")
	}

	// New clients are served while the seat release is still being stored.
	bob := g.dial(t)
	send(t, bob, MessageTypeAuth, "auth", AuthData{UserID: "bob"})
	resp, _ := readUntil(t, bob, MessageTypeAuthResponse)
	assert.Equal(t, "auth", resp.RequestID)

	close(repo.release)
	assert.Eventually(t, func() bool {
		_, seated := runner.Table().PlayerByUser("alice")
		return !seated
	}, 5*time.Second, 10*time.Millisecond)
}
