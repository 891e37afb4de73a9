package server

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/store"
)

// testLogger creates a logger that discards output for tests
func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func seqIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

func testTableConfig() game.Config {
	return game.Config{
		Name:       "test",
		Blinds:     []int64{10, 20},
		MinPlayers: 2,
		MaxPlayers: 6,
		Seats:      6,
		ChipUnit:   10,
		MinBuyIn:   100,
		MaxBuyIn:   2000,
	}
}

type sentEvent struct {
	TableID string // set for broadcasts
	UserID  string // set for private events
	Event   game.Event
}

// recordingEmitter keeps every event in emission order.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sentEvent
}

func (e *recordingEmitter) Broadcast(tableID string, ev game.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, sentEvent{TableID: tableID, Event: ev})
}

func (e *recordingEmitter) SendToUser(userID string, ev game.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, sentEvent{UserID: userID, Event: ev})
}

func (e *recordingEmitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func (e *recordingEmitter) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, len(e.events))
	for i, ev := range e.events {
		names[i] = ev.Event.EventName()
	}
	return names
}

func (e *recordingEmitter) Named(name string) []sentEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []sentEvent
	for _, ev := range e.events {
		if ev.Event.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

func (e *recordingEmitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = nil
}

type harness struct {
	manager  *GameManager
	runner   *TableRunner
	registry *game.Registry
	emitter  *recordingEmitter
	clock    *quartz.Mock
	repo     store.Repository
}

// newHarness creates one table backed by repo with the users seated in
// order.
func newHarness(t *testing.T, repo store.Repository, runner RunnerConfig, users ...string) *harness {
	t.Helper()
	h := &harness{
		registry: game.NewRegistry(),
		emitter:  &recordingEmitter{},
		clock:    quartz.NewMock(t),
		repo:     repo,
	}
	h.manager = NewGameManager(ManagerConfig{
		Repository:   repo,
		Registry:     h.registry,
		Emitter:      h.emitter,
		Clock:        h.clock,
		Runner:       runner,
		Seed:         42,
		TableOptions: []game.Option{game.WithIDGenerator(seqIDs("id"))},
	}, testLogger())
	t.Cleanup(h.manager.StopAll)

	var err error
	h.runner, err = h.manager.CreateGame(context.Background(), testTableConfig())
	require.NoError(t, err)

	for _, user := range users {
		_, err := h.runner.Join(context.Background(), JoinRequest{UserID: user, Username: user, BuyIn: 1000})
		require.NoError(t, err)
	}
	return h
}

// activeUser returns the user on turn and their betting round player id.
func (h *harness) activeUser(t *testing.T) (string, string) {
	t.Helper()
	tbl := h.runner.Table()
	require.NotNil(t, tbl.Round, "no hand running")
	brpID := tbl.Round.ActiveBettingRound().ActiveID
	userID, err := h.registry.ResolveBettingRoundPlayer(brpID)
	require.NoError(t, err)
	return userID, brpID
}

// passive checks or calls for whoever is on turn.
func (h *harness) passive(t *testing.T) {
	t.Helper()
	userID, brpID := h.activeUser(t)
	owed, err := h.runner.Table().AmountOwed(brpID)
	require.NoError(t, err)
	intent := game.Intent{Type: game.Check}
	if owed > 0 {
		intent = game.Intent{Type: game.Call, Amount: owed}
	}
	require.NoError(t, h.runner.HandlePlayerAction(context.Background(), Actor{UserID: userID}, []game.Intent{intent}))
}

// fireNext runs the next pending timer and waits for its callback.
func (h *harness) fireNext(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, w := h.clock.AdvanceNext()
	w.MustWait(ctx)
}

func totalChips(tbl *game.Table) int64 {
	var total int64
	for _, p := range tbl.Players {
		total += p.Stack
	}
	if tbl.Round != nil {
		total += tbl.Round.Pot
	}
	return total
}
