package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/game"
	"github.com/lox/holdemtables/internal/server"
	"github.com/lox/holdemtables/internal/store"
)

func TestEvaluate(t *testing.T) {
	results, err := evaluate([]string{"AhAd", "KcKs", "QhQd"}, "AcKh7s2d3c")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].Place)
	assert.Equal(t, 2, results[1].Place)
	assert.Equal(t, 3, results[2].Place)

	var buf bytes.Buffer
	require.NoError(t, printResults(&buf, results))
	assert.Contains(t, buf.String(), "PLACE")
	assert.Contains(t, buf.String(), "Ah Ad")
}

func TestEvaluateSplit(t *testing.T) {
	// Both play the broadway straight on the board
	results, err := evaluate([]string{"2c3d", "4h5s"}, "AsKdQcJhTs")
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].Place)
	assert.Equal(t, 1, results[1].Place)
}

func TestEvaluateWholeHands(t *testing.T) {
	results, err := evaluate([]string{"AhKhQhJhTh", "2c2d2h2s3c4d5h"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Royal Flush", results[0].Best.Name())
	assert.Equal(t, 1, results[0].Place)
	assert.Equal(t, "Four of a Kind", results[1].Best.Name())
	assert.Equal(t, 2, results[1].Place)
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		hands []string
		board string
	}{
		{"short board", []string{"AhAd"}, "AcKh7s"},
		{"six cards", []string{"AhAdKhKd2c3c"}, ""},
		{"bad card", []string{"AhXx"}, "AcKh7s2d3c"},
		{"three hole cards", []string{"AhAd2s"}, "AcKh7s2d3c"},
		{"duplicate", []string{"AhAd", "AdKs"}, "AcKh7s2d3c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluate(tt.hands, tt.board)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug", "json")
	require.NoError(t, err)
	logger.Debug("hello", "table", "t1")
	assert.Contains(t, buf.String(), `"table":"t1"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "yaml")
	assert.Error(t, err)
}

func TestServeOverride(t *testing.T) {
	cfg := server.DefaultServerConfig()
	seed := int64(9)
	cmd := ServeCmd{Addr: "0.0.0.0:9100", Database: "x.db", Memory: true, Seed: &seed}
	require.NoError(t, cmd.override(cfg))
	assert.Equal(t, "0.0.0.0:9100", cfg.GetServerAddress())
	assert.Empty(t, cfg.Server.Database)
	assert.Equal(t, int64(9), cfg.Server.Seed)

	cmd = ServeCmd{Addr: "nohost"}
	assert.Error(t, cmd.override(cfg))
}

func TestEnsureTablesSkipsStored(t *testing.T) {
	ctx := context.Background()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	repo := store.NewMemoryRepository()
	cfg, err := server.ParseServerConfig([]byte(`
table "main" {
  small_blind = 5
  big_blind   = 10
}
table "high" {
  small_blind = 50
  big_blind   = 100
}
`), "holdem.hcl")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	newManager := func() *server.GameManager {
		gm := server.NewGameManager(server.ManagerConfig{
			Repository: repo,
			Registry:   game.NewRegistry(),
			Emitter:    nopEmitter{},
			Clock:      quartz.NewMock(t),
		}, logger)
		t.Cleanup(gm.StopAll)
		return gm
	}

	first := newManager()
	require.NoError(t, ensureTables(ctx, first, cfg.Tables, logger))
	require.Len(t, first.ListGames(), 2)

	// A restart restores the stored tables instead of creating new ones
	second := newManager()
	require.NoError(t, second.LoadAll(ctx))
	require.NoError(t, ensureTables(ctx, second, cfg.Tables, logger))
	stored, err := repo.ListGames(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Len(t, second.ListGames(), 2)
}

type nopEmitter struct{}

func (nopEmitter) Broadcast(string, game.Event)  {}
func (nopEmitter) SendToUser(string, game.Event) {}
