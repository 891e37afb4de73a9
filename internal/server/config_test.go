package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerConfig(t *testing.T) {
	src := `
server {
  port            = 9000
  log_format      = "json"
  database        = "data/holdem.db"
  action_timeout  = "15s"
  seed            = 7
}

table "high" {
  small_blind = 50
  big_blind   = 100
  max_players = 9
  chip_unit   = 50
}

table "micro" {
  small_blind = 1
  big_blind   = 2
  min_players = 3
  buy_in_min  = 40
  buy_in_max  = 200
}
`
	config, err := ParseServerConfig([]byte(src), "holdem.hcl")
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "localhost:9000", config.GetServerAddress())
	assert.Equal(t, "info", config.Server.LogLevel)
	assert.Equal(t, "json", config.Server.LogFormat)
	assert.Equal(t, "data/holdem.db", config.Server.Database)
	assert.Equal(t, int64(7), config.Server.Seed)
	assert.Equal(t, 15*time.Second, config.ActionTimeout())
	assert.Equal(t, 3*time.Second, config.NextHandDelay())

	require.Len(t, config.Tables, 2)
	high := config.Tables[0].GameConfig()
	assert.Equal(t, "high", high.Name)
	assert.Equal(t, []int64{50, 100}, high.Blinds)
	assert.Equal(t, 2, high.MinPlayers)
	assert.Equal(t, 9, high.Seats)
	assert.Equal(t, int64(5000), high.MinBuyIn)
	assert.Equal(t, int64(50000), high.MaxBuyIn)
	assert.True(t, config.AutoStart())
	assert.Equal(t, RunnerConfig{
		ActionTimeout: 15 * time.Second,
		NextHandDelay: 3 * time.Second,
		AutoStart:     true,
	}, config.RunnerConfig())

	micro := config.Tables[1].GameConfig()
	assert.Equal(t, 3, micro.MinPlayers)
	assert.Equal(t, 6, micro.MaxPlayers)
	assert.Equal(t, int64(1), micro.ChipUnit)
	assert.Equal(t, int64(40), micro.MinBuyIn)
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		errMsg string
	}{
		{
			name:   "inverted blinds",
			src:    "table \"t\" {\n small_blind = 10\n big_blind = 5\n}",
			errMsg: "big blind must be greater",
		},
		{
			name:   "bad timeout",
			src:    `server { action_timeout = "soon" }`,
			errMsg: "invalid action_timeout",
		},
		{
			name:   "duplicate table",
			src:    "table \"t\" {\n small_blind = 1\n big_blind = 2\n}\ntable \"t\" {\n small_blind = 1\n big_blind = 2\n}",
			errMsg: "configured twice",
		},
		{
			name:   "buy-in below big blind",
			src:    "table \"t\" {\n small_blind = 10\n big_blind = 20\n buy_in_min = 10\n}",
			errMsg: "table t: min buy-in 10 below big blind 20",
		},
		{
			name:   "blind off the chip unit",
			src:    "table \"t\" {\n small_blind = 5\n big_blind = 20\n chip_unit = 10\n}",
			errMsg: "multiple of 10",
		},
		{
			name:   "log format",
			src:    `server { log_format = "xml" }`,
			errMsg: "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseServerConfig([]byte(tt.src), "test.hcl")
			require.NoError(t, err)
			err = config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestServerConfigAutoStartOff(t *testing.T) {
	config, err := ParseServerConfig([]byte("server {\n auto_start = false\n}"), "test.hcl")
	require.NoError(t, err)
	assert.False(t, config.AutoStart())
	assert.Empty(t, config.Tables)
}

func TestLoadServerConfigDefaults(t *testing.T) {
	config, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	require.NoError(t, config.Validate())
	require.Len(t, config.Tables, 1)
	assert.Equal(t, "main", config.Tables[0].Name)

	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`server {`), 0o644))
	_, err = LoadServerConfig(path)
	assert.Error(t, err)
}
