package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdemtables/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address        string `hcl:"address,optional"`
	Port           int    `hcl:"port,optional"`
	LogLevel       string `hcl:"log_level,optional"`
	LogFormat      string `hcl:"log_format,optional"`
	Database       string `hcl:"database,optional"` // sqlite path, empty for memory
	ActionTimeout  string `hcl:"action_timeout,optional"`
	NextHandDelay  string `hcl:"next_hand_delay,optional"`
	AutoStart      *bool  `hcl:"auto_start,optional"`
	HandHistoryDir string `hcl:"hand_history_dir,optional"` // empty disables PHH files
	Seed           int64  `hcl:"seed,optional"`
}

// TableConfig defines a poker table created at startup
type TableConfig struct {
	Name       string  `hcl:"name,label"`
	SmallBlind int64   `hcl:"small_blind"`
	BigBlind   int64   `hcl:"big_blind"`
	MinPlayers int     `hcl:"min_players,optional"`
	MaxPlayers int     `hcl:"max_players,optional"`
	Seats      int     `hcl:"seats,optional"`
	ChipUnit   int64   `hcl:"chip_unit,optional"`
	Rake       float64 `hcl:"rake,optional"`
	BuyInMin   int64   `hcl:"buy_in_min,optional"`
	BuyInMax   int64   `hcl:"buy_in_max,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	config := &ServerConfig{
		Tables: []TableConfig{{Name: "main", SmallBlind: 5, BigBlind: 10}},
	}
	config.applyDefaults()
	return config
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseServerConfig(src, filename)
}

// ParseServerConfig decodes HCL source and applies defaults
func ParseServerConfig(src []byte, filename string) (*ServerConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "text"
	}
	if c.Server.ActionTimeout == "" {
		c.Server.ActionTimeout = "30s"
	}
	if c.Server.NextHandDelay == "" {
		c.Server.NextHandDelay = "3s"
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.MinPlayers == 0 {
			t.MinPlayers = 2
		}
		if t.MaxPlayers == 0 {
			t.MaxPlayers = 6
		}
		if t.Seats == 0 {
			t.Seats = t.MaxPlayers
		}
		if t.ChipUnit == 0 {
			t.ChipUnit = 1
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 50 // 50 big blinds minimum
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 500 // 500 big blinds maximum
		}
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid log format: %s", c.Server.LogFormat)
	}
	if d, err := time.ParseDuration(c.Server.ActionTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid action_timeout %q", c.Server.ActionTimeout)
	}
	if d, err := time.ParseDuration(c.Server.NextHandDelay); err != nil || d < 0 {
		return fmt.Errorf("invalid next_hand_delay %q", c.Server.NextHandDelay)
	}

	seen := make(map[string]bool, len(c.Tables))
	for _, table := range c.Tables {
		if seen[table.Name] {
			return fmt.Errorf("table %s: configured twice", table.Name)
		}
		seen[table.Name] = true
		if table.BigBlind <= table.SmallBlind {
			return fmt.Errorf("table %s: big blind must be greater than small blind", table.Name)
		}
		if err := table.GameConfig().Validate(); err != nil {
			return fmt.Errorf("table %s: %w", table.Name, err)
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// ActionTimeout returns how long a player has to act
func (c *ServerConfig) ActionTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ActionTimeout)
	return d
}

// NextHandDelay returns the pause between hands
func (c *ServerConfig) NextHandDelay() time.Duration {
	d, _ := time.ParseDuration(c.Server.NextHandDelay)
	return d
}

// AutoStart reports whether hands are dealt without a manual start, which is
// the default
func (c *ServerConfig) AutoStart() bool {
	return c.Server.AutoStart == nil || *c.Server.AutoStart
}

// RunnerConfig returns the per-table runner settings
func (c *ServerConfig) RunnerConfig() RunnerConfig {
	return RunnerConfig{
		ActionTimeout: c.ActionTimeout(),
		NextHandDelay: c.NextHandDelay(),
		AutoStart:     c.AutoStart(),
	}
}

// GameConfig converts the block into the domain table config
func (t TableConfig) GameConfig() game.Config {
	return game.Config{
		Name:       t.Name,
		Blinds:     []int64{t.SmallBlind, t.BigBlind},
		MinPlayers: t.MinPlayers,
		MaxPlayers: t.MaxPlayers,
		Seats:      t.Seats,
		ChipUnit:   t.ChipUnit,
		Rake:       t.Rake,
		MinBuyIn:   t.BuyInMin,
		MaxBuyIn:   t.BuyInMax,
	}
}
